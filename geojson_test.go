package data

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoJSONCRS(t *testing.T) {

	tests := [][2]string{
		{`{"type":"FeatureCollection","features":[]}`, "EPSG:4326"},
		{`{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"EPSG:2263"}},"features":[]}`, "EPSG:2263"},
		{`{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::2263"}}}`, "EPSG:2263"},
		{`{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG:6.6:32618"}}}`, "EPSG:32618"},
		{`{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:OGC:1.3:CRS84"}}}`, "EPSG:4326"},
	}

	for _, tt := range tests {

		body, expected := tt[0], tt[1]

		crs, err := geojsonCRS([]byte(body))
		require.NoError(t, err, body)

		assert.Equal(t, expected, crs, body)
	}

	_, err := geojsonCRS([]byte(`{"crs":{"type":"name","properties":{"name":"NAD83 / Long Island"}}}`))
	assert.Error(t, err)
}

func TestReadBoundariesGeoJSON(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	body := `{"type":"FeatureCollection",
"crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::2263"}},
"features":[
{"type":"Feature","properties":{"NTAName":"Astoria","BoroCode":4},"geometry":{"type":"Polygon","coordinates":[[[1005000,220000],[1005000,221000],[1006000,221000],[1006000,220000],[1005000,220000]]]}},
{"type":"Feature","properties":{"NTAName":"Chinatown","BoroCode":1},"geometry":{"type":"MultiPolygon","coordinates":[[[[984000,199000],[984000,199500],[984500,199500],[984500,199000],[984000,199000]]]]}}
]}`

	path := writeFile(t, dir, "neighborhoods.geojson", body)

	r := &linearReprojector{}

	ds, err := ReadBoundaries(ctx, NewOSSource(), r, path)
	require.NoError(t, err)

	assert.Equal(t, "EPSG:2263", ds.SourceCRS)
	assert.Equal(t, []string{"EPSG:2263"}, r.Sources())

	require.Equal(t, 2, ds.Len())

	assert.Equal(t, "<b>Neighbourhood:</b> Astoria<br/>", ds.Features.Features[0].Properties["tooltip"])
	assert.Equal(t, "<b>Neighbourhood:</b> Chinatown<br/>", ds.Features.Features[1].Properties["tooltip"])

	_, ok := ds.Features.Features[1].Geometry.(orb.MultiPolygon)
	assert.True(t, ok)

	for _, f := range ds.Features.Features {

		for _, pt := range allPoints(f.Geometry) {
			assert.True(t, pt.Lon() > -74.3 && pt.Lon() < -73.6, "longitude %f out of range", pt.Lon())
			assert.True(t, pt.Lat() > 40.4 && pt.Lat() < 41.0, "latitude %f out of range", pt.Lat())
		}
	}
}

func TestReadBoundariesGeoJSONFeature(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	body := `{"type":"Feature","properties":{"NTAName":"Astoria"},"geometry":{"type":"Point","coordinates":[-73.92,40.77]}}`
	path := writeFile(t, dir, "astoria.geojson", body)

	r := &linearReprojector{}

	ds, err := ReadBoundaries(ctx, NewOSSource(), r, path)
	require.NoError(t, err)

	assert.Equal(t, EPSG4326, ds.SourceCRS)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "<b>Neighbourhood:</b> Astoria<br/>", ds.Features.Features[0].Properties["tooltip"])
}

func TestReadBoundariesGeoJSONGeometry(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	path := writeFile(t, dir, "point.json", `{"type":"Point","coordinates":[-73.92,40.77]}`)

	_, err := ReadBoundaries(ctx, NewOSSource(), &linearReprojector{}, path)

	// A bare geometry has no properties and so no label
	assert.True(t, IsMissingAttribute(err))

	ds, err := ReadBoundaries(ctx, NewOSSource(), &linearReprojector{}, path, WithDefaultLabel("Somewhere"))
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "<b>Neighbourhood:</b> Somewhere<br/>", ds.Features.Features[0].Properties["tooltip"])
}

func TestReadBoundariesGeoJSONInvalid(t *testing.T) {

	ctx := context.Background()
	dir := t.TempDir()

	path := writeFile(t, dir, "broken.geojson", `{"type":"FeatureCollection","features":[{]}`)

	ds, err := ReadBoundaries(ctx, NewOSSource(), &linearReprojector{}, path)
	assert.Nil(t, ds)
	assert.Error(t, err)
}
