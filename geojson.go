package data

import (
	"context"
	"fmt"
	"regexp"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Matches the legacy (GeoJSON 2008) named CRS forms, for example "EPSG:2263",
// "urn:ogc:def:crs:EPSG::2263" or "urn:ogc:def:crs:OGC:1.3:CRS84".
var re_named_crs = regexp.MustCompile(`(?i)(?:^|:)(EPSG):(?:[0-9.]*:)?(\d+)$`)
var re_crs84 = regexp.MustCompile(`(?i)CRS84$`)

// geojsonCRS returns the coordinate reference system declared by the optional "crs" member of 'body'.
// Documents without one are RFC 7946 documents and so are EPSG:4326.
func geojsonCRS(body []byte) (string, error) {

	rsp := gjson.GetBytes(body, "crs.properties.name")

	if !rsp.Exists() {
		return EPSG4326, nil
	}

	name := rsp.String()

	if re_crs84.MatchString(name) {
		return EPSG4326, nil
	}

	m := re_named_crs.FindStringSubmatch(name)

	if len(m) != 3 {
		return "", fmt.Errorf("Unsupported coordinate reference system '%s'", name)
	}

	return fmt.Sprintf("EPSG:%s", m[2]), nil
}

// readGeoJSON reads the GeoJSON document at 'path' into a FeatureCollection. A single Feature, or a bare
// geometry, is returned as a collection of one. The second return value is the declared coordinate reference system.
func readGeoJSON(ctx context.Context, src Source, path string) (*geojson.FeatureCollection, string, error) {

	body, err := readAll(src, path)

	if err != nil {
		return nil, "", err
	}

	crs, err := geojsonCRS(body)

	if err != nil {
		return nil, "", err
	}

	doc_type := gjson.GetBytes(body, "type").String()

	switch doc_type {
	case "FeatureCollection":

		fc, err := geojson.UnmarshalFeatureCollection(body)

		if err != nil {
			return nil, "", errors.Wrapf(err, "Failed to unmarshal feature collection %s", path)
		}

		return fc, crs, nil

	case "Feature":

		f, err := geojson.UnmarshalFeature(body)

		if err != nil {
			return nil, "", errors.Wrapf(err, "Failed to unmarshal feature %s", path)
		}

		fc := geojson.NewFeatureCollection()
		fc.Append(f)

		return fc, crs, nil

	case "":
		return nil, "", fmt.Errorf("Failed to determine GeoJSON type for %s", path)

	default:

		g, err := geojson.UnmarshalGeometry(body)

		if err != nil {
			return nil, "", errors.Wrapf(err, "Failed to unmarshal geometry %s", path)
		}

		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))

		return fc, crs, nil
	}
}
