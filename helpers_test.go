package data

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const testPRJ = `PROJCS["NAD_1983_StatePlane_New_York_Long_Island_FIPS_3104_Feet",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic"],PARAMETER["False_Easting",984250.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",-74.0],PARAMETER["Standard_Parallel_1",40.66666666666666],PARAMETER["Standard_Parallel_2",41.03333333333333],PARAMETER["Latitude_Of_Origin",40.16666666666666],UNIT["Foot_US",0.3048006096012192]]`

// countingSource wraps OSSource and counts the files opened through it.
type countingSource struct {
	OSSource
	mu     sync.Mutex
	opened map[string]int
}

func newCountingSource() *countingSource {
	return &countingSource{opened: make(map[string]int)}
}

func (s *countingSource) Open(path string) (io.ReadCloser, error) {

	s.mu.Lock()
	s.opened[path] += 1
	s.mu.Unlock()

	return s.OSSource.Open(path)
}

func (s *countingSource) Opened(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened[path]
}

func (s *countingSource) Total() int {

	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0

	for _, n := range s.opened {
		total += n
	}

	return total
}

// recordingNotifier keeps every message it is sent.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Error(ctx context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.messages...)
}

// linearReprojector maps New York State Plane (Long Island, US feet) coordinates to approximate
// longitude, latitude with a linear function. It records every source CRS it is asked for.
type linearReprojector struct {
	mu      sync.Mutex
	sources []string
	fail    bool
}

func (r *linearReprojector) Transformation(ctx context.Context, source string, target string) (Transformation, error) {

	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()

	if target != EPSG4326 {
		return nil, fmt.Errorf("Unexpected target %s", target)
	}

	return &linearTransformation{fail: r.fail}, nil
}

func (r *linearReprojector) Sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.sources...)
}

type linearTransformation struct {
	fail bool
}

func (tr *linearTransformation) Transform(pt orb.Point) (orb.Point, error) {

	if tr.fail {
		return pt, fmt.Errorf("Point %v is out of bounds", pt)
	}

	return linearProject(pt), nil
}

func (tr *linearTransformation) Close() error {
	return nil
}

func linearProject(pt orb.Point) orb.Point {
	lon := -74.0 + (pt.X()-984250.0)/264000.0
	lat := 40.1667 + pt.Y()/364000.0
	return orb.Point{lon, lat}
}

type shapeRecord struct {
	name  string
	boro  int
	parts [][]shp.Point
}

// square returns a clockwise (shapefile outer ring) square with its south-west corner at x, y.
func square(x float64, y float64, size float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}
}

// counterClockwise returns 'ring' reversed.
func counterClockwise(ring []shp.Point) []shp.Point {

	out := make([]shp.Point, len(ring))

	for idx, pt := range ring {
		out[len(ring)-1-idx] = pt
	}

	return out
}

// writeShapefile writes a polygon shapefile with NTAName and BoroCode attributes to 'dir'. A .prj
// sidecar is written when 'prj' is not empty. Records with an empty name have no NTAName value.
func writeShapefile(t *testing.T, dir string, name string, prj string, records []shapeRecord) string {

	t.Helper()

	path := filepath.Join(dir, name)

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("NTAName", 64),
		shp.NumberField("BoroCode", 4),
	}

	require.NoError(t, w.SetFields(fields))

	for idx, r := range records {

		poly := shp.Polygon(*shp.NewPolyLine(r.parts))
		w.Write(&poly)

		if r.name != "" {
			require.NoError(t, w.WriteAttribute(idx, 0, r.name))
		}

		require.NoError(t, w.WriteAttribute(idx, 1, r.boro))
	}

	closeShapefile(t, w, path)

	if prj != "" {
		err = os.WriteFile(sidecarPath(path, ".prj"), []byte(prj), 0644)
		require.NoError(t, err)
	}

	return path
}

// closeShapefile closes 'w' and moves the attribute table go-shp writes to "<base>dbf" to the
// ".dbf" sidecar of 'path'.
func closeShapefile(t *testing.T, w *shp.Writer, path string) {

	t.Helper()

	w.Close()

	base := strings.TrimSuffix(path, filepath.Ext(path))

	err := os.Rename(base+"dbf", sidecarPath(path, ".dbf"))
	require.NoError(t, err)
}

func writeFile(t *testing.T, dir string, name string, body string) string {

	t.Helper()

	path := filepath.Join(dir, name)

	err := os.WriteFile(path, []byte(body), 0644)
	require.NoError(t, err)

	return path
}

// allPoints returns every point in 'g'.
func allPoints(g orb.Geometry) []orb.Point {

	points := []orb.Point{}

	switch g := g.(type) {
	case orb.Point:
		points = append(points, g)
	case orb.MultiPoint:
		points = append(points, g...)
	case orb.LineString:
		points = append(points, g...)
	case orb.Ring:
		points = append(points, g...)
	case orb.MultiLineString:
		for _, ls := range g {
			points = append(points, ls...)
		}
	case orb.Polygon:
		for _, r := range g {
			points = append(points, r...)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				points = append(points, r...)
			}
		}
	}

	return points
}
