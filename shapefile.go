package data

// https://www.esri.com/content/dam/esrisites/sitecore-archive/Files/Pdfs/library/whitepapers/pdfs/shapefile.pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// sidecarPath returns the path of the file next to 'path' with extension 'ext', matching the case of
// the .shp extension.
func sidecarPath(path string, ext string) string {

	shp_ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, shp_ext)

	if shp_ext == strings.ToUpper(shp_ext) {
		ext = strings.ToUpper(ext)
	}

	return base + ext
}

// readShapefile reads the shapefile at 'path' (and its .dbf, .prj and optional .cpg sidecars) into a FeatureCollection.
// The second return value is the coordinate reference system declared by the .prj sidecar.
func readShapefile(ctx context.Context, src Source, path string) (*geojson.FeatureCollection, string, error) {

	prj_path := sidecarPath(path, ".prj")
	dbf_path := sidecarPath(path, ".dbf")

	err := ensureFile(src, prj_path)

	if err != nil {

		if IsNotFound(err) {
			return nil, "", fmt.Errorf("Missing coordinate reference system, %s does not exist", prj_path)
		}

		return nil, "", err
	}

	prj, err := readAll(src, prj_path)

	if err != nil {
		return nil, "", err
	}

	crs := strings.TrimSpace(string(prj))

	if crs == "" {
		return nil, "", fmt.Errorf("Missing coordinate reference system, %s is empty", prj_path)
	}

	dec, err := readCodepage(src, path)

	if err != nil {
		return nil, "", err
	}

	shp_fh, err := src.Open(path)

	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to open %s", path)
	}

	dbf_fh, err := src.Open(dbf_path)

	if err != nil {
		shp_fh.Close()
		return nil, "", errors.Wrapf(err, "Failed to open %s", dbf_path)
	}

	// Closes both shp_fh and dbf_fh
	rdr := shp.SequentialReaderFromExt(shp_fh, dbf_fh)
	defer rdr.Close()

	fields := rdr.Fields()
	fc := geojson.NewFeatureCollection()

	for rdr.Next() {

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		default:
			// pass
		}

		n, s := rdr.Shape()

		g, err := shapeToGeometry(s)

		if err != nil {
			return nil, "", errors.Wrapf(err, "Failed to convert shape %d", n)
		}

		f := geojson.NewFeature(g)

		for idx, fld := range fields {

			raw, err := dec.Decode(rdr.Attribute(idx))

			if err != nil {
				return nil, "", errors.Wrapf(err, "Failed to decode attribute '%s' of record %d", fld.String(), n)
			}

			f.Properties[fld.String()] = attributeValue(fld, raw)
		}

		fc.Append(f)
	}

	err = rdr.Err()

	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to read %s", path)
	}

	return fc, crs, nil
}

// attributeValue converts the raw dBASE value 'raw' according to the field type of 'fld'. Empty
// values become nil.
func attributeValue(fld shp.Field, raw string) interface{} {

	v := strings.TrimSpace(strings.Trim(raw, "\x00"))

	if v == "" {
		return nil
	}

	switch fld.Fieldtype {
	case 'N':

		if fld.Precision == 0 {

			i, err := strconv.ParseInt(v, 10, 64)

			if err == nil {
				return i
			}
		}

		f, err := strconv.ParseFloat(v, 64)

		if err == nil {
			return f
		}

	case 'F':

		f, err := strconv.ParseFloat(v, 64)

		if err == nil {
			return f
		}

	case 'L':

		switch strings.ToUpper(v) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		case "?":
			return nil
		}
	}

	return v
}

// shapeToGeometry converts a shapefile record to its orb equivalent. Null shapes yield a nil geometry.
func shapeToGeometry(s shp.Shape) (orb.Geometry, error) {

	switch s := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, nil
	case *shp.MultiPoint:
		return toMultiPoint(s.Points), nil
	case *shp.MultiPointZ:
		return toMultiPoint(s.Points), nil
	case *shp.MultiPointM:
		return toMultiPoint(s.Points), nil
	case *shp.PolyLine:
		return toLines(s.Parts, s.Points), nil
	case *shp.PolyLineZ:
		return toLines(s.Parts, s.Points), nil
	case *shp.PolyLineM:
		return toLines(s.Parts, s.Points), nil
	case *shp.Polygon:
		return toPolygons(s.Parts, s.Points), nil
	case *shp.PolygonZ:
		return toPolygons(s.Parts, s.Points), nil
	case *shp.PolygonM:
		return toPolygons(s.Parts, s.Points), nil
	default:
		return nil, fmt.Errorf("Unsupported shape type %T", s)
	}
}

func toMultiPoint(points []shp.Point) orb.MultiPoint {

	mp := make(orb.MultiPoint, len(points))

	for idx, pt := range points {
		mp[idx] = orb.Point{pt.X, pt.Y}
	}

	return mp
}

// splitParts slices 'points' into the parts starting at each offset in 'parts'.
func splitParts(parts []int32, points []shp.Point) [][]orb.Point {

	out := make([][]orb.Point, 0, len(parts))

	for idx, start := range parts {

		end := int32(len(points))

		if idx+1 < len(parts) {
			end = parts[idx+1]
		}

		if start < 0 || start > end || int(end) > len(points) {
			continue
		}

		part := make([]orb.Point, 0, end-start)

		for _, pt := range points[start:end] {
			part = append(part, orb.Point{pt.X, pt.Y})
		}

		out = append(out, part)
	}

	return out
}

func toLines(parts []int32, points []shp.Point) orb.Geometry {

	mls := orb.MultiLineString{}

	for _, part := range splitParts(parts, points) {
		mls = append(mls, orb.LineString(part))
	}

	if len(mls) == 1 {
		return mls[0]
	}

	return mls
}

// toPolygons assembles shapefile rings into polygons. Outer rings are clockwise and each
// counter-clockwise ring is a hole in the outer ring that contains it.
func toPolygons(parts []int32, points []shp.Point) orb.Geometry {

	mp := orb.MultiPolygon{}
	holes := []orb.Ring{}

	for _, part := range splitParts(parts, points) {

		ring := orb.Ring(part)

		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}

		mp = append(mp, orb.Polygon{ring})
	}

	for _, h := range holes {

		assigned := false

		for idx, poly := range mp {

			if len(h) > 0 && planar.RingContains(poly[0], h[0]) {
				mp[idx] = append(mp[idx], h)
				assigned = true
				break
			}
		}

		// A hole with no enclosing shell is treated as a shell in its own right
		if !assigned {
			h.Reverse()
			mp = append(mp, orb.Polygon{h})
		}
	}

	if len(mp) == 1 {
		return mp[0]
	}

	return mp
}
