package data

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// BoundaryDataset is an in-memory collection of boundary records. Geometries are always
// expressed in EPSG:4326 (longitude, latitude) and every record carries a tooltip property.
type BoundaryDataset struct {
	// The path the dataset was read from, as supplied by the caller.
	Path string
	// The coordinate reference system declared by the source file.
	SourceCRS string
	// The coordinate reference system of Features. Always EPSG:4326.
	CRS string
	// The boundary records, in source order.
	Features *geojson.FeatureCollection
}

// Len returns the number of records in the dataset.
func (d *BoundaryDataset) Len() int {
	return len(d.Features.Features)
}

// MarshalJSON encodes the dataset as a GeoJSON FeatureCollection.
func (d *BoundaryDataset) MarshalJSON() ([]byte, error) {
	return d.Features.MarshalJSON()
}

type boundaryOptions struct {
	label_attribute   string
	tooltip_attribute string
	label_policy      LabelPolicy
	default_label     string
}

// BoundaryOption configures ReadBoundaries and Loader.LoadShapefile.
type BoundaryOption func(*boundaryOptions)

// WithLabelAttribute sets the record attribute used to derive tooltips. The default is "NTAName".
func WithLabelAttribute(attr string) BoundaryOption {
	return func(opts *boundaryOptions) {
		opts.label_attribute = attr
	}
}

// WithTooltipAttribute sets the name of the derived tooltip attribute. The default is "tooltip".
func WithTooltipAttribute(attr string) BoundaryOption {
	return func(opts *boundaryOptions) {
		opts.tooltip_attribute = attr
	}
}

// WithLabelPolicy sets what happens to records missing the label attribute. The default is LabelPolicyFail.
func WithLabelPolicy(p LabelPolicy) BoundaryOption {
	return func(opts *boundaryOptions) {
		opts.label_policy = p
	}
}

// WithDefaultLabel sets the label used for records missing the label attribute and selects LabelPolicyDefault.
func WithDefaultLabel(label string) BoundaryOption {
	return func(opts *boundaryOptions) {
		opts.label_policy = LabelPolicyDefault
		opts.default_label = label
	}
}

func newBoundaryOptions(options ...BoundaryOption) *boundaryOptions {

	opts := &boundaryOptions{
		label_attribute:   DefaultLabelAttribute,
		tooltip_attribute: DefaultTooltipAttribute,
		label_policy:      LabelPolicyFail,
	}

	for _, o := range options {
		o(opts)
	}

	return opts
}

// cacheKey derives the cache key for a boundary load from its arguments.
func (opts *boundaryOptions) cacheKey(path string) string {
	return fmt.Sprintf("boundary#%s#%s#%s#%s#%q", path, opts.label_attribute, opts.tooltip_attribute, opts.label_policy, opts.default_label)
}

// ReadBoundaries reads the boundary file at 'path', reprojects it to EPSG:4326 using 'r' and derives
// a tooltip for every record. Shapefiles (.shp) and GeoJSON (.geojson, .json) are supported. If 'path'
// does not reference an existing file a *NotFoundError is returned and the file is never opened.
func ReadBoundaries(ctx context.Context, src Source, r Reprojector, path string, options ...BoundaryOption) (*BoundaryDataset, error) {

	opts := newBoundaryOptions(options...)
	return readBoundaries(ctx, src, r, path, opts)
}

func readBoundaries(ctx context.Context, src Source, r Reprojector, path string, opts *boundaryOptions) (*BoundaryDataset, error) {

	t1 := time.Now()

	defer func() {
		slog.Debug("Time to read boundaries", "path", path, "time", time.Since(t1))
	}()

	err := ensureFile(src, path)

	if err != nil {
		return nil, err
	}

	var fc *geojson.FeatureCollection
	var source_crs string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		fc, source_crs, err = readShapefile(ctx, src, path)
	case ".geojson", ".json":
		fc, source_crs, err = readGeoJSON(ctx, src, path)
	default:
		err = fmt.Errorf("Unsupported boundary file format '%s'", filepath.Ext(path))
	}

	if err != nil {
		return nil, err
	}

	t2 := time.Now()

	err = reprojectFeatures(ctx, r, fc, source_crs)

	if err != nil {
		return nil, errors.Wrapf(err, "Failed to reproject %s", path)
	}

	slog.Debug("Time to reproject boundaries", "path", path, "count", len(fc.Features), "time", time.Since(t2))

	err = labelFeatures(fc, opts)

	if err != nil {
		return nil, err
	}

	ds := &BoundaryDataset{
		Path:      path,
		SourceCRS: source_crs,
		CRS:       EPSG4326,
		Features:  fc,
	}

	return ds, nil
}
