package data

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aaronland/go-roster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"
)

// EPSG4326 is the geographic (longitude, latitude) reference system every BoundaryDataset is normalized to.
const EPSG4326 = "EPSG:4326"

// Transformation converts points from one coordinate reference system to another. Implementations
// are not required to be safe for concurrent use.
type Transformation interface {
	Transform(orb.Point) (orb.Point, error)
	Close() error
}

// Reprojector creates Transformations between coordinate reference systems. 'source' and 'target'
// may be any definition the implementation understands (an "EPSG:XXXX" code, WKT, a PROJ string).
type Reprojector interface {
	Transformation(ctx context.Context, source string, target string) (Transformation, error)
}

// ReprojectorInitializationFunc creates a new Reprojector from a URI.
type ReprojectorInitializationFunc func(ctx context.Context, uri string) (Reprojector, error)

var reprojector_roster roster.Roster

// RegisterReprojector registers 'init_func' as the constructor for Reprojector URIs using 'scheme'.
func RegisterReprojector(ctx context.Context, scheme string, init_func ReprojectorInitializationFunc) error {

	err := ensureReprojectorRoster()

	if err != nil {
		return err
	}

	return reprojector_roster.Register(ctx, scheme, init_func)
}

func ensureReprojectorRoster() error {

	if reprojector_roster == nil {

		r, err := roster.NewDefaultRoster()

		if err != nil {
			return err
		}

		reprojector_roster = r
	}

	return nil
}

// NewReprojector returns a new Reprojector for 'uri', whose scheme must have been registered with RegisterReprojector.
func NewReprojector(ctx context.Context, uri string) (Reprojector, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	err = ensureReprojectorRoster()

	if err != nil {
		return nil, err
	}

	i, err := reprojector_roster.Driver(ctx, u.Scheme)

	if err != nil {
		return nil, fmt.Errorf("Failed to find reprojector for '%s', %w", u.Scheme, err)
	}

	init_func := i.(ReprojectorInitializationFunc)
	return init_func(ctx, uri)
}

// ReprojectorSchemes returns the list of registered Reprojector URI schemes.
func ReprojectorSchemes() []string {

	ctx := context.Background()
	schemes := []string{}

	err := ensureReprojectorRoster()

	if err != nil {
		return schemes
	}

	for _, dr := range reprojector_roster.Drivers(ctx) {
		scheme := fmt.Sprintf("%s://", strings.ToLower(dr))
		schemes = append(schemes, scheme)
	}

	sort.Strings(schemes)
	return schemes
}

// reprojectFeatures transforms every geometry in 'fc', in place, from 'source' to EPSG:4326.
func reprojectFeatures(ctx context.Context, r Reprojector, fc *geojson.FeatureCollection, source string) error {

	tr, err := r.Transformation(ctx, source, EPSG4326)

	if err != nil {
		return errors.Wrapf(err, "Failed to create transformation from %s to %s", source, EPSG4326)
	}

	defer tr.Close()

	for idx, f := range fc.Features {

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			// pass
		}

		if f.Geometry == nil {
			continue
		}

		g, err := reprojectGeometry(f.Geometry, tr)

		if err != nil {
			return errors.Wrapf(err, "Failed to reproject record %d", idx)
		}

		f.Geometry = g
	}

	return nil
}

// reprojectGeometry applies 'tr' to every point of 'g'. orb.Projection can not return errors so
// the first failure is captured and reported once the walk is done.
func reprojectGeometry(g orb.Geometry, tr Transformation) (orb.Geometry, error) {

	var first_err error

	proj := func(pt orb.Point) orb.Point {

		if first_err != nil {
			return pt
		}

		new_pt, err := tr.Transform(pt)

		if err != nil {
			first_err = err
			return pt
		}

		return new_pt
	}

	new_g := project.Geometry(orb.Clone(g), proj)

	if first_err != nil {
		return nil, first_err
	}

	return new_g, nil
}
