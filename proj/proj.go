// Package proj provides a PROJ-backed implementation of the data.Reprojector interface. Importing it
// registers the "proj://" scheme.
package proj

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	data "github.com/sfomuseum/go-dashboard-data"
	goproj "github.com/twpayne/go-proj/v10"
)

func init() {
	ctx := context.Background()
	data.RegisterReprojector(ctx, "proj", NewPROJReprojector)
}

// PROJReprojector creates transformations with the PROJ library.
type PROJReprojector struct {
	data.Reprojector
}

// NewPROJReprojector returns a new PROJReprojector. 'uri' takes the form proj://
func NewPROJReprojector(ctx context.Context, uri string) (data.Reprojector, error) {
	r := &PROJReprojector{}
	return r, nil
}

// Transformation returns a transformation from 'source' to 'target'. Both may be anything PROJ accepts
// as a CRS definition, including the WKT found in shapefile .prj files. Output coordinates are always
// in longitude, latitude (easting, northing) order regardless of the authority's axis order.
func (r *PROJReprojector) Transformation(ctx context.Context, source string, target string) (data.Transformation, error) {

	pj_ctx := goproj.NewContext()

	pj, err := pj_ctx.NewCRSToCRS(source, target, nil)

	if err != nil {
		pj_ctx.Destroy()
		return nil, fmt.Errorf("Failed to create CRS to CRS transformation, %w", err)
	}

	norm_pj, err := pj.NormalizeForVisualization()

	pj.Destroy()

	if err != nil {
		pj_ctx.Destroy()
		return nil, fmt.Errorf("Failed to normalize transformation, %w", err)
	}

	tr := &PROJTransformation{
		context: pj_ctx,
		pj:      norm_pj,
	}

	return tr, nil
}

// PROJTransformation is a single PROJ transformation. It is not safe for concurrent use.
type PROJTransformation struct {
	data.Transformation
	context *goproj.Context
	pj      *goproj.PJ
}

func (tr *PROJTransformation) Transform(pt orb.Point) (orb.Point, error) {

	coord, err := tr.pj.Forward(goproj.NewCoord(pt.X(), pt.Y(), 0, 0))

	if err != nil {
		return pt, fmt.Errorf("Failed to transform %v, %w", pt, err)
	}

	return orb.Point{coord.X(), coord.Y()}, nil
}

func (tr *PROJTransformation) Close() error {
	tr.pj.Destroy()
	tr.context.Destroy()
	return nil
}
