package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Loader loads tabular and boundary datasets on demand, caching results for TTL and reporting
// failures to Notifier. Its methods never return errors: a nil dataset means the load failed and
// a message was sent to the Notifier. Loader is safe for concurrent use if its collaborators are.
type Loader struct {
	Source      Source
	Cache       Cache
	Notifier    Notifier
	Reprojector Reprojector
	TTL         time.Duration
}

// LoaderOptions defines the collaborators for a new Loader.
type LoaderOptions struct {
	// A valid Cache URI. Defaults to "gocache://".
	CacheURI string
	// A valid Notifier URI. Defaults to "log://".
	NotifierURI string
	// A valid Reprojector URI. Required for LoadShapefile.
	ReprojectorURI string
	// How long loaded datasets are cached for. Defaults to DefaultTTL.
	TTL time.Duration
}

// NewLoader returns a new Loader whose collaborators are created from the URIs in 'opts'.
func NewLoader(ctx context.Context, opts *LoaderOptions) (*Loader, error) {

	cache_uri := opts.CacheURI

	if cache_uri == "" {
		cache_uri = "gocache://"
	}

	notifier_uri := opts.NotifierURI

	if notifier_uri == "" {
		notifier_uri = "log://"
	}

	c, err := NewCache(ctx, cache_uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create cache, %w", err)
	}

	n, err := NewNotifier(ctx, notifier_uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create notifier, %w", err)
	}

	var r Reprojector

	if opts.ReprojectorURI != "" {

		r, err = NewReprojector(ctx, opts.ReprojectorURI)

		if err != nil {
			return nil, fmt.Errorf("Failed to create reprojector, %w", err)
		}
	}

	ttl := opts.TTL

	if ttl == 0 {
		ttl = DefaultTTL
	}

	l := &Loader{
		Source:      NewOSSource(),
		Cache:       c,
		Notifier:    n,
		Reprojector: r,
		TTL:         ttl,
	}

	return l, nil
}

// LoadData returns the TabularDataset for the delimited file at 'path', or nil if it can not be loaded.
func (l *Loader) LoadData(ctx context.Context, path string, options ...TabularOption) *TabularDataset {

	opts := newTabularOptions(path, options...)

	fn := func(ctx context.Context) (interface{}, error) {
		return readTabular(ctx, l.Source, path, opts)
	}

	v, err := l.Cache.GetOrCompute(ctx, opts.cacheKey(path), l.TTL, fn)

	if err != nil {
		l.report(ctx, path, err)
		return nil
	}

	return v.(*TabularDataset)
}

// LoadShapefile returns the BoundaryDataset for the boundary file at 'path', or nil if it can not be loaded.
func (l *Loader) LoadShapefile(ctx context.Context, path string, options ...BoundaryOption) *BoundaryDataset {

	opts := newBoundaryOptions(options...)

	fn := func(ctx context.Context) (interface{}, error) {

		if l.Reprojector == nil {
			return nil, errors.New("Loader has no reprojector")
		}

		return readBoundaries(ctx, l.Source, l.Reprojector, path, opts)
	}

	v, err := l.Cache.GetOrCompute(ctx, opts.cacheKey(path), l.TTL, fn)

	if err != nil {
		l.report(ctx, path, err)
		return nil
	}

	return v.(*BoundaryDataset)
}

// Close releases the Loader's cache.
func (l *Loader) Close(ctx context.Context) error {
	return l.Cache.Close(ctx)
}

// report sends the user-visible message for 'err' to the Loader's Notifier.
func (l *Loader) report(ctx context.Context, path string, err error) {

	slog.Debug("Failed to load dataset", "path", path, "error", err)

	var nf *NotFoundError

	if errors.As(err, &nf) {
		l.Notifier.Error(ctx, nf.Error())
		return
	}

	msg := fmt.Sprintf("An error occurred during data loading: %v", err)
	l.Notifier.Error(ctx, msg)
}
