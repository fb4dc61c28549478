package data

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aaronland/go-roster"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long loaded datasets are cached for.
const DefaultTTL = 3600 * time.Second

// ComputeFunc produces the value to be cached for a key.
type ComputeFunc func(ctx context.Context) (interface{}, error)

// Cache is a keyed store of computed values with a per-entry time-to-live. Implementations must be
// safe for concurrent use. Failed computations are never stored.
type Cache interface {
	// GetOrCompute returns the value for 'key' if it was stored less than 'ttl' ago. Otherwise it
	// invokes 'fn', stores the result for 'ttl' if 'fn' succeeds and returns it.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (interface{}, error)
	// Remove discards any value stored for 'key'.
	Remove(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// CacheInitializationFunc creates a new Cache from a URI.
type CacheInitializationFunc func(ctx context.Context, uri string) (Cache, error)

var cache_roster roster.Roster

func init() {
	ctx := context.Background()
	RegisterCache(ctx, "gocache", NewGoCache)
	RegisterCache(ctx, "null", NewNullCache)
}

// RegisterCache registers 'init_func' as the constructor for Cache URIs using 'scheme'.
func RegisterCache(ctx context.Context, scheme string, init_func CacheInitializationFunc) error {

	err := ensureCacheRoster()

	if err != nil {
		return err
	}

	return cache_roster.Register(ctx, scheme, init_func)
}

func ensureCacheRoster() error {

	if cache_roster == nil {

		r, err := roster.NewDefaultRoster()

		if err != nil {
			return err
		}

		cache_roster = r
	}

	return nil
}

// NewCache returns a new Cache for 'uri', whose scheme must have been registered with RegisterCache.
func NewCache(ctx context.Context, uri string) (Cache, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	err = ensureCacheRoster()

	if err != nil {
		return nil, err
	}

	i, err := cache_roster.Driver(ctx, u.Scheme)

	if err != nil {
		return nil, fmt.Errorf("Failed to find cache for '%s', %w", u.Scheme, err)
	}

	init_func := i.(CacheInitializationFunc)
	return init_func(ctx, uri)
}

// CacheSchemes returns the list of registered Cache URI schemes.
func CacheSchemes() []string {

	ctx := context.Background()
	schemes := []string{}

	err := ensureCacheRoster()

	if err != nil {
		return schemes
	}

	for _, dr := range cache_roster.Drivers(ctx) {
		scheme := fmt.Sprintf("%s://", strings.ToLower(dr))
		schemes = append(schemes, scheme)
	}

	sort.Strings(schemes)
	return schemes
}

// GoCache is an in-memory Cache backed by patrickmn/go-cache. Concurrent misses for the same
// key share a single computation.
type GoCache struct {
	Cache
	gocache *gocache.Cache
	group   *singleflight.Group
}

// NewGoCache returns a new GoCache configured by 'uri', which takes the form:
//
//	gocache://?ttl={SECONDS}&cleanup={SECONDS}
//
// Where 'ttl' is the default expiry (used when GetOrCompute is called with a zero ttl) and 'cleanup'
// is the interval at which expired items are purged. They default to 3600 and 7200 seconds.
func NewGoCache(ctx context.Context, uri string) (Cache, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	q := u.Query()

	expires := DefaultTTL
	cleanup := 2 * DefaultTTL

	if q.Has("ttl") {

		v, err := strconv.Atoi(q.Get("ttl"))

		if err != nil {
			return nil, fmt.Errorf("Invalid 'ttl' parameter, %w", err)
		}

		expires = time.Duration(v) * time.Second
	}

	if q.Has("cleanup") {

		v, err := strconv.Atoi(q.Get("cleanup"))

		if err != nil {
			return nil, fmt.Errorf("Invalid 'cleanup' parameter, %w", err)
		}

		cleanup = time.Duration(v) * time.Second
	}

	gc := gocache.New(expires, cleanup)

	c := &GoCache{
		gocache: gc,
		group:   new(singleflight.Group),
	}

	return c, nil
}

func (c *GoCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (interface{}, error) {

	v, ok := c.gocache.Get(key)

	if ok {
		slog.Debug("Cache hit", "key", key)
		return v, nil
	}

	slog.Debug("Cache miss", "key", key)

	// A zero ttl is gocache.DefaultExpiration

	// Shared by every caller waiting on 'key' so it ignores the cancellation of whichever caller
	// started it. Each caller stops waiting when its own ctx is done.
	compute_ctx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key, func() (interface{}, error) {

		// Another caller may have finished computing while this one waited to enter DoChan
		v, ok := c.gocache.Get(key)

		if ok {
			return v, nil
		}

		v, err := fn(compute_ctx)

		if err != nil {
			return nil, err
		}

		c.gocache.Set(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case rsp := <-ch:

		if rsp.Shared {
			slog.Debug("Shared cache computation", "key", key)
		}

		if rsp.Err != nil {
			return nil, rsp.Err
		}

		return rsp.Val, nil
	}
}

func (c *GoCache) Remove(ctx context.Context, key string) error {
	c.gocache.Delete(key)
	return nil
}

func (c *GoCache) Close(ctx context.Context) error {
	c.gocache.Flush()
	return nil
}

// NullCache stores nothing; every call to GetOrCompute invokes the compute function.
type NullCache struct {
	Cache
}

// NewNullCache returns a new NullCache. 'uri' takes the form null://
func NewNullCache(ctx context.Context, uri string) (Cache, error) {
	c := &NullCache{}
	return c, nil
}

func (c *NullCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (interface{}, error) {
	return fn(ctx)
}

func (c *NullCache) Remove(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close(ctx context.Context) error {
	return nil
}
