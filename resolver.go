// Package dnscache is a TTL cache of resolved addresses in front of a real name resolver.
package dnscache

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/dns-cache/types"
)

// ErrorPrefix starts every textual error result returned by ResolveWithCache.
const ErrorPrefix = "Error: "

// Store is the part of store.Store the facade needs.
type Store interface {
	Get(domain string) ([]string, bool)
	Put(domain string, addrs []string)
	Clear()
	Size() int
}

// Option configures a CachingResolver.
type Option func(*CachingResolver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *CachingResolver) {
		r.log = log
	}
}

// WithMetrics sets the metrics sink. A nil value keeps NoopMetrics.
func WithMetrics(m types.Metrics) Option {
	return func(r *CachingResolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

/*
WithCoalescing makes concurrent misses for the same domain share one upstream call.

Without it (the default) two callers that miss on the same domain at the same time
both resolve it, and whichever Put lands last wins.
*/
func WithCoalescing() Option {
	return func(r *CachingResolver) {
		r.coalesce = true
	}
}

/*
CachingResolver is the facade in front of the upstream resolver.
It connects:
- the store (shared, constructed by the caller)
- the upstream resolver
- metrics and logging

Only positive, non-empty answers are cached. Empty answers and failures are
returned to the caller and forgotten, so a transient failure never poisons the cache.
*/
type CachingResolver struct {
	store    Store
	upstream types.Resolver

	log     logrus.FieldLogger
	metrics types.Metrics

	coalesce bool
	sf       singleflight.Group
}

// New creates a facade over st and upstream. The store is shared, not owned:
// the janitor and other callers may use it at the same time.
func New(st Store, upstream types.Resolver, opts ...Option) *CachingResolver {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &CachingResolver{
		store:    st,
		upstream: upstream,
		log:      discard,
		metrics:  types.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

/*
ResolveWithCache returns the addresses for domain and whether they came from the cache.

 1. fresh store entry        → (addresses, true), upstream is not called
 2. upstream answers         → Put, (addresses, false)
 3. upstream answers nothing → ([], false), nothing cached
 4. upstream fails           → (["Error: <reason>"], false), nothing cached

No error escapes this method; failures are folded into the textual result.
*/
func (r *CachingResolver) ResolveWithCache(ctx context.Context, domain string) ([]string, bool) {
	log := r.log.WithField("domain", domain)

	if addrs, ok := r.store.Get(domain); ok {
		r.metrics.Hit()
		log.WithField("source", "cache").Debug("cache hit")
		return addrs, true
	}

	r.metrics.Miss()
	log.Debug("cache miss")

	addrs, stored, err := r.lookup(ctx, domain)
	if err != nil {
		r.metrics.ResolveError()
		log.WithError(err).Warn("resolution failed")
		return []string{FormatError(err)}, false
	}

	if len(addrs) == 0 {
		r.metrics.Empty()
		log.Debug("upstream returned no addresses")
		return []string{}, false
	}

	if !stored {
		r.store.Put(domain, addrs)
		r.metrics.Fill()
	}
	log.WithFields(logrus.Fields{
		"source":    "upstream",
		"addresses": len(addrs),
	}).Debug("cached upstream answer")

	return addrs, false
}

// ClearCache drops every cached entry.
func (r *CachingResolver) ClearCache() {
	r.store.Clear()
	r.log.Info("cache cleared")
}

// CacheSize returns the store's entry count, stale entries included.
func (r *CachingResolver) CacheSize() int {
	return r.store.Size()
}

/*
lookup asks upstream for domain. stored reports whether a non-empty answer has
already been written to the store.

With coalescing, the shared call:
- runs on a context that is not canceled with the caller that started it
- checks the store again first, so a caller that missed just before another call's Put
  does not resolve the domain a second time
- writes the store itself, before the call is released

Each caller still stops waiting when its own ctx is done.
*/
func (r *CachingResolver) lookup(ctx context.Context, domain string) ([]string, bool, error) {
	if !r.coalesce {
		addrs, err := r.upstream.Resolve(ctx, domain)
		return addrs, false, err
	}

	callCtx := context.WithoutCancel(ctx)
	ch := r.sf.DoChan(domain, func() (any, error) {
		if addrs, ok := r.store.Get(domain); ok {
			return addrs, nil
		}
		addrs, err := r.upstream.Resolve(callCtx, domain)
		if err == nil && len(addrs) > 0 {
			r.store.Put(domain, addrs)
			r.metrics.Fill()
		}
		return addrs, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, true, res.Err
		}
		addrs, _ := res.Val.([]string)
		if res.Shared {
			// Every waiter gets its own slice.
			addrs = append([]string(nil), addrs...)
		}
		return addrs, true, nil
	case <-ctx.Done():
		return nil, true, ctx.Err()
	}
}

// FormatError renders err as a one-line result for display.
func FormatError(err error) string {
	return ErrorPrefix + err.Error()
}
