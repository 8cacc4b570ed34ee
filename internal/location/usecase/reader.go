package usecase

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// storeReadTimeout bounds a shared store read. The flight is detached from
// the caller that started it, so it needs its own deadline.
const storeReadTimeout = 15 * time.Second

// LocationReader serves reads cache-aside. Only raw locations are cached,
// never anything derived from the caller's identity. Concurrent misses for
// the same key share one store round-trip.
//
// Every Invalidate bumps a generation counter. A read that started under an
// older generation returns its result to its own callers but never writes it
// back to the cache, and reads started after the bump never join its flight.
type LocationReader struct {
	repo    domain.LocationRepository
	cache   domain.QueryCache
	ttl     time.Duration
	group   singleflight.Group
	gen     atomic.Uint64
	logger  *logger.Logger
	metrics *metrics.MetricsManager
}

// NewLocationReader builds a reader; cache may be nil to disable caching.
func NewLocationReader(repo domain.LocationRepository, cache domain.QueryCache, ttl time.Duration, log *logger.Logger, m *metrics.MetricsManager) *LocationReader {
	return &LocationReader{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		logger:  log.Named("LocationReader"),
		metrics: m,
	}
}

func (r *LocationReader) Get(ctx context.Context, id string) (*domain.Location, error) {
	if r.cache != nil {
		loc, ok, err := r.cache.GetLocation(ctx, id)
		switch {
		case err != nil:
			r.metrics.CacheRequestsTotal.WithLabelValues("item", "error").Inc()
			r.logger.Warn("cache read failed, falling through to store", zap.String("location_id", id), zap.Error(err))
		case ok:
			r.metrics.CacheRequestsTotal.WithLabelValues("item", "hit").Inc()
			return loc, nil
		default:
			r.metrics.CacheRequestsTotal.WithLabelValues("item", "miss").Inc()
		}
	}

	gen := r.gen.Load()
	v, err := r.share(ctx, "item:"+id, gen, func(fctx context.Context) (interface{}, error) {
		loc, err := r.repo.FindByID(fctx, id)
		if err != nil {
			return nil, remoteErr(err)
		}
		if loc == nil {
			return nil, domain.ErrNotFound
		}
		r.store(gen, func() error { return r.cache.SetLocation(fctx, loc, r.ttl) },
			func() error { return r.cache.InvalidateLocation(fctx, id) })
		return loc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Location).Clone(), nil
}

func (r *LocationReader) List(ctx context.Context, key string, filter domain.Filter) ([]*domain.Location, error) {
	if r.cache != nil {
		locs, ok, err := r.cache.GetList(ctx, key)
		switch {
		case err != nil:
			r.metrics.CacheRequestsTotal.WithLabelValues("list", "error").Inc()
			r.logger.Warn("cache read failed, falling through to store", zap.String("key", key), zap.Error(err))
		case ok:
			r.metrics.CacheRequestsTotal.WithLabelValues("list", "hit").Inc()
			return locs, nil
		default:
			r.metrics.CacheRequestsTotal.WithLabelValues("list", "miss").Inc()
		}
	}

	gen := r.gen.Load()
	v, err := r.share(ctx, "list:"+key, gen, func(fctx context.Context) (interface{}, error) {
		locs, err := r.repo.FindByFilter(fctx, filter)
		if err != nil {
			return nil, remoteErr(err)
		}
		r.store(gen, func() error { return r.cache.SetList(fctx, key, locs, r.ttl) },
			func() error { return r.cache.InvalidateLists(fctx) })
		return locs, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]*domain.Location)
	out := make([]*domain.Location, len(shared))
	for i, l := range shared {
		out[i] = l.Clone()
	}
	return out, nil
}

// share runs fn once per (key, generation). The store call runs on a context
// detached from the first caller, so one caller going away does not fail the
// others; each caller still stops waiting when its own context ends.
func (r *LocationReader) share(ctx context.Context, key string, gen uint64, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := r.group.DoChan(key+"@"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeReadTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// store writes a freshly read value unless an invalidation happened since the
// read began. An invalidation landing between the check and the write is
// undone by dropping the entry again.
func (r *LocationReader) store(gen uint64, set, drop func() error) {
	if r.cache == nil {
		return
	}
	if r.gen.Load() != gen {
		r.logger.Debug("skipping cache write for a read that raced an invalidation")
		return
	}
	if err := set(); err != nil {
		r.logger.Warn("cache write failed", zap.Error(err))
		return
	}
	if r.gen.Load() != gen {
		if err := drop(); err != nil {
			r.logger.Error("failed to drop raced cache entry", zap.Error(err))
		}
	}
}

// Invalidate drops the item entry for id (when non-empty) and every list entry.
func (r *LocationReader) Invalidate(ctx context.Context, id string) {
	r.gen.Add(1)
	if r.cache == nil {
		return
	}
	if id != "" {
		if err := r.cache.InvalidateLocation(ctx, id); err != nil {
			r.logger.Error("failed to invalidate cached location", zap.String("location_id", id), zap.Error(err))
		}
	}
	if err := r.cache.InvalidateLists(ctx); err != nil {
		r.logger.Error("failed to invalidate cached lists", zap.Error(err))
	}
}
