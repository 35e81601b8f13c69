// Package cache wraps a preprint.Repository with an expiring LRU of records
// keyed by id. Only point reads are served from the cache; listing and DOI
// counting always reach the underlying store.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preprint_cache_hits_total",
		Help: "Total number of preprint record cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preprint_cache_misses_total",
		Help: "Total number of preprint record cache misses.",
	})
)

// Repository is a read-through caching decorator
type Repository struct {
	preprint.Repository
	cache *expirable.LRU[int64, *preprint.Preprint]

	// A read that overlaps a DOI write must not populate the cache.
	inflight   atomic.Int64
	generation atomic.Uint64
}

// New wraps next with a cache of at most size records living for ttl
func New(next preprint.Repository, size int, ttl time.Duration) *Repository {
	return &Repository{
		Repository: next,
		cache:      expirable.NewLRU[int64, *preprint.Preprint](size, nil, ttl),
	}
}

func (r *Repository) GetPreprint(ctx context.Context, id int64) (*preprint.Preprint, error) {
	if p, ok := r.cache.Get(id); ok {
		cacheHitsTotal.Inc()
		return clone(p), nil
	}
	cacheMissesTotal.Inc()

	gen := r.generation.Load()
	quiet := r.inflight.Load() == 0
	p, err := r.Repository.GetPreprint(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiet && r.generation.Load() == gen {
		r.cache.Add(id, clone(p))
	}
	return p, nil
}

func (r *Repository) CreatePreprint(ctx context.Context, p *preprint.Preprint) error {
	if err := r.Repository.CreatePreprint(ctx, p); err != nil {
		return err
	}
	r.cache.Add(p.ID, clone(p))
	return nil
}

func (r *Repository) SetDOI(ctx context.Context, id int64, doi string) error {
	r.inflight.Add(1)
	r.generation.Add(1)
	defer func() {
		r.cache.Remove(id)
		r.generation.Add(1)
		r.inflight.Add(-1)
	}()
	return r.Repository.SetDOI(ctx, id, doi)
}

// Len reports the number of cached records
func (r *Repository) Len() int {
	return r.cache.Len()
}

func clone(p *preprint.Preprint) *preprint.Preprint {
	c := *p
	if p.DOI != nil {
		doi := *p.DOI
		c.DOI = &doi
	}
	return &c
}
