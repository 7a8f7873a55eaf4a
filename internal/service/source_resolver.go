package service

import (
	"context"
	"sync"
	"time"

	"storefront-api/internal/models"
	"storefront-api/internal/util"

	"go.uber.org/zap"
)

// SourceProber runs the schema probes
type SourceProber interface {
	ProbeSource(ctx context.Context) (models.SourceVariant, error)
}

// SourceCache shares resolved variants between processes
type SourceCache interface {
	GetSource(ctx context.Context) (string, error)
	SetSource(ctx context.Context, variant string, ttl time.Duration) error
}

// Resolver yields the source variant a request should be served from
type Resolver interface {
	Resolve(ctx context.Context) (models.SourceVariant, error)
}

// SourceResolver caches probe results for ttl. A zero ttl probes on every
// call.
type SourceResolver struct {
	prober SourceProber
	cache  SourceCache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	current models.SourceVariant
	expires time.Time
}

// NewSourceResolver creates a resolver. cache may be nil.
func NewSourceResolver(prober SourceProber, cache SourceCache, ttl time.Duration) *SourceResolver {
	return &SourceResolver{
		prober: prober,
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// Resolve returns the cached variant or probes the schema
func (r *SourceResolver) Resolve(ctx context.Context) (models.SourceVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ttl > 0 && r.current != "" && r.now().Before(r.expires) {
		util.SourceCacheHitsTotal.WithLabelValues("memory").Inc()
		return r.current, nil
	}

	if r.ttl > 0 && r.cache != nil {
		shared, err := r.cache.GetSource(ctx)
		if err != nil {
			r.logger.Warn("Shared source cache unavailable", zap.Error(err))
		} else if v := models.SourceVariant(shared); isRelationalVariant(v) {
			util.SourceCacheHitsTotal.WithLabelValues("redis").Inc()
			r.remember(v)
			return v, nil
		}
	}

	variant, err := r.prober.ProbeSource(ctx)
	if err != nil {
		return models.SourceNone, err
	}
	util.SourceProbesTotal.WithLabelValues(string(variant)).Inc()

	if r.ttl > 0 {
		r.remember(variant)
		if r.cache != nil {
			if err := r.cache.SetSource(ctx, string(variant), r.ttl); err != nil {
				r.logger.Warn("Failed to share source variant", zap.Error(err))
			}
		}
	}
	return variant, nil
}

// Invalidate drops the in-process cached variant
func (r *SourceResolver) Invalidate() {
	r.mu.Lock()
	r.current = ""
	r.expires = time.Time{}
	r.mu.Unlock()
}

func (r *SourceResolver) remember(v models.SourceVariant) {
	r.current = v
	r.expires = r.now().Add(r.ttl)
}

func isRelationalVariant(v models.SourceVariant) bool {
	switch v {
	case models.SourceNormalized, models.SourceStaging, models.SourceNone:
		return true
	}
	return false
}

// FixedResolver always returns one variant; the document server uses it
type FixedResolver models.SourceVariant

func (f FixedResolver) Resolve(context.Context) (models.SourceVariant, error) {
	return models.SourceVariant(f), nil
}
