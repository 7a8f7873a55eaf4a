package service

import (
	"context"
	"fmt"
	"time"

	"storefront-api/internal/models"
)

// Pinger reports round-trip latency to a store
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// ProductCounter reports the size of the document product catalog
type ProductCounter interface {
	CountProducts(ctx context.Context) (int64, error)
}

const probeTimeout = 3 * time.Second

// DiagnosticsService summarises connectivity of both stores. Nil pingers
// are reported as not configured.
type DiagnosticsService struct {
	backend  string
	postgres Pinger
	mongo    Pinger
	redis    Pinger
	counter  ProductCounter
	resolver Resolver
}

// NewDiagnosticsService creates the service; backend names the primary store
func NewDiagnosticsService(backend string, postgres, mongo Pinger, resolver Resolver) *DiagnosticsService {
	return &DiagnosticsService{
		backend:  backend,
		postgres: postgres,
		mongo:    mongo,
		resolver: resolver,
	}
}

// WithRedis adds the shared cache to the summary
func (s *DiagnosticsService) WithRedis(p Pinger) *DiagnosticsService {
	s.redis = p
	return s
}

// WithProductCounter reports the document catalog size on the mongodb entry
func (s *DiagnosticsService) WithProductCounter(c ProductCounter) *DiagnosticsService {
	s.counter = c
	return s
}

// Diagnostics probes each configured store
func (s *DiagnosticsService) Diagnostics(ctx context.Context) *models.Diagnostics {
	d := &models.Diagnostics{
		Backend:  s.backend,
		Postgres: probe(ctx, s.postgres),
		MongoDB:  probe(ctx, s.mongo),
		Redis:    probe(ctx, s.redis),
	}

	if d.Postgres.OK && s.backend == models.BackendPostgres && s.resolver != nil {
		if source, err := s.resolver.Resolve(ctx); err == nil {
			d.Postgres.Source = source
		} else {
			d.Postgres.Error = err.Error()
		}
	}
	if d.MongoDB.OK {
		d.MongoDB.Source = models.SourceDocument
		if s.counter != nil {
			ctx, cancel := context.WithTimeout(ctx, probeTimeout)
			n, err := s.counter.CountProducts(ctx)
			cancel()
			if err != nil {
				d.MongoDB.Error = err.Error()
			} else {
				d.MongoDB.Products = &n
			}
		}
	}
	return d
}

// Ready fails when the primary store cannot be reached
func (s *DiagnosticsService) Ready(ctx context.Context) error {
	primary := s.postgres
	if s.backend == models.BackendMongo {
		primary = s.mongo
	}
	if primary == nil {
		return fmt.Errorf("%w: %s is not configured", ErrUnavailable, s.backend)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := primary.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, s.backend, err)
	}
	return nil
}

func probe(ctx context.Context, p Pinger) models.StoreStatus {
	if p == nil {
		return models.StoreStatus{}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	latency, err := p.Ping(ctx)
	status := models.StoreStatus{Configured: true, LatencyMs: latency.Milliseconds()}
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.OK = true
	return status
}
