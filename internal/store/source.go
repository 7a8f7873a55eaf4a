package store

import (
	"context"
	"fmt"

	"storefront-api/internal/models"
)

const (
	// NormalizedProbeTable marks the multi-table schema
	NormalizedProbeTable = "order_items_core"
	// StagingProbeTable is the flat CSV import table
	StagingProbeTable = "orders"
)

// TableExists checks the catalog for a relation in the public schema
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT to_regclass($1::text) IS NOT NULL", "public."+name)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", name, err)
	}
	return exists, nil
}

// ProbeSource issues both probes and picks the variant. The normalized schema
// wins when both shapes are present.
func (s *Store) ProbeSource(ctx context.Context) (models.SourceVariant, error) {
	normalized, err := s.TableExists(ctx, NormalizedProbeTable)
	if err != nil {
		return models.SourceNone, err
	}

	staging, err := s.TableExists(ctx, StagingProbeTable)
	if err != nil {
		return models.SourceNone, err
	}

	switch {
	case normalized:
		return models.SourceNormalized, nil
	case staging:
		return models.SourceStaging, nil
	default:
		return models.SourceNone, nil
	}
}
