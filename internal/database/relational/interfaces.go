package relational

import (
	"context"

	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

// ResultRepository persists lookup output and answers history queries.
type ResultRepository interface {
	// Migrate creates or updates the database schema.
	Migrate(ctx context.Context) error
	// SaveIndicators stores indicator records (including stubs) and returns
	// the number of rows written.
	SaveIndicators(ctx context.Context, t *frame.Table) (int, error)
	// SaveRelationships stores relationship edges. Rows without a source
	// and target are skipped.
	SaveRelationships(ctx context.Context, t *frame.Table) (int, error)
	// SaveGraph records a submitted graph and its nodes and edges.
	SaveGraph(ctx context.Context, graphID, backend string, g *vt.GraphSubmission) error
	// QueryIndicators returns recent lookups, newest first.
	QueryIndicators(ctx context.Context, f IndicatorFilter) ([]IndicatorRecord, error)
	// QueryRelationships returns stored edges leaving source, newest first.
	QueryRelationships(ctx context.Context, source string, limit int) ([]RelationshipRecord, error)
	// ListGraphs returns submitted graphs, newest first.
	ListGraphs(ctx context.Context, limit int) ([]GraphSummary, error)
	// Close releases database resources.
	Close() error
}

var _ ResultRepository = (*Repo)(nil)
