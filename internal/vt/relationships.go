package vt

import (
	"context"
	"time"

	"vtlookup/internal/frame"
	"vtlookup/internal/metrics"
)

type relationshipConfig struct {
	limit    int
	hasLimit bool
}

// RelationshipOption configures a relationship lookup.
type RelationshipOption func(*relationshipConfig)

// WithLimit caps the number of related objects. Without it the limit is the
// server-reported relationship count.
func WithLimit(n int) RelationshipOption {
	return func(c *relationshipConfig) {
		c.limit = n
		c.hasLimit = true
	}
}

// LookupRelationships fetches the objects related to an indicator through
// relationship and returns an edge table indexed by (source, target).
//
// When no limit is given and the relationship count cannot be read, or the
// relationship is absent, the result is an empty table and no error.
func (c *Client) LookupRelationships(ctx context.Context, value, kind, relationship string, opts ...RelationshipOption) (*frame.Table, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	var cfg relationshipConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	defer c.release()
	defer observe(opLookupRelationships, time.Now())

	limit := cfg.limit
	if !cfg.hasLimit {
		obj, err := c.transport.GetObject(ctx, k.Path(value)+"?relationship_counters=true")
		if err != nil {
			c.logger.Warn("could not obtain relationship count",
				"kind", kind, "value", value, "relationship", relationship, "err", err)
			metrics.Lookups.WithLabelValues(opLookupRelationships, k.String(), metrics.OutcomeEmpty).Inc()
			return emptyEdges(), nil
		}
		limit = obj.Relationships[relationship].Meta.Count
	}
	if limit <= 0 {
		metrics.Lookups.WithLabelValues(opLookupRelationships, k.String(), metrics.OutcomeEmpty).Inc()
		return emptyEdges(), nil
	}

	edges, err := c.fetchEdges(ctx, k, value, relationship, limit)
	if err != nil {
		metrics.Lookups.WithLabelValues(opLookupRelationships, k.String(), metrics.OutcomeFailed).Inc()
		return nil, &LookupError{Op: opLookupRelationships, Kind: kind, Value: value, Err: err}
	}
	metrics.Lookups.WithLabelValues(opLookupRelationships, k.String(), metrics.OutcomeOK).Inc()
	metrics.RelationshipObjects.WithLabelValues(relationship).Add(float64(edges.Len()))
	return edges, nil
}

func (c *Client) fetchEdges(ctx context.Context, k Kind, value, relationship string, limit int) (*frame.Table, error) {
	objects, err := c.transport.Iterate(ctx, k.Path(value)+"/relationships/"+relationship, c.pageSize, limit)
	if err != nil {
		return nil, err
	}

	parsed := make([]*frame.Table, 0, len(objects))
	for _, obj := range objects {
		t, err := parseObject(obj)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, t)
	}
	if len(parsed) == 0 {
		return emptyEdges(), nil
	}

	edges := frame.Concat(parsed...)
	edges.Fill(ColumnSource, value)
	edges.Fill(ColumnSourceType, k.String())
	edges.Fill(ColumnRelationshipType, relationship)
	edges.ResetIndex()
	edges.Rename(map[string]string{
		ColumnID:   ColumnTarget,
		ColumnType: ColumnTargetType,
	})
	edges.SetIndex(ColumnSource, ColumnTarget)
	return edges, nil
}

func emptyEdges() *frame.Table {
	return frame.New(ColumnSource, ColumnTarget)
}
