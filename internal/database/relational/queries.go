package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit // Safety limit
	}
	return limit
}

// QueryIndicators retrieves recent lookups with optional filtering.
func (r *Repo) QueryIndicators(ctx context.Context, f IndicatorFilter) ([]IndicatorRecord, error) {
	query := `
		SELECT lookup_id, id, kind, resolved,
		       COALESCE(detections, 0), COALESCE(scans, 0),
		       attributes, looked_up_at
		FROM indicators
		WHERE 1=1
	`
	args := []any{}
	if f.ID != "" {
		query += " AND id = ?"
		args = append(args, f.ID)
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}
	query += " ORDER BY looked_up_at DESC, lookup_id DESC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indicators failed: %w", err)
	}
	defer rows.Close()

	records := []IndicatorRecord{} // Initialize as empty slice, not nil
	for rows.Next() {
		var rec IndicatorRecord
		var attrs sql.NullString
		if err := rows.Scan(
			&rec.LookupID, &rec.ID, &rec.Kind, &rec.Resolved,
			&rec.Detections, &rec.Scans, &attrs, &rec.LookedUpAt,
		); err != nil {
			return nil, fmt.Errorf("scan indicator failed: %w", err)
		}
		if rec.Attributes, err = decodeAttributes(attrs); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// QueryRelationships retrieves stored edges leaving source.
func (r *Repo) QueryRelationships(ctx context.Context, source string, limit int) ([]RelationshipRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COALESCE(source_type, ''), target, COALESCE(target_type, ''),
		       relationship_type, attributes, looked_up_at
		FROM relationships
		WHERE source = ?
		ORDER BY looked_up_at DESC, lookup_id DESC
		LIMIT ?
	`, source, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query relationships failed: %w", err)
	}
	defer rows.Close()

	records := []RelationshipRecord{}
	for rows.Next() {
		var rec RelationshipRecord
		var attrs sql.NullString
		if err := rows.Scan(
			&rec.Source, &rec.SourceType, &rec.Target, &rec.TargetType,
			&rec.RelationshipType, &attrs, &rec.LookedUpAt,
		); err != nil {
			return nil, fmt.Errorf("scan relationship failed: %w", err)
		}
		if rec.Attributes, err = decodeAttributes(attrs); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// ListGraphs retrieves submitted graphs.
func (r *Repo) ListGraphs(ctx context.Context, limit int) ([]GraphSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT graph_id, COALESCE(name, ''), backend, private, node_count, edge_count, created_at
		FROM graphs
		ORDER BY created_at DESC
		LIMIT ?
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query graphs failed: %w", err)
	}
	defer rows.Close()

	graphs := []GraphSummary{}
	for rows.Next() {
		var g GraphSummary
		if err := rows.Scan(&g.GraphID, &g.Name, &g.Backend, &g.Private, &g.NodeCount, &g.EdgeCount, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan graph failed: %w", err)
		}
		graphs = append(graphs, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return graphs, nil
}

func decodeAttributes(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(s.String), &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}
