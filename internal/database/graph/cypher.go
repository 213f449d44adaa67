package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrWriteQuery is returned for queries that would modify the indicator graph.
var ErrWriteQuery = errors.New("query modifies the graph")

// Procedure calls are refused along with write clauses since they can write.
var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH|CALL|LOAD\s+CSV)\b`)

// ReadOnly reports whether query contains no write clause.
func ReadOnly(query string) bool {
	return !writeClause.MatchString(query)
}

// ExecuteCypher runs a read query over the indicator graph and returns one
// row per record, keyed by the RETURN aliases.
func (c *Neo4jClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	if !ReadOnly(query) {
		return nil, fmt.Errorf("%w: %q", ErrWriteQuery, query)
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return recordRows(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}
	return rows.([]map[string]any), nil
}

func recordRows(records []*neo4j.Record) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = plainValue(rec.Values[i])
		}
		rows = append(rows, row)
	}
	return rows
}

// plainValue turns driver graph types into maps that encode as JSON.
func plainValue(val any) any {
	switch v := val.(type) {
	case neo4j.Node:
		return indicatorValue(v)
	case neo4j.Relationship:
		return edgeValue(v)
	case neo4j.Path:
		nodes := make([]any, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = indicatorValue(n)
		}
		edges := make([]any, len(v.Relationships))
		for i, r := range v.Relationships {
			edges[i] = edgeValue(r)
		}
		return map[string]any{"nodes": nodes, "edges": edges}
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// indicatorValue flattens a node to its properties plus its first label, so
// an indicator reads {"label": "Indicator", "id": ..., "kind": ...} and a
// graph reads {"label": "Graph", "graph_id": ..., "name": ...}.
func indicatorValue(n neo4j.Node) map[string]any {
	out := make(map[string]any, len(n.Props)+1)
	for k, v := range n.Props {
		out[k] = plainValue(v)
	}
	if len(n.Labels) > 0 {
		out["label"] = n.Labels[0]
	}
	return out
}

// edgeValue keeps the edge type with its properties. RELATED edges carry the
// relationship name and the graph_id that introduced them.
func edgeValue(r neo4j.Relationship) map[string]any {
	out := make(map[string]any, len(r.Props)+1)
	for k, v := range r.Props {
		out[k] = plainValue(v)
	}
	out["type"] = r.Type
	return out
}
