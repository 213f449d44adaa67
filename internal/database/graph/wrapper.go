package graph

import (
	"context"
	"fmt"

	"vtlookup/internal/database/relational"
)

// Node represents an indicator in the relational graph.
type Node struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Edge represents a relationship between two indicators.
type Edge struct {
	FromID       string `json:"from"`
	ToID         string `json:"to"`
	Relationship string `json:"relationship"`
}

// RelationalGraphWrapper traverses the edges stored in DuckDB: relationship
// lookups and the edges of submitted graphs. It needs no graph database.
type RelationalGraphWrapper struct {
	relational *relational.DuckDBClient
}

// NewRelationalGraphWrapper returns a wrapper that can traverse the relational graph tables.
func NewRelationalGraphWrapper(rel *relational.DuckDBClient) *RelationalGraphWrapper {
	return &RelationalGraphWrapper{relational: rel}
}

const neighborsSQL = `
	SELECT source, target, relationship_type, target AS node_id, COALESCE(target_type, '') AS kind
	FROM relationships WHERE source = $1
	UNION
	SELECT source, target, relationship_type, source, COALESCE(source_type, '')
	FROM relationships WHERE target = $1
	UNION
	SELECT e.source, e.target, COALESCE(e.relationship_type, ''), e.target, COALESCE(n.kind, '')
	FROM graph_edges e
	LEFT JOIN graph_nodes n ON n.graph_id = e.graph_id AND n.node_id = e.target
	WHERE e.source = $1
	UNION
	SELECT e.source, e.target, COALESCE(e.relationship_type, ''), e.source, COALESCE(n.kind, '')
	FROM graph_edges e
	LEFT JOIN graph_nodes n ON n.graph_id = e.graph_id AND n.node_id = e.source
	WHERE e.target = $1
	ORDER BY 1, 2, 3
`

// GetNeighbors returns the indicators adjacent to nodeID and the edges that
// connect them, in either direction.
func (w *RelationalGraphWrapper) GetNeighbors(ctx context.Context, nodeID string) ([]Node, []Edge, error) {
	rows, err := w.relational.Query(ctx, neighborsSQL, nodeID)
	if err != nil {
		return nil, nil, fmt.Errorf("query neighbors of %s: %w", nodeID, err)
	}
	defer rows.Close()

	nodes := []Node{}
	edges := []Edge{}
	seen := map[string]int{}
	for rows.Next() {
		var e Edge
		var n Node
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Relationship, &n.ID, &n.Kind); err != nil {
			return nil, nil, fmt.Errorf("scan neighbor: %w", err)
		}
		edges = append(edges, e)

		if i, ok := seen[n.ID]; ok {
			if nodes[i].Kind == "" {
				nodes[i].Kind = n.Kind
			}
			continue
		}
		seen[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return nodes, edges, nil
}
