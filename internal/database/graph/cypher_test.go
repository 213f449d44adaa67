package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestReadOnly(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"MATCH (g:Graph) RETURN g.created_at ORDER BY g.created_at DESC LIMIT 10", true},
		{"MATCH (i:Indicator {kind: 'domain'})-[r:RELATED]->(t) RETURN i.id, r.name, t.id", true},
		{"MATCH (n) DETACH DELETE n", false},
		{"merge (i:Indicator {id: 'x'})", false},
		{"MATCH (i:Indicator) SET i.kind = 'url'", false},
		{"CALL db.labels()", false},
	}
	for _, tt := range tests {
		if got := ReadOnly(tt.query); got != tt.want {
			t.Errorf("ReadOnly(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestExecuteCypherRejectsWrites(t *testing.T) {
	// the guard runs before any session is opened
	c := &Neo4jClient{}
	_, err := c.ExecuteCypher(context.Background(), "MATCH (n) DETACH DELETE n")
	if !errors.Is(err, ErrWriteQuery) {
		t.Errorf("Expected ErrWriteQuery, got %v", err)
	}
}

func TestRecordRows(t *testing.T) {
	indicator := neo4j.Node{
		ElementId: "4:x:1",
		Labels:    []string{"Indicator"},
		Props:     map[string]any{"id": "abc123", "kind": "file"},
	}
	target := neo4j.Node{
		ElementId: "4:x:2",
		Labels:    []string{"Indicator"},
		Props:     map[string]any{"id": "evil.example", "kind": "domain"},
	}
	edge := neo4j.Relationship{
		Type:  "RELATED",
		Props: map[string]any{"name": "contacted_domains", "graph_id": "g-1"},
	}

	rows := recordRows([]*neo4j.Record{{
		Keys:   []string{"i", "r", "path", "ids"},
		Values: []any{indicator, edge, neo4j.Path{Nodes: []neo4j.Node{indicator, target}, Relationships: []neo4j.Relationship{edge}}, []any{"abc123"}},
	}})
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]

	i := row["i"].(map[string]any)
	if i["label"] != "Indicator" || i["id"] != "abc123" || i["kind"] != "file" {
		t.Errorf("Unexpected indicator %v", i)
	}

	r := row["r"].(map[string]any)
	if r["type"] != "RELATED" || r["name"] != "contacted_domains" || r["graph_id"] != "g-1" {
		t.Errorf("Unexpected edge %v", r)
	}

	path := row["path"].(map[string]any)
	nodes := path["nodes"].([]any)
	edges := path["edges"].([]any)
	if len(nodes) != 2 || len(edges) != 1 {
		t.Fatalf("Expected 2 nodes and 1 edge, got %d and %d", len(nodes), len(edges))
	}
	if nodes[1].(map[string]any)["id"] != "evil.example" {
		t.Errorf("Unexpected path target %v", nodes[1])
	}

	if ids := row["ids"].([]any); len(ids) != 1 || ids[0] != "abc123" {
		t.Errorf("Unexpected list %v", ids)
	}
}
