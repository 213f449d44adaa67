package graph

import (
	"context"
	"testing"

	"vtlookup/internal/database/relational"
	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

func TestRelationalGraphWrapperGetNeighbors(t *testing.T) {
	ctx := context.Background()
	client, err := relational.NewDuckDBClient("")
	if err != nil {
		t.Fatalf("failed to create duckdb client: %v", err)
	}
	defer client.Close()

	repo := relational.NewRepo(client.DB())
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	edges := frame.New(vt.ColumnSource, vt.ColumnTarget)
	edges.Append(frame.Row{
		vt.ColumnSource: "abc123", vt.ColumnSourceType: "file",
		vt.ColumnTarget: "evil.example", vt.ColumnTargetType: "domain",
		vt.ColumnRelationshipType: "contacted_domains",
	})
	if _, err := repo.SaveRelationships(ctx, edges); err != nil {
		t.Fatalf("SaveRelationships failed: %v", err)
	}
	err = repo.SaveGraph(ctx, "g-1", "neo4j", &vt.GraphSubmission{
		Name:  "g",
		Nodes: []vt.GraphNode{{ID: "def456", Kind: "file"}, {ID: "evil.example", Kind: "domain"}},
		Edges: []vt.GraphEdge{{Source: "def456", Target: "evil.example", Relationship: "contacted_domains"}},
	})
	if err != nil {
		t.Fatalf("SaveGraph failed: %v", err)
	}

	w := NewRelationalGraphWrapper(client)

	nodes, got, err := w.GetNeighbors(ctx, "evil.example")
	if err != nil {
		t.Fatalf("GetNeighbors failed: %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID != "abc123" || nodes[1].ID != "def456" {
		t.Errorf("Expected abc123 and def456, got %+v", nodes)
	}
	for _, n := range nodes {
		if n.Kind != "file" {
			t.Errorf("Expected file kind for %s, got %q", n.ID, n.Kind)
		}
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 edges, got %+v", got)
	}

	nodes, _, err = w.GetNeighbors(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetNeighbors failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "evil.example" || nodes[0].Kind != "domain" {
		t.Errorf("Expected evil.example, got %+v", nodes)
	}

	nodes, got, err = w.GetNeighbors(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetNeighbors failed: %v", err)
	}
	if len(nodes) != 0 || len(got) != 0 {
		t.Errorf("Expected no neighbors, got %+v %+v", nodes, got)
	}
}
