package relational

import (
	"context"
	"testing"
	"time"

	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	client, err := NewDuckDBClient("")
	if err != nil {
		t.Fatalf("failed to create duckdb client: %v", err)
	}
	repo := NewRepo(client.DB())
	t.Cleanup(func() { _ = repo.Close() })

	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return repo
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestSaveAndQueryIndicators(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	results := frame.New(vt.ColumnID)
	results.Append(frame.Row{
		vt.ColumnID: "abc123", vt.ColumnType: "file",
		"type_description": "PE32", "size": int64(1024),
		vt.ColumnDetections: 3, vt.ColumnScans: 63,
	})
	results.Append(frame.Row{vt.ColumnID: "bad", vt.ColumnType: "file"})

	n, err := repo.SaveIndicators(ctx, results)
	if err != nil {
		t.Fatalf("SaveIndicators failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows written, got %d", n)
	}

	// a second lookup of the same indicator appends
	again := frame.New(vt.ColumnID)
	again.Append(frame.Row{vt.ColumnID: "abc123", vt.ColumnType: "file", vt.ColumnDetections: 5, vt.ColumnScans: 63})
	if _, err := repo.SaveIndicators(ctx, again); err != nil {
		t.Fatalf("SaveIndicators failed: %v", err)
	}

	got, err := repo.QueryIndicators(ctx, IndicatorFilter{ID: "abc123"})
	if err != nil {
		t.Fatalf("QueryIndicators failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 lookups of abc123, got %d", len(got))
	}
	if got[0].Detections != 5 || got[1].Detections != 3 {
		t.Errorf("Expected newest first (5 then 3), got %d then %d", got[0].Detections, got[1].Detections)
	}
	if got[1].Attributes["type_description"] != "PE32" {
		t.Errorf("Expected attributes to round trip, got %v", got[1].Attributes)
	}

	stubs, err := repo.QueryIndicators(ctx, IndicatorFilter{ID: "bad"})
	if err != nil {
		t.Fatalf("QueryIndicators failed: %v", err)
	}
	if len(stubs) != 1 || stubs[0].Resolved {
		t.Errorf("Expected one unresolved stub, got %+v", stubs)
	}

	all, err := repo.QueryIndicators(ctx, IndicatorFilter{Kind: "file", Limit: 2})
	if err != nil {
		t.Fatalf("QueryIndicators failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(all))
	}
}

func TestSaveRelationshipsSkipsStubs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	edges := frame.New(vt.ColumnSource, vt.ColumnTarget)
	edges.Append(frame.Row{
		vt.ColumnSource: "abc123", vt.ColumnSourceType: "file",
		vt.ColumnTarget: "evil.example", vt.ColumnTargetType: "domain",
		vt.ColumnRelationshipType: "contacted_domains",
		"country":                 "RU",
	})
	edges.Append(frame.Row{vt.ColumnID: "bad", vt.ColumnType: "file"})

	n, err := repo.SaveRelationships(ctx, edges)
	if err != nil {
		t.Fatalf("SaveRelationships failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 edge written, got %d", n)
	}

	got, err := repo.QueryRelationships(ctx, "abc123", 0)
	if err != nil {
		t.Fatalf("QueryRelationships failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(got))
	}
	if got[0].Target != "evil.example" || got[0].Attributes["country"] != "RU" {
		t.Errorf("Unexpected edge %+v", got[0])
	}
}

func TestSaveGraphAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	sub := &vt.GraphSubmission{
		Name:    "campaign",
		Private: true,
		Nodes:   []vt.GraphNode{{ID: "abc123", Kind: "file"}, {ID: "evil.example", Kind: "domain"}},
		Edges:   []vt.GraphEdge{{Source: "abc123", Target: "evil.example", Relationship: "contacted_domains"}},
	}
	if err := repo.SaveGraph(ctx, "g-1", "virustotal", sub); err != nil {
		t.Fatalf("SaveGraph failed: %v", err)
	}

	graphs, err := repo.ListGraphs(ctx, 10)
	if err != nil {
		t.Fatalf("ListGraphs failed: %v", err)
	}
	if len(graphs) != 1 {
		t.Fatalf("Expected 1 graph, got %d", len(graphs))
	}
	g := graphs[0]
	if g.GraphID != "g-1" || g.Backend != "virustotal" || !g.Private || g.NodeCount != 2 || g.EdgeCount != 1 {
		t.Errorf("Unexpected graph summary %+v", g)
	}

	if err := repo.SaveGraph(ctx, "g-1", "virustotal", sub); err == nil {
		t.Error("Expected duplicate graph id to fail")
	}
}

func TestSaveEmptyTables(t *testing.T) {
	repo := newTestRepo(t)
	n, err := repo.SaveIndicators(context.Background(), frame.New())
	if err != nil || n != 0 {
		t.Errorf("Expected no-op, got n=%d err=%v", n, err)
	}
}

func TestNewDuckDBClientWithTuning(t *testing.T) {
	client, err := NewDuckDBClient(":memory:",
		WithThreads(2),
		WithMemoryLimit(1),
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create tuned duckdb client: %v", err)
	}
	defer client.Close()

	var threads int64
	if err := client.DB().QueryRow("SELECT current_setting('threads')").Scan(&threads); err != nil {
		t.Fatalf("read threads setting: %v", err)
	}
	if threads != 2 {
		t.Errorf("Expected 2 threads, got %d", threads)
	}
}
