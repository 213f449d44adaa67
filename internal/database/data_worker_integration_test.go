package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"vtlookup/internal/database"
	"vtlookup/internal/database/relational"
	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

// stubTransport serves a fixed set of objects.
type stubTransport struct {
	objects map[string]*vt.Object
	pages   map[string][]*vt.Object
}

func (s *stubTransport) GetObject(ctx context.Context, path string) (*vt.Object, error) {
	if obj, ok := s.objects[path]; ok {
		return obj, nil
	}
	return nil, &vt.APIError{StatusCode: 404, Code: "NotFoundError"}
}

func (s *stubTransport) Iterate(ctx context.Context, path string, pageSize, limit int) ([]*vt.Object, error) {
	objs := s.pages[path]
	if len(objs) > limit {
		objs = objs[:limit]
	}
	return objs, nil
}

func (s *stubTransport) Close() error { return nil }

type stubGraphService struct{}

func (stubGraphService) SaveGraph(ctx context.Context, g *vt.GraphSubmission) (string, error) {
	return "vt-graph-1", nil
}

func (stubGraphService) Name() string { return "virustotal" }

// MockGraphClient records mirrored graphs.
type MockGraphClient struct {
	mu     sync.Mutex
	saved  map[string]*vt.GraphSubmission
	closed bool
}

func (m *MockGraphClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockGraphClient) SaveGraphAs(ctx context.Context, graphID string, g *vt.GraphSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]*vt.GraphSubmission{}
	}
	m.saved[graphID] = g
	return nil
}

func (m *MockGraphClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	return nil, nil
}

func newFixture(t *testing.T) (*relational.DuckDBClient, *relational.Repo, *vt.Client) {
	t.Helper()
	client, err := relational.NewDuckDBClient("")
	if err != nil {
		t.Fatalf("failed to create duckdb client: %v", err)
	}
	repo := relational.NewRepo(client.DB())
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	tr := &stubTransport{
		objects: map[string]*vt.Object{
			"/files/abc123": {
				ID: "abc123", Type: "file",
				Attributes: map[string]any{
					"type_description":    "PE32",
					"last_analysis_stats": map[string]any{"malicious": float64(3), "harmless": float64(60)},
				},
			},
		},
		pages: map[string][]*vt.Object{
			"/files/abc123/relationships/contacted_domains": {
				{ID: "evil.example", Type: "domain"},
			},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vtc := vt.NewClient("k", vt.WithTransport(tr), vt.WithGraphService(stubGraphService{}), vt.WithLogger(logger))
	return client, repo, vtc
}

func countRows(t *testing.T, client *relational.DuckDBClient, table string) int {
	t.Helper()
	var n int
	if err := client.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// TestRecorderPersistsLookups tests end-to-end: lookup client -> Recorder -> DuckDB
func TestRecorderPersistsLookups(t *testing.T) {
	ctx := context.Background()
	client, repo, vtc := newFixture(t)
	mirror := &MockGraphClient{}

	rec, err := database.NewRecorder(vtc,
		database.WithRepository(repo),
		database.WithGraphMirror(mirror),
		database.WithRecorderLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}

	if _, err := rec.LookupOne(ctx, "abc123", "file"); err != nil {
		t.Fatalf("LookupOne failed: %v", err)
	}

	batch := frame.New()
	batch.Append(frame.Row{vt.DefaultValueColumn: "abc123", vt.DefaultKindColumn: "file"})
	batch.Append(frame.Row{vt.DefaultValueColumn: "gone", vt.DefaultKindColumn: "file"})
	if _, err := rec.LookupMany(ctx, batch, "", ""); err != nil {
		t.Fatalf("LookupMany failed: %v", err)
	}
	if n := countRows(t, client, "indicators"); n != 3 {
		t.Errorf("Expected 3 indicator rows, got %d", n)
	}

	edges, err := rec.LookupRelationships(ctx, "abc123", "file", "contacted_domains", vt.WithLimit(10))
	if err != nil {
		t.Fatalf("LookupRelationships failed: %v", err)
	}
	if n := countRows(t, client, "relationships"); n != 1 {
		t.Errorf("Expected 1 relationship row, got %d", n)
	}

	id, err := rec.BuildGraph(ctx, []*frame.Table{edges}, "campaign", true)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	rec.Wait()

	graphs, err := repo.ListGraphs(ctx, 0)
	if err != nil {
		t.Fatalf("ListGraphs failed: %v", err)
	}
	if len(graphs) != 1 || graphs[0].GraphID != id || graphs[0].NodeCount != 2 {
		t.Errorf("Unexpected graphs %+v", graphs)
	}
	if mirror.saved[id] == nil {
		t.Errorf("Expected graph %s mirrored", id)
	}

	if err := rec.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !mirror.closed {
		t.Error("Expected mirror closed")
	}
}

func TestRecorderWithoutRepository(t *testing.T) {
	_, repo, vtc := newFixture(t)
	defer repo.Close()

	rec, err := database.NewRecorder(vtc)
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}
	got, err := rec.LookupOne(context.Background(), "abc123", "file")
	if err != nil {
		t.Fatalf("LookupOne failed: %v", err)
	}
	if got.Len() != 1 {
		t.Errorf("Expected 1 row, got %d", got.Len())
	}
}

func TestRecorderPropagatesStructuralErrors(t *testing.T) {
	_, repo, vtc := newFixture(t)
	defer repo.Close()
	rec, _ := database.NewRecorder(vtc, database.WithRepository(repo))

	_, err := rec.LookupMany(context.Background(), frame.New(), "ioc", "")
	if !errors.Is(err, vt.ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn, got %v", err)
	}
}

func TestNewRecorderRequiresClient(t *testing.T) {
	if _, err := database.NewRecorder(nil); err == nil {
		t.Error("Expected error for nil client")
	}
}

func TestWatcher(t *testing.T) {
	ctx := context.Background()
	client, repo, vtc := newFixture(t)
	defer repo.Close()
	rec, _ := database.NewRecorder(vtc, database.WithRepository(repo))

	watchlist := frame.New()
	watchlist.Append(frame.Row{vt.DefaultValueColumn: "abc123", vt.DefaultKindColumn: "file"})

	w, err := database.NewWatcher(rec, watchlist, "", "", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	passes := make(chan int, 16)
	w.OnResult(func(t *frame.Table) {
		select {
		case passes <- t.Len():
		default:
		}
	})

	if _, err := w.PullOnce(ctx); err != nil {
		t.Fatalf("PullOnce failed: %v", err)
	}
	if n := <-passes; n != 1 {
		t.Errorf("Expected 1 row per pass, got %d", n)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("Expected second Start to fail")
	}
	select {
	case <-passes:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a watch pass within 2s")
	}
	w.Stop()

	if n := countRows(t, client, "indicators"); n < 2 {
		t.Errorf("Expected at least 2 stored lookups, got %d", n)
	}
}
