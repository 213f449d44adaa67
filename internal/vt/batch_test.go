package vt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"vtlookup/internal/frame"
	"vtlookup/internal/metrics"
)

func TestLookupManyMissingColumn(t *testing.T) {
	tests := []struct {
		name        string
		valueColumn string
		kindColumn  string
	}{
		{"missing value column", "ioc", DefaultKindColumn},
		{"missing kind column", DefaultValueColumn, "ioc_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newMockTransport()
			c := newTestClient(tr)
			in := indicatorTable([2]string{"abc123", "file"})

			_, err := c.LookupMany(context.Background(), in, tt.valueColumn, tt.kindColumn)
			if !errors.Is(err, ErrMissingColumn) {
				t.Fatalf("Expected ErrMissingColumn, got %v", err)
			}
			_, err = c.LookupManyRelationships(context.Background(), in, "contacted_domains", tt.valueColumn, tt.kindColumn)
			if !errors.Is(err, ErrMissingColumn) {
				t.Fatalf("Expected ErrMissingColumn, got %v", err)
			}
			if tr.networkCalls() != 0 {
				t.Errorf("Expected zero lookups, got %d", tr.networkCalls())
			}
		})
	}
}

func TestLookupManyStubsFailures(t *testing.T) {
	tr := newMockTransport()
	tr.objects["/files/good1"] = fileObject("good1", 1, 9)
	tr.objects["/files/good2"] = fileObject("good2", 0, 10)
	c := newTestClient(tr)

	in := indicatorTable(
		[2]string{"good1", "file"},
		[2]string{"missing", "file"},
		[2]string{"x", "email"},
		[2]string{"good2", "file"},
	)

	got, err := c.LookupMany(context.Background(), in, "", "")
	if err != nil {
		t.Fatalf("LookupMany failed: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("Expected 4 rows, got %d", got.Len())
	}

	wantIDs := []string{"good1", "missing", "x", "good2"}
	for i, want := range wantIDs {
		if id := got.GetString(i, ColumnID); id != want {
			t.Errorf("Row %d: expected id %q, got %q", i, want, id)
		}
	}
	if got.Get(1, ColumnDetections) != nil || got.GetString(1, ColumnType) != "file" {
		t.Errorf("Expected stub row, got %v", got.Row(1))
	}
	if got.GetString(2, ColumnType) != "email" {
		t.Errorf("Expected stub to keep requested kind, got %v", got.Row(2))
	}
	if got.Get(3, ColumnScans) != 10 {
		t.Errorf("Expected real record for good2, got %v", got.Row(3))
	}
	// the unsupported kind never reaches the transport
	if len(tr.getCalls) != 3 {
		t.Errorf("Expected 3 fetches, got %v", tr.getCalls)
	}
}

func TestLookupManyEmptyInput(t *testing.T) {
	c := newTestClient(newMockTransport())

	got, err := c.LookupMany(context.Background(), indicatorTable(), "", "")
	if err != nil {
		t.Fatalf("LookupMany failed: %v", err)
	}
	if !got.Empty() {
		t.Errorf("Expected empty result, got %d rows", got.Len())
	}
}

func TestLookupManyRelationships(t *testing.T) {
	tr := newMockTransport()
	tr.pages[relPath] = domainDescriptors("a.example", "b.example")
	tr.failOn["/files/bad/relationships/contacted_domains"] = errors.New("timeout")
	c := newTestClient(tr)

	in := frame.New()
	in.AppendOrdered(frame.Row{"hash": "abc123", "kind": "file"}, "hash", "kind")
	in.AppendOrdered(frame.Row{"hash": "bad", "kind": "file"}, "hash", "kind")

	got, err := c.LookupManyRelationships(context.Background(), in, "contacted_domains", "hash", "kind", WithLimit(5))
	if err != nil {
		t.Fatalf("LookupManyRelationships failed: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("Expected 2 edges and 1 stub, got %d rows", got.Len())
	}
	if got.GetString(2, ColumnID) != "bad" || got.GetString(2, ColumnSource) != "" {
		t.Errorf("Expected stub keyed by id only, got %v", got.Row(2))
	}
	if len(got.Index()) != 0 {
		t.Errorf("Expected mixed result to be unindexed, got %v", got.Index())
	}
}

func TestLookupManyBoundsKindLabels(t *testing.T) {
	c := newTestClient(newMockTransport())

	rows := make([][2]string, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, [2]string{fmt.Sprintf("v%d", i), fmt.Sprintf("bogus-%d", i)})
	}
	stubbed := metrics.Lookups.WithLabelValues("batch", metrics.KindUnsupported, metrics.OutcomeStubbed)
	before := testutil.CollectAndCount(metrics.Lookups)
	stubsBefore := testutil.ToFloat64(stubbed)

	got, err := c.LookupMany(context.Background(), indicatorTable(rows...), "", "")
	if err != nil {
		t.Fatalf("LookupMany failed: %v", err)
	}
	if got.Len() != 50 {
		t.Fatalf("Expected 50 stub rows, got %d", got.Len())
	}
	if after := testutil.CollectAndCount(metrics.Lookups); after != before {
		t.Errorf("Expected no new series for unsupported kinds, got %d -> %d", before, after)
	}
	if delta := testutil.ToFloat64(stubbed) - stubsBefore; delta != 50 {
		t.Errorf("Expected 50 unsupported stubs counted, got %v", delta)
	}
}

func TestKindLabel(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"file", "file"},
		{"ip_address", "ip_address"},
		{"email", metrics.KindUnsupported},
		{"", metrics.KindUnsupported},
	}
	for _, tt := range tests {
		if got := kindLabel(tt.kind); got != tt.want {
			t.Errorf("kindLabel(%q): expected %s, got %s", tt.kind, tt.want, got)
		}
	}
}
