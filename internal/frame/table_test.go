package frame

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func TestAppendOrderedKeepsColumnOrder(t *testing.T) {
	tb := New("id")
	tb.AppendOrdered(Row{"id": "a", "type": "file", "size": 10}, "id", "size", "type")

	want := []string{"id", "size", "type"}
	if got := tb.Columns(); !slices.Equal(got, want) {
		t.Errorf("Expected columns %v, got %v", want, got)
	}
	if tb.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", tb.Len())
	}
	if key := tb.Key(0); !slices.Equal(key, []string{"a"}) {
		t.Errorf("Expected key [a], got %v", key)
	}
}

func TestRenameAndSetIndex(t *testing.T) {
	tb := New("id")
	tb.Append(Row{"id": "evil.com", "type": "domain"})
	tb.Fill("source", "abc")
	tb.ResetIndex()
	tb.Rename(map[string]string{"id": "target", "type": "target_type"})
	tb.SetIndex("source", "target")

	if !tb.HasColumn("target") || tb.HasColumn("id") {
		t.Errorf("Expected id renamed to target, columns %v", tb.Columns())
	}
	if got := tb.Index(); !slices.Equal(got, []string{"source", "target"}) {
		t.Errorf("Expected index [source target], got %v", got)
	}
	if got := tb.Columns()[:2]; !slices.Equal(got, []string{"source", "target"}) {
		t.Errorf("Expected index columns first, got %v", got)
	}
	if tb.GetString(0, "target_type") != "domain" {
		t.Errorf("Expected target_type domain, got %q", tb.GetString(0, "target_type"))
	}
}

func TestConcat(t *testing.T) {
	a := New("id")
	a.Append(Row{"id": "1", "type": "file"})
	b := New("id")
	b.Append(Row{"id": "1", "type": "file", "detections": 3})

	out := Concat(a, New(), b)
	if out.Len() != 2 {
		t.Fatalf("Expected duplicates to be appended (2 rows), got %d", out.Len())
	}
	if !slices.Equal(out.Index(), []string{"id"}) {
		t.Errorf("Expected shared index to survive, got %v", out.Index())
	}
	if out.Get(0, "detections") != nil {
		t.Errorf("Expected missing value to read nil, got %v", out.Get(0, "detections"))
	}

	mixed := New("source", "target")
	mixed.Append(Row{"source": "s", "target": "t"})
	if got := Concat(a, mixed).Index(); len(got) != 0 {
		t.Errorf("Expected no index for mixed inputs, got %v", got)
	}

	if Concat().Len() != 0 {
		t.Error("Expected empty concat to be empty")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := "target,target_type\nabc123,file\nevil.com,domain\n"
	tb, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if tb.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", tb.Len())
	}
	if tb.GetString(1, "target") != "evil.com" {
		t.Errorf("Expected evil.com, got %q", tb.GetString(1, "target"))
	}

	var buf bytes.Buffer
	if err := tb.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if buf.String() != in {
		t.Errorf("Expected %q, got %q", in, buf.String())
	}
}

func TestReadCSVEmpty(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !tb.Empty() {
		t.Errorf("Expected empty table, got %d rows", tb.Len())
	}
}

func TestMarshalJSON(t *testing.T) {
	tb := New("id")
	tb.Append(Row{"id": "a", "scans": 63})

	data, err := json.Marshal(tb)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `[{"id":"a","scans":63}]` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	empty, _ := json.Marshal(New())
	if string(empty) != `[]` {
		t.Errorf("Expected [], got %s", empty)
	}
}
