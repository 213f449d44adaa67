package main

import (
	"flag"
	"io"
	"testing"
)

func newGraphFlagSet() (*flag.FlagSet, *graphFlags) {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var g graphFlags
	g.register(fs)
	return fs, &g
}

func TestGraphFlagsPrivacy(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"Omitted flag keeps graph private", []string{"edges.csv"}, true},
		{"Explicit private", []string{"-private", "edges.csv"}, true},
		{"Explicit public", []string{"-private=false", "edges.csv"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, g := newGraphFlagSet()
			pos, err := parse(fs, tt.args, 1)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(pos) != 1 || pos[0] != "edges.csv" {
				t.Errorf("Expected positional edges.csv, got %v", pos)
			}
			if g.private != tt.want {
				t.Errorf("Expected private %v, got %v", tt.want, g.private)
			}
		})
	}
}

func TestLimitFlag(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantOptions int
	}{
		{"Unset uses the reported count", nil, 0},
		{"Zero is passed through", []string{"-limit", "0"}, 1},
		{"Positive limit", []string{"-limit", "25"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("relationships", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			limit := limitFlag(fs, "maximum related objects")
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got := len(limitOptions(*limit)); got != tt.wantOptions {
				t.Errorf("Expected %d options for limit %d, got %d", tt.wantOptions, *limit, got)
			}
		})
	}
}

func TestLimitFlagDefault(t *testing.T) {
	fs, g := newGraphFlagSet()
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if *g.limit != unsetLimit {
		t.Errorf("Expected unset limit %d, got %d", unsetLimit, *g.limit)
	}
	if f := fs.Lookup("limit"); f.DefValue != "-1" {
		t.Errorf("Expected default -1, got %s", f.DefValue)
	}
}
