package rag

import "testing"

func TestCleanCypherQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MATCH (n) RETURN n", "MATCH (n) RETURN n"},
		{"```cypher\nMATCH (n) RETURN n\n```", "MATCH (n) RETURN n"},
		{"```\nMATCH (n) RETURN n```  ", "MATCH (n) RETURN n"},
	}
	for _, tt := range tests {
		if got := cleanCypherQuery(tt.in); got != tt.want {
			t.Errorf("cleanCypherQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewGraphRAGEngineModelFallback(t *testing.T) {
	e := NewGraphRAGEngine(nil, nil, "no-such-model")
	if e.modelName != AvailableModels[DefaultModel].Name {
		t.Errorf("Expected fallback to %s, got %s", AvailableModels[DefaultModel].Name, e.modelName)
	}
	e = NewGraphRAGEngine(nil, nil, "pro")
	if e.modelName != AvailableModels["pro"].Name {
		t.Errorf("Expected pro model, got %s", e.modelName)
	}
}
