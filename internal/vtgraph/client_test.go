package vtgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vtlookup/internal/vt"
)

func TestSaveGraph(t *testing.T) {
	var got graphRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphs", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"data":{"id":"g-123","type":"graph"}}`)
	}))
	defer srv.Close()

	c := NewClient(vt.NewHTTPTransport("secret", vt.WithBaseURL(srv.URL)))
	id, err := c.SaveGraph(context.Background(), &vt.GraphSubmission{
		Name:    "campaign",
		Private: true,
		Nodes: []vt.GraphNode{
			{ID: "abc123", Kind: "file"},
			{ID: "evil.example", Kind: "domain"},
		},
		Edges: []vt.GraphEdge{
			{Source: "abc123", Target: "evil.example", Relationship: "contacted_domains"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "g-123", id)

	attrs := got.Data.Attributes
	assert.Equal(t, "graph", got.Data.Type)
	assert.Equal(t, "campaign", attrs.Name)
	assert.True(t, attrs.Private)
	require.Len(t, attrs.GraphData.Nodes, 2)
	assert.Equal(t, node{EntityID: "evil.example", Type: "domain", Index: 1}, attrs.GraphData.Nodes[1])
	require.Len(t, attrs.GraphData.Links, 1)
	assert.Equal(t, "contacted_domains", attrs.GraphData.Links[0].ConnectionType)
}

func TestSaveGraphErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusForbidden, `{"error":{"code":"ForbiddenError","message":"no graph access"}}`},
		{"missing id", http.StatusOK, `{"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(vt.NewHTTPTransport("k", vt.WithBaseURL(srv.URL)))
			_, err := c.SaveGraph(context.Background(), &vt.GraphSubmission{Name: "g"})
			require.Error(t, err)
		})
	}
}
