package vt

import (
	"context"
	"time"

	"vtlookup/internal/frame"
	"vtlookup/internal/metrics"
)

// GraphService persists a graph submission and returns the identifier it assigns.
type GraphService interface {
	SaveGraph(ctx context.Context, g *GraphSubmission) (string, error)
	Name() string
}

// GraphNode is a distinct indicator in a graph.
type GraphNode struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// GraphEdge links two nodes through a named relationship.
type GraphEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// GraphSubmission is submitted to a GraphService as a unit.
type GraphSubmission struct {
	Name    string      `json:"name"`
	Private bool        `json:"private"`
	Nodes   []GraphNode `json:"nodes"`
	Edges   []GraphEdge `json:"edges"`
}

// BuildGraph assembles relationship tables into a graph and submits it to the
// configured GraphService, returning the graph identifier.
func (c *Client) BuildGraph(ctx context.Context, tables []*frame.Table, name string, private bool) (string, error) {
	if len(tables) == 0 {
		return "", ErrEmptyInput
	}
	defer observe(opBuildGraph, time.Now())

	sub := AssembleGraph(frame.Concat(tables...), name, private)

	if c.graphs == nil {
		metrics.GraphSubmissions.WithLabelValues("none", metrics.OutcomeFailed).Inc()
		return "", &LookupError{Op: opBuildGraph, Value: name, Err: errNoGraphService}
	}
	id, err := c.graphs.SaveGraph(ctx, sub)
	if err != nil {
		metrics.GraphSubmissions.WithLabelValues(c.graphs.Name(), metrics.OutcomeFailed).Inc()
		return "", &LookupError{Op: opBuildGraph, Value: name, Err: err}
	}
	metrics.GraphSubmissions.WithLabelValues(c.graphs.Name(), metrics.OutcomeOK).Inc()
	c.logger.Info("graph submitted", "backend", c.graphs.Name(), "id", id,
		"nodes", len(sub.Nodes), "edges", len(sub.Edges))
	return id, nil
}

// AssembleGraph derives the node and edge sets of edges. Each source takes
// the first kind seen for it, then each target not already a node. Rows
// without a source or target contribute nothing.
func AssembleGraph(edges *frame.Table, name string, private bool) *GraphSubmission {
	sub := &GraphSubmission{
		Name:    name,
		Private: private,
		Nodes:   []GraphNode{},
		Edges:   []GraphEdge{},
	}
	seen := map[string]bool{}
	add := func(idCol, kindCol string) {
		for i := 0; i < edges.Len(); i++ {
			if !complete(edges, i) {
				continue
			}
			id := edges.GetString(i, idCol)
			if seen[id] {
				continue
			}
			seen[id] = true
			sub.Nodes = append(sub.Nodes, GraphNode{ID: id, Kind: edges.GetString(i, kindCol)})
		}
	}
	add(ColumnSource, ColumnSourceType)
	add(ColumnTarget, ColumnTargetType)

	for i := 0; i < edges.Len(); i++ {
		if !complete(edges, i) {
			continue
		}
		sub.Edges = append(sub.Edges, GraphEdge{
			Source:       edges.GetString(i, ColumnSource),
			Target:       edges.GetString(i, ColumnTarget),
			Relationship: edges.GetString(i, ColumnRelationshipType),
		})
	}
	return sub
}

func complete(t *frame.Table, i int) bool {
	return t.GetString(i, ColumnSource) != "" && t.GetString(i, ColumnTarget) != ""
}
