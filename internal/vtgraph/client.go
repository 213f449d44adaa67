// Package vtgraph saves graphs to the VirusTotal Graph service.
package vtgraph

import (
	"context"
	"fmt"

	"vtlookup/internal/vt"
)

const graphVersion = "5.0.0"

// Poster sends a JSON request body and decodes the JSON response.
// *vt.HTTPTransport implements it.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Client submits graphs through the API's /graphs collection.
type Client struct {
	poster Poster
}

var _ vt.GraphService = (*Client)(nil)

// NewClient creates a graph client posting through p.
func NewClient(p Poster) *Client {
	return &Client{poster: p}
}

// Name implements vt.GraphService.
func (c *Client) Name() string { return "virustotal" }

type node struct {
	EntityID string `json:"entity_id"`
	Type     string `json:"type"`
	Index    int    `json:"index"`
}

type link struct {
	Source         string `json:"source"`
	Target         string `json:"target"`
	ConnectionType string `json:"connection_type"`
}

type graphData struct {
	Description string `json:"description"`
	Version     string `json:"version"`
	Nodes       []node `json:"nodes"`
	Links       []link `json:"links"`
}

type graphRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Name      string    `json:"name"`
			Private   bool      `json:"private"`
			GraphData graphData `json:"graph_data"`
		} `json:"attributes"`
	} `json:"data"`
}

type graphResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// SaveGraph implements vt.GraphService.
func (c *Client) SaveGraph(ctx context.Context, g *vt.GraphSubmission) (string, error) {
	req := newRequest(g)

	var resp graphResponse
	if err := c.poster.Post(ctx, "/graphs", req, &resp); err != nil {
		return "", fmt.Errorf("save graph %q: %w", g.Name, err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("save graph %q: response carries no graph id", g.Name)
	}
	return resp.Data.ID, nil
}

func newRequest(g *vt.GraphSubmission) *graphRequest {
	data := graphData{
		Description: g.Name,
		Version:     graphVersion,
		Nodes:       make([]node, len(g.Nodes)),
		Links:       make([]link, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		data.Nodes[i] = node{EntityID: n.ID, Type: n.Kind, Index: i}
	}
	for i, e := range g.Edges {
		data.Links[i] = link{Source: e.Source, Target: e.Target, ConnectionType: e.Relationship}
	}

	req := &graphRequest{}
	req.Data.Type = "graph"
	req.Data.Attributes.Name = g.Name
	req.Data.Attributes.Private = g.Private
	req.Data.Attributes.GraphData = data
	return req
}
