// Package vt looks up indicators of compromise in the VirusTotal v3 API and
// reshapes the responses into frame tables.
//
// The Client validates indicator kinds before any request, flattens each
// object to its kind's basic attributes plus detection counts, walks
// relationships with paging, drives batches of lookups without aborting on a
// bad row, and assembles relationship tables into a graph submission.
package vt

import (
	"io"
	"log/slog"
	"time"

	"vtlookup/internal/metrics"
	"vtlookup/internal/render"
)

const (
	// DefaultPageSize is the number of related objects requested per page,
	// which is also the most the API returns in one page.
	DefaultPageSize = 40

	// DefaultValueColumn and DefaultKindColumn are the batch input columns
	// used when the caller does not name others. They match the target
	// columns of a relationship table, so relationship output can be fed
	// back into a batch lookup.
	DefaultValueColumn = ColumnTarget
	DefaultKindColumn  = ColumnTargetType
)

// Column names of result tables.
const (
	ColumnID               = "id"
	ColumnType             = "type"
	ColumnDetections       = "detections"
	ColumnScans            = "scans"
	ColumnSource           = "source"
	ColumnTarget           = "target"
	ColumnRelationshipType = "relationship_type"
	ColumnSourceType       = "source_type"
	ColumnTargetType       = "target_type"
)

const (
	opLookupOne           = "LookupOne"
	opLookupRelationships = "LookupRelationships"
	opBuildGraph          = "BuildGraph"
)

// Client is the indicator lookup client.
type Client struct {
	transport Transport
	graphs    GraphService
	logger    *slog.Logger
	pageSize  int
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. with a caching decorator.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithGraphService sets the service BuildGraph submits graphs to.
func WithGraphService(g GraphService) Option {
	return func(c *Client) {
		c.graphs = g
	}
}

// WithLogger sets the logger used for per-item batch failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPageSize requests smaller pages than DefaultPageSize. Sizes outside
// 1..DefaultPageSize are ignored.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= DefaultPageSize {
			c.pageSize = n
		}
	}
}

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(apiKey)
	}
	return c
}

// Transport returns the transport in use.
func (c *Client) Transport() Transport { return c.transport }

// RenderGraph writes an embeddable viewer frame for graphID to w.
func (c *Client) RenderGraph(w io.Writer, graphID string, width, height int) error {
	return render.Embed(w, graphID, width, height)
}

// release closes idle transport connections at the end of a public fetch.
func (c *Client) release() {
	if err := c.transport.Close(); err != nil {
		c.logger.Warn("release transport", "err", err)
	}
}

func observe(op string, start time.Time) {
	metrics.LookupDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
