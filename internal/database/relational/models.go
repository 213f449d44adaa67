package relational

import "time"

// IndicatorRecord is one stored lookup. Resolved is false for stub records
// left behind by a failed batch row.
type IndicatorRecord struct {
	LookupID   int64          `json:"lookup_id"`
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Resolved   bool           `json:"resolved"`
	Detections int64          `json:"detections"`
	Scans      int64          `json:"scans"`
	Attributes map[string]any `json:"attributes,omitempty"`
	LookedUpAt time.Time      `json:"looked_up_at"`
}

// RelationshipRecord is one stored relationship edge.
type RelationshipRecord struct {
	Source           string         `json:"source"`
	SourceType       string         `json:"source_type"`
	Target           string         `json:"target"`
	TargetType       string         `json:"target_type"`
	RelationshipType string         `json:"relationship_type"`
	Attributes       map[string]any `json:"attributes,omitempty"`
	LookedUpAt       time.Time      `json:"looked_up_at"`
}

// GraphSummary describes a submitted graph.
type GraphSummary struct {
	GraphID   string    `json:"graph_id"`
	Name      string    `json:"name"`
	Backend   string    `json:"backend"`
	Private   bool      `json:"private"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	CreatedAt time.Time `json:"created_at"`
}

// IndicatorFilter narrows QueryIndicators. Zero values match everything.
type IndicatorFilter struct {
	ID    string
	Kind  string
	Limit int
}
