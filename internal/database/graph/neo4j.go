package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"vtlookup/internal/vt"
)

// GraphClient defines the interface for graph database operations.
type GraphClient interface {
	Close(ctx context.Context) error
	// SaveGraphAs writes g under a caller-chosen identifier, e.g. the one
	// another backend already assigned.
	SaveGraphAs(ctx context.Context, graphID string, g *vt.GraphSubmission) error
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// Neo4jClient implements GraphClient for Neo4j. It also serves as a
// vt.GraphService that assigns its own identifiers.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
	dbName string
}

var (
	_ GraphClient     = (*Neo4jClient)(nil)
	_ vt.GraphService = (*Neo4jClient)(nil)
)

// NewNeo4jClient creates a new Neo4j client.
func NewNeo4jClient(uri, username, password, dbName string) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return &Neo4jClient{
		driver: driver,
		dbName: dbName,
	}, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Name implements vt.GraphService.
func (c *Neo4jClient) Name() string { return "neo4j" }

// SaveGraph implements vt.GraphService with a fresh UUID as identifier.
func (c *Neo4jClient) SaveGraph(ctx context.Context, g *vt.GraphSubmission) (string, error) {
	id := uuid.NewString()
	if err := c.SaveGraphAs(ctx, id, g); err != nil {
		return "", err
	}
	return id, nil
}

// SaveGraphAs writes the graph, its indicators and their relationships in
// one transaction. Indicators are merged across graphs by id; relationship
// edges are scoped to the graph that introduced them.
func (c *Neo4jClient) SaveGraphAs(ctx context.Context, graphID string, g *vt.GraphSubmission) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// 1. Graph node
		if err := createGraph(ctx, tx, graphID, g); err != nil {
			return nil, err
		}

		// 2. Indicators, linked to the graph
		if err := mergeIndicators(ctx, tx, graphID, g.Nodes); err != nil {
			return nil, err
		}

		// 3. Relationship edges
		if err := createEdges(ctx, tx, graphID, g.Edges); err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("save graph %s: %w", graphID, err)
	}
	return nil
}

func createGraph(ctx context.Context, tx neo4j.ManagedTransaction, graphID string, g *vt.GraphSubmission) error {
	query := `
		CREATE (g:Graph {
			graph_id: $graph_id,
			name: $name,
			private: $private,
			created_at: $created_at
		})
	`
	params := map[string]any{
		"graph_id":   graphID,
		"name":       g.Name,
		"private":    g.Private,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	_, err := tx.Run(ctx, query, params)
	return err
}

func mergeIndicators(ctx context.Context, tx neo4j.ManagedTransaction, graphID string, nodes []vt.GraphNode) error {
	if len(nodes) == 0 {
		return nil
	}
	query := `
		MATCH (g:Graph {graph_id: $graph_id})
		UNWIND $nodes AS n
		MERGE (i:Indicator {id: n.id})
		SET i.kind = n.kind
		MERGE (g)-[:CONTAINS]->(i)
	`
	rows := make([]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{"id": n.ID, "kind": n.Kind}
	}
	_, err := tx.Run(ctx, query, map[string]any{"graph_id": graphID, "nodes": rows})
	return err
}

func createEdges(ctx context.Context, tx neo4j.ManagedTransaction, graphID string, edges []vt.GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	query := `
		UNWIND $edges AS e
		MATCH (s:Indicator {id: e.source})
		MATCH (t:Indicator {id: e.target})
		MERGE (s)-[:RELATED {name: e.relationship, graph_id: $graph_id}]->(t)
	`
	rows := make([]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{"source": e.Source, "target": e.Target, "relationship": e.Relationship}
	}
	_, err := tx.Run(ctx, query, map[string]any{"graph_id": graphID, "edges": rows})
	return err
}
