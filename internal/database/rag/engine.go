// Package rag answers natural-language questions about the indicator graph
// stored in Neo4j, using Gemini to write Cypher and to summarize the results.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"vtlookup/internal/database/graph"
)

// CypherRunner executes read queries against the graph database.
// *graph.Neo4jClient implements it.
type CypherRunner interface {
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// ModelConfig defines configuration for a Gemini model.
type ModelConfig struct {
	Name        string
	Temperature float32
	TopP        float32
	TopK        int32
}

// DefaultModel is the model key used when none or an unknown one is given.
const DefaultModel = "flash"

// AvailableModels maps model keys to Gemini models. Cypher generation wants
// little creativity, so every model runs at a low temperature.
var AvailableModels = map[string]ModelConfig{
	"flash":        lowTemperature("gemini-flash-latest"),
	"pro":          lowTemperature("gemini-pro-latest"),
	"flash-2":      lowTemperature("gemini-2.0-flash"),
	"experimental": lowTemperature("gemini-2.0-flash-exp"),
}

func lowTemperature(name string) ModelConfig {
	return ModelConfig{Name: name, Temperature: 0.2, TopP: 0.95, TopK: 40}
}

// GraphRAGEngine handles retrieval augmented generation over the indicator graph.
type GraphRAGEngine struct {
	neo4jClient  CypherRunner
	geminiClient *genai.Client
	modelName    string
	config       ModelConfig
}

// NewGraphRAGEngine constructs a new engine over the given graph database.
// Unknown model keys fall back to "flash".
func NewGraphRAGEngine(neo4j CypherRunner, gemini *genai.Client, modelKey string) *GraphRAGEngine {
	config, ok := AvailableModels[modelKey]
	if !ok {
		config = AvailableModels[DefaultModel]
	}

	return &GraphRAGEngine{
		neo4jClient:  neo4j,
		geminiClient: gemini,
		modelName:    config.Name,
		config:       config,
	}
}

// getModel returns a configured GenerativeModel instance.
func (e *GraphRAGEngine) getModel() *genai.GenerativeModel {
	model := e.geminiClient.GenerativeModel(e.modelName)
	model.SetTemperature(e.config.Temperature)
	model.SetTopP(e.config.TopP)
	model.SetTopK(e.config.TopK)
	return model
}

// Query answers question from the indicator graph. When the generated query
// fails or matches nothing, the most recent graphs are used as context.
func (e *GraphRAGEngine) Query(ctx context.Context, question string) (string, error) {
	// Step 1: Generate Cypher query using Gemini
	cypher, err := e.generateCypher(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to generate cypher: %w", err)
	}

	// Step 2: Execute query on Neo4j to retrieve relevant subgraph
	graphData, err := e.neo4jClient.ExecuteCypher(ctx, cypher)
	if err != nil || len(graphData) == 0 {
		cypher = fallbackCypher
		graphData, err = e.neo4jClient.ExecuteCypher(ctx, cypher)
		if err != nil {
			return "", fmt.Errorf("failed to execute graph query: %w", err)
		}
	}

	// Step 3: Synthesize answer using Gemini with the graph context
	answer, err := e.synthesizeAnswer(ctx, question, graphData)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}

	return answer, nil
}

// generateCypher uses Gemini to convert a natural language question into a Cypher query.
func (e *GraphRAGEngine) generateCypher(ctx context.Context, question string) (string, error) {
	model := e.getModel()

	prompt := fmt.Sprintf(`You are a Neo4j Cypher query expert. Convert the following question into a Cypher query for a threat-intelligence graph of indicators of compromise.

Graph Schema:
- Nodes: Graph, Indicator
- Relationships:
  - (Graph)-[:CONTAINS]->(Indicator)
  - (Indicator)-[:RELATED]->(Indicator)

Graph properties: graph_id, name, private, created_at
Indicator properties: id (file hash, domain, IP address or URL identifier), kind ("file", "domain", "ip_address", "url")
RELATED properties: name (the relationship, e.g. "contacted_domains", "resolutions", "downloaded_files"), graph_id

Question: %s

Return ONLY the Cypher query, no explanation. Limit results to 10.`, question)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	cypher := cleanCypherQuery(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if !graph.ReadOnly(cypher) {
		return "", fmt.Errorf("generated query is not read-only: %q", cypher)
	}
	return cypher, nil
}

// synthesizeAnswer uses Gemini to generate a natural language answer from graph data.
func (e *GraphRAGEngine) synthesizeAnswer(ctx context.Context, question string, graphData []map[string]any) (string, error) {
	model := e.getModel()

	// Convert graph data to JSON for context
	graphJSON, err := json.MarshalIndent(graphData, "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`You are a threat-intelligence analyst. Answer the following question based on the graph database results.

Question: %s

Graph Data (from Neo4j):
%s

Provide a clear, concise answer covering which indicators are involved, how they are
connected, and which ones deserve follow-up.

If the graph data is empty or insufficient, say so clearly.`, question, string(graphJSON))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "Unable to generate response from the available data.", nil
	}

	answer := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return answer, nil
}

// cleanCypherQuery removes markdown code fences from Cypher queries.
func cleanCypherQuery(query string) string {
	query = strings.TrimSpace(query)
	query = strings.TrimPrefix(query, "```cypher")
	query = strings.TrimPrefix(query, "```")
	query = strings.TrimSuffix(query, "```")
	return strings.TrimSpace(query)
}

const fallbackCypher = `
	MATCH (g:Graph)
	WITH g ORDER BY g.created_at DESC LIMIT 3
	MATCH (g)-[:CONTAINS]->(i:Indicator)
	OPTIONAL MATCH (i)-[r:RELATED {graph_id: g.graph_id}]->(t:Indicator)
	RETURN g.name AS graph,
	       i.id AS indicator,
	       i.kind AS kind,
	       collect(DISTINCT {relationship: r.name, target: t.id}) AS related
	LIMIT 50
`
