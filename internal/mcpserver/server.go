package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"vtlookup/internal/database"
	"vtlookup/internal/database/graph"
	"vtlookup/internal/database/relational"
	"vtlookup/internal/engine"
	"vtlookup/internal/frame"
	"vtlookup/internal/render"
	"vtlookup/internal/vt"
)

// Asker answers natural-language questions about the indicator graph.
type Asker interface {
	Query(ctx context.Context, question string) (string, error)
}

// NeighborFinder walks stored relationship edges.
type NeighborFinder interface {
	GetNeighbors(ctx context.Context, nodeID string) ([]graph.Node, []graph.Edge, error)
}

// Server wraps the MCP server with indicator lookup capabilities.
type Server struct {
	mcpServer   *mcp.Server
	lookups     database.Lookups
	duckdbRepo  relational.ResultRepository
	neo4jClient graph.GraphClient
	neighbors   NeighborFinder
	ragEngine   Asker
	verdict     engine.Config
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
}

// Deps are the components the tools call. Only Lookups is required; tools
// whose component is missing return an error.
type Deps struct {
	Lookups   database.Lookups
	Repo      relational.ResultRepository
	Graph     graph.GraphClient
	Neighbors NeighborFinder
	RAG       Asker
}

// NewServer creates a new MCP server instance.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Lookups == nil {
		return nil, errors.New("lookup client is required")
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	s := &Server{
		mcpServer:   mcp.NewServer(impl, nil),
		lookups:     deps.Lookups,
		duckdbRepo:  deps.Repo,
		neo4jClient: deps.Graph,
		neighbors:   deps.Neighbors,
		ragEngine:   deps.RAG,
		verdict:     engine.DefaultConfig(),
	}

	s.registerTools()
	return s, nil
}

// Indicator names one indicator of compromise.
type Indicator struct {
	Value string `json:"value" jsonschema:"the indicator: sha256/md5 hash, domain, IP address or URL"`
	Kind  string `json:"kind" jsonschema:"indicator kind: file, domain, ip_address or url"`
}

// LookupIOCArgs defines the input for lookup_ioc tool.
type LookupIOCArgs struct {
	Indicators []Indicator `json:"indicators" jsonschema:"indicators to look up"`
}

// LookupIOCResult defines the output for lookup_ioc tool.
type LookupIOCResult struct {
	Records  []frame.Row          `json:"records" jsonschema:"one flattened record per indicator"`
	Verdicts []engine.CheckResult `json:"verdicts" jsonschema:"OK/WARN/CRIT verdict per record"`
}

// RelationshipsArgs defines the input for lookup_relationships tool.
type RelationshipsArgs struct {
	Indicators   []Indicator `json:"indicators" jsonschema:"indicators to expand"`
	Relationship string      `json:"relationship" jsonschema:"relationship name, e.g. contacted_domains or resolutions"`
	Limit        *int        `json:"limit,omitempty" jsonschema:"maximum related objects per indicator; defaults to all of them"`
}

// RelationshipsResult wraps relationship edges.
type RelationshipsResult struct {
	Edges []frame.Row `json:"edges" jsonschema:"source/target edges"`
}

// BuildGraphArgs defines the input for build_graph tool.
type BuildGraphArgs struct {
	Name         string      `json:"name" jsonschema:"graph name"`
	Private      *bool       `json:"private,omitempty" jsonschema:"create a private graph (default true)"`
	Relationship string      `json:"relationship" jsonschema:"relationship used to connect the indicators"`
	Indicators   []Indicator `json:"indicators" jsonschema:"seed indicators"`
	Limit        *int        `json:"limit,omitempty" jsonschema:"maximum related objects per indicator"`
}

// BuildGraphResult identifies the submitted graph.
type BuildGraphResult struct {
	GraphID  string `json:"graph_id" jsonschema:"identifier assigned by the graph service"`
	EmbedURL string `json:"embed_url" jsonschema:"URL of the hosted graph viewer"`
}

// RenderGraphArgs defines the input for render_graph tool.
type RenderGraphArgs struct {
	GraphID string `json:"graph_id" jsonschema:"graph identifier"`
	Width   int    `json:"width,omitempty" jsonschema:"frame width in pixels (default 800)"`
	Height  int    `json:"height,omitempty" jsonschema:"frame height in pixels (default 600)"`
}

// RenderGraphResult carries the embeddable frame.
type RenderGraphResult struct {
	HTML     string `json:"html" jsonschema:"iframe fragment"`
	EmbedURL string `json:"embed_url" jsonschema:"URL of the hosted graph viewer"`
}

// QueryGraphArgs defines the input for query_graph tool.
type QueryGraphArgs struct {
	Cypher string `json:"cypher" jsonschema:"Cypher query to execute"`
}

// QueryGraphResult wraps graph query results.
type QueryGraphResult struct {
	Data interface{} `json:"data" jsonschema:"query results"`
}

// LookupHistoryArgs defines the input for get_lookup_history tool.
type LookupHistoryArgs struct {
	ID    string `json:"id,omitempty" jsonschema:"indicator to filter by"`
	Kind  string `json:"kind,omitempty" jsonschema:"kind to filter by"`
	Limit int    `json:"limit,omitempty" jsonschema:"number of lookups to return"`
}

// LookupHistoryResult wraps stored lookups.
type LookupHistoryResult struct {
	Lookups []relational.IndicatorRecord `json:"lookups" jsonschema:"stored lookups, newest first"`
}

// AskGraphArgs defines the input for ask_graph tool.
type AskGraphArgs struct {
	Question string `json:"question" jsonschema:"the question to ask about the indicator graph"`
}

// AskGraphResult defines the output for ask_graph tool.
type AskGraphResult struct {
	Answer string `json:"answer" jsonschema:"AI-generated answer"`
}

// NeighborsArgs defines the input for get_neighbors tool.
type NeighborsArgs struct {
	NodeID string `json:"node_id" jsonschema:"indicator whose neighbors to list"`
}

// NeighborsResult lists adjacent indicators.
type NeighborsResult struct {
	Nodes []graph.Node `json:"nodes" jsonschema:"adjacent indicators"`
	Edges []graph.Edge `json:"edges" jsonschema:"connecting edges"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "lookup_ioc",
		Description: "Look up indicators of compromise (file hashes, domains, IP addresses, URLs) on VirusTotal. Returns detection counts, basic attributes and an OK/WARN/CRIT verdict per indicator. Unknown indicators come back as id/type stubs.",
	}, s.handleLookupIOC)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "lookup_relationships",
		Description: "Fetch objects related to indicators through a VirusTotal relationship such as contacted_domains, contacted_ips, resolutions or communicating_files. Returns source/target edges.",
	}, s.handleLookupRelationships)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "build_graph",
		Description: "Expand seed indicators through a relationship and submit the result as an investigation graph. Returns the graph id and viewer URL.",
	}, s.handleBuildGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "render_graph",
		Description: "Return an embeddable iframe for a submitted graph.",
	}, s.handleRenderGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_graph",
		Description: "Execute Cypher queries directly on the Neo4j graph database. Available nodes: Graph, Indicator (id, kind). Relationships: CONTAINS, RELATED (name, graph_id).",
	}, s.handleQueryGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_lookup_history",
		Description: "Query past lookups from DuckDB. Use to see how an indicator's detections changed over time.",
	}, s.handleGetLookupHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_graph",
		Description: "Ask questions about the stored indicator graphs using AI-powered graph analysis, e.g. which files share infrastructure.",
	}, s.handleAskGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_neighbors",
		Description: "List indicators directly connected to an indicator by stored relationship lookups or submitted graphs.",
	}, s.handleGetNeighbors)
}

func indicatorTable(inds []Indicator) (*frame.Table, error) {
	if len(inds) == 0 {
		return nil, errors.New("at least one indicator is required")
	}
	t := frame.New()
	for _, ind := range inds {
		t.AppendOrdered(frame.Row{
			vt.DefaultValueColumn: strings.TrimSpace(ind.Value),
			vt.DefaultKindColumn:  strings.TrimSpace(ind.Kind),
		}, vt.DefaultValueColumn, vt.DefaultKindColumn)
	}
	return t, nil
}

func relationshipOptions(limit *int) []vt.RelationshipOption {
	if limit == nil {
		return nil
	}
	return []vt.RelationshipOption{vt.WithLimit(*limit)}
}

// handleLookupIOC looks up every indicator; failures become stubs.
func (s *Server) handleLookupIOC(ctx context.Context, _ *mcp.CallToolRequest, args LookupIOCArgs) (*mcp.CallToolResult, LookupIOCResult, error) {
	inds, err := indicatorTable(args.Indicators)
	if err != nil {
		return nil, LookupIOCResult{}, err
	}
	t, err := s.lookups.LookupMany(ctx, inds, "", "")
	if err != nil {
		return nil, LookupIOCResult{}, fmt.Errorf("lookup failed: %w", err)
	}
	return nil, LookupIOCResult{Records: t.Records(), Verdicts: engine.Evaluate(t, s.verdict)}, nil
}

func (s *Server) handleLookupRelationships(ctx context.Context, _ *mcp.CallToolRequest, args RelationshipsArgs) (*mcp.CallToolResult, RelationshipsResult, error) {
	t, err := s.relationships(ctx, args.Indicators, args.Relationship, args.Limit)
	if err != nil {
		return nil, RelationshipsResult{}, err
	}
	return nil, RelationshipsResult{Edges: t.Records()}, nil
}

func (s *Server) handleBuildGraph(ctx context.Context, _ *mcp.CallToolRequest, args BuildGraphArgs) (*mcp.CallToolResult, BuildGraphResult, error) {
	edges, err := s.relationships(ctx, args.Indicators, args.Relationship, args.Limit)
	if err != nil {
		return nil, BuildGraphResult{}, err
	}
	private := args.Private == nil || *args.Private
	id, err := s.lookups.BuildGraph(ctx, []*frame.Table{edges}, args.Name, private)
	if err != nil {
		return nil, BuildGraphResult{}, fmt.Errorf("graph submission failed: %w", err)
	}
	return nil, BuildGraphResult{GraphID: id, EmbedURL: render.EmbedURL(id)}, nil
}

func (s *Server) relationships(ctx context.Context, indicators []Indicator, relationship string, limit *int) (*frame.Table, error) {
	inds, err := indicatorTable(indicators)
	if err != nil {
		return nil, err
	}
	if relationship == "" {
		return nil, errors.New("relationship is required")
	}
	t, err := s.lookups.LookupManyRelationships(ctx, inds, relationship, "", "", relationshipOptions(limit)...)
	if err != nil {
		return nil, fmt.Errorf("relationship lookup failed: %w", err)
	}
	return t, nil
}

func (s *Server) handleRenderGraph(ctx context.Context, _ *mcp.CallToolRequest, args RenderGraphArgs) (*mcp.CallToolResult, RenderGraphResult, error) {
	if args.GraphID == "" {
		return nil, RenderGraphResult{}, errors.New("graph_id is required")
	}
	var b strings.Builder
	if err := s.lookups.RenderGraph(&b, args.GraphID, args.Width, args.Height); err != nil {
		return nil, RenderGraphResult{}, fmt.Errorf("render failed: %w", err)
	}
	return nil, RenderGraphResult{HTML: b.String(), EmbedURL: render.EmbedURL(args.GraphID)}, nil
}

// handleQueryGraph executes Cypher queries.
func (s *Server) handleQueryGraph(ctx context.Context, _ *mcp.CallToolRequest, args QueryGraphArgs) (*mcp.CallToolResult, QueryGraphResult, error) {
	if s.neo4jClient == nil {
		return nil, QueryGraphResult{}, errors.New("graph database not configured (set NEO4J_URI)")
	}
	result, err := s.neo4jClient.ExecuteCypher(ctx, args.Cypher)
	if err != nil {
		return nil, QueryGraphResult{}, fmt.Errorf("cypher query failed: %w", err)
	}

	return nil, QueryGraphResult{Data: result}, nil
}

// handleGetLookupHistory queries DuckDB.
func (s *Server) handleGetLookupHistory(ctx context.Context, _ *mcp.CallToolRequest, args LookupHistoryArgs) (*mcp.CallToolResult, LookupHistoryResult, error) {
	if s.duckdbRepo == nil {
		return nil, LookupHistoryResult{}, errors.New("result store not configured")
	}
	records, err := s.duckdbRepo.QueryIndicators(ctx, relational.IndicatorFilter{
		ID:    args.ID,
		Kind:  args.Kind,
		Limit: args.Limit,
	})
	if err != nil {
		return nil, LookupHistoryResult{}, fmt.Errorf("failed to query lookups: %w", err)
	}

	return nil, LookupHistoryResult{Lookups: records}, nil
}

// handleAskGraph uses GraphRAG to answer questions.
func (s *Server) handleAskGraph(ctx context.Context, _ *mcp.CallToolRequest, args AskGraphArgs) (*mcp.CallToolResult, AskGraphResult, error) {
	if s.ragEngine == nil {
		return nil, AskGraphResult{}, errors.New("graph questions need NEO4J_URI and GEMINI_API_KEY")
	}
	answer, err := s.ragEngine.Query(ctx, args.Question)
	if err != nil {
		return nil, AskGraphResult{}, fmt.Errorf("RAG query failed: %w", err)
	}

	return nil, AskGraphResult{Answer: answer}, nil
}

func (s *Server) handleGetNeighbors(ctx context.Context, _ *mcp.CallToolRequest, args NeighborsArgs) (*mcp.CallToolResult, NeighborsResult, error) {
	if s.neighbors == nil {
		return nil, NeighborsResult{}, errors.New("result store not configured")
	}
	nodes, edges, err := s.neighbors.GetNeighbors(ctx, args.NodeID)
	if err != nil {
		return nil, NeighborsResult{}, err
	}
	return nil, NeighborsResult{Nodes: nodes, Edges: edges}, nil
}

// Start starts the MCP server using stdio transport.
func (s *Server) Start(ctx context.Context) error {
	fmt.Fprintf(os.Stderr, "Starting vtlookup MCP Server on stdio...\n")
	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}
