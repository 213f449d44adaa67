package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolCall is one tool invocation and the message printed when it fails.
type toolCall struct {
	name    string
	args    map[string]any
	failMsg string
}

func main() {
	// Missing files are fine; the server also reads the process environment.
	_ = godotenv.Load("env/.env")
	_ = godotenv.Load(".env")

	if os.Getenv("VT_API_KEY") == "" {
		log.Fatal("❌ VT_API_KEY not set in env/.env")
	}

	fmt.Println("🧪 Testing MCP Server and Tool Calling")
	fmt.Println("=======================================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	serverPath := findServerBinary()
	if serverPath == "" {
		log.Fatal("❌ vtlookup binary not found. Run: go build -o vtlookup .")
	}
	fmt.Println("✅ Test 1: vtlookup binary found")

	cmd := exec.Command(serverPath, "mcp")
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MCP server: %v", err)
	}
	defer session.Close()
	fmt.Println("✅ Test 2: Connected to MCP server")

	fmt.Println("\n✓ Test 3: Listing available tools")
	listResult, err := session.ListTools(ctx, nil)
	if err != nil {
		log.Fatalf("❌ Failed to list tools: %v", err)
	}
	fmt.Printf("  Found %d tools:\n", len(listResult.Tools))
	for _, tool := range listResult.Tools {
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}

	seed := []map[string]string{{"value": "8.8.8.8", "kind": "ip_address"}}
	calls := []toolCall{
		{"lookup_ioc", map[string]any{"indicators": seed}, "lookup failed"},
		{"lookup_relationships", map[string]any{
			"indicators":   seed,
			"relationship": "resolutions",
			"limit":        5,
		}, "relationship lookup failed"},
		{"get_lookup_history", map[string]any{"limit": 5}, "history failed (may be empty database)"},
		{"get_neighbors", map[string]any{"node_id": "8.8.8.8"}, "neighbor walk failed"},
		{"render_graph", map[string]any{"graph_id": "g-test"}, "render failed"},
	}
	if os.Getenv("NEO4J_URI") != "" && os.Getenv("GEMINI_API_KEY") != "" {
		calls = append(calls, toolCall{"ask_graph", map[string]any{
			"question": "Which indicators share infrastructure with 8.8.8.8?",
		}, "ask failed (needs Neo4j running)"})
	}

	for i, c := range calls {
		fmt.Printf("\n✓ Test %d: Testing %s tool\n", i+4, c.name)
		run(ctx, session, c)
	}

	fmt.Println("\n=======================================")
	fmt.Println("✅ All MCP tool calling tests complete!")
	fmt.Println("\n💡 To test interactively, run: go run ./cmd/mcp-client ./vtlookup mcp")
}

func run(ctx context.Context, session *mcp.ClientSession, p toolCall) {
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	result, err := session.CallTool(callCtx, &mcp.CallToolParams{Name: p.name, Arguments: p.args})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			fmt.Printf("  ⚠️  %s timed out\n", p.name)
		} else {
			fmt.Printf("  ❌ %s: %v\n", p.failMsg, err)
		}
		return
	}
	if result.IsError {
		fmt.Printf("  ⚠️  %s:\n", p.failMsg)
	} else {
		fmt.Printf("  ✅ %s called successfully\n", p.name)
	}
	for i, content := range result.Content {
		if i >= 3 {
			fmt.Printf("  ... and %d more content items\n", len(result.Content)-i)
			break
		}
		switch v := content.(type) {
		case *mcp.TextContent:
			preview := v.Text
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			fmt.Printf("    %s\n", preview)
		default:
			fmt.Printf("    [%T]\n", content)
		}
	}
}

func findServerBinary() string {
	candidates := []string{
		"./vtlookup",
		"../../vtlookup",
		"../../../vtlookup",
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}
