package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./vtlookup mcp")
		os.Exit(2)
	}

	ctx := context.Background()

	// Start the server as a subprocess
	cmd := exec.Command(args[0], args[1:]...)
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "vtlookup-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to vtlookup MCP Server!")
	fmt.Println("Indicators are written value:kind, e.g. 8.8.8.8:ip_address")
	fmt.Println("Available commands:")
	fmt.Println("  /tools                                  - List available tools")
	fmt.Println("  /lookup <indicator>...                  - Look up indicators")
	fmt.Println("  /rel <relationship> <indicator>...      - Fetch related objects")
	fmt.Println("  /build <name> <relationship> <indicator>... - Submit a graph")
	fmt.Println("  /render <graph-id>                      - Embeddable frame for a graph")
	fmt.Println("  /history [id] [limit]                   - Stored lookups")
	fmt.Println("  /neighbors <id>                         - Stored neighbors of an indicator")
	fmt.Println("  /cypher <query>                         - Execute Cypher query")
	fmt.Println("  /exit                                   - Exit the client")
	fmt.Println("  <question>                              - Ask a question using GraphRAG")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		parts := strings.Fields(input)

		switch {
		case input == "/exit":
			fmt.Println("Goodbye!")
			return

		case input == "/tools":
			listTools(ctx, session)

		case parts[0] == "/lookup" && len(parts) > 1:
			callTool(ctx, session, "lookup_ioc", map[string]any{
				"indicators": parseIndicators(parts[1:]),
			})

		case parts[0] == "/rel" && len(parts) > 2:
			callTool(ctx, session, "lookup_relationships", map[string]any{
				"relationship": parts[1],
				"indicators":   parseIndicators(parts[2:]),
			})

		case parts[0] == "/build" && len(parts) > 3:
			callTool(ctx, session, "build_graph", map[string]any{
				"name":         parts[1],
				"relationship": parts[2],
				"indicators":   parseIndicators(parts[3:]),
			})

		case parts[0] == "/render" && len(parts) == 2:
			callTool(ctx, session, "render_graph", map[string]any{"graph_id": parts[1]})

		case parts[0] == "/history":
			args := map[string]any{}
			if len(parts) > 1 {
				args["id"] = parts[1]
			}
			if len(parts) > 2 {
				if n, err := strconv.Atoi(parts[2]); err == nil {
					args["limit"] = n
				}
			}
			callTool(ctx, session, "get_lookup_history", args)

		case parts[0] == "/neighbors" && len(parts) == 2:
			callTool(ctx, session, "get_neighbors", map[string]any{"node_id": parts[1]})

		case strings.HasPrefix(input, "/cypher "):
			callTool(ctx, session, "query_graph", map[string]any{
				"cypher": strings.TrimPrefix(input, "/cypher "),
			})

		case strings.HasPrefix(input, "/"):
			fmt.Println("Unknown or incomplete command")

		default:
			callTool(ctx, session, "ask_graph", map[string]any{
				"question": input,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

// parseIndicators splits value:kind pairs on the last colon, so URLs keep
// their scheme. A bare value is sent without a kind.
func parseIndicators(fields []string) []map[string]string {
	out := make([]map[string]string, 0, len(fields))
	for _, f := range fields {
		value, kind := f, ""
		if i := strings.LastIndex(f, ":"); i > 0 && !strings.Contains(f[i+1:], "/") {
			value, kind = f[:i], f[i+1:]
		}
		out = append(out, map[string]string{"value": value, "kind": kind})
	}
	return out
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("❌ Error: ")
	} else {
		fmt.Printf("✅ Result: ")
	}

	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(v.Text)
		default:
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}
