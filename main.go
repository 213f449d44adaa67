package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vtlookup/internal/app"
	"vtlookup/internal/config"
)

const usage = `Usage: vtlookup [-config file] [-env file] [-v] <command> [flags] [args]

Commands:
  lookup <value> <kind>                      look up one indicator
  lookup-many [-in file.csv]                 look up every row of a CSV
  relationships <value> <kind> <relationship>
  relationships-many -relationship name [-in file.csv]
  graph -name name [-relationship name] <file.csv>...
  render [-png out.png] <graph-id>
  history [-id value] [-kind kind] [-limit n]
  watch -watchlist file.csv                  re-check a watchlist on an interval
  tui -watchlist file.csv                    interactive watchlist dashboard
  serve [-addr :8080]                        HTTP API and /metrics
  mcp                                        MCP server on stdio
`

// command runs against a fully wired application.
type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"lookup":             runLookup,
	"lookup-many":        runLookupMany,
	"relationships":      runRelationships,
	"relationships-many": runRelationshipsMany,
	"graph":              runGraph,
	"render":             runRender,
	"history":            runHistory,
	"watch":              runWatch,
	"tui":                runTUI,
	"serve":              runServe,
	"mcp":                runMCP,
}

func main() {
	global := flag.NewFlagSet("vtlookup", flag.ExitOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", "", "YAML config file")
	envFile := global.String("env", "", "dotenv file (default .env)")
	verbose := global.Bool("v", false, "debug logging")
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		global.Usage()
		os.Exit(2)
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(*configPath, envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(args[0], *verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		os.Exit(1)
	}

	runErr := run(ctx, a, args[1:])
	if err := a.Close(context.Background()); err != nil {
		logger.Warn("shutdown incomplete", "err", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// newLogger writes to stderr. The TUI owns the terminal, so it logs nothing
// below errors.
func newLogger(cmd string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	if cmd == "tui" {
		level = slog.LevelError
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
