package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"vtlookup/internal/app"
	"vtlookup/internal/database"
	"vtlookup/internal/database/relational"
	"vtlookup/internal/engine"
	"vtlookup/internal/frame"
	"vtlookup/internal/mcpserver"
	"vtlookup/internal/output"
	"vtlookup/internal/render"
	"vtlookup/internal/server"
	"vtlookup/internal/vt"
	"vtlookup/ui/console"
	"vtlookup/ui/tui"
)

const version = "0.1.0"

var errUsage = errors.New("invalid arguments")

// outputFlags selects how a result table is written.
type outputFlags struct {
	format string
	out    string
}

func (o *outputFlags) register(fs *flag.FlagSet, def string) {
	fs.StringVar(&o.format, "format", def, "output format: report, csv or json")
	fs.StringVar(&o.out, "out", "", "write to file instead of stdout")
}

func (o *outputFlags) write(t *frame.Table) error {
	var w io.Writer = os.Stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch o.format {
	case "csv":
		return t.WriteCSV(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case "report":
		console.Print(w, output.BuildReport(engine.Evaluate(t, engine.DefaultConfig())))
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, o.format)
	}
}

// readTable reads a CSV file, or stdin for "" and "-".
func readTable(path string) (*frame.Table, error) {
	if path == "" || path == "-" {
		return frame.ReadCSV(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := frame.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func parse(fs *flag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < positional {
		fs.Usage()
		return nil, errUsage
	}
	return fs.Args(), nil
}

// unsetLimit leaves the relationship limit to the count the API reports.
const unsetLimit = -1

func limitFlag(fs *flag.FlagSet, usage string) *int {
	return fs.Int("limit", unsetLimit, usage+"; unset uses the relationship count reported by the API, 0 fetches nothing")
}

func limitOptions(limit int) []vt.RelationshipOption {
	if limit < 0 {
		return nil
	}
	return []vt.RelationshipOption{vt.WithLimit(limit)}
}

func runLookup(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	var o outputFlags
	o.register(fs, "report")
	pos, err := parse(fs, args, 2)
	if err != nil {
		return err
	}

	t, err := a.Recorder.LookupOne(ctx, pos[0], pos[1])
	if err != nil {
		return err
	}
	return o.write(t)
}

func runLookupMany(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("lookup-many", flag.ContinueOnError)
	in := fs.String("in", "-", "indicator CSV")
	valueCol := fs.String("value-column", vt.DefaultValueColumn, "column holding indicator values")
	kindCol := fs.String("kind-column", vt.DefaultKindColumn, "column holding indicator kinds")
	var o outputFlags
	o.register(fs, "report")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	indicators, err := readTable(*in)
	if err != nil {
		return err
	}
	t, err := a.Recorder.LookupMany(ctx, indicators, *valueCol, *kindCol)
	if err != nil {
		return err
	}
	return o.write(t)
}

func runRelationships(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("relationships", flag.ContinueOnError)
	limit := limitFlag(fs, "maximum related objects")
	var o outputFlags
	o.register(fs, "csv")
	pos, err := parse(fs, args, 3)
	if err != nil {
		return err
	}

	t, err := a.Recorder.LookupRelationships(ctx, pos[0], pos[1], pos[2], limitOptions(*limit)...)
	if err != nil {
		return err
	}
	return o.write(t)
}

func runRelationshipsMany(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("relationships-many", flag.ContinueOnError)
	in := fs.String("in", "-", "indicator CSV")
	relationship := fs.String("relationship", "", "relationship name")
	valueCol := fs.String("value-column", vt.DefaultValueColumn, "column holding indicator values")
	kindCol := fs.String("kind-column", vt.DefaultKindColumn, "column holding indicator kinds")
	limit := limitFlag(fs, "maximum related objects per indicator")
	var o outputFlags
	o.register(fs, "csv")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *relationship == "" {
		fs.Usage()
		return errUsage
	}

	indicators, err := readTable(*in)
	if err != nil {
		return err
	}
	t, err := a.Recorder.LookupManyRelationships(ctx, indicators, *relationship, *valueCol, *kindCol, limitOptions(*limit)...)
	if err != nil {
		return err
	}
	return o.write(t)
}

// graphFlags are the options of the graph command. Graphs are private
// unless -private=false is given.
type graphFlags struct {
	name         string
	private      bool
	relationship string
	limit        *int
}

func (g *graphFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.name, "name", "", "graph name")
	fs.BoolVar(&g.private, "private", true, "private graph; -private=false publishes it")
	fs.StringVar(&g.relationship, "relationship", "", "fetch this relationship for indicator files")
	g.limit = limitFlag(fs, "maximum related objects per indicator")
}

// runGraph submits edge tables as a graph. With -relationship the files are
// indicator lists whose relationships are fetched first.
func runGraph(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	var g graphFlags
	g.register(fs)
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	tables := make([]*frame.Table, 0, len(pos))
	for _, path := range pos {
		t, err := readTable(path)
		if err != nil {
			return err
		}
		if g.relationship != "" {
			t, err = a.Recorder.LookupManyRelationships(ctx, t, g.relationship, "", "", limitOptions(*g.limit)...)
			if err != nil {
				return err
			}
		}
		tables = append(tables, t)
	}

	id, err := a.Recorder.BuildGraph(ctx, tables, g.name, g.private)
	if err != nil {
		return err
	}
	fmt.Println(id)
	fmt.Fprintf(os.Stderr, "View: %s\n", render.EmbedURL(id))
	return nil
}

func runRender(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	width := fs.Int("width", render.DefaultWidth, "frame width")
	height := fs.Int("height", render.DefaultHeight, "frame height")
	png := fs.String("png", "", "save a screenshot of the viewer to this file")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	if *png == "" {
		return a.Recorder.RenderGraph(os.Stdout, pos[0], *width, *height)
	}
	img, err := render.Screenshot(ctx, pos[0], *width, *height)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*png, img, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved %s (%d bytes)\n", *png, len(img))
	return nil
}

func runHistory(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	id := fs.String("id", "", "indicator value")
	kind := fs.String("kind", "", "indicator kind")
	limit := fs.Int("limit", 10, "maximum records, at most 100")
	graphs := fs.Bool("graphs", false, "list submitted graphs instead")
	source := fs.String("relationships", "", "list stored relationship edges of this indicator instead")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	var v any
	var err error
	switch {
	case *graphs:
		v, err = a.Repo.ListGraphs(ctx, *limit)
	case *source != "":
		v, err = a.Repo.QueryRelationships(ctx, *source, *limit)
	default:
		v, err = a.Repo.QueryIndicators(ctx, relational.IndicatorFilter{ID: *id, Kind: *kind, Limit: *limit})
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newWatcher(a *app.App, fs *flag.FlagSet, args []string) (*database.Watcher, error) {
	watchlist := fs.String("watchlist", "", "indicator CSV to re-check")
	valueCol := fs.String("value-column", vt.DefaultValueColumn, "column holding indicator values")
	kindCol := fs.String("kind-column", vt.DefaultKindColumn, "column holding indicator kinds")
	if _, err := parse(fs, args, 0); err != nil {
		return nil, err
	}
	if *watchlist == "" {
		fs.Usage()
		return nil, errUsage
	}

	t, err := readTable(*watchlist)
	if err != nil {
		return nil, err
	}
	return database.NewWatcher(a.Recorder, t, *valueCol, *kindCol, a.Config.WatchInterval)
}

func runWatch(ctx context.Context, a *app.App, args []string) error {
	w, err := newWatcher(a, flag.NewFlagSet("watch", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	w.OnResult(func(t *frame.Table) {
		console.Print(os.Stdout, output.BuildReport(engine.Evaluate(t, engine.DefaultConfig())))
	})

	if _, err := w.PullOnce(ctx); err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	a.Logger.Info("watching", "interval", a.Config.WatchInterval)
	<-ctx.Done()
	w.Stop()
	return nil
}

func runTUI(ctx context.Context, a *app.App, args []string) error {
	w, err := newWatcher(a, flag.NewFlagSet("tui", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	return tui.Start(w, engine.DefaultConfig(), a.Config.WatchInterval)
}

func runServe(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.Config.HTTPAddr, "listen address")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	srv := server.New(a.Recorder,
		server.WithRepository(a.Repo),
		server.WithLogger(a.Logger),
	)
	return srv.ListenAndServe(ctx, *addr)
}

func runMCP(ctx context.Context, a *app.App, args []string) error {
	deps := mcpserver.Deps{
		Lookups:   a.Recorder,
		Repo:      a.Repo,
		Neighbors: a.Neighbors,
	}
	// nil pointers must stay nil interfaces so the tools report them missing
	if a.Neo4j != nil {
		deps.Graph = a.Neo4j
	}
	if a.RAG != nil {
		deps.RAG = a.RAG
	}

	s, err := mcpserver.NewServer(mcpserver.Config{
		ServerName:    "vtlookup",
		ServerVersion: version,
	}, deps)
	if err != nil {
		return err
	}
	return s.Start(ctx)
}
