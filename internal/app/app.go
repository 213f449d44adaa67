// Package app assembles the lookup client, its cache, the graph backends and
// the result store from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"vtlookup/internal/cache"
	"vtlookup/internal/config"
	"vtlookup/internal/database"
	"vtlookup/internal/database/graph"
	"vtlookup/internal/database/rag"
	"vtlookup/internal/database/relational"
	"vtlookup/internal/vt"
	"vtlookup/internal/vtgraph"
)

// App holds every wired component. Optional components are nil when their
// configuration is absent.
type App struct {
	Config   config.Config
	Client   *vt.Client
	Recorder *database.Recorder
	Store    *relational.DuckDBClient
	Repo     *relational.Repo
	// Neighbors walks edges stored in DuckDB.
	Neighbors *graph.RelationalGraphWrapper
	Neo4j     *graph.Neo4jClient
	RAG       *rag.GraphRAGEngine
	Logger    *slog.Logger

	cache  *cache.RedisCache
	gemini *genai.Client
	// neo4jOwned is set when Neo4j is the graph service rather than the
	// Recorder's mirror, so App closes it itself.
	neo4jOwned bool
}

// New validates cfg and builds the application. Optional backends that fail
// to connect are logged and skipped unless the configuration depends on them.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	httpTransport := vt.NewHTTPTransport(cfg.APIKey,
		vt.WithBaseURL(cfg.BaseURL),
		vt.WithTimeout(cfg.HTTPTimeout),
	)
	var transport vt.Transport = httpTransport
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cache.RedisOptions{URL: cfg.RedisURL, TTL: cfg.CacheTTL})
		if err != nil {
			logger.Warn("response cache disabled", "err", err)
		} else {
			a.cache = rc
			transport = cache.NewTransport(httpTransport, rc, logger)
		}
	}

	if cfg.Neo4j.Enabled() {
		nc, err := graph.NewNeo4jClient(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			if cfg.GraphBackend == config.BackendNeo4j {
				a.closeCache()
				return nil, fmt.Errorf("failed to create neo4j client: %w", err)
			}
			logger.Warn("neo4j mirror disabled", "err", err)
		} else {
			a.Neo4j = nc
		}
	}

	var graphs vt.GraphService = vtgraph.NewClient(httpTransport)
	if cfg.GraphBackend == config.BackendNeo4j {
		graphs = a.Neo4j
		a.neo4jOwned = true
	}

	a.Client = vt.NewClient(cfg.APIKey,
		vt.WithTransport(transport),
		vt.WithGraphService(graphs),
		vt.WithLogger(logger),
		vt.WithPageSize(cfg.PageSize),
	)

	store, err := relational.NewDuckDBClient(cfg.DuckDBPath,
		relational.WithThreads(cfg.DuckDBThreads),
		relational.WithMemoryLimit(cfg.DuckDBMemoryLimitGB),
		relational.WithTimeout(cfg.HTTPTimeout),
	)
	if err != nil {
		a.closeBackends(ctx)
		return nil, err
	}
	a.Store = store
	a.Repo = relational.NewRepo(store.DB())
	if err := a.Repo.Migrate(ctx); err != nil {
		_ = store.Close()
		a.closeBackends(ctx)
		return nil, fmt.Errorf("failed to migrate result store: %w", err)
	}
	a.Neighbors = graph.NewRelationalGraphWrapper(store)

	opts := []database.RecorderOption{
		database.WithRepository(a.Repo),
		database.WithBackendName(graphs.Name()),
		database.WithRecorderLogger(logger),
	}
	if a.Neo4j != nil && !a.neo4jOwned {
		opts = append(opts, database.WithGraphMirror(a.Neo4j))
	}
	a.Recorder, err = database.NewRecorder(a.Client, opts...)
	if err != nil {
		_ = store.Close()
		a.closeBackends(ctx)
		return nil, err
	}

	if a.Neo4j != nil && cfg.GeminiAPIKey != "" {
		gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			logger.Warn("graph questions disabled", "err", err)
		} else {
			a.gemini = gc
			a.RAG = rag.NewGraphRAGEngine(a.Neo4j, gc, cfg.GeminiModel)
		}
	}
	return a, nil
}

// Close waits for background graph mirrors and releases every backend.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.Recorder.Close(ctx)}
	if a.gemini != nil {
		errs = append(errs, a.gemini.Close())
	}
	if a.neo4jOwned && a.Neo4j != nil {
		errs = append(errs, a.Neo4j.Close(ctx))
	}
	errs = append(errs, a.closeCache())
	return errors.Join(errs...)
}

func (a *App) closeBackends(ctx context.Context) {
	if a.Neo4j != nil {
		_ = a.Neo4j.Close(ctx)
	}
	_ = a.closeCache()
}

func (a *App) closeCache() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
