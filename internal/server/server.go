// Package server exposes the lookup client over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vtlookup/internal/database"
	"vtlookup/internal/database/relational"
	"vtlookup/internal/engine"
	"vtlookup/internal/frame"
	"vtlookup/internal/render"
	"vtlookup/internal/vt"
)

const maxBodyBytes = 8 << 20

var errNoRepository = errors.New("result store not configured")

// Server routes HTTP requests to the lookup client.
type Server struct {
	lookups database.Lookups
	repo    relational.ResultRepository
	verdict engine.Config
	logger  *slog.Logger
	router  *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithRepository enables the history and graph listing routes.
func WithRepository(repo relational.ResultRepository) Option {
	return func(s *Server) { s.repo = repo }
}

// WithVerdictConfig sets the thresholds of the verdict route.
func WithVerdictConfig(cfg engine.Config) Option {
	return func(s *Server) { s.verdict = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(l database.Lookups, opts ...Option) *Server {
	s := &Server{
		lookups: l,
		verdict: engine.DefaultConfig(),
		logger:  slog.Default(),
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/indicators/{kind}/{value}", s.handleLookup).Methods(http.MethodGet)
	v1.HandleFunc("/indicators/{kind}/{value}/relationships/{relationship}", s.handleRelationships).Methods(http.MethodGet)
	v1.HandleFunc("/lookups", s.handleLookupMany).Methods(http.MethodPost)
	v1.HandleFunc("/verdicts", s.handleVerdicts).Methods(http.MethodPost)
	v1.HandleFunc("/graphs", s.handleBuildGraph).Methods(http.MethodPost)
	v1.HandleFunc("/graphs", s.handleListGraphs).Methods(http.MethodGet)
	v1.HandleFunc("/graphs/{id}/embed", s.handleEmbed).Methods(http.MethodGet)
	v1.HandleFunc("/graphs/{id}/screenshot", s.handleScreenshot).Methods(http.MethodGet)
	v1.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	v1.HandleFunc("/history/relationships", s.handleRelationshipHistory).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, err := s.lookups.LookupOne(r.Context(), vars["value"], vars["kind"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeTable(w, r, t)
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	opts, err := limitOption(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	t, err := s.lookups.LookupRelationships(r.Context(), vars["value"], vars["kind"], vars["relationship"], opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeTable(w, r, t)
}

// handleLookupMany takes a CSV indicator table. With a relationship query
// parameter it returns edges instead of records.
func (s *Server) handleLookupMany(w http.ResponseWriter, r *http.Request) {
	indicators, err := frame.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	q := r.URL.Query()

	var t *frame.Table
	if rel := q.Get("relationship"); rel != "" {
		opts, optErr := limitOption(r)
		if optErr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: optErr.Error()})
			return
		}
		t, err = s.lookups.LookupManyRelationships(r.Context(), indicators, rel, q.Get("value_column"), q.Get("kind_column"), opts...)
	} else {
		t, err = s.lookups.LookupMany(r.Context(), indicators, q.Get("value_column"), q.Get("kind_column"))
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeTable(w, r, t)
}

func (s *Server) handleVerdicts(w http.ResponseWriter, r *http.Request) {
	indicators, err := frame.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	q := r.URL.Query()
	t, err := s.lookups.LookupMany(r.Context(), indicators, q.Get("value_column"), q.Get("kind_column"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	results := engine.Evaluate(t, s.verdict)
	writeJSON(w, http.StatusOK, verdictResponse{Results: results, Summary: engine.Summary(results)})
}

type verdictResponse struct {
	Results []engine.CheckResult `json:"results"`
	Summary map[string]int       `json:"summary"`
}

type graphIndicator struct {
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

type graphRequest struct {
	Name         string           `json:"name"`
	Private      *bool            `json:"private,omitempty"` // nil means private
	Relationship string           `json:"relationship"`
	Indicators   []graphIndicator `json:"indicators"`
	Limit        *int             `json:"limit,omitempty"`
}

type graphResponse struct {
	ID       string `json:"id"`
	EmbedURL string `json:"embed_url"`
}

func (s *Server) handleBuildGraph(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid graph request: " + err.Error()})
		return
	}
	if req.Relationship == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "relationship is required"})
		return
	}

	indicators := frame.New()
	for _, ind := range req.Indicators {
		indicators.AppendOrdered(frame.Row{
			vt.DefaultValueColumn: ind.Value,
			vt.DefaultKindColumn:  ind.Kind,
		}, vt.DefaultValueColumn, vt.DefaultKindColumn)
	}
	if indicators.Empty() {
		s.writeError(w, vt.ErrEmptyInput)
		return
	}

	var opts []vt.RelationshipOption
	if req.Limit != nil {
		opts = append(opts, vt.WithLimit(*req.Limit))
	}
	edges, err := s.lookups.LookupManyRelationships(r.Context(), indicators, req.Relationship, "", "", opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}

	private := req.Private == nil || *req.Private
	id, err := s.lookups.BuildGraph(r.Context(), []*frame.Table{edges}, req.Name, private)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, graphResponse{ID: id, EmbedURL: render.EmbedURL(id)})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	width, height, err := frameSize(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.lookups.RenderGraph(w, mux.Vars(r)["id"], width, height); err != nil {
		s.logger.Error("render graph failed", "err", err)
	}
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	width, height, err := frameSize(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	png, err := render.Screenshot(r.Context(), mux.Vars(r)["id"], width, height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		s.writeError(w, errNoRepository)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	records, err := s.repo.QueryIndicators(r.Context(), relational.IndicatorFilter{
		ID:    q.Get("id"),
		Kind:  q.Get("kind"),
		Limit: limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRelationshipHistory lists stored edges leaving the source indicator.
func (s *Server) handleRelationshipHistory(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		s.writeError(w, errNoRepository)
		return
	}
	q := r.URL.Query()
	source := q.Get("source")
	if source == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "source is required"})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	records, err := s.repo.QueryRelationships(r.Context(), source, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		s.writeError(w, errNoRepository)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	graphs, err := s.repo.ListGraphs(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graphs)
}

func limitOption(r *http.Request) ([]vt.RelationshipOption, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("limit must be an integer")
	}
	return []vt.RelationshipOption{vt.WithLimit(n)}, nil
}

func frameSize(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	var width, height int
	var err error
	if v := q.Get("width"); v != "" {
		if width, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.New("width must be an integer")
		}
	}
	if v := q.Get("height"); v != "" {
		if height, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.New("height must be an integer")
		}
	}
	return width, height, nil
}
