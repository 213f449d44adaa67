// Package database ties the lookup client to the result store and the graph
// database: every lookup is persisted, and submitted graphs are mirrored.
package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"vtlookup/internal/database/graph"
	"vtlookup/internal/database/relational"
	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

const defaultPollInterval = 15 * time.Minute

// Lookups is the subset of *vt.Client the Recorder drives.
type Lookups interface {
	LookupOne(ctx context.Context, value, kind string) (*frame.Table, error)
	LookupMany(ctx context.Context, indicators *frame.Table, valueColumn, kindColumn string) (*frame.Table, error)
	LookupRelationships(ctx context.Context, value, kind, relationship string, opts ...vt.RelationshipOption) (*frame.Table, error)
	LookupManyRelationships(ctx context.Context, indicators *frame.Table, relationship, valueColumn, kindColumn string, opts ...vt.RelationshipOption) (*frame.Table, error)
	BuildGraph(ctx context.Context, tables []*frame.Table, name string, private bool) (string, error)
	RenderGraph(w io.Writer, graphID string, width, height int) error
}

var _ Lookups = (*vt.Client)(nil)

// Recorder runs lookups and persists what they return. Persistence is best
// effort: a store failure is logged and the lookup result is still returned.
type Recorder struct {
	client  Lookups
	repo    relational.ResultRepository
	mirror  graph.GraphClient
	backend string
	logger  *slog.Logger

	wg sync.WaitGroup
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRepository persists results to repo.
func WithRepository(repo relational.ResultRepository) RecorderOption {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithGraphMirror copies every submitted graph into g under the identifier
// the graph service assigned.
func WithGraphMirror(g graph.GraphClient) RecorderOption {
	return func(r *Recorder) {
		r.mirror = g
	}
}

// WithBackendName records which graph service assigned graph identifiers.
func WithBackendName(name string) RecorderOption {
	return func(r *Recorder) {
		r.backend = name
	}
}

// WithRecorderLogger sets the logger.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = l
	}
}

// NewRecorder creates a recorder over client.
func NewRecorder(client Lookups, opts ...RecorderOption) (*Recorder, error) {
	if client == nil {
		return nil, errors.New("lookup client is required")
	}
	r := &Recorder{
		client:  client,
		backend: "virustotal",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Repository returns the result store, or nil when results are not persisted.
func (r *Recorder) Repository() relational.ResultRepository { return r.repo }

// LookupOne looks up a single indicator and stores the record.
func (r *Recorder) LookupOne(ctx context.Context, value, kind string) (*frame.Table, error) {
	t, err := r.client.LookupOne(ctx, value, kind)
	if err != nil {
		return nil, err
	}
	r.saveIndicators(ctx, t)
	return t, nil
}

// LookupMany looks up every row of indicators and stores all records, stubs included.
func (r *Recorder) LookupMany(ctx context.Context, indicators *frame.Table, valueColumn, kindColumn string) (*frame.Table, error) {
	t, err := r.client.LookupMany(ctx, indicators, valueColumn, kindColumn)
	if err != nil {
		return nil, err
	}
	r.saveIndicators(ctx, t)
	return t, nil
}

// LookupRelationships fetches related objects and stores the edges.
func (r *Recorder) LookupRelationships(ctx context.Context, value, kind, relationship string, opts ...vt.RelationshipOption) (*frame.Table, error) {
	t, err := r.client.LookupRelationships(ctx, value, kind, relationship, opts...)
	if err != nil {
		return nil, err
	}
	r.saveRelationships(ctx, t)
	return t, nil
}

// LookupManyRelationships fetches related objects for every row and stores the edges.
func (r *Recorder) LookupManyRelationships(ctx context.Context, indicators *frame.Table, relationship, valueColumn, kindColumn string, opts ...vt.RelationshipOption) (*frame.Table, error) {
	t, err := r.client.LookupManyRelationships(ctx, indicators, relationship, valueColumn, kindColumn, opts...)
	if err != nil {
		return nil, err
	}
	r.saveRelationships(ctx, t)
	return t, nil
}

// BuildGraph submits the graph, records it, and mirrors it in the background.
func (r *Recorder) BuildGraph(ctx context.Context, tables []*frame.Table, name string, private bool) (string, error) {
	id, err := r.client.BuildGraph(ctx, tables, name, private)
	if err != nil {
		return "", err
	}
	if r.repo == nil && r.mirror == nil {
		return id, nil
	}

	sub := vt.AssembleGraph(frame.Concat(tables...), name, private)
	if r.repo != nil {
		if err := r.repo.SaveGraph(ctx, id, r.backend, sub); err != nil {
			r.logger.Warn("persist graph failed", "graph_id", id, "err", err)
		}
	}

	if r.mirror != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			// detached so the mirror completes after the request returns
			pushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := r.mirror.SaveGraphAs(pushCtx, id, sub); err != nil {
				r.logger.Warn("graph mirror failed", "graph_id", id, "err", err)
			}
		}()
	}
	return id, nil
}

// RenderGraph writes the viewer frame for graphID.
func (r *Recorder) RenderGraph(w io.Writer, graphID string, width, height int) error {
	return r.client.RenderGraph(w, graphID, width, height)
}

// Wait blocks until background graph mirrors finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Close waits for background work and closes the store and the mirror.
func (r *Recorder) Close(ctx context.Context) error {
	r.wg.Wait()

	var errs []error
	if r.mirror != nil {
		errs = append(errs, r.mirror.Close(ctx))
	}
	if r.repo != nil {
		errs = append(errs, r.repo.Close())
	}
	return errors.Join(errs...)
}

func (r *Recorder) saveIndicators(ctx context.Context, t *frame.Table) {
	if r.repo == nil {
		return
	}
	if _, err := r.repo.SaveIndicators(ctx, t); err != nil {
		r.logger.Warn("persist indicators failed", "rows", t.Len(), "err", err)
	}
}

func (r *Recorder) saveRelationships(ctx context.Context, t *frame.Table) {
	if r.repo == nil {
		return
	}
	if _, err := r.repo.SaveRelationships(ctx, t); err != nil {
		r.logger.Warn("persist relationships failed", "rows", t.Len(), "err", err)
	}
}
