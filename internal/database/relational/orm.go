package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

// SchemaSQL creates the lookup history tables.
//
// Lookups are append-only: the same indicator looked up twice yields two
// rows, matching the behaviour of concatenated result tables. Attributes
// outside the fixed columns are kept as a JSON document.
const SchemaSQL = `
CREATE SEQUENCE IF NOT EXISTS indicator_lookup_seq;
CREATE SEQUENCE IF NOT EXISTS relationship_lookup_seq;

CREATE TABLE IF NOT EXISTS indicators (
  lookup_id      BIGINT PRIMARY KEY DEFAULT nextval('indicator_lookup_seq'),
  id             VARCHAR NOT NULL,
  kind           VARCHAR NOT NULL,
  resolved       BOOLEAN NOT NULL,
  detections     BIGINT,
  scans          BIGINT,
  attributes     VARCHAR,
  looked_up_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS relationships (
  lookup_id         BIGINT PRIMARY KEY DEFAULT nextval('relationship_lookup_seq'),
  source            VARCHAR NOT NULL,
  source_type       VARCHAR,
  target            VARCHAR NOT NULL,
  target_type       VARCHAR,
  relationship_type VARCHAR NOT NULL,
  attributes        VARCHAR,
  looked_up_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS graphs (
  graph_id     VARCHAR PRIMARY KEY,
  name         VARCHAR,
  backend      VARCHAR NOT NULL,
  private      BOOLEAN NOT NULL,
  node_count   INTEGER NOT NULL,
  edge_count   INTEGER NOT NULL,
  created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS graph_nodes (
  graph_id  VARCHAR NOT NULL,
  node_id   VARCHAR NOT NULL,
  kind      VARCHAR,
  PRIMARY KEY(graph_id, node_id)
);

CREATE TABLE IF NOT EXISTS graph_edges (
  graph_id          VARCHAR NOT NULL,
  source            VARCHAR NOT NULL,
  target            VARCHAR NOT NULL,
  relationship_type VARCHAR
);
`

// fixed columns of each table; everything else goes to attributes
var (
	indicatorColumns = map[string]bool{
		vt.ColumnID: true, vt.ColumnType: true, vt.ColumnDetections: true, vt.ColumnScans: true,
	}
	relationshipColumns = map[string]bool{
		vt.ColumnSource: true, vt.ColumnSourceType: true, vt.ColumnTarget: true,
		vt.ColumnTargetType: true, vt.ColumnRelationshipType: true,
	}
)

// Repo implements ResultRepository on DuckDB.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo returns a repository over db. Call Migrate before use.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveIndicators implements ResultRepository.
func (r *Repo) SaveIndicators(ctx context.Context, t *frame.Table) (int, error) {
	if t.Empty() {
		return 0, nil
	}
	at := r.now()

	return r.inTx(ctx, `
		INSERT INTO indicators(id, kind, resolved, detections, scans, attributes, looked_up_at)
		VALUES (?,?,?,?,?,?,?)
	`, func(stmt *sql.Stmt) (int, error) {
		n := 0
		for i := 0; i < t.Len(); i++ {
			row := t.Row(i)
			id := t.GetString(i, vt.ColumnID)
			if id == "" {
				continue
			}
			detections, resolved := toInt64(row[vt.ColumnDetections])
			scans, _ := toInt64(row[vt.ColumnScans])
			attrs, err := attributesJSON(row, indicatorColumns)
			if err != nil {
				return n, err
			}

			_, err = stmt.ExecContext(ctx,
				id, t.GetString(i, vt.ColumnType), resolved,
				nullInt(detections, resolved), nullInt(scans, resolved), attrs, at,
			)
			if err != nil {
				return n, fmt.Errorf("insert indicator %s: %w", id, err)
			}
			n++
		}
		return n, nil
	})
}

// SaveRelationships implements ResultRepository.
func (r *Repo) SaveRelationships(ctx context.Context, t *frame.Table) (int, error) {
	if t.Empty() {
		return 0, nil
	}
	at := r.now()

	return r.inTx(ctx, `
		INSERT INTO relationships(source, source_type, target, target_type, relationship_type, attributes, looked_up_at)
		VALUES (?,?,?,?,?,?,?)
	`, func(stmt *sql.Stmt) (int, error) {
		n := 0
		for i := 0; i < t.Len(); i++ {
			source, target := t.GetString(i, vt.ColumnSource), t.GetString(i, vt.ColumnTarget)
			if source == "" || target == "" {
				continue
			}
			attrs, err := attributesJSON(t.Row(i), relationshipColumns)
			if err != nil {
				return n, err
			}

			_, err = stmt.ExecContext(ctx,
				source, nullStr(t.GetString(i, vt.ColumnSourceType)),
				target, nullStr(t.GetString(i, vt.ColumnTargetType)),
				t.GetString(i, vt.ColumnRelationshipType), attrs, at,
			)
			if err != nil {
				return n, fmt.Errorf("insert relationship %s->%s: %w", source, target, err)
			}
			n++
		}
		return n, nil
	})
}

// SaveGraph implements ResultRepository.
func (r *Repo) SaveGraph(ctx context.Context, graphID, backend string, g *vt.GraphSubmission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graphs(graph_id, name, backend, private, node_count, edge_count, created_at)
		VALUES (?,?,?,?,?,?,?)
	`, graphID, nullStr(g.Name), backend, g.Private, len(g.Nodes), len(g.Edges), r.now())
	if err != nil {
		return fmt.Errorf("insert graph %s: %w", graphID, err)
	}

	for _, n := range g.Nodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO graph_nodes(graph_id, node_id, kind) VALUES (?,?,?)`,
			graphID, n.ID, nullStr(n.Kind),
		); err != nil {
			return fmt.Errorf("insert graph node %s: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO graph_edges(graph_id, source, target, relationship_type) VALUES (?,?,?,?)`,
			graphID, e.Source, e.Target, nullStr(e.Relationship),
		); err != nil {
			return fmt.Errorf("insert graph edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	return tx.Commit()
}

// inTx prepares query in a transaction, runs fn with it and commits.
func (r *Repo) inTx(ctx context.Context, query string, fn func(*sql.Stmt) (int, error)) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	n, err := fn(stmt)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func attributesJSON(row frame.Row, fixed map[string]bool) (sql.NullString, error) {
	attrs := make(map[string]any, len(row))
	for k, v := range row {
		if !fixed[k] && v != nil {
			attrs[k] = v
		}
	}
	if len(attrs) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode attributes: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// toInt64 accepts the numeric shapes a table cell may hold, including the
// strings read back from CSV.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Null helpers
func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v int64, valid bool) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: valid}
}
