package refgraph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds reference store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration, storing the database
// under ~/.ripple (or RIPPLE_DATA_DIR when set).
func DefaultConfig() Config {
	if dir := os.Getenv("RIPPLE_DATA_DIR"); dir != "" {
		return Config{DataDir: dir}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// No resolvable home directory: keep the data somewhere
		// absolute rather than a relative ".ripple" in an unknown cwd.
		return Config{DataDir: filepath.Join(os.TempDir(), "ripple")}
	}
	return Config{DataDir: filepath.Join(home, ".ripple")}
}

// Store persists entity references in SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store with the given configuration. It creates the data
// directory if needed, opens SQLite with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("refgraph: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "references.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("refgraph: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("refgraph: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("refgraph: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entity_references (
			id           TEXT PRIMARY KEY,
			source_type  TEXT    NOT NULL,
			source_id    TEXT    NOT NULL,
			target_type  TEXT    NOT NULL,
			target_id    TEXT    NOT NULL,
			relationship TEXT    NOT NULL,
			metadata     TEXT,
			created_at   INTEGER NOT NULL,
			created_by   TEXT
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_ref_unique
			ON entity_references(source_type, source_id, target_type, target_id, relationship);
		CREATE INDEX IF NOT EXISTS idx_ref_source ON entity_references(source_type, source_id);
		CREATE INDEX IF NOT EXISTS idx_ref_target ON entity_references(target_type, target_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const refColumns = `id, source_type, source_id, target_type, target_id, relationship, COALESCE(metadata, ''), created_at, COALESCE(created_by, '')`

// CreateReference inserts a reference edge. The operation is idempotent:
// if the (source, target, relationship) tuple already exists no duplicate
// row is created and the existing row is returned — callers must not
// assume a fresh id.
func (s *Store) CreateReference(ctx context.Context, p CreateParams) (*EntityReference, error) {
	ref := newReference(p)
	meta, err := marshalMetadata(p.Metadata)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO entity_references
			(id, source_type, source_id, target_type, target_id, relationship, metadata, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.ID, ref.SourceType, ref.SourceID, ref.TargetType, ref.TargetID,
		string(ref.Relationship), meta, ref.CreatedAt, nullableString(ref.CreatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reference: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		// Duplicate tuple: the reference already exists, return it.
		return s.findByLink(ctx, p.SourceType, p.SourceID, p.TargetType, p.TargetID, p.Relationship)
	}
	return &ref, nil
}

// CreateReferencesBulk inserts a batch of references in a single
// transaction. Either every non-duplicate row persists or, on a hard
// failure, none do. Duplicates are silently skipped and omitted from
// the result.
func (s *Store) CreateReferencesBulk(ctx context.Context, params []CreateParams) ([]EntityReference, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	inserted := []EntityReference{}
	for _, p := range params {
		ref := newReference(p)
		meta, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO entity_references
				(id, source_type, source_id, target_type, target_id, relationship, metadata, created_at, created_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ref.ID, ref.SourceType, ref.SourceID, ref.TargetType, ref.TargetID,
			string(ref.Relationship), meta, ref.CreatedAt, nullableString(ref.CreatedBy),
		)
		if err != nil {
			return nil, fmt.Errorf("creating reference %s/%s → %s/%s: %w",
				p.SourceType, p.SourceID, p.TargetType, p.TargetID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted = append(inserted, ref)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// QueryReferences returns references matching the query, ordered by
// creation time. See Query for the two supported filter forms.
func (s *Store) QueryReferences(ctx context.Context, q Query) ([]EntityReference, error) {
	var conds []string
	var args []any

	if q.EntityType != "" && q.EntityID != "" {
		switch q.Direction {
		case DirectionForward:
			conds = append(conds, "source_type = ? AND source_id = ?")
			args = append(args, q.EntityType, q.EntityID)
		case DirectionReverse:
			conds = append(conds, "target_type = ? AND target_id = ?")
			args = append(args, q.EntityType, q.EntityID)
		default: // both
			conds = append(conds, "((source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?))")
			args = append(args, q.EntityType, q.EntityID, q.EntityType, q.EntityID)
		}
	} else {
		if q.SourceType != "" {
			conds = append(conds, "source_type = ?")
			args = append(args, q.SourceType)
		}
		if q.SourceID != "" {
			conds = append(conds, "source_id = ?")
			args = append(args, q.SourceID)
		}
		if q.TargetType != "" {
			conds = append(conds, "target_type = ?")
			args = append(args, q.TargetType)
		}
		if q.TargetID != "" {
			conds = append(conds, "target_id = ?")
			args = append(args, q.TargetID)
		}
	}

	if q.Relationship != "" {
		conds = append(conds, "relationship = ?")
		args = append(args, string(q.Relationship))
	}

	query := "SELECT " + refColumns + " FROM entity_references"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(q.Limit), q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()

	return scanReferences(rows)
}

// GetRelatedEntities traverses the reference graph breadth-first from
// the given entity, expanding through both forward and reverse edges up
// to maxDepth hops. Each (type, id) pair is visited at most once, so
// cycles terminate; the result is the union of all edges encountered
// within the depth bound, each edge at most once. maxDepth=1 is
// equivalent to a single both-direction query.
func (s *Store) GetRelatedEntities(ctx context.Context, entityType, entityID string, maxDepth int) ([]EntityReference, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	type node struct {
		etype string
		eid   string
		depth int
	}

	start := node{etype: entityType, eid: entityID}
	visited := map[string]bool{entityKey(entityType, entityID): true}
	seenEdges := map[string]bool{}
	queue := []node{start}
	result := []EntityReference{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		edges, err := s.QueryReferences(ctx, Query{
			EntityType: current.etype,
			EntityID:   current.eid,
			Direction:  DirectionBoth,
			Limit:      500,
		})
		if err != nil {
			return nil, fmt.Errorf("expanding %s/%s: %w", current.etype, current.eid, err)
		}

		for _, edge := range edges {
			if !seenEdges[edge.ID] {
				seenEdges[edge.ID] = true
				result = append(result, edge)
			}

			// The far side of the edge relative to the current entity.
			otherType, otherID := edge.TargetType, edge.TargetID
			if otherType == current.etype && otherID == current.eid {
				otherType, otherID = edge.SourceType, edge.SourceID
			}

			key := entityKey(otherType, otherID)
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, node{etype: otherType, eid: otherID, depth: current.depth + 1})
		}
	}

	return result, nil
}

// DeleteReference removes a reference by id, reporting whether a row
// was removed.
func (s *Store) DeleteReference(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entity_references WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting reference: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteReferenceByLink removes the reference matching the exact
// 5-tuple, reporting whether a row was removed.
func (s *Store) DeleteReferenceByLink(ctx context.Context, sourceType, sourceID, targetType, targetID string, relationship Relationship) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entity_references
		 WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ? AND relationship = ?`,
		sourceType, sourceID, targetType, targetID, string(relationship),
	)
	if err != nil {
		return false, fmt.Errorf("deleting reference by link: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Stats returns aggregate counts over the stored graph.
func (s *Store) Stats(ctx context.Context) (*GraphStats, error) {
	stats := &GraphStats{ByRelationship: map[string]int{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT relationship, COUNT(*) FROM entity_references GROUP BY relationship`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rel string
		var count int
		if err := rows.Scan(&rel, &count); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats.ByRelationship[rel] = count
		stats.TotalReferences += count
	}
	return stats, rows.Err()
}

// --- helpers ---

func newReference(p CreateParams) EntityReference {
	return EntityReference{
		ID:           uuid.NewString(),
		SourceType:   p.SourceType,
		SourceID:     p.SourceID,
		TargetType:   p.TargetType,
		TargetID:     p.TargetID,
		Relationship: p.Relationship,
		Metadata:     p.Metadata,
		CreatedAt:    time.Now().UnixMilli(),
		CreatedBy:    p.CreatedBy,
	}
}

func (s *Store) findByLink(ctx context.Context, sourceType, sourceID, targetType, targetID string, relationship Relationship) (*EntityReference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+refColumns+` FROM entity_references
		 WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ? AND relationship = ?`,
		sourceType, sourceID, targetType, targetID, string(relationship),
	)
	if err != nil {
		return nil, fmt.Errorf("looking up reference: %w", err)
	}
	defer rows.Close()

	refs, err := scanReferences(rows)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("reference %s/%s → %s/%s (%s) not found",
			sourceType, sourceID, targetType, targetID, relationship)
	}
	return &refs[0], nil
}

func scanReferences(rows *sql.Rows) ([]EntityReference, error) {
	result := []EntityReference{}
	for rows.Next() {
		var ref EntityReference
		var meta, rel string
		if err := rows.Scan(&ref.ID, &ref.SourceType, &ref.SourceID, &ref.TargetType, &ref.TargetID,
			&rel, &meta, &ref.CreatedAt, &ref.CreatedBy); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		ref.Relationship = Relationship(rel)
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &ref.Metadata); err != nil {
				return nil, fmt.Errorf("parsing reference metadata: %w", err)
			}
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

func marshalMetadata(meta map[string]string) (any, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling reference metadata: %w", err)
	}
	return string(data), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func entityKey(etype, eid string) string {
	return etype + ":" + eid
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}
