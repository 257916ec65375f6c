package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"relex/internal/ir"
	"relex/internal/relgraph"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			file TEXT,
			seq INTEGER,
			category TEXT,
			resource TEXT,
			identity TEXT,
			status TEXT,
			confidence REAL,
			note TEXT,
			events JSON
		);`,
		`CREATE TABLE IF NOT EXISTS call_edges (
			file TEXT,
			caller TEXT,
			callee TEXT,
			kind TEXT,
			confidence REAL,
			line INTEGER,
			PRIMARY KEY (file, caller, callee, kind, line)
		);`,
		`CREATE TABLE IF NOT EXISTS regions (
			file TEXT,
			start_line INTEGER,
			end_line INTEGER,
			condition TEXT,
			active INTEGER,
			unresolved INTEGER,
			PRIMARY KEY (file, start_line, condition)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_file ON records(file);`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveGraph replaces the file's stored snapshot inside one transaction, so
// re-analysis never leaves stale rows behind.
func (s *SQLiteStore) SaveGraph(ctx context.Context, g *relgraph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"records", "call_edges", "regions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE file = ?", g.File); err != nil {
			return err
		}
	}

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, file, seq, category, resource, identity, status, confidence, note, events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seq=excluded.seq,
			status=excluded.status,
			confidence=excluded.confidence,
			note=excluded.note,
			events=excluded.events
	`)
	if err != nil {
		return err
	}
	defer recStmt.Close()

	for i, r := range g.Records {
		events, _ := json.Marshal(r.Events)
		if _, err := recStmt.Exec(
			ir.RecordID(g.File, r), g.File, i,
			string(r.Category), r.Resource, r.Identity,
			string(r.Status), r.Confidence, r.Note, events,
		); err != nil {
			return err
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO call_edges (file, caller, callee, kind, confidence, line)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file, caller, callee, kind, line) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, e := range g.CallEdges {
		if _, err := edgeStmt.Exec(g.File, e.Caller, e.Callee, string(e.Kind), e.Confidence, e.Loc.Line); err != nil {
			return err
		}
	}

	regionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO regions (file, start_line, end_line, condition, active, unresolved)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file, start_line, condition) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer regionStmt.Close()

	for _, region := range g.Regions {
		if _, err := regionStmt.Exec(g.File, region.StartLine, region.EndLine, region.Condition, region.Active, region.Unresolved); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadRecords retrieves one file's records in saved order.
func (s *SQLiteStore) LoadRecords(ctx context.Context, file string) ([]relgraph.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, resource, identity, status, confidence, note, events
		FROM records WHERE file = ? ORDER BY seq
	`, file)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []relgraph.Record
	for rows.Next() {
		var r relgraph.Record
		var category, status string
		var events []byte
		if err := rows.Scan(&category, &r.Resource, &r.Identity, &status, &r.Confidence, &r.Note, &events); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Category = relgraph.Category(category)
		r.Status = relgraph.Status(status)
		if len(events) > 0 {
			_ = json.Unmarshal(events, &r.Events)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusCounts tallies stored records per completion status.
func (s *SQLiteStore) StatusCounts(ctx context.Context) (map[relgraph.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM records GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[relgraph.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[relgraph.Status(status)] = n
	}
	return counts, rows.Err()
}
