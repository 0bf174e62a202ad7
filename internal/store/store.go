// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps the history of document runs in SQLite: the paper,
// its sections and search text, every reference with its outcome and
// normalized text, and the citations. Reference text is indexed with FTS5.
//
// The store is a record of past runs. Nothing reads it back to skip a fetch.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/pkg/types"
)

const (
	defaultLimit = 20

	// timeLayout has fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Store manages the run history database.
type Store struct {
	db  *sqlx.DB
	fts bool
	log *zap.Logger
}

// Open opens or creates the database at path and its schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// NewWithDB wraps an existing connection whose schema is already in place.
func NewWithDB(db *sqlx.DB, fullText bool, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, fts: fullText, log: log}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			outline TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			search_text TEXT,
			locators TEXT,
			failure_kind TEXT,
			failure_detail TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS refs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			locator TEXT NOT NULL,
			label TEXT,
			outcome TEXT NOT NULL,
			content_kind TEXT,
			failure_kind TEXT,
			failure_detail TEXT,
			text TEXT NOT NULL DEFAULT '',
			UNIQUE (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refs_locator ON refs(locator)`,
		`CREATE TABLE IF NOT EXISTS citations (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			locator TEXT NOT NULL,
			label TEXT,
			citation TEXT,
			failure_kind TEXT,
			failure_detail TEXT,
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.Get(&ftsExists,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='refs_fts'`); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}
	ftsStatements := []string{
		`CREATE VIRTUAL TABLE refs_fts USING fts5(text, content=refs, content_rowid=rowid)`,
		`CREATE TRIGGER refs_ai AFTER INSERT ON refs BEGIN
			INSERT INTO refs_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER refs_ad AFTER DELETE ON refs BEGIN
			INSERT INTO refs_fts(refs_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
	}
	if _, err := s.db.Exec(ftsStatements[0]); err != nil {
		// Builds without FTS5 fall back to substring search.
		s.log.Warn("full-text index unavailable", zap.Error(err))
		return nil
	}
	for _, stmt := range ftsStatements[1:] {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// SaveRun writes p, replacing any earlier save of the same run.
func (s *Store) SaveRun(ctx context.Context, p *types.Paper) error {
	if p.RunID == "" {
		return fmt.Errorf("saving run: paper has no run id")
	}
	outline, err := json.Marshal(p.Outline)
	if err != nil {
		return fmt.Errorf("encoding outline: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Child rows are deleted explicitly so the FTS delete trigger fires.
	for _, table := range []string{"citations", "refs", "sections", "runs"} {
		col := "run_id"
		if table == "runs" {
			col = "id"
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+col+` = ?`, p.RunID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, title, description, outline, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.RunID, p.Title, p.Description, string(outline), p.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, sec := range p.Searches {
		locs, _ := json.Marshal(sec.Locators)
		kind, detail := failureColumns(sec.Failure)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sections (run_id, position, title, search_text, locators, failure_kind, failure_detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.RunID, i, sec.Section, sec.Text, string(locs), kind, detail,
		); err != nil {
			return fmt.Errorf("inserting section %d: %w", i, err)
		}
	}

	for i, ref := range p.References {
		kind, detail := failureColumns(ref.Outcome.Failure)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO refs (run_id, position, locator, label, outcome, content_kind, failure_kind, failure_detail, text)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.RunID, i, ref.Locator, ref.Label, string(ref.Outcome.Kind), string(ref.Outcome.ContentKind), kind, detail, ref.Text,
		); err != nil {
			return fmt.Errorf("inserting reference %s: %w", ref.Locator, err)
		}
	}

	for i, c := range p.Citations {
		kind, detail := failureColumns(c.Failure)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO citations (run_id, position, locator, label, citation, failure_kind, failure_detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.RunID, i, c.Locator, c.Label, c.Citation, kind, detail,
		); err != nil {
			return fmt.Errorf("inserting citation %s: %w", c.Locator, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	s.log.Debug("run saved", zap.String("run_id", p.RunID), zap.Int("references", len(p.References)))
	return nil
}

func failureColumns(f *types.Failure) (*string, *string) {
	if f == nil {
		return nil, nil
	}
	kind := string(f.Kind)
	return &kind, &f.Detail
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string `db:"id" json:"id" yaml:"id"`
	Title      string `db:"title" json:"title" yaml:"title"`
	CreatedAt  string `db:"created_at" json:"created_at" yaml:"created_at"`
	References int    `db:"refs" json:"references" yaml:"references"`
	Fetched    int    `db:"fetched" json:"fetched" yaml:"fetched"`
	Citations  int    `db:"cited" json:"citations" yaml:"citations"`
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var runs []RunSummary
	err := s.db.SelectContext(ctx, &runs,
		`SELECT r.id, r.title, r.created_at,
			(SELECT count(*) FROM refs f WHERE f.run_id = r.id) AS refs,
			(SELECT count(*) FROM refs f WHERE f.run_id = r.id AND f.outcome = 'success') AS fetched,
			(SELECT count(*) FROM citations c WHERE c.run_id = r.id AND c.failure_kind IS NULL) AS cited
		FROM runs r
		ORDER BY r.created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Hit is one reference matching a search.
type Hit struct {
	RunID   string `db:"run_id" json:"run_id" yaml:"run_id"`
	Title   string `db:"title" json:"title" yaml:"title"`
	Locator string `db:"locator" json:"locator" yaml:"locator"`
	Label   string `db:"label" json:"label" yaml:"label"`
	Snippet string `db:"snippet" json:"snippet" yaml:"snippet"`
}

// Search finds stored reference text matching query. With FTS5 the query
// uses FTS5 syntax and results are ranked; otherwise it is a substring
// match ordered by recency.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	var hits []Hit
	var err error
	if s.fts {
		err = s.db.SelectContext(ctx, &hits,
			`SELECT f.run_id, r.title, f.locator, COALESCE(f.label, '') AS label,
				snippet(refs_fts, 0, '[', ']', '...', 12) AS snippet
			FROM refs_fts
			JOIN refs f ON f.rowid = refs_fts.rowid
			JOIN runs r ON r.id = f.run_id
			WHERE refs_fts MATCH ?
			ORDER BY refs_fts.rank
			LIMIT ?`, query, limit)
	} else {
		err = s.db.SelectContext(ctx, &hits,
			`SELECT f.run_id, r.title, f.locator, COALESCE(f.label, '') AS label,
				substr(f.text, 1, 120) AS snippet
			FROM refs f
			JOIN runs r ON r.id = f.run_id
			WHERE f.text LIKE '%' || ? || '%'
			ORDER BY r.created_at DESC
			LIMIT ?`, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("searching references: %w", err)
	}
	return hits, nil
}
