// Package sqlite implements a search backend over a local SQLite FTS5
// index. It is the usual primary backend: records are indexed with Index
// (for example by the `meld index` command) and searched term by term,
// ranked by bm25. Query terms are quoted before they reach MATCH, so
// punctuation and stray FTS5 operators never error the query.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rubiojr/meld/pkg/core"
)

func init() {
	core.RegisterBackendPrototype("sqlite", &Backend{})
}

type Config struct {
	DBPath string `toml:"db_path"`
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	return nil
}

type Backend struct {
	config       *Config
	db           *sql.DB
	instanceName string
}

func NewBackend(instanceName string, config interface{}) (core.Backend, error) {
	var cfg *Config
	if config == nil {
		cfg = &Config{}
	} else {
		var ok bool
		cfg, ok = config.(*Config)
		if !ok {
			return nil, fmt.Errorf("invalid config type for sqlite backend")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	backend := &Backend{
		config:       cfg,
		db:           db,
		instanceName: instanceName,
	}
	if err := backend.initializeSchema(); err != nil {
		return nil, err
	}
	return backend, nil
}

func (b *Backend) initializeSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(title, body)`,
	}
	for _, statement := range statements {
		if _, err := b.db.Exec(statement); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

func (b *Backend) Type() string { return "sqlite" }
func (b *Backend) Name() string { return b.instanceName }

func (b *Backend) ConfigType() interface{} {
	return &Config{}
}

func (b *Backend) SetConfig(config interface{}) error {
	if cfg, ok := config.(*Config); ok {
		if err := cfg.Validate(); err != nil {
			return err
		}
		b.config = cfg
		return nil
	}
	return fmt.Errorf("invalid config type for sqlite backend")
}

func (b *Backend) Factory(instanceName string, config interface{}) (core.Backend, error) {
	return NewBackend(instanceName, config)
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Index upserts records into the index inside one transaction.
func (b *Backend) Index(ctx context.Context, records []core.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO records (id, title, body, metadata)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	deleteFTS, err := tx.PrepareContext(ctx, `
		DELETE FROM records_fts
		WHERE rowid = (SELECT rowid FROM records WHERE id = ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing FTS delete statement: %w", err)
	}
	defer func() { _ = deleteFTS.Close() }()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records_fts (rowid, title, body)
		VALUES ((SELECT rowid FROM records WHERE id = ?), ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing FTS statement: %w", err)
	}
	defer func() { _ = ftsStmt.Close() }()

	for _, record := range records {
		metadataJSON, err := json.Marshal(record.Metadata())
		if err != nil {
			return fmt.Errorf("marshaling metadata for record %s: %w", record.ID(), err)
		}

		// The FTS row has to go before the upsert replaces the rowid.
		if _, err := deleteFTS.ExecContext(ctx, record.ID()); err != nil {
			return fmt.Errorf("removing stale FTS row for %s: %w", record.ID(), err)
		}
		if _, err := stmt.ExecContext(ctx, record.ID(), record.Title(), record.Text(), string(metadataJSON)); err != nil {
			return fmt.Errorf("inserting record %s: %w", record.ID(), err)
		}
		if _, err := ftsStmt.ExecContext(ctx, record.ID(), record.Title(), record.Text()); err != nil {
			return fmt.Errorf("inserting record %s into FTS: %w", record.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// escapeFTS5Query turns user input into a safe FTS5 match expression:
// every whitespace-separated token becomes a quoted string (internal
// quotes doubled), matched with implicit AND. Parameter binding already
// rules out SQL injection; this guards against FTS5 syntax errors from
// everyday input like apostrophes or unbalanced quotes.
func escapeFTS5Query(query string) string {
	tokens := strings.Fields(query)
	for i, token := range tokens {
		tokens[i] = `"` + strings.ReplaceAll(token, `"`, `""`) + `"`
	}
	return strings.Join(tokens, " ")
}

func (b *Backend) Search(ctx context.Context, query core.Query, offset, limit int) (*core.Collection, error) {
	terms := escapeFTS5Query(query.Terms)

	var total int
	var err error
	if terms == "" {
		err = b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&total)
	} else {
		err = b.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM records_fts WHERE records_fts MATCH ?`, terms).Scan(&total)
	}
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	if limit == 0 {
		return core.NewCollection(nil, total), nil
	}

	var rows *sql.Rows
	if terms == "" {
		rows, err = b.db.QueryContext(ctx, `
			SELECT id, title, body, metadata
			FROM records
			ORDER BY id
			LIMIT ? OFFSET ?`, limit, offset)
	} else {
		// bm25 ranks ascending (lower is better); id breaks ties so the
		// ranking stays stable across identical calls
		rows, err = b.db.QueryContext(ctx, `
			SELECT r.id, r.title, r.body, r.metadata
			FROM records r
			JOIN records_fts fts ON r.rowid = fts.rowid
			WHERE records_fts MATCH ?
			ORDER BY bm25(records_fts), r.id
			LIMIT ? OFFSET ?`, terms, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := b.scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return core.NewCollection(records, total), nil
}

func (b *Backend) Retrieve(ctx context.Context, id string) (*core.Collection, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, title, body, metadata
		FROM records
		WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("retrieving record %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	records, err := b.scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return core.EmptyCollection(), nil
	}
	return core.NewCollection(records, len(records)), nil
}

// RetrieveBatch resolves all ids in one query. Results come back in
// requested-id order; missing ids are simply absent.
func (b *Backend) RetrieveBatch(ctx context.Context, ids []string) (*core.Collection, error) {
	if len(ids) == 0 {
		return core.EmptyCollection(), nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT id, title, body, metadata
		FROM records
		WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("batch retrieving records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fetched, err := b.scanRecords(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]core.Record, len(fetched))
	for _, record := range fetched {
		byID[record.ID()] = record
	}

	records := make([]core.Record, 0, len(fetched))
	for _, id := range ids {
		if record, ok := byID[id]; ok {
			records = append(records, record)
		}
	}
	return core.NewCollection(records, len(records)), nil
}

func (b *Backend) scanRecords(rows *sql.Rows) ([]core.Record, error) {
	var records []core.Record
	for rows.Next() {
		var id, title, body, metadataStr string
		if err := rows.Scan(&id, &title, &body, &metadataStr); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
			metadata = nil
		}

		records = append(records, core.NewGenericRecord(id, title, body, b.instanceName, metadata))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return records, nil
}
