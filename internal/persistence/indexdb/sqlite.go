package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/knitting"
)

// SQLiteIndex is a read model of the rule set and completed conversions. It
// is secondary: the JSONL conversion log stays the source of truth, and writes
// are dropped rather than stalling gameplay when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqConversion reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind

	conversion knitting.Conversion
	done       chan struct{}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rules (
			input TEXT PRIMARY KEY,
			output TEXT NOT NULL,
			kind TEXT NOT NULL,
			mod TEXT NOT NULL,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			actor TEXT NOT NULL,
			input TEXT NOT NULL,
			consumed INTEGER NOT NULL,
			output TEXT NOT NULL,
			output_kind TEXT NOT NULL,
			dropped INTEGER NOT NULL,
			tool_durability INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_actor ON conversions(actor, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// UpsertRules replaces the indexed rule set with the populated table.
func (s *SQLiteIndex) UpsertRules(ctx context.Context, table *catalogs.ConversionTable, mods catalogs.ModSet) error {
	if s == nil {
		return nil
	}
	modsJSON, _ := json.Marshal(mods.Sorted())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	meta := map[string]string{
		"schema_version": "2",
		"rules_digest":   table.Digest(),
		"mods":           string(modsJSON),
		"updated_at":     time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, k, v); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rules(input,output,kind,mod,position) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	sources := ruleSources(mods)
	for i, r := range table.Rules() {
		mod, ok := sources[r.Input]
		if !ok {
			mod = catalogs.DefaultNamespace
		}
		if _, err := stmt.ExecContext(ctx, r.Input.String(), r.Output.ID.String(), string(r.Output.Kind), mod, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ruleSources maps each palette input to the mod that registered it. Later
// palettes win, matching Populate.
func ruleSources(mods catalogs.ModSet) map[catalogs.AssetLocation]string {
	out := map[catalogs.AssetLocation]string{}
	for _, p := range catalogs.Palettes() {
		if !mods.Enabled(p.Mod) {
			continue
		}
		for _, r := range p.Rules() {
			out[r.Input] = p.Mod
		}
	}
	delete(out, catalogs.BaseRule.Input)
	return out
}

// RulesByMod counts indexed rules per contributing mod.
func (s *SQLiteIndex) RulesByMod(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mod, COUNT(*) FROM rules GROUP BY mod`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var mod string
		var n int
		if err := rows.Scan(&mod, &n); err != nil {
			return nil, err
		}
		out[mod] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) RecordConversion(c knitting.Conversion) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqConversion, conversion: c}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped counts conversions discarded because the writer was behind.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

// Flush blocks until every queued write is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) RuleCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	return v, err
}

// CountConversions returns how many conversions actor completed; an empty
// actor counts everyone.
func (s *SQLiteIndex) CountConversions(ctx context.Context, actor string) (int, error) {
	var n int
	var err error
	if actor == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversions`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversions WHERE actor=?`, actor).Scan(&n)
	}
	return n, err
}

// OutputTotals sums produced units per output id.
func (s *SQLiteIndex) OutputTotals(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT output, COUNT(*) FROM conversions GROUP BY output`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, _ := s.db.Prepare(`INSERT INTO conversions(at,actor,input,consumed,output,output_kind,dropped,tool_durability) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			switch r.kind {
			case reqFlush:
				commit()
				close(r.done)
				continue
			case reqConversion:
				begin()
				if tx == nil || insert == nil {
					continue
				}
				c := r.conversion
				dropped := 0
				if c.Dropped {
					dropped = 1
				}
				_, _ = tx.Stmt(insert).ExecContext(ctx,
					c.At.UTC().Format(time.RFC3339Nano),
					c.Actor,
					c.Input.String(),
					c.Consumed,
					c.Output.ID.String(),
					string(c.Output.Kind),
					dropped,
					c.ToolDurability,
				)
				opCount++
			}
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
