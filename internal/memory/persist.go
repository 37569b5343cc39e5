// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// indexFormat is bumped whenever the on-disk schema changes.
const indexFormat = "1"

var schema = []string{
	`CREATE TABLE index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE entries (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT,
		vector BLOB NOT NULL
	)`,
}

// Save writes every entry to the index file. The file is built next to the
// target and renamed into place, so a failed save leaves the previous index
// intact. A store without a path saves nothing.
func (s *Store) Save(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	entries := s.Entries()
	dim := s.Dimension()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w: %w", ErrIndexCorrupt, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index: %w: %w", ErrIndexCorrupt, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := writeIndex(ctx, tmpPath, entries, dim); err != nil {
		return fmt.Errorf("writing index %s: %w: %w", s.path, ErrIndexCorrupt, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing index %s: %w: %w", s.path, ErrIndexCorrupt, err)
	}

	s.logger.Info().Str("path", s.path).Int("entries", len(entries)).Msg("memory index saved")
	return nil
}

func writeIndex(ctx context.Context, path string, entries []Entry, dim int) error {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=DELETE")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	meta := map[string]string{
		"format":    indexFormat,
		"dimension": strconv.Itoa(dim),
		"count":     strconv.Itoa(len(entries)),
		"saved_at":  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO index_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing index meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (seq, id, text, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var metaJSON sql.NullString
		if len(e.Metadata) > 0 {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata for %s: %w", e.ID, err)
			}
			metaJSON = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, e.ID, e.Text, metaJSON, encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Load replaces the in-memory entries with the contents of the index file.
// A missing file leaves the store empty and returns nil. An unreadable file
// also leaves the store empty and returns an error wrapping ErrIndexCorrupt.
func (s *Store) Load(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug().Str("path", s.path).Msg("no memory index yet")
			s.replace(nil, 0)
			return nil
		}
		s.replace(nil, 0)
		return fmt.Errorf("reading index %s: %w: %w", s.path, ErrIndexCorrupt, err)
	}

	entries, dim, err := readIndex(ctx, s.path)
	if err != nil {
		s.replace(nil, 0)
		return fmt.Errorf("loading index %s: %w: %w", s.path, ErrIndexCorrupt, err)
	}
	s.replace(entries, dim)

	s.logger.Info().Str("path", s.path).Int("entries", len(entries)).Msg("memory index loaded")
	return nil
}

func (s *Store) replace(entries []Entry, dim int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.dim = dim
	s.observe()
}

func readIndex(ctx context.Context, path string) ([]Entry, int, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	meta := make(map[string]string)
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM index_meta`)
	if err != nil {
		return nil, 0, fmt.Errorf("reading index meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scanning index meta: %w", err)
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading index meta: %w", err)
	}

	if meta["format"] != indexFormat {
		return nil, 0, fmt.Errorf("unsupported index format %q", meta["format"])
	}
	dim, err := strconv.Atoi(meta["dimension"])
	if err != nil {
		return nil, 0, fmt.Errorf("parsing dimension: %w", err)
	}
	count, err := strconv.Atoi(meta["count"])
	if err != nil {
		return nil, 0, fmt.Errorf("parsing count: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT id, text, metadata, vector FROM entries ORDER BY seq`)
	if err != nil {
		return nil, 0, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			metaJSON sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&e.ID, &e.Text, &metaJSON, &blob); err != nil {
			return nil, 0, fmt.Errorf("scanning entry: %w", err)
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &e.Metadata); err != nil {
				return nil, 0, fmt.Errorf("parsing metadata for %s: %w", e.ID, err)
			}
		}
		e.Vector, err = decodeVector(blob)
		if err != nil {
			return nil, 0, fmt.Errorf("decoding vector for %s: %w", e.ID, err)
		}
		if len(e.Vector) != dim {
			return nil, 0, fmt.Errorf("entry %s has dimension %d, index has %d", e.ID, len(e.Vector), dim)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading entries: %w", err)
	}
	if len(entries) != count {
		return nil, 0, fmt.Errorf("index lists %d entries, found %d", count, len(entries))
	}
	return entries, dim, nil
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
