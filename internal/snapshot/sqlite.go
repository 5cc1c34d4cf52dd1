package snapshot

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL UNIQUE,
	content  TEXT NOT NULL,
	metadata TEXT,
	vector   BLOB NOT NULL
);
`

// SQLiteBackend stores the snapshot in a SQLite database. Vectors are
// packed as little-endian float32 blobs; document order is kept in the
// position column. Save replaces the previous snapshot in one
// transaction.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Save(dimension int, entries []vector.Entry) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshot_meta (key, value) VALUES ('dimension', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, dimension); err != nil {
		return fmt.Errorf("store dimension: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO documents (position, id, content, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		meta, err := json.Marshal(e.Document.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", e.Document.ID, err)
		}
		if _, err := stmt.Exec(i, e.Document.ID, e.Document.Content, string(meta), packVector(e.Vector)); err != nil {
			return fmt.Errorf("insert %q: %w", e.Document.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Load() (int, []vector.Entry, error) {
	var dimension int
	err := b.db.QueryRow(`SELECT value FROM snapshot_meta WHERE key = 'dimension'`).Scan(&dimension)
	if err == sql.ErrNoRows {
		return 0, nil, ErrNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("load dimension: %w", err)
	}

	rows, err := b.db.Query(`SELECT id, content, metadata, vector FROM documents ORDER BY position`)
	if err != nil {
		return 0, nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	var entries []vector.Entry
	for rows.Next() {
		var (
			id, content string
			metaJSON    sql.NullString
			blob        []byte
		)
		if err := rows.Scan(&id, &content, &metaJSON, &blob); err != nil {
			return 0, nil, fmt.Errorf("scan document: %w", err)
		}
		var meta map[string]string
		if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
			if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
				return 0, nil, fmt.Errorf("parse metadata for %q: %w", id, err)
			}
		}
		doc := models.Document{ID: id, Content: content, Metadata: meta}
		entries = append(entries, vector.NewEntry(doc, unpackVector(blob)))
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate documents: %w", err)
	}
	return dimension, entries, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func packVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func unpackVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
