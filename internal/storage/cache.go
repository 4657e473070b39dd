// Package storage caches finished payloads in a SQLite database so repeated
// analyses of the same repository skip the pipeline entirely. Payload bodies
// are zstd-compressed.
package storage

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/christikaes/macaroni-arch/internal/dsm"
	"github.com/christikaes/macaroni-arch/internal/errors"
	"github.com/christikaes/macaroni-arch/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS payloads (
	key        TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	url        TEXT NOT NULL,
	branch     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	body       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payloads_created ON payloads(created_at);
`

// Entry describes one cached payload.
type Entry struct {
	Key       string
	RunID     string
	URL       string
	Branch    string
	CreatedAt time.Time
}

// Cache is the payload store.
type Cache struct {
	db     *sql.DB
	logger *logging.Logger
	ttl    time.Duration
}

// Open opens or creates the cache database under dir.
func Open(dir string, ttlSeconds int, logger *logging.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.CacheError, "failed to create cache directory", err)
	}

	dbPath := filepath.Join(dir, "payloads.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.New(errors.CacheError, "failed to open cache database", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.New(errors.CacheError, "failed to set pragma", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.New(errors.CacheError, "failed to initialize schema", err)
	}

	return &Cache{
		db:     db,
		logger: logger,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key for a repository URL and the options that shape
// the payload.
func Key(url string, includeTests, typeOnly bool, threshold int) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%t|%t|%d", url, includeTests, typeOnly, threshold)))
	return hex.EncodeToString(sum[:16])
}

// Get returns the cached payload for key, or nil when absent or expired.
func (c *Cache) Get(key string) (*dsm.Payload, error) {
	var body []byte
	var createdAt int64
	err := c.db.QueryRow("SELECT body, created_at FROM payloads WHERE key = ?", key).Scan(&body, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.CacheError, "cache read failed", err)
	}

	if c.ttl > 0 && time.Since(time.Unix(createdAt, 0)) > c.ttl {
		_, _ = c.db.Exec("DELETE FROM payloads WHERE key = ?", key)
		return nil, nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.New(errors.CacheError, "failed to create decompressor", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(body, nil)
	if err != nil {
		return nil, errors.New(errors.CacheError, "cache entry is corrupt", err)
	}

	var payload dsm.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.New(errors.CacheError, "cache entry is corrupt", err)
	}
	return &payload, nil
}

// Put stores a payload under key, replacing any previous entry.
func (c *Cache) Put(key, url string, payload *dsm.Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.New(errors.CacheError, "failed to encode payload", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return errors.New(errors.CacheError, "failed to create compressor", err)
	}
	body := encoder.EncodeAll(raw, nil)
	encoder.Close()

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO payloads (key, run_id, url, branch, created_at, body) VALUES (?, ?, ?, ?, ?, ?)",
		key, uuid.NewString(), url, payload.Branch, time.Now().Unix(), body,
	)
	if err != nil {
		return errors.New(errors.CacheError, "cache write failed", err)
	}

	c.logger.Debug("Payload cached", logging.Fields{
		"key":        key,
		"compressed": len(body),
		"raw":        len(raw),
	})
	return nil
}

// List returns the cached entries, newest first.
func (c *Cache) List() ([]Entry, error) {
	rows, err := c.db.Query("SELECT key, run_id, url, branch, created_at FROM payloads ORDER BY created_at DESC")
	if err != nil {
		return nil, errors.New(errors.CacheError, "cache list failed", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.Key, &e.RunID, &e.URL, &e.Branch, &createdAt); err != nil {
			return nil, errors.New(errors.CacheError, "cache list failed", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes every cached payload.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM payloads")
	if err != nil {
		return errors.New(errors.CacheError, "cache clear failed", err)
	}
	return nil
}
