package vectorcache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/retrieval/embeddings"
)

const schemaVersion = "1"

// SQLiteStore is a persistent cache store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// OpenSQLiteStore opens the cache database at dbPath, creating it if needed
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// database/sql pools connections; sqlite wants a single writer
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		hash TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		vector BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Validate checks if the cache is valid for the given fingerprint and document hashes
func (s *SQLiteStore) Validate(ctx context.Context, fp Fingerprint, hashes []string) (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// 1. Check metadata matches
	version, err := s.getMetadata(ctx, "version")
	if err != nil {
		return false, "cache is empty"
	}
	if version != schemaVersion {
		return false, fmt.Sprintf("cache version changed: %s → %s", version, schemaVersion)
	}

	storedProvider, err := s.getMetadata(ctx, "provider")
	if err != nil || storedProvider != fp.Provider {
		return false, fmt.Sprintf("provider changed: %s → %s", storedProvider, fp.Provider)
	}

	storedModel, err := s.getMetadata(ctx, "model")
	if err != nil || storedModel != fp.Model {
		return false, fmt.Sprintf("model changed: %s → %s", storedModel, fp.Model)
	}

	storedDims, err := s.getMetadata(ctx, "dimensions")
	if err != nil || storedDims != strconv.Itoa(fp.Dimensions) {
		return false, fmt.Sprintf("dimensions changed: %s → %d", storedDims, fp.Dimensions)
	}

	// 2. Compare cached hashes with the current collection
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM embeddings`)
	if err != nil {
		return false, "failed to query embeddings"
	}
	defer rows.Close()

	cached := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return false, "failed to read embeddings"
		}
		cached[hash] = true
	}
	if err := rows.Err(); err != nil {
		return false, "failed to read embeddings"
	}

	return compareHashes(cached, hashes)
}

// Load returns every cached entry
func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT hash, mode, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var hash, mode string
		var vectorBlob []byte

		if err := rows.Scan(&hash, &mode, &vectorBlob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}

		vector, err := decodeVector(vectorBlob)
		if err != nil {
			return nil, fmt.Errorf("corrupt vector for %s: %w", short(hash), err)
		}

		entries = append(entries, Entry{
			Hash:   hash,
			Mode:   embeddings.Mode(mode),
			Vector: vector,
		})
	}

	return entries, rows.Err()
}

// Save replaces the cache contents in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, fp Fingerprint, entries []Entry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	now := time.Now().Unix()
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO embeddings (hash, mode, vector, updated_at)
			VALUES (?, ?, ?, ?)
		`, e.Hash, string(e.Mode), encodeVector(e.Vector), now); err != nil {
			return fmt.Errorf("failed to store embedding %s: %w", short(e.Hash), err)
		}
	}

	metadata := map[string]string{
		"version":    schemaVersion,
		"provider":   fp.Provider,
		"model":      fp.Model,
		"dimensions": strconv.Itoa(fp.Dimensions),
		"indexed_at": time.Now().Format(time.RFC3339),
	}
	for key, value := range metadata {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO metadata (key, value)
			VALUES (?, ?)
		`, key, value); err != nil {
			return fmt.Errorf("failed to store metadata %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Clear removes all vectors and metadata
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata`)
	return err
}

// IndexTime returns when the cache was last written
func (s *SQLiteStore) IndexTime(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.getMetadata(ctx, "indexed_at")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// getMetadata retrieves a metadata value
func (s *SQLiteStore) getMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("metadata key not found: %s", key)
	}
	return value, err
}

// encodeVector encodes a float32 slice to little-endian binary
func encodeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// decodeVector decodes little-endian binary data to a float32 slice
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
