package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache implements the Cache interface using SQLite for persistence.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache creates a new SQLite-backed cache.
// The database file and table are auto-created if they don't exist.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// hashing workers share one connection; sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS digests (
			path TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time INTEGER NOT NULL,
			digest TEXT NOT NULL,
			cached_at DATETIME NOT NULL,
			PRIMARY KEY (path, algorithm)
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the digest for key when size and modification time still match.
func (c *SQLiteCache) Get(key Key) (string, bool) {
	var digest string
	err := c.db.QueryRow(
		`SELECT digest FROM digests
		 WHERE path = ? AND algorithm = ? AND size = ? AND mod_time = ?`,
		key.Path, key.Algorithm, key.Size, key.ModTime.UnixNano(),
	).Scan(&digest)
	if err != nil {
		return "", false
	}
	return digest, true
}

// Set stores the digest for key.
func (c *SQLiteCache) Set(key Key, digest string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO digests (path, algorithm, size, mod_time, digest, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.Path, key.Algorithm, key.Size, key.ModTime.UnixNano(), digest, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *SQLiteCache) Clear() error {
	_, err := c.db.Exec("DELETE FROM digests")
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Len returns the number of stored digests.
func (c *SQLiteCache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM digests").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
