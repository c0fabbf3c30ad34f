// Package cache implements the dependency-fingerprinted score cache. An
// entry is valid only while every dependency path it recorded still has the
// same existence/mtime fingerprint; any mismatch is an automatic miss and
// the stale row is discarded. Entries never expire by time alone unless a
// TTL is explicitly set.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"conform/internal/logging"
)

// Cache provides namespaced get/set with lazy dependency invalidation.
// Safe for concurrent use: sqlite serializes row access and the counters
// are atomic.
type Cache struct {
	db     *DB
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over an open database.
func New(db *DB, logger *logging.Logger) *Cache {
	return &Cache{db: db, logger: logger}
}

// Get returns the cached value for (namespace, key) if the entry is still
// valid. Validity requires: the caller's dependency path set matches the
// stored set, every stored fingerprint matches the live filesystem, and the
// entry's TTL (when non-zero) has not elapsed. Invalid entries are deleted
// on the spot.
func (c *Cache) Get(namespace, key string, depPaths []string) (string, bool, error) {
	var valueJSON, depsJSON, depsDigest, createdAt string
	var ttlSeconds int

	err := c.db.conn.QueryRow(`
		SELECT value_json, deps_json, deps_digest, ttl_seconds, created_at
		FROM entries
		WHERE namespace = ? AND key = ?
	`, namespace, key).Scan(&valueJSON, &depsJSON, &depsDigest, &ttlSeconds, &createdAt)

	if err == sql.ErrNoRows {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup failed: %w", err)
	}

	var stored FingerprintSet
	if err := json.Unmarshal([]byte(depsJSON), &stored); err != nil {
		// Undecodable rows are treated as stale, not fatal.
		c.discard(namespace, key)
		c.misses.Add(1)
		return "", false, nil
	}

	if ttlSeconds > 0 {
		created, perr := time.Parse(time.RFC3339Nano, createdAt)
		if perr != nil || time.Since(created) > time.Duration(ttlSeconds)*time.Second {
			c.discard(namespace, key)
			c.misses.Add(1)
			return "", false, nil
		}
	}

	if !stored.SamePaths(depPaths) {
		c.discard(namespace, key)
		c.misses.Add(1)
		return "", false, nil
	}

	live := ComputeSet(stored.Paths())
	if live.Digest() != depsDigest {
		c.logger.Debug("Cache entry invalidated by dependency change", map[string]interface{}{
			"namespace": namespace,
			"key":       key,
		})
		c.discard(namespace, key)
		c.misses.Add(1)
		return "", false, nil
	}

	c.hits.Add(1)
	return valueJSON, true, nil
}

// Set stores a value with the live fingerprints of its dependency paths.
// ttl zero disables time expiry for the entry.
func (c *Cache) Set(namespace, key, valueJSON string, depPaths []string, ttl time.Duration) error {
	set := ComputeSet(depPaths)
	depsJSON, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode dependency set: %w", err)
	}

	_, err = c.db.conn.Exec(`
		INSERT OR REPLACE INTO entries
			(namespace, key, value_json, deps_json, deps_digest, ttl_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, namespace, key, valueJSON, string(depsJSON), set.Digest(),
		int(ttl.Seconds()), time.Now().UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(namespace, key string) error {
	_, err := c.db.conn.Exec("DELETE FROM entries WHERE namespace = ? AND key = ?", namespace, key)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// InvalidateNamespace removes every entry in a namespace.
func (c *Cache) InvalidateNamespace(namespace string) error {
	_, err := c.db.conn.Exec("DELETE FROM entries WHERE namespace = ?", namespace)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache namespace: %w", err)
	}
	return nil
}

// Hits returns the number of valid lookups since creation.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses returns the number of missed or invalidated lookups since creation.
func (c *Cache) Misses() int64 { return c.misses.Load() }

// ResetCounters zeroes the hit/miss counters.
func (c *Cache) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *Cache) discard(namespace, key string) {
	_, _ = c.db.conn.Exec("DELETE FROM entries WHERE namespace = ? AND key = ?", namespace, key)
}
