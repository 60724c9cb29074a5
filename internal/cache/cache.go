// Package cache stores translations keyed by (source text, target locale)
// with time-based expiry, layered in-memory over PostgreSQL. Concurrent
// writers on the same key are last-writer-wins; identical translations are
// idempotent, so nothing stronger is needed.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"p3fes-translator/internal/textutil"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type entry struct {
	translated string
	expiresAt  time.Time
}

// TranslationCache provides in-memory + PostgreSQL-backed caching for
// translations.
type TranslationCache struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	mu   sync.RWMutex
	mem  map[string]entry
}

// New creates a cache backed by PostgreSQL with the given entry TTL.
func New(pool *pgxpool.Pool, ttl time.Duration) *TranslationCache {
	return &TranslationCache{
		pool: pool,
		ttl:  ttl,
		mem:  make(map[string]entry),
	}
}

// Migrate creates the cache table when missing.
func (c *TranslationCache) Migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS translation_cache (
			hash       TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			locale     TEXT NOT NULL,
			translated TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create translation_cache: %w", err)
	}
	return nil
}

func key(source, locale string) string {
	return textutil.Hash(source + "\x00" + locale)
}

// Get retrieves a non-expired cached translation.
func (c *TranslationCache) Get(ctx context.Context, source, locale string) (string, bool) {
	k := key(source, locale)

	c.mu.RLock()
	if e, ok := c.mem[k]; ok && time.Now().Before(e.expiresAt) {
		c.mu.RUnlock()
		return e.translated, true
	}
	c.mu.RUnlock()

	var translated string
	var expiresAt time.Time
	err := c.pool.QueryRow(ctx, `
		SELECT translated, expires_at FROM translation_cache
		WHERE hash = $1 AND expires_at > now()`, k).Scan(&translated, &expiresAt)
	if err != nil {
		return "", false
	}

	c.mu.Lock()
	c.mem[k] = entry{translated: translated, expiresAt: expiresAt}
	c.mu.Unlock()

	return translated, true
}

// Set stores a translation in both layers, refreshing the TTL.
func (c *TranslationCache) Set(ctx context.Context, source, locale, translated string) error {
	k := key(source, locale)
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	c.mem[k] = entry{translated: translated, expiresAt: expiresAt}
	c.mu.Unlock()

	_, err := c.pool.Exec(ctx, `
		INSERT INTO translation_cache (hash, source, locale, translated, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO UPDATE
		SET translated = EXCLUDED.translated, expires_at = EXCLUDED.expires_at`,
		k, source, locale, translated, expiresAt)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Preload loads all live cached translations into memory.
func (c *TranslationCache) Preload(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, `
		SELECT hash, translated, expires_at FROM translation_cache
		WHERE expires_at > now()`)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}
	defer rows.Close()

	count := 0
	c.mu.Lock()
	defer c.mu.Unlock()
	for rows.Next() {
		var k, translated string
		var expiresAt time.Time
		if err := rows.Scan(&k, &translated, &expiresAt); err != nil {
			return fmt.Errorf("scan cache row: %w", err)
		}
		c.mem[k] = entry{translated: translated, expiresAt: expiresAt}
		count++
	}

	log.Info().Int("count", count).Msg("Preloaded translation cache")
	return rows.Err()
}

// Prune deletes expired rows from the backing store.
func (c *TranslationCache) Prune(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM translation_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
