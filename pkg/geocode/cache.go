package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	matched      INTEGER NOT NULL,
	cached_at    TIMESTAMP NOT NULL
)`

// CachedClient wraps a Client with a SQLite lookup cache. Negative results
// are cached too, so repeated unmatchable addresses cost one call.
type CachedClient struct {
	inner Client
	db    *sql.DB
	ttl   time.Duration
}

// NewCachedClient opens (or creates) the cache database at path and wraps
// inner. A ttl of zero means entries never expire.
func NewCachedClient(inner Client, path string, ttl time.Duration) (*CachedClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache db")
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "geocode: create cache schema")
	}
	return &CachedClient{inner: inner, db: db, ttl: ttl}, nil
}

// Close closes the cache database.
func (c *CachedClient) Close() error {
	return c.db.Close()
}

// Available implements Client.
func (c *CachedClient) Available() bool { return c.inner.Available() }

// Geocode implements Client, consulting the cache first.
func (c *CachedClient) Geocode(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)

	if cached, err := c.lookup(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	result, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := c.put(ctx, key, result); err != nil {
		zap.L().Debug("geocode cache write failed", zap.Error(err))
	}
	return result, nil
}

func (c *CachedClient) lookup(ctx context.Context, key string) (*Result, error) {
	query := `SELECT latitude, longitude, matched FROM geocode_cache WHERE address_hash = ?`
	args := []any{key}
	if c.ttl > 0 {
		query += ` AND cached_at > ?`
		args = append(args, time.Now().Add(-c.ttl))
	}

	var r Result
	var matched int
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&r.Latitude, &r.Longitude, &matched)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.Matched = matched != 0
	return &r, nil
}

func (c *CachedClient) put(ctx context.Context, key string, r *Result) error {
	matched := 0
	if r.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, matched, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			matched = excluded.matched,
			cached_at = excluded.cached_at`,
		key, r.Latitude, r.Longitude, matched, time.Now(),
	)
	return err
}

func cacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
