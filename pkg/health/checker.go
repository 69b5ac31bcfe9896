package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Checker is a single dependency health probe
type Checker func() error

// CheckerConfig holds per-checker settings
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns the default checker settings
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// DatabaseChecker returns a health check function for the PostgreSQL pool
func DatabaseChecker(pool *pgxpool.Pool) Checker {
	return DatabaseCheckerWithConfig(pool, DefaultCheckerConfig())
}

// DatabaseCheckerWithConfig returns a database checker with custom settings
func DatabaseCheckerWithConfig(pool *pgxpool.Pool, config CheckerConfig) Checker {
	return func() error {
		if pool == nil {
			return errors.New("database connection is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		defer cancel()
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client *redis.Client) Checker {
	return RedisCheckerWithConfig(client, DefaultCheckerConfig())
}

// RedisCheckerWithConfig returns a Redis checker with custom settings
func RedisCheckerWithConfig(client *redis.Client, config CheckerConfig) Checker {
	return func() error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// AsyncChecker runs the underlying checker with a hard deadline so a hung
// dependency cannot stall the health endpoint.
func AsyncChecker(checker Checker, timeout time.Duration) Checker {
	return func() error {
		done := make(chan error, 1)
		go func() { done <- checker() }()
		select {
		case err := <-done:
			return err
		case <-time.After(timeout):
			return fmt.Errorf("health check timeout after %s", timeout)
		}
	}
}

// CachedChecker memoizes a checker result for a TTL, keeping frequent health
// polls from hammering dependencies.
type CachedChecker struct {
	mu       sync.Mutex
	checker  Checker
	cacheTTL time.Duration
	lastRun  time.Time
	lastErr  error
}

// NewCachedChecker wraps a checker with result caching
func NewCachedChecker(checker Checker, ttl time.Duration) *CachedChecker {
	return &CachedChecker{checker: checker, cacheTTL: ttl}
}

// Check returns the cached result when fresh, otherwise runs the checker
func (c *CachedChecker) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRun.IsZero() && time.Since(c.lastRun) < c.cacheTTL {
		return c.lastErr
	}
	c.lastErr = c.checker()
	c.lastRun = time.Now()
	return c.lastErr
}
