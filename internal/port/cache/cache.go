// Package cache defines the port interface for the in-process score cache.
package cache

import "context"

// ScoreCache caches final confidence values keyed by a digest of the
// scoring inputs. Scoring is a pure function, so cached entries never go
// stale within a model's lifetime.
type ScoreCache interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, score float64)
}
