// Package ristretto implements the score cache port using
// dgraph-io/ristretto as an in-process cache. Scoring is a pure function
// of its inputs and the loaded model, which makes final confidences safe
// to cache for the model's lifetime.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// entryCost approximates the in-memory footprint of one cached score
// (key digest + value + bookkeeping).
const entryCost = 64

// ScoreCache wraps a ristretto cache keyed by scoring-input digests.
type ScoreCache struct {
	c   *ristretto.Cache[string, float64]
	ttl time.Duration
}

// New creates a ristretto-backed score cache. maxSizeMB bounds the total
// cache footprint; ttl bounds entry lifetime.
func New(maxSizeMB int64, ttl time.Duration) (*ScoreCache, error) {
	maxCost := maxSizeMB << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, float64]{
		NumCounters: maxCost / entryCost * 10, // ~10x expected items
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ScoreCache{c: c, ttl: ttl}, nil
}

// Get retrieves a cached score.
func (s *ScoreCache) Get(_ context.Context, key string) (float64, bool) {
	return s.c.Get(key)
}

// Set stores a score with the configured TTL.
func (s *ScoreCache) Set(_ context.Context, key string, score float64) {
	s.c.SetWithTTL(key, score, entryCost, s.ttl)
}

// Close shuts down the cache and releases resources.
func (s *ScoreCache) Close() {
	s.c.Close()
}
