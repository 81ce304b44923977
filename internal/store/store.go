package store

import (
	"context"
	"time"
)

// Cache kinds used by the board's collaborator clients.
const (
	KindExtraction = "extraction"
	KindPetData    = "petdata"
)

// Cache persists collaborator responses (extraction parses, seeded shelter
// and pet payloads) with a TTL. Annotations themselves are never persisted;
// they live for the session only.
type Cache interface {
	// Get returns the cached value for (kind, key), or nil when absent or
	// expired.
	Get(ctx context.Context, kind, key string) ([]byte, error)

	// Set stores a value for (kind, key), replacing any previous entry.
	Set(ctx context.Context, kind, key string, data []byte, ttl time.Duration) error

	// DeleteExpired removes expired entries and reports how many were removed.
	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
