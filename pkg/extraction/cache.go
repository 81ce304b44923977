package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/store"
)

// CachedService wraps a Service with a response cache: an identical raw text
// and post type within the TTL reuses the stored parse instead of calling the
// service again. Refine is never cached; answers vary per session.
type CachedService struct {
	inner Service
	cache store.Cache
	ttl   time.Duration
}

// NewCached wraps inner with cache. A zero ttl defaults to 24h.
func NewCached(inner Service, cache store.Cache, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedService{inner: inner, cache: cache, ttl: ttl}
}

// Parse returns a cached result when available, calling the inner service on
// a miss. Cache failures are logged and bypassed, never surfaced.
func (s *CachedService) Parse(ctx context.Context, req ParseRequest) (*Result, error) {
	key := parseKey(req)

	if data, err := s.cache.Get(ctx, store.KindExtraction, key); err != nil {
		zap.L().Warn("extraction: cache read failed", zap.Error(err))
	} else if data != nil {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			zap.L().Debug("extraction: cache hit", zap.String("key", key))
			return &res, nil
		}
		zap.L().Warn("extraction: discarding undecodable cache entry", zap.String("key", key))
	}

	res, err := s.inner.Parse(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(res); marshalErr == nil {
		if err := s.cache.Set(ctx, store.KindExtraction, key, data, s.ttl); err != nil {
			zap.L().Warn("extraction: cache write failed", zap.Error(err))
		}
	}
	return res, nil
}

// Refine passes through to the inner service.
func (s *CachedService) Refine(ctx context.Context, req RefineRequest) (*Result, error) {
	return s.inner.Refine(ctx, req)
}

func parseKey(req ParseRequest) string {
	h := sha256.New()
	h.Write([]byte(req.PostType))
	h.Write([]byte{0})
	h.Write([]byte(req.RawText))
	return hex.EncodeToString(h.Sum(nil))
}
