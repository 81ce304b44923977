package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/board"
	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/store"
	"github.com/pawmap/mapboard/internal/tiles"
	"github.com/pawmap/mapboard/pkg/extraction"
	"github.com/pawmap/mapboard/pkg/petdata"
)

// boardEnv holds the assembled board plus the resources behind it, for the
// serve/seed/export commands.
type boardEnv struct {
	Board *board.Board
	Cache store.Cache // may be nil when the cache driver is "none"
	Tiles *tiles.Proxy
}

// Close releases resources held by the environment.
func (e *boardEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initBoard sets up the response cache, extraction service, pet data client,
// and the board itself. When seedFile is non-empty the pet data client reads
// from that fixture instead of the live API. Callers should defer env.Close().
func initBoard(ctx context.Context, seedFile string) (*boardEnv, error) {
	cache, err := initCache(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := initExtraction(cache)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	pets, err := initPetData(seedFile)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}

	center := model.Coordinate{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng}
	b := board.New(svc, pets, center, cfg.Map.Zoom)

	tileCache := tiles.NewCache(cfg.Tiles.CacheSize, time.Duration(cfg.Tiles.CacheTTLMin)*time.Minute)
	proxy := tiles.NewProxy(cfg.Tiles.UpstreamURL, cfg.Tiles.Format, tileCache,
		tiles.WithUpstreamRate(cfg.Tiles.UpstreamRPS))

	return &boardEnv{Board: b, Cache: cache, Tiles: proxy}, nil
}

func initCache(ctx context.Context) (store.Cache, error) {
	switch cfg.Cache.Driver {
	case "sqlite":
		cache, err := store.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		if err := cache.Migrate(ctx); err != nil {
			_ = cache.Close()
			return nil, err
		}
		zap.L().Debug("using sqlite cache", zap.String("path", cfg.Cache.Path))
		return cache, nil
	case "postgres":
		cache, err := store.NewPostgres(ctx, cfg.Cache.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := cache.Migrate(ctx); err != nil {
			_ = cache.Close()
			return nil, err
		}
		zap.L().Debug("using postgres cache")
		return cache, nil
	case "none":
		zap.L().Warn("response cache disabled")
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

func initExtraction(cache store.Cache) (extraction.Service, error) {
	var svc extraction.Service
	switch cfg.Extraction.Mode {
	case "http":
		if cfg.Extraction.BaseURL == "" {
			return nil, eris.New("extraction.base_url is required in http mode")
		}
		svc = extraction.NewHTTP(cfg.Extraction.BaseURL, extraction.WithAPIKey(cfg.Extraction.Key))
	case "llm":
		if cfg.Extraction.Key == "" {
			return nil, eris.New("extraction.key is required in llm mode")
		}
		svc = extraction.NewLLM(extraction.NewClient(cfg.Extraction.Key), cfg.Extraction.Model)
	default:
		return nil, eris.Errorf("unsupported extraction mode: %s", cfg.Extraction.Mode)
	}

	if cache != nil {
		ttl := time.Duration(cfg.Extraction.CacheTTLHours) * time.Hour
		svc = extraction.NewCached(svc, cache, ttl)
	}
	return svc, nil
}

func initPetData(seedFile string) (petdata.Client, error) {
	if seedFile != "" {
		zap.L().Info("loading shelters from fixture", zap.String("file", seedFile))
		return petdata.LoadFixture(seedFile)
	}
	if cfg.PetData.BaseURL == "" {
		return nil, eris.New("petdata.base_url is required (or pass --seed-file)")
	}
	return petdata.NewClient(cfg.PetData.BaseURL, petdata.WithRateLimit(cfg.PetData.RPS)), nil
}
