package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Map        MapConfig        `yaml:"map" mapstructure:"map"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	PetData    PetDataConfig    `yaml:"petdata" mapstructure:"petdata"`
	Tiles      TilesConfig      `yaml:"tiles" mapstructure:"tiles"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

// MapConfig sets the initial camera.
type MapConfig struct {
	CenterLat float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng float64 `yaml:"center_lng" mapstructure:"center_lng"`
	Zoom      float64 `yaml:"zoom" mapstructure:"zoom"`
}

// CacheConfig configures the collaborator response cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file path
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExtractionConfig configures the listing extraction service.
type ExtractionConfig struct {
	// Mode selects the backend: "http" calls a remote extraction endpoint,
	// "llm" calls the Anthropic API directly.
	Mode          string `yaml:"mode" mapstructure:"mode"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// PetDataConfig configures the shelter/pet data API client.
type PetDataConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// TilesConfig configures the basemap tile proxy.
type TilesConfig struct {
	UpstreamURL string  `yaml:"upstream_url" mapstructure:"upstream_url"`
	Format      string  `yaml:"format" mapstructure:"format"`
	CacheSize   int     `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLMin int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	UpstreamRPS float64 `yaml:"upstream_rps" mapstructure:"upstream_rps"`
}

// Load reads configuration from config.yaml (optional) and MAPBOARD_* env
// vars, with defaults for everything but credentials.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MAPBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("map.center_lat", 38.9517)
	v.SetDefault("map.center_lng", -92.3341)
	v.SetDefault("map.zoom", 13)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "mapboard-cache.db")
	v.SetDefault("extraction.mode", "http")
	v.SetDefault("extraction.model", "claude-haiku-4-5-20251001")
	v.SetDefault("extraction.cache_ttl_hours", 24)
	v.SetDefault("petdata.rps", 10)
	v.SetDefault("tiles.upstream_url", "https://tile.openstreetmap.org")
	v.SetDefault("tiles.format", "png")
	v.SetDefault("tiles.cache_size", 2048)
	v.SetDefault("tiles.cache_ttl_minutes", 60)
	v.SetDefault("tiles.upstream_rps", 20)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
