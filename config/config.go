// Package config loads service configuration and builds the logger.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP    HTTPConfig
	DB      DBConfig
	Redis   RedisConfig
	Report  ReportConfig
	Revenue RevenueConfig
	Log     LogConfig
	CORS    CORSConfig
	Catalog CatalogConfig
}

type HTTPConfig struct {
	Port int
}

type DBConfig struct {
	Path string
}

// RedisConfig enables the report cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ReportConfig struct {
	CacheTTL     time.Duration
	SlowMs       int64
	PageSize     int
	WarmInterval time.Duration
}

type RevenueConfig struct {
	Resolution string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CatalogConfig struct {
	Path string
}

// EnvPrefix namespaces environment overrides: http.port is COSTING_HTTP_PORT.
const EnvPrefix = "COSTING"

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("db.path", "costing.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("report.cache_ttl", "2m")
	v.SetDefault("report.slow_ms", 500)
	v.SetDefault("report.page_size", 25)
	v.SetDefault("report.warm_interval", "5m")
	v.SetDefault("revenue.resolution", "latest")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("catalog.path", "")
}

// Load reads an optional config file, then the environment. An empty path
// means defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Port: v.GetInt("http.port"),
		},
		DB: DBConfig{
			Path: v.GetString("db.path"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Report: ReportConfig{
			CacheTTL:     v.GetDuration("report.cache_ttl"),
			SlowMs:       v.GetInt64("report.slow_ms"),
			PageSize:     v.GetInt("report.page_size"),
			WarmInterval: v.GetDuration("report.warm_interval"),
		},
		Revenue: RevenueConfig{
			Resolution: v.GetString("revenue.resolution"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		},
		Catalog: CatalogConfig{
			Path: v.GetString("catalog.path"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http.port %d", c.HTTP.Port)
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	switch c.Revenue.Resolution {
	case "latest", "point_in_time":
	default:
		return fmt.Errorf("invalid revenue.resolution %q (want latest or point_in_time)", c.Revenue.Resolution)
	}
	if c.Report.PageSize < 1 {
		return fmt.Errorf("invalid report.page_size %d", c.Report.PageSize)
	}
	return nil
}

// SlowThreshold is report.slow_ms as a duration; 0 disables slow logging.
func (c *Config) SlowThreshold() time.Duration {
	if c.Report.SlowMs <= 0 {
		return 0
	}
	return time.Duration(c.Report.SlowMs) * time.Millisecond
}
