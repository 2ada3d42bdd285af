package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog" validate:"required"`
	Detail   DetailConfig   `mapstructure:"detail" validate:"required"`
	Enrich   EnrichConfig   `mapstructure:"enrich" validate:"required"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects the blob store backing progress and saved sessions.
// A postgres:// URL uses PostgreSQL; sqlite:// or file: URLs use an embedded
// SQLite database.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// CatalogConfig points at the kanji metadata file.
type CatalogConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DetailConfig configures the external detail provider and the prefetch cache.
type DetailConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Prefetch  bool          `mapstructure:"prefetch"`
	UserAgent string        `mapstructure:"user_agent"`
}

// EnrichConfig controls the metadata enrichment job.
type EnrichConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	Workers       int     `mapstructure:"workers" validate:"gte=1,lte=16"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 8080},
		Log:      LogConfig{Level: "info"},
		Database: DatabaseConfig{URL: "sqlite://data/scry-kanji.db"},
		Catalog:  CatalogConfig{Path: "kanji_metadata.json"},
		Detail: DetailConfig{
			BaseURL:   "https://api.jiten.moe",
			Timeout:   10 * time.Second,
			Prefetch:  true,
			UserAgent: "scry-kanji",
		},
		Enrich: EnrichConfig{RatePerSecond: 5, Workers: 2},
	}
}
