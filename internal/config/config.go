// Package config provides dynamic configuration management for FleetDeck.
// It uses Viper to load settings from files, environment variables, and CLI flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for FleetDeck.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	// ControlPort (8686): admin JSON API, JWT protected
	ControlPort int `mapstructure:"control_port"`
	// DataPort (8787): probe report ingest — Bearer token protected
	DataPort int    `mapstructure:"data_port"`
	DBPath   string `mapstructure:"db_path"`
	DBDriver string `mapstructure:"db_driver"` // "sqlite"

	// DefaultPageSize applies when the list endpoint gets no pageSize.
	DefaultPageSize int `mapstructure:"default_page_size"`

	// ── Security ──────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for admin API tokens.
	// Change this in production — default is a random-looking placeholder.
	JWTSecret string `mapstructure:"jwt_secret"`
	// ProbeToken: pre-shared key for data-plane probe requests.
	// Format on wire: "Authorization: Bearer <probe_token>"
	ProbeToken string `mapstructure:"probe_token"`
	// AdminUser / AdminPass: credentials for /api/login.
	AdminUser string `mapstructure:"admin_user"`
	AdminPass string `mapstructure:"admin_pass"`

	// ── Stats cache (optional) ────────────────────────────────────────────────
	// RedisAddr enables Redis-backed caching of stats responses when set.
	RedisAddr        string `mapstructure:"redis_addr"`
	RedisPassword    string `mapstructure:"redis_password"`
	RedisDB          int    `mapstructure:"redis_db"`
	StatsCacheTTLSec int    `mapstructure:"stats_cache_ttl_seconds"`

	// ── Map viewport ──────────────────────────────────────────────────────────
	MapPadding float64 `mapstructure:"map_padding"`
	MapMinZoom float64 `mapstructure:"map_min_zoom"`
	MapMaxZoom float64 `mapstructure:"map_max_zoom"`

	// ── Probe ────────────────────────────────────────────────────────────────
	ProbeJoinAddr string `mapstructure:"probe_join_addr"`
	ProbeInterval int    `mapstructure:"probe_interval_seconds"`
	// ProbeServerName overrides the reported server name (defaults to hostname).
	ProbeServerName string `mapstructure:"probe_server_name"`
	// ProbeOutboundToken for outbound requests (overridden by --token CLI flag)
	ProbeOutboundToken string `mapstructure:"probe_outbound_token"`

	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel  string `mapstructure:"log_level"`  // trace|debug|info|warn|error
	LogPretty bool   `mapstructure:"log_pretty"` // console writer instead of JSON
}

// Load reads config from file (./config.yaml or ~/.fleetdeck/config.yaml)
// and falls back to smart defaults. Environment variables with prefix FLEET_
// override file values.
func Load() (*Config, error) {
	v := viper.New()

	// --- Smart Defaults ---
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("control_port", 8686) // admin API
	v.SetDefault("data_port", 8787)    // probe data plane
	v.SetDefault("db_path", "fleetdeck.db")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("default_page_size", 10)

	// Security defaults — MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "FdK#9pQ!xT4@mW7$vB2^nR8&cJ5*hL3")
	v.SetDefault("probe_token", "fleetdeck-probe-key-123")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("stats_cache_ttl_seconds", 30)

	v.SetDefault("map_padding", 0.1)
	v.SetDefault("map_min_zoom", 2.0)
	v.SetDefault("map_max_zoom", 6.0)

	v.SetDefault("probe_join_addr", "127.0.0.1:8787")
	v.SetDefault("probe_interval_seconds", 30)
	v.SetDefault("probe_server_name", "")
	v.SetDefault("probe_outbound_token", "fleetdeck-probe-key-123")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.fleetdeck")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// --- Environment Variables ---
	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
