// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and DUEL_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"runtime"
)

// Store backends understood by the service.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// LogFile mirrors logs into a rotated file when set.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SubmissionQueueSize bounds the in-memory submission queue.
	SubmissionQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of submission workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission-id deduplication set.
	DedupeSize int `koanf:"dedupe_size"`

	// ResultHistory caps how many resolutions are kept for lookup.
	ResultHistory int `koanf:"result_history"`

	// CanvasWidth and CanvasHeight size the rendered card.
	CanvasWidth  int `koanf:"canvas_width"`
	CanvasHeight int `koanf:"canvas_height"`

	// AssetDir holds background, placeholder, decoration and bundled font files.
	AssetDir string `koanf:"asset_dir"`

	// FontDir is an optional user-provided font directory.
	FontDir string `koanf:"font_dir"`

	// Avatar download bounds.
	AvatarTimeoutMS int   `koanf:"avatar_timeout_ms"`
	AvatarRetryMax  int   `koanf:"avatar_retry_max"`
	AvatarMaxBytes  int64 `koanf:"avatar_max_bytes"`

	// StoreBackend selects the challenge store: memory, redis or postgres.
	StoreBackend string `koanf:"store_backend"`
	RedisURL     string `koanf:"redis_url"`
	PostgresDSN  string `koanf:"postgres_dsn"`

	// ChallengeTTLHours expires idle challenges in stores that support it.
	ChallengeTTLHours int `koanf:"challenge_ttl_hours"`

	// DiscordToken enables posting cards to Discord when set.
	DiscordToken string `koanf:"discord_token"`

	// DiscordChannel receives cards for submissions without a channel id.
	DiscordChannel string `koanf:"discord_channel"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		SubmissionQueueSize: 1_024,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		ResultHistory:       1_000,
		CanvasWidth:         1600,
		CanvasHeight:        1000,
		AssetDir:            "assets",
		AvatarTimeoutMS:     4_000,
		AvatarRetryMax:      2,
		AvatarMaxBytes:      4 << 20,
		StoreBackend:        StoreMemory,
		ChallengeTTLHours:   24 * 7,
	}
}
