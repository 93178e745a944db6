package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// DefaultUserAgent is sent on every direct fetch unless overridden in config.
const DefaultUserAgent = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Archive   ArchiveConfig   `toml:"archive"`
	Spider    SpiderConfig    `toml:"spider"`
	Retry     RetryConfig     `toml:"retry"`
	Fetch     FetchConfig     `toml:"fetch"`
	Sources   SourcesConfig   `toml:"sources"`
	WebSocket WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
}

type LoggingConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	File  string `toml:"file"`                                                         // Log file path; empty disables file output
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"` // Database file path
	CacheSizeMB   int    `toml:"cache_size_mb"`            // Page cache size
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`          // Lock wait before SQLITE_BUSY
	WALMode       bool   `toml:"wal_mode"`                 // Write-ahead logging
}

// ArchiveConfig controls the write-aside store of raw fetched bodies
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"` // Record successful fetches for later replay
	Path    string `toml:"path"`    // Archive directory path
}

// SpiderConfig contains worker pool and frontier tuning
type SpiderConfig struct {
	MaxWorkers      int     `toml:"max_workers" validate:"gte=1"`     // Number of concurrent scrape workers
	MaxQueueSize    int     `toml:"max_queue_size" validate:"gte=1"`  // In-memory priority queue capacity
	CooldownSeconds float64 `toml:"cooldown_seconds" validate:"gte=0"` // Politeness sleep before each fetch
	AutoStart       bool    `toml:"auto_start"`                       // Start workers on boot
}

// RetryConfig contains the backoff chain parameters
type RetryConfig struct {
	MaxRetries    int     `toml:"max_retries" validate:"gte=0"`    // Retries after the first attempt
	InitialDelay  float64 `toml:"initial_delay" validate:"gt=0"`   // Seconds before the first retry
	MaxDelay      float64 `toml:"max_delay" validate:"gt=0"`       // Backoff ceiling in seconds
	BackoffFactor float64 `toml:"backoff_factor" validate:"gte=1"` // Delay multiplier per attempt
}

// FetchConfig contains direct and browser fetch settings
type FetchConfig struct {
	HTTPTimeout           float64 `toml:"http_timeout" validate:"gt=0"`        // Per-request timeout in seconds
	UserAgent             string  `toml:"user_agent"`                          // User agent for direct fetches
	PerHostRPS            float64 `toml:"per_host_rps" validate:"gte=0"`       // Per-host request rate; 0 disables the limiter
	BrowserWebSocketURL   string  `toml:"browser_websocket_url"`               // DevTools websocket URL; empty disables the browser tier
	BrowserAdditionalWait float64 `toml:"browser_additional_wait" validate:"gte=0"` // Extra seconds after document ready
}

// SourcesConfig controls the seed-source catalog
type SourcesConfig struct {
	CatalogPath     string `toml:"catalog_path"`     // Optional YAML catalog merged over the built-in sources
	RefreshSchedule string `toml:"refresh_schedule"` // Cron expression for periodic re-seeding; empty disables
	SeedOnStart     bool   `toml:"seed_on_start"`    // Seed the catalog once at boot
}

// WebSocketConfig contains configuration for the live stats channel
type WebSocketConfig struct {
	StatsIntervalSeconds int `toml:"stats_interval_seconds" validate:"gte=1"` // Seconds between stats pushes
}

// NewDefaultConfig creates a configuration with default values
// Only user-facing settings are exposed in aranea.toml; everything here
// is a working production default.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "logs/aranea.log",
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "data/aranea.db",
				CacheSizeMB:   64,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
		},
		Archive: ArchiveConfig{
			Enabled: false, // Disabled by default - user must explicitly opt-in
			Path:    "data/archive",
		},
		Spider: SpiderConfig{
			MaxWorkers:      3,
			MaxQueueSize:    876,
			CooldownSeconds: 1.0,
			AutoStart:       true,
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			InitialDelay:  1.0,
			MaxDelay:      60.0,
			BackoffFactor: 2.0,
		},
		Fetch: FetchConfig{
			HTTPTimeout:           30.0,
			UserAgent:             DefaultUserAgent,
			PerHostRPS:            0.0, // Limiter off unless configured
			BrowserWebSocketURL:   "",  // Browser tier off unless configured
			BrowserAdditionalWait: 2.0,
		},
		Sources: SourcesConfig{
			CatalogPath:     "",
			RefreshSchedule: "",
			SeedOnStart:     false,
		},
		WebSocket: WebSocketConfig{
			StatsIntervalSeconds: 5,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Server configuration
	if port := os.Getenv("ARANEA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ARANEA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("ARANEA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if file := os.Getenv("ARANEA_LOG_FILE"); file != "" {
		config.Logging.File = file
	}

	// Storage configuration
	if path := os.Getenv("ARANEA_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}

	// Archive configuration
	if enabled := os.Getenv("ARANEA_ARCHIVE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Archive.Enabled = e
		}
	}
	if path := os.Getenv("ARANEA_ARCHIVE_PATH"); path != "" {
		config.Archive.Path = path
	}

	// Spider configuration
	if maxWorkers := os.Getenv("ARANEA_MAX_WORKERS"); maxWorkers != "" {
		if mw, err := strconv.Atoi(maxWorkers); err == nil {
			config.Spider.MaxWorkers = mw
		}
	}
	if maxQueueSize := os.Getenv("ARANEA_MAX_QUEUE_SIZE"); maxQueueSize != "" {
		if mqs, err := strconv.Atoi(maxQueueSize); err == nil {
			config.Spider.MaxQueueSize = mqs
		}
	}
	if cooldown := os.Getenv("ARANEA_COOLDOWN_SECONDS"); cooldown != "" {
		if c, err := strconv.ParseFloat(cooldown, 64); err == nil {
			config.Spider.CooldownSeconds = c
		}
	}
	if autoStart := os.Getenv("ARANEA_AUTO_START"); autoStart != "" {
		if as, err := strconv.ParseBool(autoStart); err == nil {
			config.Spider.AutoStart = as
		}
	}

	// Retry configuration
	if maxRetries := os.Getenv("ARANEA_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Retry.MaxRetries = mr
		}
	}
	if initialDelay := os.Getenv("ARANEA_INITIAL_DELAY"); initialDelay != "" {
		if d, err := strconv.ParseFloat(initialDelay, 64); err == nil {
			config.Retry.InitialDelay = d
		}
	}
	if maxDelay := os.Getenv("ARANEA_MAX_DELAY"); maxDelay != "" {
		if d, err := strconv.ParseFloat(maxDelay, 64); err == nil {
			config.Retry.MaxDelay = d
		}
	}
	if factor := os.Getenv("ARANEA_BACKOFF_FACTOR"); factor != "" {
		if f, err := strconv.ParseFloat(factor, 64); err == nil {
			config.Retry.BackoffFactor = f
		}
	}

	// Fetch configuration
	if timeout := os.Getenv("ARANEA_HTTP_TIMEOUT"); timeout != "" {
		if t, err := strconv.ParseFloat(timeout, 64); err == nil {
			config.Fetch.HTTPTimeout = t
		}
	}
	if userAgent := os.Getenv("ARANEA_USER_AGENT"); userAgent != "" {
		config.Fetch.UserAgent = userAgent
	}
	if rps := os.Getenv("ARANEA_PER_HOST_RPS"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Fetch.PerHostRPS = r
		}
	}
	if wsURL := os.Getenv("ARANEA_BROWSER_WS_URL"); wsURL != "" {
		config.Fetch.BrowserWebSocketURL = wsURL
	}
	if wait := os.Getenv("ARANEA_BROWSER_ADDITIONAL_WAIT"); wait != "" {
		if w, err := strconv.ParseFloat(wait, 64); err == nil {
			config.Fetch.BrowserAdditionalWait = w
		}
	}

	// Sources configuration
	if catalog := os.Getenv("ARANEA_SOURCES_CATALOG"); catalog != "" {
		config.Sources.CatalogPath = catalog
	}
	if schedule := os.Getenv("ARANEA_SOURCES_REFRESH_SCHEDULE"); schedule != "" {
		config.Sources.RefreshSchedule = schedule
	}
	if seedOnStart := os.Getenv("ARANEA_SEED_ON_START"); seedOnStart != "" {
		if sos, err := strconv.ParseBool(seedOnStart); err == nil {
			config.Sources.SeedOnStart = sos
		}
	}

	// WebSocket configuration
	if interval := os.Getenv("ARANEA_WS_STATS_INTERVAL"); interval != "" {
		if i, err := strconv.Atoi(interval); err == nil && i > 0 {
			config.WebSocket.StatsIntervalSeconds = i
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Cooldown returns the per-request politeness sleep as a duration
func (c *SpiderConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds * float64(time.Second))
}

// InitialDelayDuration returns the first retry delay as a duration
func (c *RetryConfig) InitialDelayDuration() time.Duration {
	return time.Duration(c.InitialDelay * float64(time.Second))
}

// MaxDelayDuration returns the backoff ceiling as a duration
func (c *RetryConfig) MaxDelayDuration() time.Duration {
	return time.Duration(c.MaxDelay * float64(time.Second))
}

// Timeout returns the HTTP fetch timeout as a duration
func (c *FetchConfig) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout * float64(time.Second))
}

// AdditionalWait returns the post-ready browser delay as a duration
func (c *FetchConfig) AdditionalWait() time.Duration {
	return time.Duration(c.BrowserAdditionalWait * float64(time.Second))
}

// StatsInterval returns the stats broadcast period as a duration
func (c *WebSocketConfig) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalSeconds) * time.Second
}
