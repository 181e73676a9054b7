package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidConfig         = errors.New("invalid config value")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// Environment variables that override file values when set.
const (
	EnvDiscordToken = "DISCORD_BOT_TOKEN"
	EnvHealthPort   = "PORT"
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
}

// CommonConfig contains configuration shared between the bot and the tools.
type CommonConfig struct {
	// Version of the common config.
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	Storage        Storage        `koanf:"storage"`
	Redis          Redis          `koanf:"redis"`
	Roblox         Roblox         `koanf:"roblox"`
	Retry          Retry          `koanf:"retry"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Cache          Cache          `koanf:"cache"`
	Loggable       Loggable       `koanf:"loggable"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Discord configuration.
	Discord Discord `koanf:"discord"`
	// Presence tracker configuration.
	Tracker Tracker `koanf:"tracker"`
	// Health check server configuration.
	Health Health `koanf:"health"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Loggable controls extra log sinks.
type Loggable struct {
	// Forward error logs to OpenTelemetry spans.
	TraceErrors bool `koanf:"trace_errors"`
}

// Storage selects and configures the tracking store backend.
type Storage struct {
	// Driver is either "postgres" or "sqlite".
	Driver     string     `koanf:"driver"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	SQLite     SQLite     `koanf:"sqlite"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// SQLite contains the embedded database configuration.
type SQLite struct {
	// Path of the database file, or ":memory:".
	Path string `koanf:"path"`
}

// Redis contains Redis connection configuration.
// Leaving Host empty disables tracker heartbeats.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Roblox contains upstream API configuration.
type Roblox struct {
	// Base URL of the users API.
	UsersURL string `koanf:"users_url"`
	// Base URL of the thumbnails API.
	ThumbnailsURL string `koanf:"thumbnails_url"`
	// Base URL of the presence API.
	PresenceURL string `koanf:"presence_url"`
	// Minimum spacing between requests in milliseconds.
	RequestSpacing int `koanf:"request_spacing"`
	// Total request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Connect timeout in milliseconds.
	ConnectTimeout int `koanf:"connect_timeout"`
}

// Retry contains upstream retry configuration.
type Retry struct {
	// Maximum attempts per request, including the first.
	MaxAttempts uint64 `koanf:"max_attempts"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// CircuitBreaker contains circuit breaker configuration for upstream calls.
type CircuitBreaker struct {
	// Maximum number of requests allowed to pass through when the circuit is half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// The cyclic period of the closed state for the circuit breaker to clear the internal counts, in milliseconds.
	Interval int `koanf:"interval"`
	// The period of the open state after which the state of the circuit breaker becomes half-open, in milliseconds.
	Timeout int `koanf:"timeout"`
}

// Cache contains upstream response cache configuration.
type Cache struct {
	// Maximum number of cached entries across all kinds.
	MaxEntries int `koanf:"max_entries"`
	// Profile TTL in seconds.
	ProfileTTL int `koanf:"profile_ttl"`
	// Avatar TTL in seconds.
	AvatarTTL int `koanf:"avatar_ttl"`
	// Presence TTL in seconds.
	PresenceTTL int `koanf:"presence_ttl"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Optional guild to register commands in instead of globally.
	DevGuildID uint64 `koanf:"dev_guild_id"`
}

// Tracker contains reconciliation loop configuration.
type Tracker struct {
	// Interval between cycles in seconds.
	Interval int `koanf:"interval"`
	// Delay after each player in milliseconds.
	PlayerDelay int `koanf:"player_delay"`
	// Notification mode: "edge" or "live".
	Mode string `koanf:"mode"`
	// What to do when presence could not be read: "keep" or "offline".
	UnknownPolicy string `koanf:"unknown_policy"`
}

// Health contains the health check server configuration.
type Health struct {
	// Enable the health check server.
	Enabled bool `koanf:"enabled"`
	// Port to listen on.
	Port int `koanf:"port"`
}

// LoadConfig loads the configuration from the config search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadConfigFrom([]string{
		".presencewatch",
		homeDir + "/.presencewatch/config",
		"/etc/presencewatch/config",
		"/app/config",
		"config",
		".",
	})
}

// LoadConfigFrom loads the configuration from the first path holding each file.
// Each file is mounted under its own name so common.toml fills Config.Common.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	configFiles := []string{"common", "bot"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)

			fileK := koanf.New(".")
			if err := fileK.Load(file.Provider(configPath), toml.Parser()); err != nil {
				continue
			}

			if err := k.MergeAt(fileK, configName); err != nil {
				return nil, "", fmt.Errorf("failed to merge %s.toml: %w", configName, err)
			}

			configLoaded = true

			if usedConfigPath == "" {
				usedConfigPath = path
			}

			break
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	// Secrets may come from the environment instead of the files
	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	config.applyDefaults()

	return &config, usedConfigPath, nil
}

// envKey maps the supported environment variables onto config keys.
// Unset, empty and unrelated variables are skipped.
func envKey(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}

	switch name {
	case EnvDiscordToken:
		return "bot.discord.token", value
	case EnvHealthPort:
		return "bot.health.port", value
	default:
		return "", nil
	}
}

// applyDefaults fills zero values with working defaults.
func (c *Config) applyDefaults() {
	if c.Common.Debug.LogLevel == "" {
		c.Common.Debug.LogLevel = "info"
	}

	if c.Common.Debug.MaxLogsToKeep <= 0 {
		c.Common.Debug.MaxLogsToKeep = 10
	}

	if c.Common.Debug.MaxLogLines <= 0 {
		c.Common.Debug.MaxLogLines = 10000
	}

	if c.Common.Storage.Driver == "" {
		c.Common.Storage.Driver = "sqlite"
	}

	if c.Common.Storage.SQLite.Path == "" {
		c.Common.Storage.SQLite.Path = "presencewatch.db"
	}

	r := &c.Common.Roblox
	if r.UsersURL == "" {
		r.UsersURL = "https://users.roblox.com"
	}

	if r.ThumbnailsURL == "" {
		r.ThumbnailsURL = "https://thumbnails.roblox.com"
	}

	if r.PresenceURL == "" {
		r.PresenceURL = "https://presence.roblox.com"
	}

	if r.RequestSpacing <= 0 {
		r.RequestSpacing = 150
	}

	if r.RequestTimeout <= 0 {
		r.RequestTimeout = 15000
	}

	if r.ConnectTimeout <= 0 {
		r.ConnectTimeout = 5000
	}

	if c.Common.Retry.MaxAttempts == 0 {
		c.Common.Retry.MaxAttempts = 3
	}

	if c.Common.Retry.Delay <= 0 {
		c.Common.Retry.Delay = 1000
	}

	if c.Common.Retry.MaxDelay <= 0 {
		c.Common.Retry.MaxDelay = 5000
	}

	cb := &c.Common.CircuitBreaker
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 3
	}

	if cb.Interval <= 0 {
		cb.Interval = 60000
	}

	if cb.Timeout <= 0 {
		cb.Timeout = 30000
	}

	if c.Common.Cache.MaxEntries <= 0 {
		c.Common.Cache.MaxEntries = 1000
	}

	if c.Common.Cache.ProfileTTL <= 0 {
		c.Common.Cache.ProfileTTL = 300
	}

	if c.Common.Cache.AvatarTTL <= 0 {
		c.Common.Cache.AvatarTTL = 300
	}

	if c.Common.Cache.PresenceTTL <= 0 {
		c.Common.Cache.PresenceTTL = 10
	}

	t := &c.Bot.Tracker
	if t.Interval <= 0 {
		t.Interval = 30
	}

	if t.PlayerDelay <= 0 {
		t.PlayerDelay = 500
	}

	if t.Mode == "" {
		t.Mode = "edge"
	}

	if t.UnknownPolicy == "" {
		t.UnknownPolicy = "keep"
	}

	if c.Bot.Health.Port == 0 {
		c.Bot.Health.Port = 8080
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/presencewatch/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
