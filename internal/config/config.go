package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// IGDB (Twitch client credentials)
	IGDBClientID     string
	IGDBClientSecret string

	// SteamGridDB
	SteamGridDBAPIKey string

	// Steam Web API (achievements)
	SteamAPIKey string
	SteamUserID string

	// Enrichment
	CacheMaxAgeDays   int  // Days before cached metadata is considered stale (default: 30)
	FetchAssets       bool // Fetch visual assets from SteamGridDB
	FetchDurations    bool // Fetch completion times from HowLongToBeat
	FetchCompat       bool // Fetch Linux compatibility from ProtonDB
	FetchAchievements bool // Fetch achievements from the Steam Web API
	EnrichWorkers     int  // Concurrent enrichments in a batch (default: 1, sequential)

	// Scheduler
	RefreshCron string // Cron spec for background library refresh

	// Server
	ServerPort      string
	LibraryCacheTTL int // Minutes to memoize the enriched library response

	// Paths
	CacheDir     string // $CONFIG_DIR/cache (metadata.json + assets/)
	DatabaseFile string // $CONFIG_DIR/ludarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("CACHE_MAX_AGE_DAYS", 30)
	viper.SetDefault("FETCH_ASSETS", true)
	viper.SetDefault("FETCH_DURATIONS", true)
	viper.SetDefault("FETCH_COMPAT", true)
	viper.SetDefault("FETCH_ACHIEVEMENTS", true)
	viper.SetDefault("ENRICH_WORKERS", 1)
	viper.SetDefault("REFRESH_CRON", "0 */6 * * *")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LIBRARY_CACHE_TTL_MINUTES", 5)
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "ludarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// IGDB
		IGDBClientID:     viper.GetString("IGDB_CLIENT_ID"),
		IGDBClientSecret: viper.GetString("IGDB_CLIENT_SECRET"),

		// SteamGridDB
		SteamGridDBAPIKey: viper.GetString("STEAMGRIDDB_API_KEY"),

		// Steam
		SteamAPIKey: viper.GetString("STEAM_API_KEY"),
		SteamUserID: viper.GetString("STEAM_USER_ID"),

		// Enrichment
		CacheMaxAgeDays:   viper.GetInt("CACHE_MAX_AGE_DAYS"),
		FetchAssets:       viper.GetBool("FETCH_ASSETS"),
		FetchDurations:    viper.GetBool("FETCH_DURATIONS"),
		FetchCompat:       viper.GetBool("FETCH_COMPAT"),
		FetchAchievements: viper.GetBool("FETCH_ACHIEVEMENTS"),
		EnrichWorkers:     viper.GetInt("ENRICH_WORKERS"),

		// Scheduler
		RefreshCron: viper.GetString("REFRESH_CRON"),

		// Server
		ServerPort:      viper.GetString("SERVER_PORT"),
		LibraryCacheTTL: viper.GetInt("LIBRARY_CACHE_TTL_MINUTES"),

		// Paths
		CacheDir:     filepath.Join(configDir, "cache"),
		DatabaseFile: filepath.Join(configDir, "ludarr.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// No credential is mandatory: a missing credential disables the
	// corresponding source instead of failing startup.
	if config.EnrichWorkers < 1 {
		config.EnrichWorkers = 1
	}
	if config.CacheMaxAgeDays < 1 {
		return nil, fmt.Errorf("CACHE_MAX_AGE_DAYS must be at least 1, got %d", config.CacheMaxAgeDays)
	}

	return config, nil
}

// HasIGDB reports whether IGDB credentials are configured
func (c *Config) HasIGDB() bool {
	return c.IGDBClientID != "" && c.IGDBClientSecret != ""
}

// HasSteamGridDB reports whether a SteamGridDB API key is configured
func (c *Config) HasSteamGridDB() bool {
	return c.SteamGridDBAPIKey != ""
}

// HasSteam reports whether Steam Web API credentials are configured
func (c *Config) HasSteam() bool {
	return c.SteamAPIKey != "" && c.SteamUserID != ""
}
