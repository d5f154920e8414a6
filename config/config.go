package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Log            LogConfig
	OpenWeatherMap OpenWeatherMapConfig
	Cache          CacheConfig
	Storage        StorageConfig
	Geolocation    GeolocationConfig
	Dashboard      DashboardConfig
	Tracing        TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// OpenWeatherMapConfig configures the weather provider
type OpenWeatherMapConfig struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit RateLimitConfig
}

// RateLimitConfig configures the local request limiter.
// The free tier allows 60 calls/minute.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// CacheConfig configures response caching; a zero TTL disables it
type CacheConfig struct {
	TTL time.Duration
}

// StorageConfig selects the key-value backend for favorites and settings
type StorageConfig struct {
	Driver string // memory, file, sqlite
	Path   string
}

// GeolocationConfig selects how the startup position is found
type GeolocationConfig struct {
	Provider  string // none, static, ip
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
	URL       string
}

// DashboardConfig holds controller settings
type DashboardConfig struct {
	FallbackCity string
}

// TracingConfig enables span export when ZipkinURL is set
type TracingConfig struct {
	ZipkinURL string
}

// Load reads configuration from defaults, an optional config file and
// environment variables. An empty configFile searches the default paths.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.weather-dashboard")
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("openweathermap.apikey", "")
	v.SetDefault("openweathermap.baseurl", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("openweathermap.timeout", 10*time.Second)
	v.SetDefault("openweathermap.ratelimit.enabled", true)
	v.SetDefault("openweathermap.ratelimit.rps", 1.0)
	v.SetDefault("openweathermap.ratelimit.burst", 5)
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "weather-dashboard.db")
	v.SetDefault("geolocation.provider", "ip")
	v.SetDefault("geolocation.latitude", 0.0)
	v.SetDefault("geolocation.longitude", 0.0)
	v.SetDefault("geolocation.timeout", 5*time.Second)
	v.SetDefault("geolocation.url", "")
	v.SetDefault("dashboard.fallbackcity", "London")
	v.SetDefault("tracing.zipkinurl", "")

	v.SetEnvPrefix("WEATHER_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("openweathermap.apikey", "WEATHER_DASHBOARD_OPENWEATHERMAP_APIKEY", "OPENWEATHERMAP_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger creates a new slog.Logger based on the configuration
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
