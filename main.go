package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather-dashboard/api"
	"weather-dashboard/cache"
	"weather-dashboard/collector"
	"weather-dashboard/config"
	"weather-dashboard/dashboard"
	"weather-dashboard/datasource"
	"weather-dashboard/favorites"
	"weather-dashboard/geolocation"
	"weather-dashboard/settings"
	"weather-dashboard/storage"
	"weather-dashboard/tracing"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	port := flag.Int("port", 0, "Port to run the server on (overrides config)")
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.OpenWeatherMap.APIKey == "" {
		logger.Error("no OpenWeatherMap API key configured (set OPENWEATHERMAP_API_KEY)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "weather-dashboard", cfg.Tracing.ZipkinURL)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	kv, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, logger)
	if err != nil {
		// Favorites and settings still work for this session
		logger.Warn("storage unavailable, keeping favorites in memory", "driver", cfg.Storage.Driver, "error", err)
		kv = storage.NewMemoryKV()
	}
	defer kv.Close()

	favs := favorites.NewStore(kv, logger)
	favs.Load()
	prefs := settings.NewStore(kv, logger)
	prefs.Load()

	client := newWeatherClient(cfg, prefs, logger)

	ctrl := dashboard.NewController(client, favs, newLocator(cfg, prefs, logger), dashboard.Options{
		FallbackCity:       cfg.Dashboard.FallbackCity,
		GeolocationTimeout: cfg.Geolocation.Timeout,
	}, logger)

	server := api.NewServer(ctrl, prefs, collector.NewCollector(client, logger), cfg.GetServerAddr(), logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	go func() {
		state := ctrl.Bootstrap(ctx)
		logger.Info("initial load finished", "status", state.Status)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
}

// newWeatherClient layers rate limiting and caching over the provider client.
// The cacheEnabled preference toggles the cache without a restart.
func newWeatherClient(cfg *config.Config, prefs *settings.Store, logger *slog.Logger) datasource.WeatherClient {
	owm := datasource.NewOpenWeatherMapClient(cfg.OpenWeatherMap.APIKey, logger)
	owm.SetBaseURL(cfg.OpenWeatherMap.BaseURL)
	owm.SetTimeout(cfg.OpenWeatherMap.Timeout)

	var client datasource.WeatherClient = owm
	if rl := cfg.OpenWeatherMap.RateLimit; rl.Enabled {
		client = datasource.NewRateLimitedClient(client, rl.RPS, rl.RPS, rl.Burst)
		logger.Info("applied rate limiting", "rps", rl.RPS, "burst", rl.Burst)
	}

	if cfg.Cache.TTL <= 0 {
		return client
	}
	cached := cache.NewCachedClient(client, cfg.Cache.TTL, logger)
	cached.SetEnabled(prefs.Current().CacheEnabled)
	prefs.OnChange(func(s settings.Settings) { cached.SetEnabled(s.CacheEnabled) })
	return cached
}

// newLocator picks the startup position source; users who turned off
// location access are treated as having denied it
func newLocator(cfg *config.Config, prefs *settings.Store, logger *slog.Logger) geolocation.Locator {
	var l geolocation.Locator
	switch cfg.Geolocation.Provider {
	case "static":
		l = geolocation.NewStatic(cfg.Geolocation.Latitude, cfg.Geolocation.Longitude)
	case "ip":
		l = geolocation.NewIPLocator(cfg.Geolocation.URL, cfg.Geolocation.Timeout, logger)
	default:
		l = geolocation.Disabled()
	}
	return geolocation.Gate(l, func() bool { return prefs.Current().LocationPermission })
}
