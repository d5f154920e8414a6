package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"weather-dashboard/datasource"
	"weather-dashboard/models"
)

// CachedClient wraps a WeatherClient and keeps successful responses for a short time.
// Failed calls are never cached.
type CachedClient struct {
	client         datasource.WeatherClient
	entries        map[string]cacheEntry
	mutex          sync.RWMutex
	cacheDuration  time.Duration
	cacheHitCount  int
	cacheMissCount int
	disabled       atomic.Bool
	now            func() time.Time
	logger         *slog.Logger
}

// cacheEntry holds either a current-weather or a forecast record with its fetch time
type cacheEntry struct {
	Weather   models.CurrentWeather
	Forecast  models.Forecast
	Timestamp time.Time
}

// NewCachedClient creates a new cached wrapper around a weather client
func NewCachedClient(client datasource.WeatherClient, cacheDuration time.Duration, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{
		client:        client,
		entries:       make(map[string]cacheEntry),
		cacheDuration: cacheDuration,
		now:           time.Now,
		logger:        logger.With("component", "cache"),
	}
}

// SetEnabled turns caching on or off at runtime. Disabling drops all entries
// and sends every call straight to the wrapped client.
func (c *CachedClient) SetEnabled(enabled bool) {
	c.disabled.Store(!enabled)
	if !enabled {
		c.mutex.Lock()
		c.entries = make(map[string]cacheEntry)
		c.mutex.Unlock()
	}
	c.logger.Info("cache toggled", "enabled", enabled)
}

// Name returns the name of the underlying client with [Cached] suffix
func (c *CachedClient) Name() string {
	return c.client.Name() + " [Cached]"
}

// CurrentByName fetches current weather, using the cache when available
func (c *CachedClient) CurrentByName(ctx context.Context, city string) (models.CurrentWeather, error) {
	if c.disabled.Load() {
		return c.client.CurrentByName(ctx, city)
	}

	key := "name:" + city
	if entry, ok := c.lookup(key); ok {
		return entry.Weather, nil
	}

	data, err := c.client.CurrentByName(ctx, city)
	if err != nil {
		return models.CurrentWeather{}, err
	}
	c.store(key, cacheEntry{Weather: data})
	return data, nil
}

// CurrentByCoordinates fetches current weather, using the cache when available
func (c *CachedClient) CurrentByCoordinates(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	if c.disabled.Load() {
		return c.client.CurrentByCoordinates(ctx, lat, lon)
	}

	// ~100m resolution so jittery positions share an entry
	key := fmt.Sprintf("coords:%.3f,%.3f", lat, lon)
	if entry, ok := c.lookup(key); ok {
		return entry.Weather, nil
	}

	data, err := c.client.CurrentByCoordinates(ctx, lat, lon)
	if err != nil {
		return models.CurrentWeather{}, err
	}
	c.store(key, cacheEntry{Weather: data})
	return data, nil
}

// Forecast fetches forecast data, using the cache when available
func (c *CachedClient) Forecast(ctx context.Context, city string) (models.Forecast, error) {
	if c.disabled.Load() {
		return c.client.Forecast(ctx, city)
	}

	key := "forecast:" + city
	if entry, ok := c.lookup(key); ok {
		return entry.Forecast, nil
	}

	forecast, err := c.client.Forecast(ctx, city)
	if err != nil {
		return models.Forecast{}, err
	}
	c.store(key, cacheEntry{Forecast: forecast})
	return forecast, nil
}

// lookup returns a non-expired entry and updates hit/miss counters
func (c *CachedClient) lookup(key string) (cacheEntry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, found := c.entries[key]
	if found && c.now().Sub(entry.Timestamp) < c.cacheDuration {
		c.cacheHitCount++
		c.logger.Debug("cache hit", "key", key, "age", c.now().Sub(entry.Timestamp).Round(time.Second))
		return entry, true
	}

	if found {
		delete(c.entries, key)
	}
	c.cacheMissCount++
	c.logger.Debug("cache miss", "key", key)
	return cacheEntry{}, false
}

func (c *CachedClient) store(key string, entry cacheEntry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	entry.Timestamp = c.now()
	c.entries[key] = entry
}

// CacheStats returns statistics about cache hits and misses
func (c *CachedClient) CacheStats() (hits, misses int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.cacheHitCount, c.cacheMissCount
}

// Ensure CachedClient implements the WeatherClient interface
var _ datasource.WeatherClient = (*CachedClient)(nil)
