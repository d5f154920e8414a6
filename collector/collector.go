package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"weather-dashboard/datasource"
	"weather-dashboard/models"
)

// City is a named location with known coordinates
type City struct {
	Name        string             `json:"name"`
	Country     string             `json:"country"`
	Coordinates models.Coordinates `json:"coordinates"`
}

// CityWeather pairs a city with its current conditions or the fetch error
type CityWeather struct {
	City    City                   `json:"city"`
	Weather *models.CurrentWeather `json:"weather,omitempty"`
	Err     error                  `json:"-"`
	Error   string                 `json:"error,omitempty"`
}

// WorldCities are the cities plotted on the world map view
var WorldCities = []City{
	{Name: "New York", Country: "US", Coordinates: models.Coordinates{Latitude: 40.7128, Longitude: -74.0060}},
	{Name: "London", Country: "GB", Coordinates: models.Coordinates{Latitude: 51.5074, Longitude: -0.1278}},
	{Name: "Tokyo", Country: "JP", Coordinates: models.Coordinates{Latitude: 35.6762, Longitude: 139.6503}},
	{Name: "São Paulo", Country: "BR", Coordinates: models.Coordinates{Latitude: -23.5505, Longitude: -46.6333}},
	{Name: "Sydney", Country: "AU", Coordinates: models.Coordinates{Latitude: -33.8688, Longitude: 151.2093}},
	{Name: "Lima", Country: "PE", Coordinates: models.Coordinates{Latitude: -12.0464, Longitude: -77.0428}},
	{Name: "Paris", Country: "FR", Coordinates: models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}},
	{Name: "Moscow", Country: "RU", Coordinates: models.Coordinates{Latitude: 55.7558, Longitude: 37.6176}},
	{Name: "Cairo", Country: "EG", Coordinates: models.Coordinates{Latitude: 30.0444, Longitude: 31.2357}},
	{Name: "Mumbai", Country: "IN", Coordinates: models.Coordinates{Latitude: 19.0760, Longitude: 72.8777}},
	{Name: "Beijing", Country: "CN", Coordinates: models.Coordinates{Latitude: 39.9042, Longitude: 116.4074}},
	{Name: "Los Angeles", Country: "US", Coordinates: models.Coordinates{Latitude: 34.0522, Longitude: -118.2437}},
}

// Collector fetches current weather for a batch of cities
type Collector struct {
	client       datasource.WeatherClient
	fetchTimeout time.Duration
	workers      int
	logger       *slog.Logger
}

// NewCollector creates a new collector backed by client
func NewCollector(client datasource.WeatherClient, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client:       client,
		fetchTimeout: 10 * time.Second,
		workers:      4,
		logger:       logger.With("component", "collector"),
	}
}

// SetFetchTimeout changes the timeout for a single city fetch
func (c *Collector) SetFetchTimeout(timeout time.Duration) {
	c.fetchTimeout = timeout
}

// SetWorkers changes how many cities are fetched at once
func (c *Collector) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	c.workers = n
}

// Collect fetches every city once. Results keep the order of cities and a
// failed city carries its error instead of weather.
func (c *Collector) Collect(ctx context.Context, cities []City) []CityWeather {
	results := make([]CityWeather, len(cities))
	sem := make(chan struct{}, c.workers)

	var wg sync.WaitGroup
	for i, city := range cities {
		wg.Add(1)
		go func(i int, city City) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = failed(city, ctx.Err())
				return
			}

			results[i] = c.fetchOnce(ctx, city)
		}(i, city)
	}
	wg.Wait()

	return results
}

// fetchOnce performs a single fetch for a city. Cities with coordinates
// are looked up by position, the rest by name.
func (c *Collector) fetchOnce(ctx context.Context, city City) CityWeather {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	var (
		weather models.CurrentWeather
		err     error
	)
	if city.Coordinates != (models.Coordinates{}) {
		weather, err = c.client.CurrentByCoordinates(fetchCtx, city.Coordinates.Latitude, city.Coordinates.Longitude)
	} else {
		weather, err = c.client.CurrentByName(fetchCtx, city.Name)
	}
	if err != nil {
		c.logger.Warn("failed to collect city weather", "city", city.Name, "source", c.client.Name(), "error", err)
		return failed(city, fmt.Errorf("error fetching from %s for %s: %w", c.client.Name(), city.Name, err))
	}

	return CityWeather{City: city, Weather: &weather}
}

func failed(city City, err error) CityWeather {
	return CityWeather{City: city, Err: err, Error: err.Error()}
}

// Named builds cities from bare names, as stored in the favorites list
func Named(names []string) []City {
	cities := make([]City, len(names))
	for i, n := range names {
		cities[i] = City{Name: n}
	}
	return cities
}
