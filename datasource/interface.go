package datasource

import (
	"context"

	"weather-dashboard/models"
)

// WeatherClient defines the read operations the dashboard needs from a weather provider
type WeatherClient interface {
	// CurrentByName fetches current weather for a city name
	CurrentByName(ctx context.Context, city string) (models.CurrentWeather, error)

	// CurrentByCoordinates fetches current weather for a position
	CurrentByCoordinates(ctx context.Context, lat, lon float64) (models.CurrentWeather, error)

	// Forecast fetches the 5-day/3-hour forecast for a city name
	Forecast(ctx context.Context, city string) (models.Forecast, error)

	// Name returns the provider's name
	Name() string
}
