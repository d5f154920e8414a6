package datasource

import (
	"context"
	"fmt"

	"weather-dashboard/models"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a WeatherClient with separate limiters for current weather and forecast calls
type RateLimitedClient struct {
	client          WeatherClient
	weatherLimiter  *rate.Limiter
	forecastLimiter *rate.Limiter
	name            string
}

// NewRateLimitedClient creates a client that waits for limiter permission before each call.
// weatherRPS and forecastRPS are the maximum requests per second (can be fractional),
// burst is the maximum burst size allowed for each limiter.
func NewRateLimitedClient(client WeatherClient, weatherRPS, forecastRPS float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{
		client:          client,
		weatherLimiter:  rate.NewLimiter(rate.Limit(weatherRPS), burst),
		forecastLimiter: rate.NewLimiter(rate.Limit(forecastRPS), burst),
		name:            fmt.Sprintf("%s [Rate Limited]", client.Name()),
	}
}

// CurrentByName implements WeatherClient with rate limiting
func (r *RateLimitedClient) CurrentByName(ctx context.Context, city string) (models.CurrentWeather, error) {
	if err := r.weatherLimiter.Wait(ctx); err != nil {
		return models.CurrentWeather{}, fmt.Errorf("%w: wait canceled: %v", ErrRateLimited, err)
	}
	return r.client.CurrentByName(ctx, city)
}

// CurrentByCoordinates implements WeatherClient with rate limiting
func (r *RateLimitedClient) CurrentByCoordinates(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	if err := r.weatherLimiter.Wait(ctx); err != nil {
		return models.CurrentWeather{}, fmt.Errorf("%w: wait canceled: %v", ErrRateLimited, err)
	}
	return r.client.CurrentByCoordinates(ctx, lat, lon)
}

// Forecast implements WeatherClient with rate limiting
func (r *RateLimitedClient) Forecast(ctx context.Context, city string) (models.Forecast, error) {
	if err := r.forecastLimiter.Wait(ctx); err != nil {
		return models.Forecast{}, fmt.Errorf("%w: wait canceled: %v", ErrRateLimited, err)
	}
	return r.client.Forecast(ctx, city)
}

// Name returns the provider name
func (r *RateLimitedClient) Name() string {
	return r.name
}

var _ WeatherClient = (*RateLimitedClient)(nil)
