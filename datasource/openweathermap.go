package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"weather-dashboard/models"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	openWeatherMapBaseURL = "https://api.openweathermap.org/data/2.5"
	currentEndpoint       = "/weather"
	forecastEndpoint      = "/forecast"

	defaultTimeout = 10 * time.Second
)

// OpenWeatherMapClient implements WeatherClient against the OpenWeatherMap 2.5 API
type OpenWeatherMapClient struct {
	apiKey string
	client *resty.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// Ensure OpenWeatherMapClient implements WeatherClient
var _ WeatherClient = (*OpenWeatherMapClient)(nil)

// NewOpenWeatherMapClient creates a new OpenWeatherMap client.
// Units are fixed to metric on every request and failed calls are never retried.
func NewOpenWeatherMapClient(apiKey string, logger *slog.Logger) *OpenWeatherMapClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "openweathermap")

	client := resty.New().
		SetBaseURL(openWeatherMapBaseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(defaultTimeout).
		SetRetryCount(0)

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("provider response",
			"method", resp.Request.Method,
			"path", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
			"bytes", len(resp.Body()),
		)
		return nil
	})

	return &OpenWeatherMapClient{
		apiKey: apiKey,
		client: client,
		tracer: otel.Tracer("weather-dashboard/datasource"),
		logger: logger,
	}
}

// SetBaseURL sets the base URL for the API (useful for testing)
func (c *OpenWeatherMapClient) SetBaseURL(baseURL string) {
	c.client.SetBaseURL(baseURL)
}

// SetTimeout configures the HTTP client timeout
func (c *OpenWeatherMapClient) SetTimeout(timeout time.Duration) {
	c.client.SetTimeout(timeout)
}

// Name returns the provider name
func (c *OpenWeatherMapClient) Name() string {
	return "OpenWeatherMap"
}

// currentResponse is the /weather response body
type currentResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []conditionPayload `json:"weather"`
	Main    mainPayload        `json:"main"`
	Wind    struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Visibility *int  `json:"visibility"`
	Dt         int64 `json:"dt"`
	Sys        struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

// forecastResponse is the /forecast response body
type forecastResponse struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
		Coord   struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Timezone int `json:"timezone"`
	} `json:"city"`
	List []struct {
		Dt      int64              `json:"dt"`
		Main    mainPayload        `json:"main"`
		Weather []conditionPayload `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

type mainPayload struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

type conditionPayload struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentByName fetches current weather for a city name
func (c *OpenWeatherMapClient) CurrentByName(ctx context.Context, city string) (models.CurrentWeather, error) {
	ctx, span := c.tracer.Start(ctx, "openweathermap.current_by_name",
		trace.WithAttributes(attribute.String("weather.city", city)))
	defer span.End()

	var payload currentResponse
	if err := c.get(ctx, currentEndpoint, map[string]string{"q": city}, &payload); err != nil {
		recordError(span, err)
		return models.CurrentWeather{}, err
	}
	return payload.toModel(), nil
}

// CurrentByCoordinates fetches current weather for a position
func (c *OpenWeatherMapClient) CurrentByCoordinates(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	ctx, span := c.tracer.Start(ctx, "openweathermap.current_by_coordinates",
		trace.WithAttributes(attribute.Float64("weather.lat", lat), attribute.Float64("weather.lon", lon)))
	defer span.End()

	params := map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(lon, 'f', -1, 64),
	}

	var payload currentResponse
	if err := c.get(ctx, currentEndpoint, params, &payload); err != nil {
		recordError(span, err)
		return models.CurrentWeather{}, err
	}
	return payload.toModel(), nil
}

// Forecast fetches the 5-day forecast in 3-hour steps for a city name
func (c *OpenWeatherMapClient) Forecast(ctx context.Context, city string) (models.Forecast, error) {
	ctx, span := c.tracer.Start(ctx, "openweathermap.forecast",
		trace.WithAttributes(attribute.String("weather.city", city)))
	defer span.End()

	var payload forecastResponse
	if err := c.get(ctx, forecastEndpoint, map[string]string{"q": city}, &payload); err != nil {
		recordError(span, err)
		return models.Forecast{}, err
	}

	forecast := models.Forecast{
		Location: payload.City.Name,
		Country:  payload.City.Country,
		Coordinates: models.Coordinates{
			Latitude:  payload.City.Coord.Lat,
			Longitude: payload.City.Coord.Lon,
		},
		TimezoneOffset: payload.City.Timezone,
		Entries:        make([]models.ForecastEntry, 0, len(payload.List)),
		Updated:        time.Now(),
	}

	for _, item := range payload.List {
		cond := firstCondition(item.Weather)
		forecast.Entries = append(forecast.Entries, models.ForecastEntry{
			Timestamp:                time.Unix(item.Dt, 0),
			Temperature:              item.Main.Temp,
			FeelsLike:                item.Main.FeelsLike,
			Humidity:                 item.Main.Humidity,
			Pressure:                 item.Main.Pressure,
			WindSpeed:                item.Wind.Speed,
			PrecipitationProbability: item.Pop,
			ConditionMain:            cond.Main,
			ConditionDescription:     cond.Description,
			Icon:                     cond.Icon,
		})
	}
	span.SetAttributes(attribute.Int("weather.entries", len(forecast.Entries)))

	return forecast, nil
}

// get performs a metric-unit GET against endpoint and decodes the body into out
func (c *OpenWeatherMapClient) get(ctx context.Context, endpoint string, params map[string]string, out interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("appid", c.apiKey).
		SetQueryParam("units", "metric").
		Get(endpoint)
	if err != nil {
		return &NetworkError{Operation: "GET " + endpoint, Err: err}
	}

	if !resp.IsSuccess() {
		return parseAPIError(resp)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseAPIError builds an APIError from a non-2xx response
func parseAPIError(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	message := resp.Status()
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		message = body.Message
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: message}
}

func (p currentResponse) toModel() models.CurrentWeather {
	cond := firstCondition(p.Weather)
	return models.CurrentWeather{
		Location: p.Name,
		Country:  p.Sys.Country,
		Coordinates: models.Coordinates{
			Latitude:  p.Coord.Lat,
			Longitude: p.Coord.Lon,
		},
		Temperature:          p.Main.Temp,
		FeelsLike:            p.Main.FeelsLike,
		Humidity:             p.Main.Humidity,
		Pressure:             p.Main.Pressure,
		WindSpeed:            p.Wind.Speed,
		WindDeg:              p.Wind.Deg,
		ConditionMain:        cond.Main,
		ConditionDescription: cond.Description,
		Icon:                 cond.Icon,
		Visibility:           p.Visibility,
		Sunrise:              time.Unix(p.Sys.Sunrise, 0),
		Sunset:               time.Unix(p.Sys.Sunset, 0),
		TimezoneOffset:       p.Timezone,
		Timestamp:            time.Unix(p.Dt, 0),
	}
}

func firstCondition(conditions []conditionPayload) conditionPayload {
	if len(conditions) > 0 {
		return conditions[0]
	}
	return conditionPayload{}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
