package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"weather-dashboard/models"

	"github.com/go-resty/resty/v2"
)

// DefaultIPLookupURL is an ip-api compatible endpoint
const DefaultIPLookupURL = "http://ip-api.com/json"

// IPLocator approximates the position from the public IP address
type IPLocator struct {
	url    string
	client *resty.Client
	logger *slog.Logger
}

var _ Locator = (*IPLocator)(nil)

type ipResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"countryCode"`
}

// NewIPLocator creates a locator querying url; an empty url uses DefaultIPLookupURL
func NewIPLocator(url string, timeout time.Duration, logger *slog.Logger) *IPLocator {
	if url == "" {
		url = DefaultIPLookupURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IPLocator{
		url:    url,
		client: resty.New().SetTimeout(timeout).SetRetryCount(0),
		logger: logger.With("component", "geolocation"),
	}
}

// Locate implements Locator
func (l *IPLocator) Locate(ctx context.Context) (Position, error) {
	resp, err := l.client.R().SetContext(ctx).Get(l.url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, ErrTimeout
		}
		return Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return Position{}, fmt.Errorf("%w: lookup returned %s", ErrUnavailable, resp.Status())
	}

	var body ipResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Position{}, fmt.Errorf("%w: failed to decode lookup: %v", ErrUnavailable, err)
	}
	if body.Status != "success" {
		return Position{}, fmt.Errorf("%w: %s", ErrUnavailable, body.Message)
	}

	l.logger.Debug("located by ip", "city", body.City, "lat", body.Lat, "lon", body.Lon)
	return Position{
		Coordinates: models.Coordinates{Latitude: body.Lat, Longitude: body.Lon},
		City:        body.City,
		Country:     body.Country,
	}, nil
}
