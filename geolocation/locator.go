// Package geolocation resolves the user's position for the initial dashboard load.
package geolocation

import (
	"context"
	"errors"

	"weather-dashboard/models"
)

var (
	// ErrDenied is returned when the user has not allowed location access
	ErrDenied = errors.New("geolocation permission denied")

	// ErrUnavailable is returned when no position could be determined
	ErrUnavailable = errors.New("geolocation unavailable")

	// ErrTimeout is returned when the position was not determined in time
	ErrTimeout = errors.New("geolocation timed out")
)

// Position is a located point
type Position struct {
	models.Coordinates
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Locator determines the current position
type Locator interface {
	Locate(ctx context.Context) (Position, error)
}

// Static always reports the same position or the same error
type Static struct {
	Position Position
	Err      error
}

var _ Locator = Static{}

// NewStatic creates a locator fixed to the given coordinates
func NewStatic(lat, lon float64) Static {
	return Static{Position: Position{Coordinates: models.Coordinates{Latitude: lat, Longitude: lon}}}
}

// Disabled returns a locator that never produces a position
func Disabled() Static {
	return Static{Err: ErrUnavailable}
}

// Denied returns a locator that reports a refused permission
func Denied() Static {
	return Static{Err: ErrDenied}
}

// Locate implements Locator
func (s Static) Locate(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, ErrTimeout
	}
	if s.Err != nil {
		return Position{}, s.Err
	}
	return s.Position, nil
}

// Gate wraps a Locator and fails with ErrDenied whenever allowed reports false.
// The check runs on every Locate call.
func Gate(l Locator, allowed func() bool) Locator {
	return gated{next: l, allowed: allowed}
}

type gated struct {
	next    Locator
	allowed func() bool
}

func (g gated) Locate(ctx context.Context) (Position, error) {
	if !g.allowed() {
		return Position{}, ErrDenied
	}
	return g.next.Locate(ctx)
}
