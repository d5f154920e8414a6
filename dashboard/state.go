package dashboard

import (
	"errors"
	"fmt"
	"time"

	"weather-dashboard/models"
)

// Status is the lifecycle of the current query
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// View is the active dashboard section
type View string

const (
	ViewDashboard View = "dashboard"
	ViewMap       View = "map"
	ViewSaved     View = "saved"
	ViewCalendar  View = "calendar"
	ViewSettings  View = "settings"
)

// ErrUnknownView is returned by ParseView for names outside the known sections
var ErrUnknownView = errors.New("unknown view")

// ParseView validates a section name
func ParseView(name string) (View, error) {
	switch v := View(name); v {
	case ViewDashboard, ViewMap, ViewSaved, ViewCalendar, ViewSettings:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
}

// State is the top-level dashboard state. Weather and Forecast hold the
// last successful query and survive a later failure.
type State struct {
	Status     Status                 `json:"status"`
	Weather    *models.CurrentWeather `json:"weather,omitempty"`
	Forecast   *models.Forecast       `json:"forecast,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Warning    string                 `json:"warning,omitempty"`
	View       View                   `json:"view"`
	Query      string                 `json:"query"`
	Generation uint64                 `json:"generation"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Initial returns the state before any query has started
func Initial() State {
	return State{Status: StatusIdle, View: ViewDashboard}
}

// Event is a state transition input
type Event interface {
	event()
}

// SearchStarted opens a new query generation
type SearchStarted struct {
	Generation uint64
}

// FetchSucceeded delivers both halves of a query
type FetchSucceeded struct {
	Generation uint64
	Weather    models.CurrentWeather
	Forecast   models.Forecast
	At         time.Time
}

// FetchFailed reports that a query could not be completed
type FetchFailed struct {
	Generation uint64
	Message    string
	At         time.Time
}

// ViewChanged switches the active section
type ViewChanged struct {
	View View
}

// QueryChanged updates the search box text
type QueryChanged struct {
	Query string
}

// WarningRaised sets or clears the non-fatal warning
type WarningRaised struct {
	Warning string
}

func (SearchStarted) event()  {}
func (FetchSucceeded) event() {}
func (FetchFailed) event()    {}
func (ViewChanged) event()    {}
func (QueryChanged) event()   {}
func (WarningRaised) event()  {}

// Reduce applies ev to s and returns the next state. Fetch results from
// a generation other than the current one are ignored.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case SearchStarted:
		if e.Generation <= s.Generation {
			return s
		}
		s.Status = StatusLoading
		s.Generation = e.Generation
		s.Error = ""
	case FetchSucceeded:
		if e.Generation != s.Generation {
			return s
		}
		weather, forecast := e.Weather, e.Forecast
		s.Status = StatusLoaded
		s.Weather = &weather
		s.Forecast = &forecast
		s.Error = ""
		s.UpdatedAt = e.At
	case FetchFailed:
		if e.Generation != s.Generation {
			return s
		}
		s.Status = StatusError
		s.Error = e.Message
		s.UpdatedAt = e.At
	case ViewChanged:
		s.View = e.View
	case QueryChanged:
		s.Query = e.Query
	case WarningRaised:
		s.Warning = e.Warning
	}
	return s
}
