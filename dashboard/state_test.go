package dashboard

import (
	"errors"
	"testing"
	"time"

	"weather-dashboard/models"
)

func TestReduceTransitions(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := Initial()

	s = Reduce(s, SearchStarted{Generation: 1})
	if s.Status != StatusLoading || s.Generation != 1 {
		t.Fatalf("Expected loading generation 1, got %+v", s)
	}

	s = Reduce(s, FetchSucceeded{Generation: 1, Weather: models.CurrentWeather{Location: "London"}, At: at})
	if s.Status != StatusLoaded || s.Weather.Location != "London" || s.Forecast == nil {
		t.Fatalf("Expected loaded London, got %+v", s)
	}

	s = Reduce(s, SearchStarted{Generation: 2})
	s = Reduce(s, FetchFailed{Generation: 2, Message: ErrorMessage, At: at})
	if s.Status != StatusError || s.Error != ErrorMessage {
		t.Fatalf("Expected error state, got %+v", s)
	}
	if s.Weather == nil || s.Weather.Location != "London" {
		t.Error("Failure must keep the previously loaded weather")
	}

	s = Reduce(s, SearchStarted{Generation: 3})
	if s.Error != "" {
		t.Error("A new query should clear the error")
	}
}

func TestReduceIgnoresStaleGenerations(t *testing.T) {
	s := Reduce(Initial(), SearchStarted{Generation: 1})
	s = Reduce(s, SearchStarted{Generation: 2})

	stale := Reduce(s, FetchSucceeded{Generation: 1, Weather: models.CurrentWeather{Location: "Old"}})
	if stale != s {
		t.Errorf("Stale success changed state: %+v", stale)
	}
	stale = Reduce(s, FetchFailed{Generation: 1, Message: "x"})
	if stale != s {
		t.Errorf("Stale failure changed state: %+v", stale)
	}
	if again := Reduce(s, SearchStarted{Generation: 2}); again != s {
		t.Error("Reopening the same generation should be ignored")
	}
}

func TestReduceViewQueryWarning(t *testing.T) {
	s := Reduce(Initial(), ViewChanged{View: ViewMap})
	s = Reduce(s, QueryChanged{Query: "Li"})
	s = Reduce(s, WarningRaised{Warning: "careful"})
	if s.View != ViewMap || s.Query != "Li" || s.Warning != "careful" {
		t.Errorf("Unexpected state %+v", s)
	}
	if s.Status != StatusIdle {
		t.Errorf("View and query changes must not touch status, got %s", s.Status)
	}
}

func TestParseView(t *testing.T) {
	for _, name := range []string{"dashboard", "map", "saved", "calendar", "settings"} {
		if v, err := ParseView(name); err != nil || string(v) != name {
			t.Errorf("ParseView(%q) = %q, %v", name, v, err)
		}
	}
	if _, err := ParseView("radar"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("Expected ErrUnknownView, got %v", err)
	}
}
