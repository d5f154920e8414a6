package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const londonCurrentJSON = `{
	"coord": {"lon": -0.1257, "lat": 51.5085},
	"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
	"main": {"temp": 18.2, "feels_like": 17.9, "pressure": 1014, "humidity": 72},
	"visibility": 10000,
	"wind": {"speed": 4.6, "deg": 240},
	"dt": 1760871600,
	"sys": {"country": "GB", "sunrise": 1760855000, "sunset": 1760893000},
	"timezone": 3600,
	"name": "London",
	"cod": 200
}`

const londonForecastJSON = `{
	"cod": "200",
	"list": [
		{"dt": 1760896800, "main": {"temp": 15.1, "feels_like": 14.2, "pressure": 1015, "humidity": 80}, "weather": [{"main": "Rain", "description": "light rain", "icon": "10n"}], "wind": {"speed": 3.1}, "pop": 0.4},
		{"dt": 1760886000, "main": {"temp": 17.0, "feels_like": 16.4, "pressure": 1014, "humidity": 75}, "weather": [{"main": "Clouds", "description": "overcast clouds", "icon": "04d"}], "wind": {"speed": 3.5}, "pop": 0.1},
		{"dt": 1760907600, "main": {"temp": 13.4, "feels_like": 12.9, "pressure": 1016, "humidity": 85}, "weather": [], "wind": {"speed": 2.2}, "pop": 0}
	],
	"city": {"name": "London", "country": "GB", "coord": {"lat": 51.5085, "lon": -0.1257}, "timezone": 3600}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenWeatherMapClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewOpenWeatherMapClient("test-key", nil)
	client.SetBaseURL(server.URL)
	return client
}

func TestCurrentByName(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("Expected path /weather, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "London" {
			t.Errorf("Expected q=London, got %q", q.Get("q"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("Expected units=metric, got %q", q.Get("units"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("Expected appid=test-key, got %q", q.Get("appid"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(londonCurrentJSON))
	})

	weather, err := client.CurrentByName(context.Background(), "London")
	if err != nil {
		t.Fatalf("CurrentByName returned error: %v", err)
	}

	if weather.Location != "London" || weather.Country != "GB" {
		t.Errorf("Unexpected location %q/%q", weather.Location, weather.Country)
	}
	if weather.Temperature != 18.2 || weather.FeelsLike != 17.9 {
		t.Errorf("Unexpected temperatures %v/%v", weather.Temperature, weather.FeelsLike)
	}
	if weather.Humidity != 72 || weather.Pressure != 1014 || weather.WindSpeed != 4.6 {
		t.Errorf("Unexpected humidity/pressure/wind: %v/%v/%v", weather.Humidity, weather.Pressure, weather.WindSpeed)
	}
	if weather.ConditionMain != "Clouds" || weather.ConditionDescription != "broken clouds" || weather.Icon != "04d" {
		t.Errorf("Unexpected condition: %+v", weather)
	}
	if weather.Visibility == nil || *weather.Visibility != 10000 {
		t.Errorf("Expected visibility 10000, got %v", weather.Visibility)
	}
	if weather.Coordinates.Latitude != 51.5085 || weather.Coordinates.Longitude != -0.1257 {
		t.Errorf("Unexpected coordinates %+v", weather.Coordinates)
	}
	if weather.TimezoneOffset != 3600 {
		t.Errorf("Expected timezone offset 3600, got %d", weather.TimezoneOffset)
	}
}

func TestCurrentByCoordinates(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "51.5085" || q.Get("lon") != "-0.1257" {
			t.Errorf("Unexpected coordinates lat=%q lon=%q", q.Get("lat"), q.Get("lon"))
		}
		if q.Get("q") != "" {
			t.Errorf("Coordinate lookup must not send q, got %q", q.Get("q"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("Expected units=metric, got %q", q.Get("units"))
		}
		w.Write([]byte(londonCurrentJSON))
	})

	weather, err := client.CurrentByCoordinates(context.Background(), 51.5085, -0.1257)
	if err != nil {
		t.Fatalf("CurrentByCoordinates returned error: %v", err)
	}
	if weather.Location != "London" {
		t.Errorf("Expected London, got %q", weather.Location)
	}
}

func TestForecastKeepsUpstreamOrder(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("Expected path /forecast, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("units") != "metric" {
			t.Errorf("Expected units=metric")
		}
		w.Write([]byte(londonForecastJSON))
	})

	forecast, err := client.Forecast(context.Background(), "London")
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}

	if len(forecast.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(forecast.Entries))
	}

	// the second upstream entry is earlier than the first; order must be preserved
	wantDt := []int64{1760896800, 1760886000, 1760907600}
	for i, entry := range forecast.Entries {
		if entry.Timestamp.Unix() != wantDt[i] {
			t.Errorf("Entry %d: expected dt %d, got %d", i, wantDt[i], entry.Timestamp.Unix())
		}
	}

	if forecast.Entries[0].ConditionMain != "Rain" || forecast.Entries[0].FeelsLike != 14.2 {
		t.Errorf("Unexpected first entry %+v", forecast.Entries[0])
	}
	if forecast.Entries[0].PrecipitationProbability != 0.4 {
		t.Errorf("Expected pop 0.4, got %v", forecast.Entries[0].PrecipitationProbability)
	}
	if forecast.Entries[2].ConditionMain != "" {
		t.Errorf("Entry without conditions should have empty condition, got %q", forecast.Entries[2].ConditionMain)
	}
	if forecast.Location != "London" || forecast.TimezoneOffset != 3600 {
		t.Errorf("Unexpected forecast city %q offset %d", forecast.Location, forecast.TimezoneOffset)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "city not found",
			status: http.StatusNotFound,
			body:   `{"cod":"404","message":"city not found"}`,
			want:   ErrNotFound,
		},
		{
			name:   "quota exhausted",
			status: http.StatusTooManyRequests,
			body:   `{"cod":429,"message":"Your account is temporary blocked"}`,
			want:   ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.CurrentByName(context.Background(), "Zzzzztown")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}

			_, err = client.Forecast(context.Background(), "Zzzzztown")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v from Forecast, got %v", tt.want, err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestUnauthorizedIsNotMappedToTaxonomy(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	})

	_, err := client.CurrentByName(context.Background(), "London")
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork) {
		t.Errorf("401 should not match a taxonomy sentinel, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid API key" {
		t.Errorf("Expected APIError with provider message, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewOpenWeatherMapClient("test-key", nil)
	client.SetBaseURL(url)
	client.SetTimeout(2 * time.Second)

	_, err := client.CurrentByName(context.Background(), "London")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Expected ErrNetwork, got %v", err)
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T", err)
	}
	if netErr.Unwrap() == nil {
		t.Error("NetworkError should wrap the transport error")
	}
}

func TestMalformedBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main": "not an object"`))
	})

	_, err := client.CurrentByName(context.Background(), "London")
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNetwork) {
		t.Errorf("Parse error should not match taxonomy sentinels: %v", err)
	}
}
