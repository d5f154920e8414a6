package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"weather-dashboard/datasource"
	"weather-dashboard/favorites"
	"weather-dashboard/geolocation"
	"weather-dashboard/models"
	"weather-dashboard/storage"
	"weather-dashboard/theme"
)

type mockClient struct {
	mu            sync.Mutex
	nameCalls     map[string]int
	coordCalls    int
	failCurrent   map[string]bool
	failForecast  map[string]bool
	failCoords    bool
	gate          map[string]chan struct{}
	coordLocation string
}

func newMockClient() *mockClient {
	return &mockClient{
		nameCalls:     make(map[string]int),
		failCurrent:   make(map[string]bool),
		failForecast:  make(map[string]bool),
		gate:          make(map[string]chan struct{}),
		coordLocation: "Lima",
	}
}

func (m *mockClient) wait(city string) {
	m.mu.Lock()
	g := m.gate[city]
	m.mu.Unlock()
	if g != nil {
		<-g
	}
}

func (m *mockClient) CurrentByName(ctx context.Context, city string) (models.CurrentWeather, error) {
	m.mu.Lock()
	m.nameCalls[city]++
	fail := m.failCurrent[city]
	m.mu.Unlock()

	m.wait(city)
	if fail {
		return models.CurrentWeather{}, &datasource.APIError{StatusCode: 404, Message: "city not found"}
	}
	return models.CurrentWeather{Location: city, ConditionMain: "Clear", Temperature: 15}, nil
}

func (m *mockClient) CurrentByCoordinates(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	m.mu.Lock()
	m.coordCalls++
	fail := m.failCoords
	m.mu.Unlock()

	if fail {
		return models.CurrentWeather{}, &datasource.NetworkError{Operation: "GET /weather", Err: errors.New("connection refused")}
	}
	return models.CurrentWeather{
		Location:    m.coordLocation,
		Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
	}, nil
}

func (m *mockClient) Forecast(ctx context.Context, city string) (models.Forecast, error) {
	m.mu.Lock()
	fail := m.failForecast[city]
	m.mu.Unlock()

	m.wait(city)
	if fail {
		return models.Forecast{}, &datasource.APIError{StatusCode: 429, Message: "too many requests"}
	}
	return models.Forecast{
		Location: city,
		Entries: []models.ForecastEntry{
			{Timestamp: time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC), Temperature: 18, FeelsLike: 16, ConditionMain: "Clouds"},
			{Timestamp: time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC), Temperature: 22, FeelsLike: 20, ConditionMain: "Clouds"},
		},
	}, nil
}

func (m *mockClient) Name() string { return "Mock" }

func (m *mockClient) calls(city string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nameCalls[city]
}

func (m *mockClient) coords() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coordCalls
}

// lateLocator answers only after release is closed, ignoring its context
type lateLocator struct {
	release chan struct{}
	done    chan struct{}
}

func (l *lateLocator) Locate(ctx context.Context) (geolocation.Position, error) {
	<-l.release
	defer close(l.done)
	return geolocation.Position{Coordinates: models.Coordinates{Latitude: 1, Longitude: 2}}, nil
}

type failingKV struct {
	storage.KV
}

func (failingKV) Set(key, value string) error {
	return storage.ErrStorageFailure
}

func newController(t *testing.T, client *mockClient, locator geolocation.Locator) *Controller {
	t.Helper()
	favs := favorites.NewStore(storage.NewMemoryKV(), nil)
	favs.Load()
	return NewController(client, favs, locator, Options{GeolocationTimeout: 50 * time.Millisecond}, nil)
}

func TestSearchLoadsWeatherAndForecast(t *testing.T) {
	ctrl := newController(t, newMockClient(), nil)
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	<-updates // initial state

	s := ctrl.Search(context.Background(), "  London ")
	if s.Status != StatusLoaded {
		t.Fatalf("Expected loaded, got %s (%s)", s.Status, s.Error)
	}
	if s.Weather.Location != "London" || s.Forecast.Location != "London" {
		t.Errorf("Unexpected data %+v %+v", s.Weather, s.Forecast)
	}

	if latest := <-updates; latest.Status != StatusLoaded {
		t.Errorf("Subscriber should see the latest state, got %s", latest.Status)
	}
}

func TestSearchPassesThroughLoading(t *testing.T) {
	client := newMockClient()
	client.gate["London"] = make(chan struct{})
	ctrl := newController(t, client, nil)

	done := make(chan State)
	go func() { done <- ctrl.Search(context.Background(), "London") }()

	deadline := time.After(time.Second)
	for ctrl.Snapshot().Status != StatusLoading {
		select {
		case <-deadline:
			t.Fatal("Controller never entered loading")
		case <-time.After(time.Millisecond):
		}
	}

	close(client.gate["London"])
	if s := <-done; s.Status != StatusLoaded {
		t.Errorf("Expected loaded, got %s", s.Status)
	}
}

func TestSearchFailureKeepsPreviousData(t *testing.T) {
	client := newMockClient()
	client.failCurrent["Zzzzztown"] = true
	ctrl := newController(t, client, nil)

	ctrl.Search(context.Background(), "London")
	s := ctrl.Search(context.Background(), "Zzzzztown")

	if s.Status != StatusError || s.Error != ErrorMessage {
		t.Fatalf("Expected uniform error, got %s %q", s.Status, s.Error)
	}
	if s.Weather == nil || s.Weather.Location != "London" || s.Forecast.Location != "London" {
		t.Error("Previously loaded data must survive a failed search")
	}
}

func TestSearchIsAllOrNothing(t *testing.T) {
	client := newMockClient()
	client.failForecast["Paris"] = true
	ctrl := newController(t, client, nil)

	s := ctrl.Search(context.Background(), "Paris")
	if s.Status != StatusError {
		t.Fatalf("Expected error when only the forecast fails, got %s", s.Status)
	}
	if s.Weather != nil {
		t.Error("Current weather must not be applied when the forecast failed")
	}
	if s.Error != ErrorMessage {
		t.Errorf("Rate limiting should surface the uniform message, got %q", s.Error)
	}
}

func TestBlankSearchIsNoop(t *testing.T) {
	client := newMockClient()
	ctrl := newController(t, client, nil)

	s := ctrl.Search(context.Background(), "   ")
	if s.Status != StatusIdle || s.Generation != 0 {
		t.Errorf("Blank search changed state: %+v", s)
	}
}

func TestStaleResultIsDiscarded(t *testing.T) {
	client := newMockClient()
	client.gate["Tokyo"] = make(chan struct{})
	ctrl := newController(t, client, nil)

	slow := make(chan State)
	go func() { slow <- ctrl.Search(context.Background(), "Tokyo") }()

	deadline := time.After(time.Second)
	for client.calls("Tokyo") == 0 {
		select {
		case <-deadline:
			t.Fatal("Slow search never started")
		case <-time.After(time.Millisecond):
		}
	}

	fresh := ctrl.Search(context.Background(), "Paris")
	if fresh.Weather.Location != "Paris" {
		t.Fatalf("Expected Paris, got %+v", fresh.Weather)
	}

	close(client.gate["Tokyo"])
	<-slow

	if s := ctrl.Snapshot(); s.Weather.Location != "Paris" || s.Status != StatusLoaded {
		t.Errorf("Stale Tokyo response overwrote newer state: %s %s", s.Status, s.Weather.Location)
	}
}

func TestBootstrapUsesPosition(t *testing.T) {
	client := newMockClient()
	ctrl := newController(t, client, geolocation.NewStatic(-12.0464, -77.0428))

	s := ctrl.Bootstrap(context.Background())
	if s.Status != StatusLoaded || s.Weather.Location != "Lima" || s.Forecast.Location != "Lima" {
		t.Fatalf("Expected Lima via coordinates, got %s %+v", s.Status, s.Weather)
	}
	if client.calls(DefaultFallbackCity) != 0 {
		t.Error("Fallback city should not be queried when geolocation works")
	}
}

func TestBootstrapFallback(t *testing.T) {
	tests := []struct {
		name       string
		locator    geolocation.Locator
		failCoords bool
	}{
		{name: "denied", locator: geolocation.Denied()},
		{name: "unavailable", locator: geolocation.Disabled()},
		{name: "coordinate lookup fails", locator: geolocation.NewStatic(1, 2), failCoords: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient()
			client.failCoords = tt.failCoords
			ctrl := newController(t, client, tt.locator)

			s := ctrl.Bootstrap(context.Background())
			if s.Status != StatusLoaded || s.Weather.Location != DefaultFallbackCity {
				t.Fatalf("Expected fallback city, got %s %+v", s.Status, s.Weather)
			}
			if n := client.calls(DefaultFallbackCity); n != 1 {
				t.Errorf("Expected exactly one fallback query, got %d", n)
			}
		})
	}
}

func TestBootstrapTimeoutFallsBackOnce(t *testing.T) {
	client := newMockClient()
	locator := &lateLocator{release: make(chan struct{}), done: make(chan struct{})}
	ctrl := newController(t, client, locator)

	s := ctrl.Bootstrap(context.Background())
	if s.Status != StatusLoaded || s.Weather.Location != DefaultFallbackCity {
		t.Fatalf("Expected fallback after timeout, got %s %+v", s.Status, s.Weather)
	}

	close(locator.release)
	<-locator.done
	time.Sleep(20 * time.Millisecond)

	if n := client.calls(DefaultFallbackCity); n != 1 {
		t.Errorf("Expected exactly one fallback query, got %d", n)
	}
	if client.coords() != 0 {
		t.Error("A late position must not trigger a coordinate lookup")
	}
	if got := ctrl.Snapshot(); got.Weather.Location != DefaultFallbackCity {
		t.Errorf("Late position changed state to %q", got.Weather.Location)
	}
}

func TestBootstrapFallbackFailure(t *testing.T) {
	client := newMockClient()
	client.failCurrent[DefaultFallbackCity] = true
	ctrl := newController(t, client, geolocation.Disabled())

	s := ctrl.Bootstrap(context.Background())
	if s.Status != StatusError || s.Error != ErrorMessage {
		t.Errorf("Expected error state, got %s %q", s.Status, s.Error)
	}
}

func TestToggleFavorite(t *testing.T) {
	ctrl := newController(t, newMockClient(), nil)

	if _, err := ctrl.ToggleFavorite(); !errors.Is(err, ErrNothingLoaded) {
		t.Fatalf("Expected ErrNothingLoaded, got %v", err)
	}

	ctrl.Search(context.Background(), "London")
	update, err := ctrl.ToggleFavorite()
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !update.Added || len(update.Cities) != 1 || update.Cities[0] != "London" {
		t.Errorf("Unexpected update %+v", update)
	}
	if !ctrl.IsFavorite() {
		t.Error("London should be a favorite")
	}
	if v := ctrl.Snapshot().View; v != ViewSaved {
		t.Errorf("Adding should switch to the saved view, got %s", v)
	}

	ctrl.SetView(ViewMap)
	update, _ = ctrl.ToggleFavorite()
	if update.Added || len(update.Cities) != 0 || ctrl.IsFavorite() {
		t.Errorf("Second toggle should remove, got %+v", update)
	}
	if v := ctrl.Snapshot().View; v != ViewMap {
		t.Errorf("Removing must not change the view, got %s", v)
	}
}

func TestFavoritesStorageFailureIsWarning(t *testing.T) {
	favs := favorites.NewStore(failingKV{KV: storage.NewMemoryKV()}, nil)
	ctrl := NewController(newMockClient(), favs, nil, Options{}, nil)

	update, err := ctrl.AddFavorite("Cairo")
	if err != nil {
		t.Fatalf("Storage failure must not be an error: %v", err)
	}
	if update.Warning != FavoritesWarning {
		t.Errorf("Expected warning, got %q", update.Warning)
	}
	if s := ctrl.Snapshot(); s.Warning != FavoritesWarning {
		t.Errorf("State should carry the warning, got %q", s.Warning)
	}
	if got := ctrl.Favorites(); len(got) != 1 || got[0] != "Cairo" {
		t.Errorf("In-memory favorites lost: %v", got)
	}

	if _, err := ctrl.AddFavorite(" "); !errors.Is(err, ErrBlankCity) {
		t.Errorf("Expected ErrBlankCity, got %v", err)
	}
}

func TestAddRemoveFavorite(t *testing.T) {
	ctrl := newController(t, newMockClient(), nil)

	ctrl.AddFavorite("Lima")
	ctrl.AddFavorite("Paris")
	update, _ := ctrl.AddFavorite("Lima")
	if update.Added || len(update.Cities) != 2 {
		t.Errorf("Adding twice should be a no-op, got %+v", update)
	}

	update, _ = ctrl.RemoveFavorite("Lima")
	if len(update.Cities) != 1 || update.Cities[0] != "Paris" {
		t.Errorf("Unexpected favorites after remove: %v", update.Cities)
	}
	if update.Warning != "" || ctrl.Snapshot().Warning != "" {
		t.Error("Successful mutation should not warn")
	}
}

func TestDerivedViews(t *testing.T) {
	ctrl := newController(t, newMockClient(), nil)
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	if got := ctrl.Theme(now); got != theme.Default {
		t.Errorf("Expected default theme before loading, got %s", got.Name)
	}
	if got := ctrl.DailyForecast(now); len(got) != 0 {
		t.Errorf("Expected no summaries before loading, got %d", len(got))
	}

	ctrl.Search(context.Background(), "London")

	if got := ctrl.Theme(now); got != theme.Derive("Clear", 14) {
		t.Errorf("Unexpected theme %s", got.Name)
	}
	daily := ctrl.DailyForecast(now)
	if len(daily) != 1 || daily[0].MinTemp != 18 || daily[0].MaxTemp != 22 {
		t.Errorf("Unexpected summaries %+v", daily)
	}
	if points := ctrl.Hourly(0); len(points) != 2 {
		t.Errorf("Expected 2 chart points, got %d", len(points))
	}
}

func TestSetQueryAndView(t *testing.T) {
	ctrl := newController(t, newMockClient(), nil)
	ctrl.SetQuery("Mos")
	s := ctrl.SetView(ViewCalendar)
	if s.Query != "Mos" || s.View != ViewCalendar {
		t.Errorf("Unexpected state %+v", s)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ctrl := newController(t, newMockClient(), nil)
	updates, unsubscribe := ctrl.Subscribe()
	unsubscribe()
	unsubscribe()

	for range updates {
	}
	ctrl.SetView(ViewMap)
}
