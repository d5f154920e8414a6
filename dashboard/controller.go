package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"weather-dashboard/datasource"
	"weather-dashboard/favorites"
	"weather-dashboard/forecast"
	"weather-dashboard/geolocation"
	"weather-dashboard/models"
	"weather-dashboard/theme"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ErrorMessage is shown for every failed query regardless of its cause
	ErrorMessage = "City not found or error retrieving data"

	// FavoritesWarning is shown when the favorites list could not be persisted
	FavoritesWarning = "Favorites could not be saved and will be lost on restart"

	DefaultFallbackCity       = "London"
	DefaultGeolocationTimeout = 5 * time.Second
)

var (
	// ErrBlankCity is returned when a favorites operation gets an empty name
	ErrBlankCity = errors.New("city name is required")

	// ErrNothingLoaded is returned when an operation needs a loaded location
	ErrNothingLoaded = errors.New("no location loaded")
)

// Options tunes the controller
type Options struct {
	FallbackCity       string
	GeolocationTimeout time.Duration
	Now                func() time.Time
}

// FavoritesUpdate is the outcome of a favorites mutation
type FavoritesUpdate struct {
	Cities  []string `json:"cities"`
	Added   bool     `json:"added"`
	Warning string   `json:"warning,omitempty"`
}

// Controller owns the dashboard state and drives the weather client and
// the favorites store in response to user actions.
type Controller struct {
	client    datasource.WeatherClient
	favorites *favorites.Store
	locator   geolocation.Locator
	opts      Options
	tracer    trace.Tracer
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// NewController creates a new controller in the idle state
func NewController(client datasource.WeatherClient, favs *favorites.Store, locator geolocation.Locator, opts Options, logger *slog.Logger) *Controller {
	if opts.FallbackCity == "" {
		opts.FallbackCity = DefaultFallbackCity
	}
	if opts.GeolocationTimeout <= 0 {
		opts.GeolocationTimeout = DefaultGeolocationTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if locator == nil {
		locator = geolocation.Disabled()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		client:    client,
		favorites: favs,
		locator:   locator,
		opts:      opts,
		tracer:    otel.Tracer("weather-dashboard/dashboard"),
		logger:    logger.With("component", "dashboard"),
		state:     Initial(),
		subs:      make(map[int]chan State),
	}
}

// Bootstrap performs the startup load. The locator gets GeolocationTimeout
// to answer; any failure on that path falls back to the fallback city,
// and a locator answer arriving after the timeout is dropped.
func (c *Controller) Bootstrap(ctx context.Context) State {
	ctx, span := c.tracer.Start(ctx, "dashboard.Bootstrap")
	defer span.End()

	gen := c.begin()

	type located struct {
		pos geolocation.Position
		err error
	}
	result := make(chan located, 1)

	locCtx, cancel := context.WithTimeout(ctx, c.opts.GeolocationTimeout)
	defer cancel()

	go func() {
		pos, err := c.locator.Locate(locCtx)
		result <- located{pos: pos, err: err}
	}()

	var loc located
	select {
	case loc = <-result:
	case <-locCtx.Done():
		loc.err = geolocation.ErrTimeout
	}

	if loc.err == nil {
		span.SetAttributes(attribute.Bool("geolocated", true))
		weather, fc, err := c.fetchByPosition(ctx, loc.pos)
		if err == nil {
			return c.settle(gen, weather, fc, nil)
		}
		c.logger.Warn("failed to load weather for position, using fallback city",
			"lat", loc.pos.Latitude, "lon", loc.pos.Longitude, "error", err)
	} else {
		c.logger.Info("geolocation unavailable, using fallback city",
			"city", c.opts.FallbackCity, "reason", loc.err)
	}

	span.SetAttributes(attribute.String("fallback", c.opts.FallbackCity))
	weather, fc, err := c.fetchByCity(ctx, c.opts.FallbackCity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return c.settle(gen, weather, fc, err)
}

// Search loads current weather and forecast for city. A blank city is ignored.
func (c *Controller) Search(ctx context.Context, city string) State {
	city = strings.TrimSpace(city)
	if city == "" {
		return c.Snapshot()
	}

	ctx, span := c.tracer.Start(ctx, "dashboard.Search", trace.WithAttributes(attribute.String("city", city)))
	defer span.End()

	gen := c.begin()
	weather, fc, err := c.fetchByCity(ctx, city)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return c.settle(gen, weather, fc, err)
}

// SelectFavorite loads a saved city
func (c *Controller) SelectFavorite(ctx context.Context, city string) State {
	return c.Search(ctx, city)
}

// AddFavorite saves city. A storage failure keeps the city in memory and
// is reported as a warning.
func (c *Controller) AddFavorite(city string) (FavoritesUpdate, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return FavoritesUpdate{}, ErrBlankCity
	}
	added := !c.favorites.Contains(city)
	cities, err := c.favorites.Add(city)
	return c.favoritesUpdate(cities, added, err), nil
}

// RemoveFavorite drops city from the saved list
func (c *Controller) RemoveFavorite(city string) (FavoritesUpdate, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return FavoritesUpdate{}, ErrBlankCity
	}
	cities, err := c.favorites.Remove(city)
	return c.favoritesUpdate(cities, false, err), nil
}

// ToggleFavorite adds or removes the loaded location. Adding switches
// to the saved view.
func (c *Controller) ToggleFavorite() (FavoritesUpdate, error) {
	city := c.currentLocation()
	if city == "" {
		return FavoritesUpdate{}, ErrNothingLoaded
	}

	added, cities, err := c.favorites.Toggle(city)
	update := c.favoritesUpdate(cities, added, err)
	if added {
		c.dispatch(ViewChanged{View: ViewSaved})
	}
	return update, nil
}

// Favorites returns the saved cities
func (c *Controller) Favorites() []string {
	return c.favorites.List()
}

// IsFavorite reports whether the loaded location is saved
func (c *Controller) IsFavorite() bool {
	city := c.currentLocation()
	return city != "" && c.favorites.Contains(city)
}

// SetView switches the active section
func (c *Controller) SetView(view View) State {
	return c.dispatch(ViewChanged{View: view})
}

// SetQuery records the search box text
func (c *Controller) SetQuery(query string) State {
	return c.dispatch(QueryChanged{Query: query})
}

// DailyForecast summarizes the loaded forecast in the location's zone
func (c *Controller) DailyForecast(now time.Time) []models.DailyForecastSummary {
	s := c.Snapshot()
	if s.Forecast == nil {
		return []models.DailyForecastSummary{}
	}
	return forecast.DailySummaries(s.Forecast.Entries, now, s.Forecast.Zone())
}

// Hourly returns the first n chart points of the loaded forecast
func (c *Controller) Hourly(n int) []forecast.ChartPoint {
	s := c.Snapshot()
	if s.Forecast == nil {
		return []forecast.ChartPoint{}
	}
	return forecast.Hourly(s.Forecast.Entries, n)
}

// Theme derives the theme for the loaded condition at the location's local hour
func (c *Controller) Theme(now time.Time) theme.Theme {
	s := c.Snapshot()
	if s.Weather == nil {
		return theme.Default
	}
	return theme.Derive(s.Weather.ConditionMain, now.In(s.Weather.Zone()).Hour())
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel receiving the latest state after every
// change. Slow readers only see the most recent state. The returned
// function unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 1)
	c.subs[id] = ch
	ch <- c.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// begin opens a new query generation and enters loading
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.state.Generation + 1
	c.apply(SearchStarted{Generation: gen})
	return gen
}

func (c *Controller) settle(gen uint64, weather models.CurrentWeather, fc models.Forecast, err error) State {
	if err != nil {
		c.logger.Error("query failed", "generation", gen, "kind", errorKind(err), "error", err)
		return c.dispatch(FetchFailed{Generation: gen, Message: ErrorMessage, At: c.opts.Now()})
	}

	state := c.dispatch(FetchSucceeded{Generation: gen, Weather: weather, Forecast: fc, At: c.opts.Now()})
	if state.Generation != gen {
		c.logger.Debug("discarded stale result", "generation", gen, "current", state.Generation)
	}
	return state
}

// fetchByCity requests current weather and forecast at once; both must succeed
func (c *Controller) fetchByCity(ctx context.Context, city string) (models.CurrentWeather, models.Forecast, error) {
	var (
		wg                sync.WaitGroup
		weather           models.CurrentWeather
		fc                models.Forecast
		weatherErr, fcErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		weather, weatherErr = c.client.CurrentByName(ctx, city)
	}()
	go func() {
		defer wg.Done()
		fc, fcErr = c.client.Forecast(ctx, city)
	}()
	wg.Wait()

	if err := errors.Join(weatherErr, fcErr); err != nil {
		return models.CurrentWeather{}, models.Forecast{}, err
	}
	return weather, fc, nil
}

// fetchByPosition resolves the position to a city through the current
// weather response, then requests that city's forecast
func (c *Controller) fetchByPosition(ctx context.Context, pos geolocation.Position) (models.CurrentWeather, models.Forecast, error) {
	weather, err := c.client.CurrentByCoordinates(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		return models.CurrentWeather{}, models.Forecast{}, err
	}
	fc, err := c.client.Forecast(ctx, weather.Location)
	if err != nil {
		return models.CurrentWeather{}, models.Forecast{}, err
	}
	return weather, fc, nil
}

func (c *Controller) favoritesUpdate(cities []string, added bool, err error) FavoritesUpdate {
	update := FavoritesUpdate{Cities: cities, Added: added}
	if err != nil {
		c.logger.Warn("favorites not persisted", "error", err)
		update.Warning = FavoritesWarning
	}
	c.dispatch(WarningRaised{Warning: update.Warning})
	return update
}

func (c *Controller) currentLocation() string {
	s := c.Snapshot()
	if s.Weather == nil {
		return ""
	}
	return s.Weather.Location
}

func (c *Controller) dispatch(ev Event) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ev)
}

// apply must be called with c.mu held
func (c *Controller) apply(ev Event) State {
	next := Reduce(c.state, ev)
	if next == c.state {
		return next
	}
	c.state = next
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
	return next
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, datasource.ErrNotFound):
		return "not_found"
	case errors.Is(err, datasource.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, datasource.ErrNetwork):
		return "network"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "unknown"
}
