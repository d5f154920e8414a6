package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weather-dashboard/collector"
	"weather-dashboard/dashboard"
	"weather-dashboard/forecast"
	"weather-dashboard/models"
	"weather-dashboard/settings"
	"weather-dashboard/theme"

	"github.com/go-chi/chi/v5"
)

// stateResponse is the dashboard state plus everything derived from it
type stateResponse struct {
	dashboard.State
	Daily      []models.DailyForecastSummary `json:"daily"`
	Theme      theme.Theme                   `json:"theme"`
	DarkMode   bool                          `json:"darkMode"`
	IsFavorite bool                          `json:"isFavorite"`
	Display    *displayValues                `json:"display,omitempty"`
}

// displayValues are the current conditions in the user's chosen units
type displayValues struct {
	TemperatureUnit string  `json:"temperatureUnit"`
	WindSpeedUnit   string  `json:"windSpeedUnit"`
	PressureUnit    string  `json:"pressureUnit"`
	Temperature     float64 `json:"temperature"`
	FeelsLike       float64 `json:"feelsLike"`
	WindSpeed       float64 `json:"windSpeed"`
	Pressure        float64 `json:"pressure"`
}

func newDisplayValues(w models.CurrentWeather, prefs settings.Settings) *displayValues {
	return &displayValues{
		TemperatureUnit: prefs.TemperatureUnit,
		WindSpeedUnit:   prefs.WindSpeedUnit,
		PressureUnit:    prefs.PressureUnit,
		Temperature:     prefs.Temperature(w.Temperature),
		FeelsLike:       prefs.Temperature(w.FeelsLike),
		WindSpeed:       prefs.WindSpeed(w.WindSpeed),
		Pressure:        prefs.Pressure(w.Pressure),
	}
}

// dailyDisplay is a daily summary's temperatures in the chosen unit
type dailyDisplay struct {
	Date    time.Time `json:"date"`
	MinTemp float64   `json:"minTemp"`
	MaxTemp float64   `json:"maxTemp"`
	AvgTemp float64   `json:"avgTemp"`
}

func (s *Server) stateView(state dashboard.State) stateResponse {
	now := s.now()
	prefs := s.settings.Current()
	resp := stateResponse{
		State: state,
		Daily: []models.DailyForecastSummary{},
		Theme: theme.Default,
	}

	hour := now.Hour()
	if state.Weather != nil {
		hour = now.In(state.Weather.Zone()).Hour()
		resp.Theme = theme.Derive(state.Weather.ConditionMain, hour)
		resp.Display = newDisplayValues(*state.Weather, prefs)
		for _, city := range s.ctrl.Favorites() {
			if city == state.Weather.Location {
				resp.IsFavorite = true
				break
			}
		}
	}
	if state.Forecast != nil {
		resp.Daily = forecast.DailySummaries(state.Forecast.Entries, now, state.Forecast.Zone())
	}
	resp.DarkMode = prefs.DarkMode(hour)

	return resp
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"clients":   s.hub.Clients(),
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateView(s.ctrl.Snapshot()))
}

type cityRequest struct {
	City string `json:"city"`
}

// handleSearch runs a query; a failed query is still a 200 carrying the
// error state
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.City) == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}

	// the query is shared by every client and outlives this request
	state := s.ctrl.Search(context.WithoutCancel(r.Context()), req.City)
	writeJSON(w, http.StatusOK, s.stateView(state))
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := dashboard.ParseView(req.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.stateView(s.ctrl.SetView(view)))
}

func (s *Server) handleSetQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.stateView(s.ctrl.SetQuery(req.Query)))
}

func (s *Server) handleDailyForecast(w http.ResponseWriter, r *http.Request) {
	state := s.ctrl.Snapshot()
	location := ""
	if state.Forecast != nil {
		location = state.Forecast.Location
	}

	days := s.ctrl.DailyForecast(s.now())
	prefs := s.settings.Current()
	display := make([]dailyDisplay, 0, len(days))
	for _, d := range days {
		display = append(display, dailyDisplay{
			Date:    d.Date,
			MinTemp: prefs.Temperature(d.MinTemp),
			MaxTemp: prefs.Temperature(d.MaxTemp),
			AvgTemp: prefs.Temperature(float64(d.AvgTemp)),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"location":        location,
		"days":            days,
		"count":           len(days),
		"temperatureUnit": prefs.TemperatureUnit,
		"display":         display,
	})
}

func (s *Server) handleHourlyForecast(w http.ResponseWriter, r *http.Request) {
	points := forecast.DefaultChartPoints
	if raw := r.URL.Query().Get("points"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "points must be a positive integer")
			return
		}
		points = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": s.ctrl.Hourly(points),
	})
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	view := s.stateView(s.ctrl.Snapshot())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"theme":    s.ctrl.Theme(now),
		"darkMode": view.DarkMode,
	})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	cities := s.ctrl.Favorites()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cities": cities,
		"count":  len(cities),
	})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req cityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	update, err := s.ctrl.AddFavorite(req.City)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	update, err := s.ctrl.RemoveFavorite(cityParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleSelectFavorite(w http.ResponseWriter, r *http.Request) {
	city := cityParam(r)
	if strings.TrimSpace(city) == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}

	state := s.ctrl.SelectFavorite(context.WithoutCancel(r.Context()), city)
	writeJSON(w, http.StatusOK, s.stateView(state))
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	update, err := s.ctrl.ToggleFavorite()
	if errors.Is(err, dashboard.ErrNothingLoaded) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleFavoritesWeather(w http.ResponseWriter, r *http.Request) {
	results := s.collector.Collect(r.Context(), collector.Named(s.ctrl.Favorites()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cities": results,
		"count":  len(results),
	})
}

func (s *Server) handleMapCities(w http.ResponseWriter, r *http.Request) {
	results := s.collector.Collect(r.Context(), collector.WorldCities)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cities": results,
		"count":  len(results),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings": s.settings.Current(),
	})
}

// handleSaveSettings merges the body over the current settings. cacheEnabled
// takes effect immediately; locationPermission only matters for the startup
// position lookup, so a change applies on the next start.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	next := s.settings.Current()
	if err := decodeBody(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := map[string]interface{}{}
	if err := s.settings.Save(next); err != nil {
		if errors.Is(err, settings.ErrInvalidSetting) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp["warning"] = "Settings could not be saved and will be lost on restart"
	}
	resp["settings"] = s.settings.Current()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}
	current, err := s.settings.Reset()
	if err != nil {
		resp["warning"] = "Settings could not be reset in storage"
	}
	resp["settings"] = current
	writeJSON(w, http.StatusOK, resp)
}

// cityParam returns the decoded {city} path segment
func cityParam(r *http.Request) string {
	raw := chi.URLParam(r, "city")
	if city, err := url.PathUnescape(raw); err == nil {
		return city
	}
	return raw
}
