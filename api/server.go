package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"weather-dashboard/collector"
	"weather-dashboard/dashboard"
	"weather-dashboard/settings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the API server
type Server struct {
	ctrl        *dashboard.Controller
	settings    *settings.Store
	collector   *collector.Collector
	hub         *Hub
	unsubscribe func()
	server      *http.Server
	now         func() time.Time
	logger      *slog.Logger
}

// NewServer creates a new API server listening on addr and starts pushing state changes
// to WebSocket clients
func NewServer(ctrl *dashboard.Controller, prefs *settings.Store, coll *collector.Collector, addr string, logger *slog.Logger) *Server {
	return newServer(ctrl, prefs, coll, addr, time.Now, logger)
}

func newServer(ctrl *dashboard.Controller, prefs *settings.Store, coll *collector.Collector, addr string, now func() time.Time, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	s := &Server{
		ctrl:      ctrl,
		settings:  prefs,
		collector: coll,
		now:       now,
		logger:    logger,
	}
	s.hub = NewHub(func() any { return s.stateView(ctrl.Snapshot()) }, logger)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	updates, unsubscribe := ctrl.Subscribe()
	s.unsubscribe = unsubscribe
	go s.hub.Run(updates, func(state dashboard.State) any { return s.stateView(state) })

	return s
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)

	// the WebSocket route stays outside the request timeout
	router.Get("/api/ws", s.hub.ServeHTTP)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/api/health", s.handleHealthCheck)
		r.Get("/api/state", s.handleGetState)
		r.Post("/api/search", s.handleSearch)
		r.Put("/api/view", s.handleSetView)
		r.Put("/api/query", s.handleSetQuery)

		r.Get("/api/forecast/daily", s.handleDailyForecast)
		r.Get("/api/forecast/hourly", s.handleHourlyForecast)
		r.Get("/api/theme", s.handleTheme)

		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", s.handleListFavorites)
			r.Post("/", s.handleAddFavorite)
			r.Post("/toggle", s.handleToggleFavorite)
			r.Get("/weather", s.handleFavoritesWeather)
			r.Delete("/{city}", s.handleRemoveFavorite)
			r.Post("/{city}/select", s.handleSelectFavorite)
		})

		r.Get("/api/map/cities", s.handleMapCities)

		r.Get("/api/settings", s.handleGetSettings)
		r.Put("/api/settings", s.handleSaveSettings)
		r.Delete("/api/settings", s.handleResetSettings)
	})

	return router
}

// Start begins the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the server and disconnects WebSocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.server.Shutdown(ctx)
}

// Close stops the state push without touching the listener
func (s *Server) Close() {
	s.unsubscribe()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
