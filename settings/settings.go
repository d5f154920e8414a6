package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"weather-dashboard/storage"
	"weather-dashboard/theme"
)

// StorageKey is the key the settings object is persisted under
const StorageKey = "weatherAppSettings"

// ErrInvalidSetting is returned when a field holds a value outside its enum
var ErrInvalidSetting = errors.New("invalid setting")

// Settings holds the user preferences shown in the settings panel
type Settings struct {
	Theme              string `json:"theme"`           // auto, light, dark
	TemperatureUnit    string `json:"temperatureUnit"` // celsius, fahrenheit
	WindSpeedUnit      string `json:"windSpeedUnit"`   // kmh, ms, mph
	PressureUnit       string `json:"pressureUnit"`    // hpa, mmhg, inhg
	Language           string `json:"language"`        // es, en, pt
	DateFormat         string `json:"dateFormat"`      // ddmmyyyy, mmddyyyy
	TimeFormat         string `json:"timeFormat"`      // 12h, 24h
	LocationPermission bool   `json:"locationPermission"`
	CacheEnabled       bool   `json:"cacheEnabled"`
	AnimationsEnabled  bool   `json:"animationsEnabled"`
}

// Defaults returns the settings used when nothing valid is persisted
func Defaults() Settings {
	return Settings{
		Theme:              "auto",
		TemperatureUnit:    "celsius",
		WindSpeedUnit:      "kmh",
		PressureUnit:       "hpa",
		Language:           "es",
		DateFormat:         "ddmmyyyy",
		TimeFormat:         "24h",
		LocationPermission: true,
		CacheEnabled:       true,
		AnimationsEnabled:  true,
	}
}

var allowed = map[string][]string{
	"theme":           {"auto", "light", "dark"},
	"temperatureUnit": {"celsius", "fahrenheit"},
	"windSpeedUnit":   {"kmh", "ms", "mph"},
	"pressureUnit":    {"hpa", "mmhg", "inhg"},
	"language":        {"es", "en", "pt"},
	"dateFormat":      {"ddmmyyyy", "mmddyyyy"},
	"timeFormat":      {"12h", "24h"},
}

// Validate checks every enum field
func (s Settings) Validate() error {
	fields := map[string]string{
		"theme":           s.Theme,
		"temperatureUnit": s.TemperatureUnit,
		"windSpeedUnit":   s.WindSpeedUnit,
		"pressureUnit":    s.PressureUnit,
		"language":        s.Language,
		"dateFormat":      s.DateFormat,
		"timeFormat":      s.TimeFormat,
	}
	for field, value := range fields {
		if !oneOf(value, allowed[field]) {
			return fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidSetting, field, allowed[field], value)
		}
	}
	return nil
}

// DarkMode resolves the theme preference; "auto" follows the night window
func (s Settings) DarkMode(hour int) bool {
	switch s.Theme {
	case "dark":
		return true
	case "light":
		return false
	default:
		return theme.IsNight(hour)
	}
}

// Temperature converts a Celsius value into the preferred unit
func (s Settings) Temperature(celsius float64) float64 {
	if s.TemperatureUnit == "fahrenheit" {
		return round1(celsius*9/5 + 32)
	}
	return round1(celsius)
}

// WindSpeed converts a m/s value into the preferred unit
func (s Settings) WindSpeed(ms float64) float64 {
	switch s.WindSpeedUnit {
	case "ms":
		return round1(ms)
	case "mph":
		return round1(ms * 2.236936)
	default:
		return round1(ms * 3.6)
	}
}

// Pressure converts a hPa value into the preferred unit
func (s Settings) Pressure(hpa float64) float64 {
	switch s.PressureUnit {
	case "mmhg":
		return round1(hpa * 0.750062)
	case "inhg":
		return math.Round(hpa*0.02953*100) / 100
	default:
		return round1(hpa)
	}
}

// Store persists Settings through the KV port
type Store struct {
	mu      sync.RWMutex
	kv      storage.KV
	current Settings
	hooks   []func(Settings)
	logger  *slog.Logger
}

// NewStore creates a settings store holding the defaults until Load is called
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:      kv,
		current: Defaults(),
		logger:  logger.With("component", "settings"),
	}
}

// Load reads the persisted settings. Missing fields keep their defaults;
// absent, malformed or invalid values degrade to Defaults().
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Defaults()

	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.logger.Warn("failed to read settings, using defaults", "error", err)
		return s.current
	}
	if !ok {
		return s.current
	}

	loaded := Defaults()
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		s.logger.Warn("malformed settings value, using defaults", "error", err)
		return s.current
	}
	if err := loaded.Validate(); err != nil {
		s.logger.Warn("invalid persisted settings, using defaults", "error", err)
		return s.current
	}

	s.current = loaded
	return s.current
}

// OnChange registers fn to run after Save or Reset changes the settings
// in effect, including when persisting them failed.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Store) notify(current Settings) {
	s.mu.RLock()
	hooks := append(([]func(Settings))(nil), s.hooks...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(current)
	}
}

// Current returns the settings in effect
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates and persists settings. A persistence failure keeps
// the new settings in memory and returns the error.
func (s *Store) Save(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	defer s.notify(next)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = next
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: encode settings: %w", storage.ErrStorageFailure, err)
	}
	if err := s.kv.Set(StorageKey, string(raw)); err != nil {
		s.logger.Warn("failed to persist settings", "error", err)
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// Reset drops the persisted settings and returns to Defaults()
func (s *Store) Reset() (Settings, error) {
	defer s.notify(Defaults())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Defaults()
	if err := s.kv.Delete(StorageKey); err != nil {
		s.logger.Warn("failed to delete settings", "error", err)
		return s.current, fmt.Errorf("failed to reset settings: %w", err)
	}
	return s.current, nil
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
