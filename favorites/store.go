package favorites

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"weather-dashboard/storage"
)

// StorageKey is the key the favorites list is persisted under
const StorageKey = "weatherFavorites"

// Store keeps the ordered, duplicate-free list of favorite city names.
// Membership is exact string match; order is insertion order.
type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	cities []string
	logger *slog.Logger
}

// NewStore creates a favorites store over kv. Call Load once at startup.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:     kv,
		cities: []string{},
		logger: logger.With("component", "favorites"),
	}
}

// Load reads the persisted list. Absent, unreadable or malformed values
// yield an empty list; they are logged and never returned as errors.
func (s *Store) Load() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cities = []string{}

	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		s.logger.Warn("failed to read favorites, starting empty", "error", err)
		return s.snapshot()
	}
	if !ok {
		return s.snapshot()
	}

	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("malformed favorites value, starting empty", "error", err)
		return s.snapshot()
	}

	// a hand-edited value may carry duplicates; keep first occurrences
	for _, city := range stored {
		if !s.contains(city) {
			s.cities = append(s.cities, city)
		}
	}
	return s.snapshot()
}

// Add appends city unless it is already present and persists the list.
// On a persistence error the in-memory list keeps the mutation.
func (s *Store) Add(city string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contains(city) {
		return s.snapshot(), nil
	}
	s.cities = append(s.cities, city)
	return s.snapshot(), s.save()
}

// Remove deletes every entry equal to city and persists the list.
// Removing an absent city is a no-op.
func (s *Store) Remove(city string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.contains(city) {
		return s.snapshot(), nil
	}

	kept := make([]string, 0, len(s.cities))
	for _, c := range s.cities {
		if c != city {
			kept = append(kept, c)
		}
	}
	s.cities = kept
	return s.snapshot(), s.save()
}

// Toggle removes city when present, otherwise adds it
func (s *Store) Toggle(city string) (added bool, cities []string, err error) {
	if s.Contains(city) {
		cities, err = s.Remove(city)
		return false, cities, err
	}
	cities, err = s.Add(city)
	return true, cities, err
}

// Contains reports exact-match membership
func (s *Store) Contains(city string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contains(city)
}

// List returns a copy of the favorites in insertion order
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) contains(city string) bool {
	for _, c := range s.cities {
		if c == city {
			return true
		}
	}
	return false
}

func (s *Store) snapshot() []string {
	out := make([]string, len(s.cities))
	copy(out, s.cities)
	return out
}

func (s *Store) save() error {
	raw, err := json.Marshal(s.cities)
	if err != nil {
		return fmt.Errorf("%w: encode favorites: %w", storage.ErrStorageFailure, err)
	}
	if err := s.kv.Set(StorageKey, string(raw)); err != nil {
		s.logger.Warn("failed to persist favorites", "count", len(s.cities), "error", err)
		return fmt.Errorf("failed to persist favorites: %w", err)
	}
	return nil
}
