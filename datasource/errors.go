package datasource

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when the provider cannot resolve the queried location
	ErrNotFound = errors.New("location not found")

	// ErrRateLimited is returned when the provider or the local limiter refuses a request
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetwork is returned on transport, DNS or timeout failures
	ErrNetwork = errors.New("network failure")
)

// APIError represents a non-2xx response from the weather provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Is maps provider status codes onto the error taxonomy
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// NetworkError represents a network-related error
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
