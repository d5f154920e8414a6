package tracing

import (
	"context"
	"testing"
)

func TestSetupWithoutCollector(t *testing.T) {
	shutdown, err := Setup(context.Background(), "weather-dashboard", "")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestSetupWithCollector(t *testing.T) {
	shutdown, err := Setup(context.Background(), "weather-dashboard", "http://127.0.0.1:9411/api/v2/spans")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
