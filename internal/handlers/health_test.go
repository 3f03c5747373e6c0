package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/storage"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	broken := pingFunc(func(context.Context) error { return errors.New("connection failed") })

	tests := []struct {
		name           string
		components     map[string]Pinger
		expectedStatus int
		expectedHealth string
		expectedQueue  string
	}{
		{
			name:           "all healthy",
			components:     map[string]Pinger{"storage": storage.NewMockStorage(), "queue": healthy},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedQueue:  "healthy",
		},
		{
			name:           "unhealthy queue",
			components:     map[string]Pinger{"storage": storage.NewMockStorage(), "queue": broken},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedQueue:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.components, testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var response HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("Expected health status %s, got %s", tt.expectedHealth, response.Status)
			}
			if response.Components["queue"] != tt.expectedQueue {
				t.Errorf("Expected queue status %s, got %s", tt.expectedQueue, response.Components["queue"])
			}
			if response.Components["storage"] != "healthy" {
				t.Errorf("Expected storage to be healthy, got %s", response.Components["storage"])
			}
			if response.Service != "combat-engine" {
				t.Errorf("Expected service name combat-engine, got %s", response.Service)
			}
		})
	}
}
