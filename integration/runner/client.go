package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/combat-engine/internal/worker"
	"github.com/jwebster45206/combat-engine/pkg/queue"
)

// PollInterval is how often to check the engine state for updates
const PollInterval = 250 * time.Millisecond

// PostRequest enqueues one request and returns its request_id
func PostRequest(ctx context.Context, client *http.Client, baseURL string, req *queue.IntentRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/requests", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("requests endpoint returned %d (expected 202): %s", resp.StatusCode, string(b))
	}

	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return out.RequestID, nil
}

// GetState fetches the latest engine snapshot
func GetState(ctx context.Context, client *http.Client, baseURL string) (*worker.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/state", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create state request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &worker.Snapshot{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("state endpoint returned %d: %s", resp.StatusCode, string(b))
	}
	var snap worker.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return &snap, nil
}

// WaitForTick polls until the published tick reaches at least tick
func WaitForTick(ctx context.Context, client *http.Client, baseURL string, tick uint64, timeout time.Duration) (*worker.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		snap, err := GetState(ctx, client, baseURL)
		if err == nil && snap.Tick >= tick {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return nil, fmt.Errorf("timed out waiting for tick %d: %w", tick, err)
			}
			return nil, fmt.Errorf("timed out waiting for tick %d (at %d)", tick, snap.Tick)
		case <-ticker.C:
		}
	}
}
