package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelFor(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/v1/events/sessions/abc", "combat-events:session:abc", true},
		{"/v1/events/combatants/ann/", "combat-events:combatant:ann", true},
		{"/v1/events/games/abc", "", false},
		{"/v1/events/sessions", "", false},
		{"/v2/events/sessions/abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := channelFor(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// readEvent returns the next "event:" name and its data line.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsHandler_Streams(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(NewEventsHandler(client, testLogger()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/sessions/s1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, r)
	require.Equal(t, "connected", name)

	b := events.NewBroadcaster(client, testLogger())
	b.Notify(ctx, combat.Event{Type: combat.EventGrappleFormed, SessionID: "s1", Actor: "ann", Target: "bob"})

	name, data := readEvent(t, r)
	assert.Equal(t, string(combat.EventGrappleFormed), name)
	assert.Contains(t, data, `"target":"bob"`)
}

func TestEventsHandler_BadPath(t *testing.T) {
	h := NewEventsHandler(nil, testLogger())
	w := do(t, h, http.MethodGet, "/v1/events/games/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, http.MethodPost, "/v1/events/sessions/x", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
