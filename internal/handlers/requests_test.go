package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	reqs []*queue.IntentRequest
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, req *queue.IntentRequest) error {
	if q.err != nil {
		return q.err
	}
	req.RequestID = "req-1"
	q.reqs = append(q.reqs, req)
	return nil
}

type fakePublisher struct{ queued []string }

func (p *fakePublisher) PublishRequestQueued(_ context.Context, combatant, requestID, _ string) error {
	p.queued = append(p.queued, combatant+"/"+requestID)
	return nil
}

func TestRequestHandler(t *testing.T) {
	q := &fakeQueue{}
	pub := &fakePublisher{}
	h := NewRequestHandler(q, pub, testLogger())

	w := do(t, h, http.MethodPost, "/v1/requests", map[string]any{
		"type": "intent", "combatant": "ann",
		"intent": map[string]any{"kind": "grapple", "target": "bob"},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp RequestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.RequestID)
	require.Len(t, q.reqs, 1)
	assert.Equal(t, "bob", q.reqs[0].Intent.Target)
	assert.Equal(t, []string{"ann/req-1"}, pub.queued)
}

func TestRequestHandler_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   any
		qerr   error
		want   int
	}{
		{"get", http.MethodGet, nil, nil, http.StatusMethodNotAllowed},
		{"unknown intent", http.MethodPost, map[string]any{"type": "intent", "combatant": "a", "intent": map[string]any{"kind": "dance"}}, nil, http.StatusBadRequest},
		{"missing combatant", http.MethodPost, map[string]any{"type": "leave"}, nil, http.StatusBadRequest},
		{"queue down", http.MethodPost, map[string]any{"type": "leave", "combatant": "a"}, errors.New("down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRequestHandler(&fakeQueue{err: tt.qerr}, nil, testLogger())
			w := do(t, h, tt.method, "/v1/requests", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestStateHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	h := NewStateHandler(client, "snap", testLogger())

	w := do(t, h, http.MethodGet, "/v1/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, mr.Set("snap", `{"tick":7}`))
	w = do(t, h, http.MethodGet, "/v1/state", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tick":7}`, w.Body.String())
}
