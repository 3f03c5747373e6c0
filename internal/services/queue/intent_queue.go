package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
)

const requestsKey = "combat-requests"

// IntentQueue is the global FIFO of requests consumed by the pulse worker.
type IntentQueue struct {
	client *Client
}

func NewIntentQueue(client *Client) *IntentQueue {
	return &IntentQueue{client: client}
}

// Enqueue validates req, stamps its ID and time when missing, and appends it.
func (q *IntentQueue) Enqueue(ctx context.Context, req *queue.IntentRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.EnqueuedAt.IsZero() {
		req.EnqueuedAt = time.Now().UTC()
	}
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// Drain removes and returns up to limit queued requests in FIFO order. A limit of
// zero or less drains everything. Unparseable entries are logged and dropped.
func (q *IntentQueue) Drain(ctx context.Context, limit int) ([]*queue.IntentRequest, error) {
	count := limit
	if count <= 0 {
		n, err := q.Depth(ctx)
		if err != nil {
			return nil, err
		}
		count = n
	}
	if count == 0 {
		return nil, nil
	}

	raw, err := q.client.rdb.LPopCount(ctx, requestsKey, count).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue requests: %w", err)
	}

	out := make([]*queue.IntentRequest, 0, len(raw))
	for _, item := range raw {
		req, err := queue.FromJSON([]byte(item))
		if err != nil {
			q.client.logger.Warn("Dropping unparseable request", "error", err)
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// BlockingDequeue waits up to timeout for one request. It returns nil, nil on
// timeout.
func (q *IntentQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.IntentRequest, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Depth returns the number of queued requests
func (q *IntentQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, requestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}

// Clear drops every queued request
func (q *IntentQueue) Clear(ctx context.Context) error {
	if err := q.client.rdb.Del(ctx, requestsKey).Err(); err != nil {
		return fmt.Errorf("failed to clear request queue: %w", err)
	}
	return nil
}
