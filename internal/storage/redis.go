package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/redis/go-redis/v9"
)

const templateNamesKey = "template-names" // hash: folded name -> template id

func templateKey(id uuid.UUID) string {
	return "template:" + id.String()
}

// RedisStorage implements the Storage interface using Redis for strategy
// templates and the filesystem for fighter specs
type RedisStorage struct {
	*FighterDir
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisStorageWithClient(redis.NewClient(opt), dataDir, logger), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, dataDir string, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		FighterDir: NewFighterDir(dataDir),
		client:     client,
		logger:     logger,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Template operations

func (r *RedisStorage) CreateTemplate(ctx context.Context, t *strategy.Template) error {
	if t == nil {
		return errors.New("template cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	claimed, err := r.client.HSetNX(ctx, templateNamesKey, FoldName(t.Name), t.ID.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to claim template name: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: %q", storage.ErrDuplicateName, t.Name)
	}

	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := r.put(ctx, t); err != nil {
		r.client.HDel(ctx, templateNamesKey, FoldName(t.Name))
		return err
	}
	r.logger.Debug("Template created", "template_id", t.ID, "name", t.Name)
	return nil
}

func (r *RedisStorage) put(ctx context.Context, t *strategy.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	if err := r.client.Set(ctx, templateKey(t.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save template", "template_id", t.ID, "error", err)
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetTemplate(ctx context.Context, id uuid.UUID) (*strategy.Template, error) {
	data, err := r.client.Get(ctx, templateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: template %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	var t strategy.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template: %w", err)
	}
	return &t, nil
}

func (r *RedisStorage) GetTemplateByName(ctx context.Context, name string) (*strategy.Template, error) {
	raw, err := r.client.HGet(ctx, templateNamesKey, FoldName(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: template %q", storage.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to look up template name: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt template name index for %q: %w", name, err)
	}
	return r.GetTemplate(ctx, id)
}

func (r *RedisStorage) UpdateTemplate(ctx context.Context, t *strategy.Template) error {
	if t == nil {
		return errors.New("template cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	old, err := r.GetTemplate(ctx, t.ID)
	if err != nil {
		return err
	}

	oldKey, newKey := FoldName(old.Name), FoldName(t.Name)
	if oldKey != newKey {
		claimed, err := r.client.HSetNX(ctx, templateNamesKey, newKey, t.ID.String()).Result()
		if err != nil {
			return fmt.Errorf("failed to claim template name: %w", err)
		}
		if !claimed {
			return fmt.Errorf("%w: %q", storage.ErrDuplicateName, t.Name)
		}
		r.client.HDel(ctx, templateNamesKey, oldKey)
	}

	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now()
	return r.put(ctx, t)
}

func (r *RedisStorage) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	t, err := r.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, templateKey(id))
		pipe.HDel(ctx, templateNamesKey, FoldName(t.Name))
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete template", "template_id", id, "error", err)
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// ListTemplates returns every template sorted by name.
func (r *RedisStorage) ListTemplates(ctx context.Context) ([]*strategy.Template, error) {
	ids, err := r.client.HVals(ctx, templateNamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list template names: %w", err)
	}
	if len(ids) == 0 {
		return []*strategy.Template{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Skipping corrupt template index entry", "value", raw)
			continue
		}
		keys = append(keys, templateKey(id))
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	out := make([]*strategy.Template, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			r.logger.Warn("Template indexed but missing", "key", keys[i])
			continue
		}
		var t strategy.Template
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			r.logger.Warn("Failed to unmarshal template", "key", keys[i], "error", err)
			continue
		}
		out = append(out, &t)
	}
	slices.SortFunc(out, func(a, b *strategy.Template) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Client exposes the underlying Redis client for the queue, broadcaster and
// worker lock, which share the connection.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}
