package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/internal/telemetry"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	lockKey = "combat-engine-lock"

	// requests handled per pulse; the rest wait for the next one
	maxRequestsPerPulse = 256
)

// ErrNotLeader is returned by Pulse when another worker holds the engine lock.
var ErrNotLeader = errors.New("another worker owns the engine")

var refreshScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker owns the combat engine. Each pulse it drains queued requests, applies
// them, advances the engine one tick and publishes a snapshot. Only the worker
// holding the Redis lock pulses, so the engine is never driven twice.
type Worker struct {
	id          string
	interval    time.Duration
	engine      *combat.Engine
	queue       *queue.IntentQueue
	store       storage.Storage
	broadcaster *events.Broadcaster
	metrics     *telemetry.Metrics
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// Options carries everything New needs.
type Options struct {
	ID          string
	Interval    time.Duration
	Engine      *combat.Engine
	Queue       *queue.IntentQueue
	Store       storage.Storage
	Broadcaster *events.Broadcaster // optional
	Metrics     *telemetry.Metrics  // optional
	RedisClient *redis.Client
	Log         *slog.Logger
}

// New creates a new worker instance
func New(opts Options) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	id := opts.ID
	if id == "" {
		id = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}

	return &Worker{
		id:          id,
		interval:    interval,
		engine:      opts.Engine,
		queue:       opts.Queue,
		store:       opts.Store,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		redisClient: opts.RedisClient,
		log:         opts.Log.With("worker_id", id),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (w *Worker) ID() string { return w.id }

// Start runs the pulse loop until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer w.releaseLock()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		case <-ticker.C:
			if err := w.Pulse(w.ctx); err != nil {
				if errors.Is(err, ErrNotLeader) {
					w.log.Debug("Skipping pulse, engine owned elsewhere")
					continue
				}
				if w.ctx.Err() != nil {
					return nil
				}
				w.log.Error("Error running pulse", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// Pulse runs one worker cycle.
func (w *Worker) Pulse(ctx context.Context) error {
	start := time.Now()

	leader, err := w.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire engine lock: %w", err)
	}
	if !leader {
		return ErrNotLeader
	}

	reqs, err := w.queue.Drain(ctx, maxRequestsPerPulse)
	if err != nil {
		return err
	}
	for _, req := range reqs {
		w.handle(ctx, req)
	}

	tick := w.engine.Tick(ctx)
	if err := w.publishSnapshot(ctx); err != nil {
		w.log.Error("Failed to publish snapshot", "error", err, "tick", tick)
	}

	if w.metrics != nil {
		w.metrics.RecordPulse(ctx, time.Since(start))
	}
	if len(reqs) > 0 {
		w.log.Debug("Pulse complete", "tick", tick, "requests", len(reqs), "duration", time.Since(start))
	}
	return nil
}

// handle applies one request. Failures are reported to the requester and
// never stop the pulse.
func (w *Worker) handle(ctx context.Context, req *queuePkg.IntentRequest) {
	log := logger.WithCombatant(logger.WithRequestID(w.log, req.RequestID), req.Combatant).With("type", req.Type)

	if w.broadcaster != nil {
		if err := w.broadcaster.PublishRequestProcessing(ctx, req.Combatant, req.RequestID, string(req.Type)); err != nil {
			log.Error("Failed to publish processing event", "error", err)
		}
	}

	result, err := w.apply(ctx, req)
	if w.metrics != nil {
		w.metrics.RecordRequest(ctx, string(req.Type), err != nil)
	}
	if err != nil {
		logger.WithError(log, err).Warn("Request failed")
		if w.broadcaster != nil {
			if perr := w.broadcaster.PublishRequestFailed(ctx, req.Combatant, req.RequestID, err.Error()); perr != nil {
				log.Error("Failed to publish failed event", "error", perr)
			}
		}
		return
	}

	if c, ok := w.engine.Combatant(req.Combatant); ok {
		log = logger.WithSession(log, c.SessionID())
	}
	log.Info("Request processed")
	if w.broadcaster != nil {
		if err := w.broadcaster.PublishRequestCompleted(ctx, req.Combatant, req.RequestID, result); err != nil {
			log.Error("Failed to publish completed event", "error", err)
		}
	}
}

func (w *Worker) apply(ctx context.Context, req *queuePkg.IntentRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	switch req.Type {
	case queuePkg.RequestTypeSpawn:
		return w.spawn(ctx, req)

	case queuePkg.RequestTypeIntent:
		disp, err := w.engine.Submit(ctx, req.Combatant, *req.Intent)
		if err != nil {
			return nil, err
		}
		return map[string]any{"disposition": disp.String()}, nil

	case queuePkg.RequestTypeCancel:
		return nil, w.engine.CancelPending(req.Combatant)

	case queuePkg.RequestTypePropose:
		kind, err := combat.ParseProposalKind(req.Proposal)
		if err != nil {
			return nil, err
		}
		p, err := w.engine.Propose(ctx, kind, req.Combatant, req.To)
		if err != nil {
			return nil, err
		}
		return map[string]any{"proposal_id": p.ID, "expires": p.Expires}, nil

	case queuePkg.RequestTypeAnswer:
		if req.Accept {
			return map[string]any{"accepted": true}, w.engine.Accept(ctx, req.ProposalID, req.Combatant)
		}
		return map[string]any{"accepted": false}, w.engine.Reject(ctx, req.ProposalID, req.Combatant)

	case queuePkg.RequestTypeTemplate:
		tmpl, err := w.store.GetTemplateByName(ctx, req.Template)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", req.Template, err)
		}
		if err := w.engine.ApplyTemplate(ctx, req.Combatant, *tmpl); err != nil {
			return nil, err
		}
		return map[string]any{"template_id": tmpl.ID.String(), "mode": tmpl.Mode.String()}, nil

	case queuePkg.RequestTypeLeave:
		return nil, w.engine.Leave(ctx, req.Combatant)
	}
	return nil, fmt.Errorf("unhandled request type %q", req.Type)
}

// spawn loads a fighter and registers it under the requested combatant ID.
func (w *Worker) spawn(ctx context.Context, req *queuePkg.IntentRequest) (map[string]any, error) {
	fighterID := req.FighterID
	if fighterID == "" {
		fighterID = req.Combatant
	}
	spec, err := w.store.GetFighterSpec(ctx, fighterID)
	if err != nil {
		return nil, fmt.Errorf("fighter %q: %w", fighterID, err)
	}
	spec.ID = req.Combatant

	f, err := actor.NewFighterFromSpec(spec)
	if err != nil {
		return nil, err
	}
	c, err := w.engine.Register(f.CombatSpec())
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": c.Name(), "side": c.Side(), "mode": c.Mode().String()}, nil
}

func (w *Worker) publishSnapshot(ctx context.Context) error {
	data, err := json.Marshal(BuildSnapshot(w.engine))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return w.redisClient.Set(ctx, SnapshotKey, data, 0).Err()
}

func (w *Worker) lockTTL() time.Duration {
	return 3 * w.interval
}

// acquireLock takes or refreshes the engine lock.
func (w *Worker) acquireLock(ctx context.Context) (bool, error) {
	ok, err := w.redisClient.SetNX(ctx, lockKey, w.id, w.lockTTL()).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	n, err := refreshScript.Run(ctx, w.redisClient, []string{lockKey}, w.id, w.lockTTL().Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// releaseLock releases the engine lock if this worker owns it
func (w *Worker) releaseLock() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, w.redisClient, []string{lockKey}, w.id).Err(); err != nil {
		w.log.Error("Failed to release engine lock", "error", err)
	}
}
