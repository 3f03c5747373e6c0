package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/services/events"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/move"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	worker *Worker
	engine *combat.Engine
	queue  *queue.IntentQueue
	store  *storage.MockStorage
	rec    *combat.Recorder
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func brawler(side string) *actor.FighterSpec {
	return &actor.FighterSpec{
		Name:    "Brawler",
		Side:    side,
		MaxHP:   30,
		AC:      12,
		Stamina: 10,
		Moves: []move.Move{
			{Name: "shove", Category: move.CategoryNatural, Weight: 1, Tags: move.NewTagSet(move.TagMelee, move.TagUnarmed)},
		},
	}
}

func newRig(t *testing.T) *rig {
	t.Helper()
	mr := miniredis.RunT(t)
	log := logger.Discard()

	client, err := queue.NewClient("redis://"+mr.Addr(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	rdb := client.GetRedisClient()

	store := storage.NewMockStorage()
	store.AddFighterSpec("red", brawler("red"))
	store.AddFighterSpec("blue", brawler("blue"))

	rec := &combat.Recorder{}
	engine := combat.New(combat.DefaultSettings(), actor.NewChecker(3), combat.WithSeed(3), combat.WithNotifier(rec))
	q := queue.NewIntentQueue(client)

	w := New(Options{
		ID:          "w1",
		Interval:    50 * time.Millisecond,
		Engine:      engine,
		Queue:       q,
		Store:       store,
		Broadcaster: events.NewBroadcaster(rdb, log),
		RedisClient: rdb,
		Log:         log,
	})
	return &rig{worker: w, engine: engine, queue: q, store: store, rec: rec, mr: mr, rdb: rdb}
}

func (r *rig) enqueue(t *testing.T, reqs ...*queuePkg.IntentRequest) {
	t.Helper()
	for _, req := range reqs {
		require.NoError(t, r.queue.Enqueue(context.Background(), req))
	}
}

func spawn(combatant, fighter string) *queuePkg.IntentRequest {
	return &queuePkg.IntentRequest{Type: queuePkg.RequestTypeSpawn, Combatant: combatant, FighterID: fighter}
}

func TestPulse_SpawnAndAttack(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	r.enqueue(t,
		spawn("ann", "red"),
		spawn("bob", "blue"),
		&queuePkg.IntentRequest{
			Type:      queuePkg.RequestTypeIntent,
			Combatant: "ann",
			Intent:    &combat.Intent{Kind: combat.IntentAttack, Target: "bob"},
		},
	)
	require.NoError(t, r.worker.Pulse(ctx))

	ann, ok := r.engine.Combatant("ann")
	require.True(t, ok)
	assert.Equal(t, "red", ann.Side())
	_, ok = r.engine.Combatant("bob")
	require.True(t, ok)
	assert.NotEmpty(t, r.rec.OfType(combat.EventSessionStarted))
	assert.Equal(t, uint64(1), r.engine.CurrentTick())

	raw, err := r.mr.Get(SnapshotKey)
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Len(t, snap.Combatants, 2)

	depth, err := r.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestPulse_FailedRequestsDoNotStopThePulse(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	ps := r.rdb.Subscribe(ctx, events.CombatantChannel("ghost"))
	_, err := ps.Receive(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	r.enqueue(t,
		spawn("ghost", "nobody"),
		spawn("ann", "red"),
	)
	require.NoError(t, r.worker.Pulse(ctx))

	_, ok := r.engine.Combatant("ghost")
	assert.False(t, ok)
	_, ok = r.engine.Combatant("ann")
	assert.True(t, ok)

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var types []string
	for len(types) < 2 {
		msg, err := ps.ReceiveMessage(recvCtx)
		require.NoError(t, err)
		var ev events.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{string(events.EventTypeRequestProcessing), string(events.EventTypeRequestFailed)}, types)
}

func TestPulse_ApplyTemplate(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	p := strategy.DefaultPolicy()
	require.NoError(t, r.store.CreateTemplate(ctx, &strategy.Template{
		Name:   "Turtle",
		Mode:   strategy.ModeFullDefense,
		Policy: p,
	}))

	r.enqueue(t,
		spawn("ann", "red"),
		&queuePkg.IntentRequest{Type: queuePkg.RequestTypeTemplate, Combatant: "ann", Template: "turtle"},
	)
	require.NoError(t, r.worker.Pulse(ctx))

	ann, ok := r.engine.Combatant("ann")
	require.True(t, ok)
	assert.Equal(t, strategy.ModeFullDefense, ann.Mode())
}

func TestPulse_Proposals(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	r.enqueue(t,
		spawn("ann", "red"),
		spawn("bob", "blue"),
		&queuePkg.IntentRequest{Type: queuePkg.RequestTypePropose, Combatant: "ann", To: "bob", Proposal: "spar"},
	)
	require.NoError(t, r.worker.Pulse(ctx))

	offers := r.engine.Proposals("bob")
	require.Len(t, offers, 1)

	r.enqueue(t, &queuePkg.IntentRequest{
		Type: queuePkg.RequestTypeAnswer, Combatant: "bob", ProposalID: offers[0].ID, Accept: true,
	})
	require.NoError(t, r.worker.Pulse(ctx))

	ann, _ := r.engine.Combatant("ann")
	require.NotNil(t, ann.Session())
	assert.True(t, ann.Session().Friendly())
	assert.Empty(t, r.engine.Proposals("bob"))
}

func TestPulse_LockHeldElsewhere(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	require.NoError(t, r.mr.Set(lockKey, "someone-else"))
	r.enqueue(t, spawn("ann", "red"))

	assert.ErrorIs(t, r.worker.Pulse(ctx), ErrNotLeader)
	depth, err := r.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "requests wait for the owning worker")

	r.mr.Del(lockKey)
	require.NoError(t, r.worker.Pulse(ctx))
	owner, err := r.mr.Get(lockKey)
	require.NoError(t, err)
	assert.Equal(t, "w1", owner)

	// a second pulse refreshes rather than fails
	require.NoError(t, r.worker.Pulse(ctx))
	r.worker.releaseLock()
	assert.False(t, r.mr.Exists(lockKey))
}
