package combat

import (
	"context"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCover_Fitness(t *testing.T) {
	crate := Cover{ID: "crate", Quality: 0.8, Capacity: 1.5}
	wall := Cover{ID: "wall", Quality: 0.9, Capacity: 3, Requires: "shield"}

	tests := []struct {
		name       string
		body       func(b *testBody)
		cover      Cover
		item       string
		wantScore  float64
		wantReason string
	}{
		{name: "fits", cover: crate, wantScore: 0.8},
		{name: "large body is partly exposed", body: func(b *testBody) { b.size = 2 }, cover: crate, wantScore: 0.6},
		{name: "helpless", body: func(b *testBody) { b.helpless = true }, cover: crate, wantReason: CoverHelpless},
		{name: "missing blocking item", cover: wall, wantReason: CoverMissingItem},
		{name: "blocking item carried", body: func(b *testBody) { b.items = []string{"shield"} }, cover: wall, item: "shield", wantScore: 0.9},
		{name: "item not carried", cover: crate, item: "tower shield", wantReason: CoverItemNotHeld},
		{name: "no protection", cover: Cover{ID: "bush", Capacity: 2}, wantReason: CoverNoProtection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, alwaysMiss)
			b := newBody("a")
			if tt.body != nil {
				tt.body(b)
			}
			c := register(t, e, b)

			score, reason := e.CoverFitness(c, tt.cover, tt.item)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestCover_CapacityAndReassignment(t *testing.T) {
	ctx := context.Background()
	e, rec := newTestEngine(t, alwaysMiss)
	for _, id := range []string{"a", "b", "c"} {
		register(t, e, newBody(id))
	}
	crate := Cover{ID: "crate", Quality: 0.8, Capacity: 1.5}
	wall := Cover{ID: "wall", Quality: 0.5, Capacity: 4}

	fit, err := e.TakeCover(ctx, "a", crate, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, fit, 1e-9)

	fit, err = e.TakeCover(ctx, "b", crate, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, fit, 1e-9)

	_, err = e.TakeCover(ctx, "c", crate, "")
	assert.ErrorIs(t, err, ErrIllegalStateTransition)
	assert.Contains(t, err.Error(), CoverFull)

	_, err = e.TakeCover(ctx, "a", wall, "")
	require.NoError(t, err)
	a, _ := e.Combatant("a")
	got, ok := a.Cover()
	require.True(t, ok)
	assert.Equal(t, "wall", got.Cover.ID)
	assert.Len(t, rec.OfType(EventCoverReleased), 1, "the crate is released first")

	fit, err = e.TakeCover(ctx, "c", crate, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.5*0.8, fit, 1e-9, "only b still shelters behind the crate")
}

func TestCover_UnusableKeepsOldAssignment(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, alwaysMiss)
	a := register(t, e, newBody("a"))
	crate := Cover{ID: "crate", Quality: 0.8, Capacity: 1}

	_, err := e.TakeCover(ctx, "a", crate, "")
	require.NoError(t, err)
	_, err = e.TakeCover(ctx, "a", Cover{ID: "wall", Quality: 1, Capacity: 1, Requires: "shield"}, "")
	require.ErrorIs(t, err, ErrIllegalStateTransition)

	got, ok := a.Cover()
	require.True(t, ok)
	assert.Equal(t, "crate", got.Cover.ID)
}

func TestCover_GrappledCannotTakeCover(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, alwaysMiss)
	register(t, e, newBody("a"))
	b := register(t, e, newBody("b"))
	engage(t, e, "a", "b", false)
	_, err := e.Grapple(ctx, "a", "b")
	require.NoError(t, err)

	score, reason := e.CoverFitness(b, Cover{ID: "crate", Quality: 1, Capacity: 2}, "")
	assert.Zero(t, score)
	assert.Equal(t, CoverGrappled, reason)
}

func TestCover_RaisesRangedDifficulty(t *testing.T) {
	ctx := context.Background()
	var difficulty float64
	checker := CheckerFunc(func(_, _ *Combatant, _ move.Move, d float64) Outcome {
		difficulty = d
		return Outcome{}
	})
	e, _ := newTestEngine(t, checker)
	p := strategy.DefaultPolicy()
	p.AutoFire = false
	register(t, e, newBody("archer", bow()), withPolicy(p))
	register(t, e, newBody("dummy"))
	_, err := e.TakeCover(ctx, "dummy", Cover{ID: "crate", Quality: 0.5, Capacity: 1}, "")
	require.NoError(t, err)

	require.NoError(t, e.Aim(ctx, "archer", "dummy", nil))
	for i := 0; i < 5; i++ {
		e.Tick(ctx)
	}
	_, err = e.Fire(ctx, "archer")
	require.NoError(t, err)
	assert.InDelta(t, 0.5*e.Settings().CoverBonusScale, difficulty, 1e-9)
}

func TestInterpose_SizeWeighted(t *testing.T) {
	ctx := context.Background()
	e, rec := newTestEngine(t, alwaysMiss)
	shooter := register(t, e, newBody("shooter"), withSide("red"))
	target := register(t, e, newBody("target"), withSide("blue"))
	guard := register(t, e, newBody("guard"), withSide("blue"))
	s := engage(t, e, "shooter", "target", false)
	require.NoError(t, e.Join(ctx, s.ID(), "guard"))
	require.NoError(t, e.Guard(ctx, "guard", "target"))
	assert.Same(t, target, guard.Guarding())

	const trials = 10000
	hits := 0
	for i := 0; i < trials; i++ {
		if e.interpose(ctx, shooter, target) == guard {
			hits++
		}
	}
	assert.InDelta(t, 0.5, float64(hits)/trials, 0.03)
	assert.Len(t, rec.OfType(EventInterposed), hits)

	guard.body.(*testBody).size = 3
	hits = 0
	for i := 0; i < trials; i++ {
		if e.interpose(ctx, shooter, target) == guard {
			hits++
		}
	}
	assert.InDelta(t, 0.75, float64(hits)/trials, 0.03)

	require.NoError(t, e.Guard(ctx, "guard", ""))
	assert.Same(t, target, e.interpose(ctx, shooter, target))
}

func TestRescue(t *testing.T) {
	setup := func(t *testing.T, checker Checker) (*Engine, *Recorder, *Grapple) {
		ctx := context.Background()
		e, rec := newTestEngine(t, checker)
		register(t, e, newBody("brute"), withSide("red"))
		register(t, e, newBody("victim"), withSide("blue"))
		register(t, e, newBody("hero"), withSide("blue"))
		s := engage(t, e, "brute", "victim", false)
		require.NoError(t, e.Join(ctx, s.ID(), "hero"))
		g, err := e.Grapple(ctx, "brute", "victim")
		require.NoError(t, err)
		return e, rec, g
	}

	t.Run("success draws the attacker and breaks the hold", func(t *testing.T) {
		e, rec, g := setup(t, alwaysHit)
		res, err := e.Rescue(context.Background(), "hero", "victim")
		require.NoError(t, err)
		assert.Equal(t, []string{"brute"}, res.Redirected)
		brute, _ := e.Combatant("brute")
		assert.Equal(t, "hero", brute.TargetID())
		assert.False(t, g.Active())
		released := rec.OfType(EventGrappleReleased)
		require.Len(t, released, 1)
		assert.Equal(t, "rescue", released[0].Detail["cause"])
	})

	t.Run("failure leaves everything", func(t *testing.T) {
		e, _, g := setup(t, alwaysMiss)
		res, err := e.Rescue(context.Background(), "hero", "victim")
		require.NoError(t, err)
		assert.Equal(t, []string{"brute"}, res.Resisted)
		assert.True(t, g.Active())
	})

	t.Run("nobody to rescue from", func(t *testing.T) {
		e, _, _ := setup(t, alwaysHit)
		_, err := e.Rescue(context.Background(), "victim", "hero")
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}
