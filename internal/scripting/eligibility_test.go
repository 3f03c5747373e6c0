package scripting

import (
	"context"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCombatant(t *testing.T, hook combat.EligibilityHook) (*combat.Engine, *combat.Combatant) {
	t.Helper()
	f, err := actor.NewFighterFromSpec(&actor.FighterSpec{
		ID:        "knight",
		MaxHP:     30,
		HP:        12,
		AC:        15,
		Stamina:   8,
		Inventory: []string{"shield"},
	})
	require.NoError(t, err)
	e := combat.New(combat.DefaultSettings(), actor.NewChecker(1), combat.WithEligibilityHook(hook))
	c, err := e.Register(f.CombatSpec())
	require.NoError(t, err)
	return e, c
}

func TestLuaHook_Eligible(t *testing.T) {
	hook := NewLuaHook(nil)
	_, c := newCombatant(t, hook)

	tests := []struct {
		name    string
		script  string
		want    bool
		wantErr bool
	}{
		{name: "empty allows", script: "  ", want: true},
		{name: "stamina threshold", script: "return combatant.stamina >= 5", want: true},
		{name: "hp from body", script: "return combatant.hp > 20", want: false},
		{name: "item query", script: `return has_item("shield") and not has_item("bow")`, want: true},
		{name: "mode name", script: `return combatant.mode == "standard_melee"`, want: true},
		{name: "not in a session", script: "return combatant.in_session", want: false},
		{name: "syntax error", script: "return >", wantErr: true},
		{name: "runtime error", script: "return nothing.here", wantErr: true},
		{name: "non boolean", script: "return 1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hook.Eligible(context.Background(), tt.script, c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLuaHook_CancelledContext(t *testing.T) {
	hook := NewLuaHook(nil)
	_, c := newCombatant(t, hook)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hook.Eligible(ctx, "return true", c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLuaHook_GatesTemplates(t *testing.T) {
	e, _ := newCombatant(t, NewLuaHook(nil))
	ctx := context.Background()

	tmpl := strategy.Template{
		Name:        "shield wall",
		Mode:        strategy.ModeFullDefense,
		Policy:      strategy.DefaultPolicy(),
		Eligibility: `return has_item("tower shield")`,
	}
	assert.ErrorIs(t, e.ApplyTemplate(ctx, "knight", tmpl), combat.ErrNotEligible)

	tmpl.Eligibility = `return has_item("shield")`
	require.NoError(t, e.ApplyTemplate(ctx, "knight", tmpl))
	c, _ := e.Combatant("knight")
	assert.Equal(t, strategy.ModeFullDefense, c.Mode())

	tmpl.Eligibility = "error('boom')"
	assert.NoError(t, e.ApplyTemplate(ctx, "knight", tmpl), "a failing script allows")
}
