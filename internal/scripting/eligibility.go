// Package scripting runs template eligibility scripts written in Lua.
//
// A script sees a global table `combatant` and must return a boolean:
//
//	return combatant.stamina >= 5 and not combatant.prone
//
// The table carries id, name, side, mode, stamina, max_stamina, aim, burden,
// conscious, helpless, prone, in_session, and hp when the body reports it.
// has_item(name) and has_move(name) query the combatant's equipment.
package scripting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/move"
)

// LuaHook evaluates eligibility scripts in a fresh Lua state per call.
type LuaHook struct {
	logger *slog.Logger
}

var _ combat.EligibilityHook = (*LuaHook)(nil)

func NewLuaHook(logger *slog.Logger) *LuaHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LuaHook{logger: logger}
}

// Eligible runs script for c. An empty script allows.
func (h *LuaHook) Eligible(ctx context.Context, script string, c *combat.Combatant) (bool, error) {
	if strings.TrimSpace(script) == "" {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	state := lua.NewState()
	lua.OpenLibraries(state)
	pushCombatant(state, c)
	state.SetGlobal("combatant")
	registerQueries(state, c)

	if err := lua.LoadString(state, script); err != nil {
		return false, fmt.Errorf("load eligibility script: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return false, fmt.Errorf("run eligibility script: %w", err)
	}
	defer state.Pop(1)
	if state.TypeOf(-1) != lua.TypeBoolean {
		return false, fmt.Errorf("eligibility script must return a boolean, got %s", lua.TypeNameOf(state, -1))
	}
	ok := state.ToBoolean(-1)
	h.logger.Debug("eligibility evaluated", "combatant", c.ID(), "eligible", ok)
	return ok, nil
}

type hpReporter interface {
	HP() int
}

func pushCombatant(state *lua.State, c *combat.Combatant) {
	body := c.Body()
	state.NewTable()
	setString(state, "id", c.ID())
	setString(state, "name", c.Name())
	setString(state, "side", c.Side())
	setString(state, "mode", c.Mode().String())
	setNumber(state, "stamina", c.Ledger().Stamina())
	setNumber(state, "max_stamina", c.Ledger().MaxStamina())
	setNumber(state, "aim", c.Ledger().Aim())
	setNumber(state, "burden", float64(c.Ledger().Burden()))
	setBool(state, "conscious", body.Conscious())
	setBool(state, "helpless", body.Helpless())
	setBool(state, "prone", body.Prone())
	setBool(state, "in_session", c.Session() != nil)
	if hp, ok := body.(hpReporter); ok {
		setNumber(state, "hp", float64(hp.HP()))
	}
}

func registerQueries(state *lua.State, c *combat.Combatant) {
	state.Register("has_item", func(l *lua.State) int {
		l.PushBoolean(c.Body().HasItem(lua.CheckString(l, 1)))
		return 1
	})
	state.Register("has_move", func(l *lua.State) int {
		_, ok := move.Find(c.Body().Moves(), lua.CheckString(l, 1))
		l.PushBoolean(ok)
		return 1
	})
}

func setString(state *lua.State, key, v string) {
	state.PushString(v)
	state.SetField(-2, key)
}

func setNumber(state *lua.State, key string, v float64) {
	state.PushNumber(v)
	state.SetField(-2, key)
}

func setBool(state *lua.State, key string, v bool) {
	state.PushBoolean(v)
	state.SetField(-2, key)
}
