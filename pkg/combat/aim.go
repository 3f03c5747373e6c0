package combat

import (
	"context"
	"fmt"
	"slices"

	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// AimState is a ranged attack being lined up. An empty Target means the sky.
type AimState struct {
	Weapon  move.Move
	Target  string
	Path    []string
	Started uint64
	Renewed uint64
}

// FireResult describes one released shot.
type FireResult struct {
	Target     string  `json:"target,omitempty"`
	Aim        float64 `json:"aim"`
	Penalty    float64 `json:"penalty"`
	Interposed bool    `json:"interposed,omitempty"`
	Outcome    Outcome `json:"outcome"`
}

// aimingMove returns the first usable move with an aim profile.
func (c *Combatant) aimingMove(sit move.Situation) (move.Move, bool) {
	for _, m := range c.body.Moves() {
		if m.Aim == nil || !m.Has(move.TagRanged) {
			continue
		}
		if m.Hands > sit.FreeHands {
			continue
		}
		return m, true
	}
	return move.Move{}, false
}

// Aim starts or renews aiming at targetID along path. An empty targetID aims
// at the sky. Re-aiming the target and weapon of the last shot keeps the
// remaining aim fraction; anything else starts from zero.
func (e *Engine) Aim(ctx context.Context, id, targetID string, path []string) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	if !c.able() {
		return fmt.Errorf("%w: %s cannot aim", ErrIllegalStateTransition, id)
	}
	var t *Combatant
	if targetID != "" {
		if t, err = e.get(targetID); err != nil {
			return err
		}
		if t == c || !t.body.Alive() {
			return fmt.Errorf("%w: cannot aim at %s", ErrInvalidTarget, targetID)
		}
	}
	weapon, ok := c.aimingMove(move.Situation{FreeHands: c.freeHands()})
	if !ok {
		return fmt.Errorf("%w: %s has nothing to aim", ErrIllegalStateTransition, id)
	}

	if t != nil && c.target != t {
		e.retarget(ctx, c, t)
	}
	key := aimKey{weapon: weapon.Name, target: targetID}
	if cur := c.effects.aim; cur != nil && cur.Weapon.Name == weapon.Name && cur.Target == targetID {
		cur.Renewed = e.tick
		cur.Path = slices.Clone(path)
		return nil
	}
	if c.effects.aimMemory == nil || *c.effects.aimMemory != key {
		c.ledger.ResetAim()
	}
	c.effects.aim = &AimState{Weapon: weapon, Target: targetID, Path: slices.Clone(path), Started: e.tick, Renewed: e.tick}
	c.effects.aimMemory = &key
	if c.mode != strategy.ModeAiming {
		e.setMode(ctx, c, strategy.ModeAiming)
	}
	e.emit(ctx, c.session, Event{Type: EventAimStarted, Actor: c.ID(), Target: targetID, Move: weapon.Name, Detail: map[string]any{"aim": c.ledger.Aim()}})
	return nil
}

// Fire releases the aimed shot. Firing below the weapon's required minimum is
// allowed with a penalty proportional to the shortfall. Firing lowers the aim
// fraction by the weapon's decrement.
func (e *Engine) Fire(ctx context.Context, id string) (FireResult, error) {
	c, err := e.get(id)
	if err != nil {
		return FireResult{}, err
	}
	return e.fire(ctx, c)
}

func (e *Engine) fire(ctx context.Context, c *Combatant) (FireResult, error) {
	st := c.effects.aim
	if st == nil {
		return FireResult{}, fmt.Errorf("%w: %s has nothing aimed", ErrIllegalStateTransition, c.ID())
	}
	weapon := st.Weapon
	profile := *weapon.Aim

	var t *Combatant
	if st.Target != "" {
		t = e.combatants[st.Target]
		if t == nil || !t.body.Alive() {
			e.loseAim(ctx, c, "target lost")
			return FireResult{}, fmt.Errorf("%w: %s is gone", ErrInvalidTarget, st.Target)
		}
		if e.lineOfFire != nil && !e.lineOfFire.Clear(c, t, st.Path) {
			return FireResult{}, fmt.Errorf("%w: no line of fire to %s", ErrInvalidTarget, st.Target)
		}
	}
	if err := c.ledger.Spend(weapon.Cost); err != nil {
		return FireResult{}, fmt.Errorf("fire %s: %w", weapon.Name, err)
	}

	a := c.ledger.Aim()
	res := FireResult{Target: st.Target, Aim: a, Penalty: aimPenalty(a, profile.RequiredMinimum, e.settings.AimPenaltyScale)}
	c.effects.aim = nil
	c.ledger.DecayAim(profile.Decrement)
	c.acted = e.tick

	if t != nil {
		hit := e.interpose(ctx, c, t)
		res.Interposed = hit != t
		res.Target = hit.ID()
		difficulty := weapon.Difficulty + float64(c.ledger.Burden()) + res.Penalty + e.coverBonus(hit)
		e.interrupt(ctx, hit, InterruptAttacked)
		res.Outcome = e.checker.Resolve(c, hit, weapon, difficulty)
		if res.Outcome.Success {
			e.applyHit(ctx, c, hit, weapon)
		}
	}
	e.emit(ctx, c.session, Event{
		Type: EventFired, Actor: c.ID(), Target: res.Target, Move: weapon.Name,
		Detail: map[string]any{"aim": res.Aim, "penalty": res.Penalty, "success": res.Outcome.Success, "degree": res.Outcome.Degree, "interposed": res.Interposed},
	})

	// with inventory automation the next shot is readied at once
	if c.mode == strategy.ModeAiming {
		if c.policy.Inventory != strategy.AutomationNone && t != nil && t.body.Alive() && c.able() {
			c.effects.aim = &AimState{Weapon: weapon, Target: st.Target, Path: st.Path, Started: e.tick, Renewed: e.tick}
		} else {
			e.setMode(ctx, c, strategy.ModeStandardRanged)
		}
	}
	return res, nil
}

// aimPenalty is zero at or above the required minimum and grows linearly with
// the shortfall below it.
func aimPenalty(aim, required, scale float64) float64 {
	if aim >= required {
		return 0
	}
	return (required - aim) * scale
}

// loseAim clears the aim state and resets the fraction.
func (e *Engine) loseAim(ctx context.Context, c *Combatant, reason string) {
	c.effects.aimMemory = nil
	c.ledger.ResetAim()
	st := c.effects.aim
	if st == nil {
		return
	}
	c.effects.aim = nil
	if c.mode == strategy.ModeAiming {
		e.setMode(ctx, c, strategy.ModeStandardRanged)
	}
	e.emit(ctx, c.session, Event{Type: EventAimLost, Actor: c.ID(), Target: st.Target, Move: st.Weapon.Name, Detail: map[string]any{"reason": reason}})
}

// continueAim is an aiming combatant's turn: accumulate, then maybe fire.
func (e *Engine) continueAim(ctx context.Context, c *Combatant) {
	st := c.effects.aim
	if !c.hasMove(st.Weapon.Name) {
		e.loseAim(ctx, c, "weapon lost")
		return
	}
	c.ledger.AccumulateAim(st.Weapon.Aim.Rate)
	st.Renewed = e.tick
	c.acted = e.tick

	if c.policy.AutoFire && st.Target != "" && c.ledger.Aim() >= c.policy.MinimumAim {
		if _, err := e.fire(ctx, c); err != nil {
			e.logger.Debug("auto-fire failed", "combatant", c.ID(), "error", err)
		}
	}
}

// aimUpkeep drops aim states that were not renewed in time or whose weapon is gone.
func (e *Engine) aimUpkeep(ctx context.Context, c *Combatant) {
	st := c.effects.aim
	if st == nil {
		return
	}
	if !c.hasMove(st.Weapon.Name) {
		e.loseAim(ctx, c, "weapon lost")
		return
	}
	if c.mode != strategy.ModeAiming && e.tick-st.Renewed > uint64(e.settings.AimTimeout) {
		e.loseAim(ctx, c, "timeout")
	}
}
