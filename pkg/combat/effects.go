package combat

import (
	"context"

	"github.com/jwebster45206/combat-engine/pkg/move"
)

// EffectKind enumerates the effects a combatant can carry.
type EffectKind int

const (
	EffectFixedMove EffectKind = iota
	EffectPreparation
	EffectAim
	EffectGrapple
)

func (k EffectKind) String() string {
	switch k {
	case EffectFixedMove:
		return "fixed_move"
	case EffectPreparation:
		return "preparation"
	case EffectAim:
		return "aim"
	case EffectGrapple:
		return "grapple"
	default:
		return "unknown"
	}
}

// Interrupt is a state-changing event that may cancel effects.
type Interrupt int

const (
	InterruptDamaged Interrupt = iota
	InterruptAttacked
	InterruptMoved
	InterruptTargetSwitched
	InterruptTargetRecovered
	InterruptLeft
)

func (i Interrupt) String() string {
	switch i {
	case InterruptDamaged:
		return "damaged"
	case InterruptAttacked:
		return "attacked"
	case InterruptMoved:
		return "moved"
	case InterruptTargetSwitched:
		return "target_switched"
	case InterruptTargetRecovered:
		return "target_recovered"
	case InterruptLeft:
		return "left"
	default:
		return "unknown"
	}
}

// cancellations lists which interrupts end which effects.
var cancellations = map[EffectKind][]Interrupt{
	EffectFixedMove:   {InterruptLeft},
	EffectPreparation: {InterruptDamaged, InterruptAttacked, InterruptMoved, InterruptTargetSwitched, InterruptTargetRecovered, InterruptLeft},
	EffectAim:         {InterruptDamaged, InterruptMoved, InterruptTargetSwitched, InterruptLeft},
	EffectGrapple:     {InterruptMoved, InterruptLeft},
}

// Cancels reports whether the interrupt ends effects of kind k.
func Cancels(k EffectKind, i Interrupt) bool {
	for _, c := range cancellations[k] {
		if c == i {
			return true
		}
	}
	return false
}

// effects holds the per-combatant variants. Grapple membership lives in the
// session registry and is reached through it.
type effects struct {
	fixed *move.Override
	prep  *Preparation
	aim   *AimState
	// aimMemory remembers the last shot so re-aiming the same target and
	// weapon keeps the remaining fraction.
	aimMemory *aimKey
}

type aimKey struct {
	weapon string
	target string
}

// Active lists the effect kinds the combatant currently carries.
func (c *Combatant) Active() []EffectKind {
	var out []EffectKind
	if c.effects.fixed != nil {
		out = append(out, EffectFixedMove)
	}
	if c.effects.prep != nil {
		out = append(out, EffectPreparation)
	}
	if c.effects.aim != nil {
		out = append(out, EffectAim)
	}
	if c.session != nil && len(c.session.grapplesOf(c)) > 0 {
		out = append(out, EffectGrapple)
	}
	return out
}

// interrupt cancels every effect of c that the interrupt ends.
func (e *Engine) interrupt(ctx context.Context, c *Combatant, why Interrupt) {
	if c.effects.fixed != nil && Cancels(EffectFixedMove, why) {
		c.effects.fixed = nil
	}
	if Cancels(EffectPreparation, why) {
		e.cancelPreparation(ctx, c, why.String())
	}
	if Cancels(EffectAim, why) {
		e.loseAim(ctx, c, why.String())
	}
	if c.session != nil && Cancels(EffectGrapple, why) {
		cause := ReleaseEscaped
		if why == InterruptLeft {
			cause = ReleaseLeft
		}
		for _, g := range c.session.grapplesOf(c) {
			if why == InterruptMoved && g.Held == c && len(g.limbs) > 0 {
				// a held combatant cannot slip away while limbs are locked
				continue
			}
			e.release(ctx, g, cause)
		}
	}
}
