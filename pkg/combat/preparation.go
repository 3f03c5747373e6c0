package combat

import (
	"context"
	"fmt"

	"github.com/jwebster45206/combat-engine/pkg/move"
)

// Preparation is a timed action that completes on its own unless interrupted.
type Preparation struct {
	Move       move.Move
	Target     string
	Started    uint64
	CompleteAt uint64
}

// CoupDeGrace starts a finishing blow against a helpless target. The blow lands
// after the configured delay unless the attacker is interrupted or the target recovers.
func (e *Engine) CoupDeGrace(ctx context.Context, id, targetID string) error {
	c, t, err := e.pair(id, targetID)
	if err != nil {
		return err
	}
	return e.coupDeGrace(ctx, c, t)
}

func (e *Engine) coupDeGrace(ctx context.Context, c, t *Combatant) error {
	if !c.able() {
		return fmt.Errorf("%w: %s cannot act", ErrIllegalStateTransition, c.ID())
	}
	if !t.body.Alive() || !t.body.Helpless() {
		return fmt.Errorf("%w: %s is not helpless", ErrInvalidTarget, t.ID())
	}
	if c.effects.prep != nil {
		return fmt.Errorf("%w: %s is already preparing", ErrIllegalStateTransition, c.ID())
	}
	sit := move.Situation{Distance: move.RangeMelee, FreeHands: c.freeHands(), TargetHelpless: true, TargetProne: t.body.Prone()}
	if c.session != nil && c.session == t.session {
		sit.Holding = c.session.grappleBetween(c, t) != nil
	}
	mv, err := e.selector.Select(Selection{
		Candidates: c.body.Moves(),
		Situation:  sit,
		Override:   &move.Override{Tags: move.NewTagSet(move.TagFinisher)},
		Policy:     c.policy.Effective(c.mode),
		Ledger:     c.ledger,
	})
	if err != nil {
		return err
	}
	if c.target != t {
		e.retarget(ctx, c, t)
	}
	c.effects.prep = &Preparation{Move: mv, Target: t.ID(), Started: e.tick, CompleteAt: e.tick + uint64(max(1, e.settings.CoupDelay))}
	e.emit(ctx, c.session, Event{
		Type: EventPreparationStarted, Actor: c.ID(), Target: t.ID(), Move: mv.Name,
		Detail: map[string]any{"complete_at": c.effects.prep.CompleteAt},
	})
	return nil
}

// advancePreparation completes or cancels c's preparation for this tick.
func (e *Engine) advancePreparation(ctx context.Context, c *Combatant) {
	prep := c.effects.prep
	if prep == nil {
		return
	}
	t := e.combatants[prep.Target]
	switch {
	case t == nil || !t.body.Alive():
		e.cancelPreparation(ctx, c, "target gone")
		return
	case !t.body.Helpless():
		e.interrupt(ctx, c, InterruptTargetRecovered)
		return
	case e.tick < prep.CompleteAt:
		c.acted = e.tick
		return
	}

	c.effects.prep = nil
	c.acted = e.tick
	// a helpless target cannot avoid the blow; the check only grades it
	out := e.checker.Resolve(c, t, prep.Move, prep.Move.Difficulty)
	e.applyHit(ctx, c, t, prep.Move)
	e.emit(ctx, c.session, Event{
		Type: EventPreparationCompleted, Actor: c.ID(), Target: t.ID(), Move: prep.Move.Name,
		Detail: map[string]any{"degree": out.Degree, "alive": t.body.Alive()},
	})
}

func (e *Engine) cancelPreparation(ctx context.Context, c *Combatant, reason string) {
	prep := c.effects.prep
	if prep == nil {
		return
	}
	c.effects.prep = nil
	e.emit(ctx, c.session, Event{
		Type: EventPreparationCancelled, Actor: c.ID(), Target: prep.Target, Move: prep.Move.Name,
		Detail: map[string]any{"reason": reason},
	})
}
