package combat

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// ReleaseCause says why a grapple ended.
type ReleaseCause string

const (
	ReleaseVoluntary     ReleaseCause = "voluntary"
	ReleaseRescue        ReleaseCause = "rescue"
	ReleaseIncapacitated ReleaseCause = "incapacitated"
	ReleaseEscaped       ReleaseCause = "escaped"
	ReleaseLeft          ReleaseCause = "left"
	ReleaseSessionEnd    ReleaseCause = "session_end"
)

// Grapple is a directional hold from Holder onto Held.
type Grapple struct {
	ID     string
	Holder *Combatant
	Held   *Combatant
	Formed uint64

	session *Session
	limbs   map[string]struct{}
}

// Locked returns the locked limbs of the held party, sorted.
func (g *Grapple) Locked() []string {
	out := make([]string, 0, len(g.limbs))
	for l := range g.limbs {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func (g *Grapple) IsLocked(limb string) bool {
	_, ok := g.limbs[limb]
	return ok
}

// Active reports whether the relationship still exists.
func (g *Grapple) Active() bool {
	return g.session != nil && slices.Contains(g.session.grapples, g)
}

func lockKey(held *Combatant, limb string) string {
	return held.ID() + "/" + limb
}

func (s *Session) grappleBetween(holder, held *Combatant) *Grapple {
	for _, g := range s.grapples {
		if g.Holder == holder && g.Held == held {
			return g
		}
	}
	return nil
}

// grapplesOf returns every grapple c takes part in, holding or held.
func (s *Session) grapplesOf(c *Combatant) []*Grapple {
	var out []*Grapple
	for _, g := range s.grapples {
		if g.Holder == c || g.Held == c {
			out = append(out, g)
		}
	}
	return out
}

func (s *Session) lockedLimbs(c *Combatant) []string {
	var out []string
	for _, g := range s.grapples {
		if g.Held == c {
			out = append(out, g.Locked()...)
		}
	}
	return out
}

func (s *Session) grappled(c *Combatant) bool {
	return len(s.grapplesOf(c)) > 0
}

// Grapple creates the relationship holder → held, or returns the existing one.
func (e *Engine) Grapple(ctx context.Context, holderID, heldID string) (*Grapple, error) {
	holder, held, err := e.pair(holderID, heldID)
	if err != nil {
		return nil, err
	}
	return e.grapple(ctx, holder, held)
}

func (e *Engine) grapple(ctx context.Context, holder, held *Combatant) (*Grapple, error) {
	s := holder.session
	if s == nil || held.session != s {
		return nil, fmt.Errorf("%w: %s and %s are not in the same conflict", ErrIllegalStateTransition, holder.ID(), held.ID())
	}
	if holder.distance != move.RangeMelee && holder.distance != move.RangeClinch {
		return nil, fmt.Errorf("%w: %s is not in melee with %s", ErrIllegalStateTransition, holder.ID(), held.ID())
	}
	if g := s.grappleBetween(holder, held); g != nil {
		return g, nil
	}
	g := &Grapple{
		ID:      uuid.NewString(),
		Holder:  holder,
		Held:    held,
		Formed:  e.tick,
		session: s,
		limbs:   make(map[string]struct{}),
	}
	s.grapples = append(s.grapples, g)
	holder.distance = move.RangeClinch
	if held.target == holder {
		held.distance = move.RangeClinch
	}
	if !holder.mode.Grappling() {
		e.setMode(ctx, holder, strategy.ModeGrappleControl)
	}
	e.cancelPreparation(ctx, held, "grappled")
	e.loseAim(ctx, held, "grappled")
	e.emit(ctx, s, Event{Type: EventGrappleFormed, Actor: holder.ID(), Target: held.ID(), Detail: map[string]any{"grapple_id": g.ID}})
	return g, nil
}

// LockLimb locks one limb of the held party, paying the lock cost from the holder.
// Locking a limb the same grapple already holds is a no-op.
func (e *Engine) LockLimb(ctx context.Context, g *Grapple, limb string) error {
	return e.lockLimb(ctx, g, limb, true)
}

func (e *Engine) lockLimb(ctx context.Context, g *Grapple, limb string, charge bool) error {
	if !g.Active() {
		return fmt.Errorf("%w: grapple %s is released", ErrIllegalStateTransition, g.ID)
	}
	if !slices.Contains(g.Held.body.Limbs(), limb) {
		return fmt.Errorf("%w: %s has no limb %q", ErrInvalidTarget, g.Held.ID(), limb)
	}
	key := lockKey(g.Held, limb)
	if owner, ok := g.session.locks[key]; ok {
		if owner == g {
			return nil
		}
		return fmt.Errorf("%w: %s of %s is held by %s", ErrLimbAlreadyLocked, limb, g.Held.ID(), owner.Holder.ID())
	}
	if charge {
		if err := g.Holder.ledger.Spend(e.settings.LimbLockCost); err != nil {
			return fmt.Errorf("lock %s: %w", limb, err)
		}
	}
	g.session.locks[key] = g
	g.limbs[limb] = struct{}{}
	e.emit(ctx, g.session, Event{Type: EventLimbLocked, Actor: g.Holder.ID(), Target: g.Held.ID(), Detail: map[string]any{"limb": limb}})
	return nil
}

// freeLimb returns the first limb of the held party no grapple has locked.
func (s *Session) freeLimb(held *Combatant, want string) (string, bool) {
	limbs := held.body.Limbs()
	if want != "" && slices.Contains(limbs, want) {
		_, taken := s.locks[lockKey(held, want)]
		return want, !taken
	}
	for _, l := range limbs {
		if _, taken := s.locks[lockKey(held, l)]; !taken {
			return l, true
		}
	}
	return "", false
}

// Release ends a grapple, clearing every lock in one step and restoring both
// parties' default modes.
func (e *Engine) Release(ctx context.Context, g *Grapple, cause ReleaseCause) error {
	if !g.Active() {
		return fmt.Errorf("%w: grapple %s is already released", ErrIllegalStateTransition, g.ID)
	}
	e.release(ctx, g, cause)
	return nil
}

// ReleaseHold releases the grapple holder has on held.
func (e *Engine) ReleaseHold(ctx context.Context, holderID, heldID string) error {
	holder, held, err := e.pair(holderID, heldID)
	if err != nil {
		return err
	}
	if holder.session == nil {
		return fmt.Errorf("%w: %s holds nobody", ErrIllegalStateTransition, holderID)
	}
	g := holder.session.grappleBetween(holder, held)
	if g == nil {
		return fmt.Errorf("%w: %s does not hold %s", ErrIllegalStateTransition, holderID, heldID)
	}
	e.release(ctx, g, ReleaseVoluntary)
	return nil
}

func (e *Engine) release(ctx context.Context, g *Grapple, cause ReleaseCause) {
	s := g.session
	if s == nil {
		return
	}
	limbs := g.Locked()
	for _, l := range limbs {
		delete(s.locks, lockKey(g.Held, l))
	}
	clear(g.limbs)
	s.grapples = slices.DeleteFunc(s.grapples, func(x *Grapple) bool { return x == g })
	g.session = nil

	for _, c := range []*Combatant{g.Holder, g.Held} {
		if c.mode != c.defaultMode && !s.grappled(c) {
			e.setMode(ctx, c, c.defaultMode)
		}
	}
	e.emit(ctx, s, Event{
		Type: EventGrappleReleased, Actor: g.Holder.ID(), Target: g.Held.ID(),
		Detail: map[string]any{"grapple_id": g.ID, "cause": string(cause), "limbs": limbs},
	})
}
