package combat

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// IntentKind is the high-level thing a combatant wants to do.
type IntentKind int

const (
	IntentAttack IntentKind = iota
	IntentUse               // a named move
	IntentGrapple
	IntentLockLimb
	IntentRelease
	IntentAim
	IntentFire
	IntentFlee
	IntentDefend
	IntentCoupDeGrace
	IntentRescue
	IntentGuard
	IntentStand
)

var intentNames = map[IntentKind]string{
	IntentAttack:      "attack",
	IntentUse:         "use",
	IntentGrapple:     "grapple",
	IntentLockLimb:    "lock_limb",
	IntentRelease:     "release",
	IntentAim:         "aim",
	IntentFire:        "fire",
	IntentFlee:        "flee",
	IntentDefend:      "defend",
	IntentCoupDeGrace: "coup_de_grace",
	IntentRescue:      "rescue",
	IntentGuard:       "guard",
	IntentStand:       "stand",
}

func (k IntentKind) String() string {
	if name, ok := intentNames[k]; ok {
		return name
	}
	return "unknown"
}

func ParseIntentKind(s string) (IntentKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range intentNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown intent %q", s)
}

func (k IntentKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *IntentKind) UnmarshalText(text []byte) error {
	parsed, err := ParseIntentKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Intent is a command from the player or command layer.
type Intent struct {
	Kind   IntentKind `json:"kind"`
	Target string     `json:"target,omitempty"`
	Move   string     `json:"move,omitempty"`
	Limb   string     `json:"limb,omitempty"`
	Path   []string   `json:"path,omitempty"`
}

// Disposition says what Submit did with an intent.
type Disposition int

const (
	ExecutedNow Disposition = iota
	Queued
)

func (d Disposition) String() string {
	if d == Queued {
		return "queued"
	}
	return "executed"
}

func (d Disposition) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Submit executes the intent now or, while the combatant is mid-resolution,
// has already spent its next turn, or a tick is running, queues it. Only the
// newest queued intent is kept and it replays on the combatant's next free turn.
func (e *Engine) Submit(ctx context.Context, id string, in Intent) (Disposition, error) {
	c, err := e.get(id)
	if err != nil {
		return ExecutedNow, err
	}
	if e.ticking || c.pending != nil || c.acted > e.tick || e.busy(c) {
		replaced := c.pending != nil
		c.pending = &in
		if e.settings.EchoQueued {
			e.emit(ctx, c.session, Event{
				Type: EventActionQueued, Actor: c.ID(), Target: in.Target, Move: in.Move,
				Detail: map[string]any{"intent": in.Kind.String(), "replaced": replaced},
			})
		}
		return Queued, nil
	}

	if err := e.execute(ctx, c, in); err != nil {
		return ExecutedNow, err
	}
	// an intent run between pulses uses the combatant's next turn
	c.acted = e.tick + 1
	if s := c.session; s != nil {
		e.checkTermination(ctx, s)
	}
	return ExecutedNow, nil
}

// CancelPending drops a queued intent.
func (e *Engine) CancelPending(id string) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	c.pending = nil
	return nil
}

func (e *Engine) execute(ctx context.Context, c *Combatant, in Intent) error {
	if !c.able() && in.Kind != IntentStand {
		return fmt.Errorf("%w: %s cannot act", ErrIllegalStateTransition, c.ID())
	}
	switch in.Kind {
	case IntentAttack:
		if err := e.engageFor(ctx, c, in.Target); err != nil {
			return err
		}
		return e.act(ctx, c, nil, "")

	case IntentUse:
		if err := e.engageFor(ctx, c, in.Target); err != nil {
			return err
		}
		return e.useNamed(ctx, c, in.Move)

	case IntentGrapple:
		if err := e.engageFor(ctx, c, in.Target); err != nil {
			return err
		}
		if c.distance != move.RangeMelee && c.distance != move.RangeClinch {
			return fmt.Errorf("%w: %s must close to melee before grappling", ErrIllegalStateTransition, c.ID())
		}
		if !c.mode.Grappling() {
			e.setMode(ctx, c, strategy.ModeGrappleControl)
		}
		return e.act(ctx, c, &move.Override{Tags: move.NewTagSet(move.TagGrapple)}, in.Limb)

	case IntentLockLimb:
		t, err := e.intentTarget(c, in.Target)
		if err != nil {
			return err
		}
		if c.session == nil || c.session.grappleBetween(c, t) == nil {
			return fmt.Errorf("%w: %s does not hold %s", ErrIllegalStateTransition, c.ID(), t.ID())
		}
		if c.target != t {
			e.retarget(ctx, c, t)
		}
		return e.act(ctx, c, &move.Override{Tags: move.NewTagSet(move.TagLimbLock)}, in.Limb)

	case IntentRelease:
		t, err := e.intentTarget(c, in.Target)
		if err != nil {
			return err
		}
		return e.ReleaseHold(ctx, c.ID(), t.ID())

	case IntentAim:
		return e.Aim(ctx, c.ID(), in.Target, in.Path)

	case IntentFire:
		_, err := e.fire(ctx, c)
		return err

	case IntentFlee:
		if c.session == nil {
			return fmt.Errorf("%w: %s is not fighting", ErrIllegalStateTransition, c.ID())
		}
		if err := c.policy.Effective(strategy.ModeFlee).Validate(); err != nil {
			return err
		}
		e.setMode(ctx, c, strategy.ModeFlee)
		return e.act(ctx, c, nil, "")

	case IntentDefend:
		return e.SetMode(ctx, c.ID(), strategy.ModeFullDefense)

	case IntentCoupDeGrace:
		t, err := e.intentTarget(c, in.Target)
		if err != nil {
			return err
		}
		return e.coupDeGrace(ctx, c, t)

	case IntentRescue:
		_, err := e.Rescue(ctx, c.ID(), in.Target)
		return err

	case IntentGuard:
		return e.Guard(ctx, c.ID(), in.Target)

	case IntentStand:
		if !c.body.Prone() {
			return fmt.Errorf("%w: %s is already standing", ErrIllegalStateTransition, c.ID())
		}
		e.stand(ctx, c)
		return nil
	}
	return fmt.Errorf("unknown intent %d", in.Kind)
}

// intentTarget resolves a named target or falls back to the current one.
func (e *Engine) intentTarget(c *Combatant, targetID string) (*Combatant, error) {
	if targetID == "" {
		if c.target == nil {
			return nil, fmt.Errorf("%w: %s has no target", ErrInvalidTarget, c.ID())
		}
		return c.target, nil
	}
	t, err := e.get(targetID)
	if err != nil {
		return nil, err
	}
	if t == c {
		return nil, fmt.Errorf("%w: %s cannot target itself", ErrInvalidTarget, c.ID())
	}
	return t, nil
}

// engageFor makes sure c is fighting the intent's target.
func (e *Engine) engageFor(ctx context.Context, c *Combatant, targetID string) error {
	t, err := e.intentTarget(c, targetID)
	if err != nil {
		return err
	}
	if c.session != nil && c.session == t.session {
		if c.target != t {
			return e.SetTarget(ctx, c.ID(), t.ID())
		}
		return nil
	}
	_, err = e.engage(ctx, c, t, EngageOptions{Distance: c.distance})
	return err
}

// useNamed performs one named move, bypassing the weighted draw but not the
// usability, policy or stamina checks.
func (e *Engine) useNamed(ctx context.Context, c *Combatant, name string) error {
	mv, ok := move.Find(c.body.Moves(), name)
	if !ok {
		return fmt.Errorf("%w: %s does not know %q", ErrNoLegalMove, c.ID(), name)
	}
	if !mv.Usable(c.situation()) {
		return fmt.Errorf("%w: %s cannot use %s now", ErrNoLegalMove, c.ID(), mv.Name)
	}
	if forbidden := mv.Tags.Intersect(c.policy.Forbidden); !forbidden.IsEmpty() {
		return fmt.Errorf("%w: %s carries forbidden tags %s", ErrPolicyConflict, mv.Name, forbidden)
	}
	if err := c.ledger.Spend(mv.Cost); err != nil {
		return fmt.Errorf("use %s: %w", mv.Name, err)
	}
	e.perform(ctx, c, mv, "")
	return nil
}
