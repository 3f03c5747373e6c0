package combat

import (
	"slices"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/ledger"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// Spec describes a combatant when it is registered with an engine.
type Spec struct {
	Body       Body
	Side       string // combatants on the same side do not fight each other in lethal sessions
	Initiative int
	MaxStamina float64
	Mode       strategy.Mode
	Policy     *strategy.Policy // nil means strategy.DefaultPolicy
	Distance   move.Range
}

// Combatant is the engine's view of one participant. The engine owns every
// field; callers read through the accessors and mutate through Engine methods.
type Combatant struct {
	body       Body
	side       string
	initiative int

	mode        strategy.Mode
	defaultMode strategy.Mode
	policy      strategy.Policy
	ledger      *ledger.Ledger

	distance move.Range
	bodypart string
	target   *Combatant
	session  *Session
	guarding *Combatant
	cover    *CoverAssignment

	effects effects

	pending  *Intent
	inflight *action
	acted    uint64 // last tick this combatant used its turn
}

type action struct {
	move      move.Move
	target    *Combatant
	limb      string
	resolveAt uint64
}

func (c *Combatant) ID() string   { return c.body.ID() }
func (c *Combatant) Name() string { return c.body.Name() }
func (c *Combatant) Body() Body   { return c.body }
func (c *Combatant) Side() string { return c.side }

func (c *Combatant) Initiative() int           { return c.initiative }
func (c *Combatant) Mode() strategy.Mode       { return c.mode }
func (c *Combatant) DefaultMode() strategy.Mode { return c.defaultMode }
func (c *Combatant) Ledger() *ledger.Ledger    { return c.ledger }
func (c *Combatant) Distance() move.Range      { return c.distance }
func (c *Combatant) Bodypart() string          { return c.bodypart }

// Policy returns a copy of the combatant's policy.
func (c *Combatant) Policy() strategy.Policy {
	p := c.policy
	p.Required = p.Required.Clone()
	p.Preferred = p.Preferred.Clone()
	p.Forbidden = p.Forbidden.Clone()
	return p
}

func (c *Combatant) Target() *Combatant { return c.target }

func (c *Combatant) TargetID() string {
	if c.target == nil {
		return ""
	}
	return c.target.ID()
}

func (c *Combatant) Session() *Session { return c.session }

func (c *Combatant) SessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID()
}

func (c *Combatant) Guarding() *Combatant { return c.guarding }

func (c *Combatant) Cover() (CoverAssignment, bool) {
	if c.cover == nil {
		return CoverAssignment{}, false
	}
	return *c.cover, true
}

// Override returns the active fixed-move override, if any.
func (c *Combatant) Override() *move.Override { return c.effects.fixed }

// Aiming returns the current aim state.
func (c *Combatant) Aiming() (AimState, bool) {
	if c.effects.aim == nil {
		return AimState{}, false
	}
	return *c.effects.aim, true
}

// Preparing returns the timed preparation in progress.
func (c *Combatant) Preparing() (Preparation, bool) {
	if c.effects.prep == nil {
		return Preparation{}, false
	}
	return *c.effects.prep, true
}

// Pending returns the queued intent.
func (c *Combatant) Pending() (Intent, bool) {
	if c.pending == nil {
		return Intent{}, false
	}
	return *c.pending, true
}

// InFlight reports whether an action of this combatant is still resolving.
func (c *Combatant) InFlight() bool { return c.inflight != nil }

// able reports whether the combatant can still act.
func (c *Combatant) able() bool {
	return c.body.Alive() && c.body.Conscious() && !c.body.Helpless()
}

// freeHands subtracts locked arms and hands from what the body reports.
func (c *Combatant) freeHands() int {
	n := c.body.FreeHands()
	if c.session == nil {
		return n
	}
	for _, limb := range c.session.lockedLimbs(c) {
		l := strings.ToLower(limb)
		if strings.Contains(l, "arm") || strings.Contains(l, "hand") {
			n--
		}
	}
	return max(0, n)
}

func (c *Combatant) size() float64 {
	if s := c.body.Size(); s > 0 {
		return s
	}
	return 1
}

func (c *Combatant) hasMove(name string) bool {
	return slices.ContainsFunc(c.body.Moves(), func(m move.Move) bool {
		return strings.EqualFold(m.Name, name)
	})
}

// situation builds the selection snapshot against the current target.
func (c *Combatant) situation() move.Situation {
	sit := move.Situation{
		Distance:  c.distance,
		FreeHands: c.freeHands(),
	}
	t := c.target
	if t == nil || t.session == nil || t.session != c.session {
		sit.NoTarget = true
		return sit
	}
	sit.TargetHelpless = t.body.Helpless()
	sit.TargetProne = t.body.Prone()
	sit.Holding = c.session.grappleBetween(c, t) != nil
	return sit
}
