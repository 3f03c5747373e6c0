package combat

import (
	"context"
	"fmt"
	"slices"

	"github.com/jwebster45206/combat-engine/pkg/move"
)

// Cover is a piece of terrain or furniture combatants can shelter behind.
type Cover struct {
	ID       string  `json:"id" yaml:"id"`
	Quality  float64 `json:"quality" yaml:"quality"`   // protection in [0,1]
	Capacity float64 `json:"capacity" yaml:"capacity"` // total body size it shelters
	// Requires names a blocking item the occupant must carry, e.g. "shield".
	Requires string `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// CoverAssignment is a combatant's current cover.
type CoverAssignment struct {
	Cover   Cover
	Item    string
	Fitness float64
}

// Reasons a cover scores zero.
const (
	CoverHelpless     = "helpless"
	CoverGrappled     = "grappled"
	CoverMissingItem  = "missing blocking item"
	CoverItemNotHeld  = "item not carried"
	CoverFull         = "cover full"
	CoverNoProtection = "no protection"
)

// CoverFitness scores how well c fits behind cover using item. A non-positive
// score means the cover is unusable and reason says why.
func (e *Engine) CoverFitness(c *Combatant, cover Cover, item string) (float64, string) {
	if c.body.Helpless() || !c.body.Conscious() {
		return 0, CoverHelpless
	}
	if c.session != nil && c.session.grappled(c) {
		return 0, CoverGrappled
	}
	if cover.Requires != "" && (item != cover.Requires || !c.body.HasItem(item)) {
		return 0, CoverMissingItem
	}
	if item != "" && !c.body.HasItem(item) {
		return 0, CoverItemNotHeld
	}
	if cover.Quality <= 0 {
		return 0, CoverNoProtection
	}

	used := 0.0
	for _, o := range e.coverUse[cover.ID] {
		if o != c {
			used += o.size()
		}
	}
	room := cover.Capacity - used
	if room <= 0 {
		return 0, CoverFull
	}
	return max(0, min(1, cover.Quality)) * min(1, room/c.size()), ""
}

// TakeCover assigns cover to a combatant, releasing any previous assignment first.
// An unusable cover leaves the old assignment in place.
func (e *Engine) TakeCover(ctx context.Context, id string, cover Cover, item string) (float64, error) {
	c, err := e.get(id)
	if err != nil {
		return 0, err
	}
	fitness, reason := e.CoverFitness(c, cover, item)
	if fitness <= 0 {
		return 0, fmt.Errorf("%w: cover %s unusable: %s", ErrIllegalStateTransition, cover.ID, reason)
	}
	e.leaveCover(ctx, c)
	c.cover = &CoverAssignment{Cover: cover, Item: item, Fitness: fitness}
	e.coverUse[cover.ID] = append(e.coverUse[cover.ID], c)
	e.emit(ctx, c.session, Event{Type: EventCoverTaken, Actor: c.ID(), Detail: map[string]any{"cover": cover.ID, "fitness": fitness}})
	return fitness, nil
}

// LeaveCover drops the combatant's cover assignment, if any.
func (e *Engine) LeaveCover(ctx context.Context, id string) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	e.leaveCover(ctx, c)
	return nil
}

func (e *Engine) leaveCover(ctx context.Context, c *Combatant) {
	if c.cover == nil {
		return
	}
	coverID := c.cover.Cover.ID
	e.coverUse[coverID] = slices.DeleteFunc(e.coverUse[coverID], func(o *Combatant) bool { return o == c })
	if len(e.coverUse[coverID]) == 0 {
		delete(e.coverUse, coverID)
	}
	c.cover = nil
	e.emit(ctx, c.session, Event{Type: EventCoverReleased, Actor: c.ID(), Detail: map[string]any{"cover": coverID}})
}

// coverBonus is the difficulty added to ranged attacks against c.
func (e *Engine) coverBonus(c *Combatant) float64 {
	if c.cover == nil {
		return 0
	}
	return c.cover.Fitness * e.settings.CoverBonusScale
}

// Guard makes guard interpose for protected against ranged attacks until cleared.
// An empty protectedID stops guarding.
func (e *Engine) Guard(ctx context.Context, guardID, protectedID string) error {
	g, err := e.get(guardID)
	if err != nil {
		return err
	}
	if protectedID == "" {
		g.guarding = nil
		return nil
	}
	p, err := e.get(protectedID)
	if err != nil {
		return err
	}
	if p == g {
		return fmt.Errorf("%w: %s cannot guard itself", ErrInvalidTarget, guardID)
	}
	if !g.able() {
		return fmt.Errorf("%w: %s cannot stand guard", ErrIllegalStateTransition, guardID)
	}
	g.guarding = p
	e.emit(ctx, g.session, Event{Type: EventGuardSet, Actor: g.ID(), Target: p.ID()})
	return nil
}

// interpose picks who actually takes a ranged attack aimed at t: t itself or
// one of its guards, weighted by body size.
func (e *Engine) interpose(ctx context.Context, shooter, t *Combatant) *Combatant {
	if t.session == nil {
		return t
	}
	var guards []*Combatant
	for _, m := range t.session.members {
		if m.guarding == t && m != shooter && m.able() && !t.session.grappled(m) {
			guards = append(guards, m)
		}
	}
	if len(guards) == 0 {
		return t
	}
	total := t.size()
	for _, g := range guards {
		total += g.size() * e.settings.GuardFactor
	}
	r := e.rng.Float64() * total
	cum := t.size()
	if r < cum {
		return t
	}
	for _, g := range guards {
		cum += g.size() * e.settings.GuardFactor
		if r < cum {
			e.emit(ctx, t.session, Event{Type: EventInterposed, Actor: g.ID(), Target: t.ID(), Detail: map[string]any{"shooter": shooter.ID()}})
			return g
		}
	}
	return t
}

// RescueResult lists which attackers were drawn off and which resisted.
type RescueResult struct {
	Redirected []string `json:"redirected"`
	Resisted   []string `json:"resisted"`
}

var rescueMove = move.Move{Name: "rescue", Category: move.CategoryAuxiliary, Tags: move.NewTagSet(move.TagDefensive)}

// Rescue makes rescuer draw every attacker of protected onto itself, one opposed
// check per attacker. A successful check also breaks any hold the attacker has
// on the protected combatant.
func (e *Engine) Rescue(ctx context.Context, rescuerID, protectedID string) (RescueResult, error) {
	r, p, err := e.pair(rescuerID, protectedID)
	if err != nil {
		return RescueResult{}, err
	}
	s := r.session
	if s == nil || p.session != s {
		return RescueResult{}, fmt.Errorf("%w: %s is not in %s's conflict", ErrInvalidTarget, rescuerID, protectedID)
	}
	if !r.able() {
		return RescueResult{}, fmt.Errorf("%w: %s cannot rescue", ErrIllegalStateTransition, rescuerID)
	}

	var attackers []*Combatant
	for _, m := range s.members {
		if m != r && m.target == p && s.opponents(m, p) {
			attackers = append(attackers, m)
		}
	}
	if len(attackers) == 0 {
		return RescueResult{}, fmt.Errorf("%w: nobody is attacking %s", ErrInvalidTarget, protectedID)
	}

	var res RescueResult
	for _, a := range attackers {
		out := e.checker.Resolve(r, a, rescueMove, e.settings.RescueDifficulty+float64(r.ledger.Burden()))
		if !out.Success {
			res.Resisted = append(res.Resisted, a.ID())
			continue
		}
		res.Redirected = append(res.Redirected, a.ID())
		e.retarget(ctx, a, r)
		if g := s.grappleBetween(a, p); g != nil {
			e.release(ctx, g, ReleaseRescue)
		}
	}
	e.emit(ctx, s, Event{
		Type: EventRescue, Actor: r.ID(), Target: p.ID(),
		Detail: map[string]any{"redirected": res.Redirected, "resisted": res.Resisted},
	})
	return res, nil
}
