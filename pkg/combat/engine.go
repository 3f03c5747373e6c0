// Package combat resolves combat intents into concrete moves and keeps the
// state of every running conflict. An Engine is driven by a single pulse
// goroutine and is not safe for concurrent use.
package combat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/ledger"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// Engine owns every registered combatant and conflict session.
type Engine struct {
	settings   Settings
	checker    Checker
	notifier   Notifier
	hook       EligibilityHook
	lineOfFire LineOfFire
	logger     *slog.Logger
	rng        *rand.Rand
	selector   *Selector

	tick    uint64
	ticking bool

	combatants map[string]*Combatant
	order      []*Combatant
	sessions   []*Session
	proposals  []*Proposal
	coverUse   map[string][]*Combatant
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithRand injects the random source used for move selection and interposition.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithSeed seeds a PCG source.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithNotifier sets where engine events are delivered.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithEligibilityHook sets the script hook consulted before a template is applied.
func WithEligibilityHook(h EligibilityHook) Option { return func(e *Engine) { e.hook = h } }

// WithLineOfFire sets the collaborator that checks aim paths when firing.
func WithLineOfFire(l LineOfFire) Option { return func(e *Engine) { e.lineOfFire = l } }

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// New creates an engine. The checker is required.
func New(settings Settings, checker Checker, opts ...Option) *Engine {
	e := &Engine{
		settings:   settings,
		checker:    checker,
		notifier:   nopNotifier{},
		logger:     slog.Default(),
		combatants: make(map[string]*Combatant),
		coverUse:   make(map[string][]*Combatant),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(1, 2))
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	e.selector = NewSelector(e.rng, settings.PreferredMultiplier)
	return e
}

func (e *Engine) Settings() Settings   { return e.settings }
func (e *Engine) CurrentTick() uint64  { return e.tick }
func (e *Engine) Selector() *Selector  { return e.selector }
func (e *Engine) Sessions() []*Session { return slices.Clone(e.sessions) }

// Combatants returns every registered combatant in registration order.
func (e *Engine) Combatants() []*Combatant { return slices.Clone(e.order) }

func (e *Engine) Combatant(id string) (*Combatant, bool) {
	c, ok := e.combatants[id]
	return c, ok
}

func (e *Engine) Session(id string) (*Session, bool) {
	for _, s := range e.sessions {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// Register adds a combatant to the engine.
func (e *Engine) Register(spec Spec) (*Combatant, error) {
	if spec.Body == nil {
		return nil, fmt.Errorf("combatant body is required")
	}
	id := spec.Body.ID()
	if id == "" {
		return nil, fmt.Errorf("combatant id is required")
	}
	if _, exists := e.combatants[id]; exists {
		return nil, fmt.Errorf("combatant %q already registered", id)
	}
	policy := strategy.DefaultPolicy()
	if spec.Policy != nil {
		if err := spec.Policy.Validate(); err != nil {
			return nil, err
		}
		policy = *spec.Policy
	}
	distance := spec.Distance
	if distance == move.RangeAny {
		distance = move.RangeMelee
	}
	c := &Combatant{
		body:        spec.Body,
		side:        spec.Side,
		initiative:  spec.Initiative,
		mode:        spec.Mode,
		defaultMode: spec.Mode,
		policy:      policy,
		ledger:      ledger.New(spec.MaxStamina, e.settings.MaxBurden),
		distance:    distance,
	}
	e.combatants[id] = c
	e.order = append(e.order, c)
	return c, nil
}

// Unregister removes a combatant from its session and from the engine.
func (e *Engine) Unregister(ctx context.Context, id string) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	s := c.session
	e.detach(ctx, c, "unregistered")
	e.leaveCover(ctx, c)
	for _, m := range e.order {
		if m.guarding == c {
			m.guarding = nil
		}
	}
	e.proposals = slices.DeleteFunc(e.proposals, func(p *Proposal) bool { return p.From == id || p.To == id })
	delete(e.combatants, id)
	e.order = slices.DeleteFunc(e.order, func(m *Combatant) bool { return m == c })
	if s != nil {
		e.checkTermination(ctx, s)
	}
	return nil
}

func (e *Engine) get(id string) (*Combatant, error) {
	c, ok := e.combatants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCombatant, id)
	}
	return c, nil
}

func (e *Engine) pair(aID, bID string) (*Combatant, *Combatant, error) {
	a, err := e.get(aID)
	if err != nil {
		return nil, nil, err
	}
	b, err := e.get(bID)
	if err != nil {
		return nil, nil, err
	}
	if a == b {
		return nil, nil, fmt.Errorf("%w: %s cannot act on itself", ErrInvalidTarget, aID)
	}
	return a, b, nil
}

func (e *Engine) emit(ctx context.Context, s *Session, ev Event) {
	ev.Tick = e.tick
	if s != nil && ev.SessionID == "" {
		ev.SessionID = s.id
	}
	e.notifier.Notify(ctx, ev)
}

// EngageOptions shape a new engagement.
type EngageOptions struct {
	Friendly bool
	Distance move.Range // RangeAny means melee
}

// Engage makes attacker fight target. Both end up in one session: a new one,
// the one either already belongs to, or the two sessions merged.
func (e *Engine) Engage(ctx context.Context, attackerID, targetID string, opts EngageOptions) (*Session, error) {
	a, t, err := e.pair(attackerID, targetID)
	if err != nil {
		return nil, err
	}
	return e.engage(ctx, a, t, opts)
}

func (e *Engine) engage(ctx context.Context, a, t *Combatant, opts EngageOptions) (*Session, error) {
	if !a.able() {
		return nil, fmt.Errorf("%w: %s cannot fight", ErrIllegalStateTransition, a.ID())
	}
	if !t.body.Alive() {
		return nil, fmt.Errorf("%w: %s is dead", ErrInvalidTarget, t.ID())
	}
	lethal := !opts.Friendly || (a.session != nil && !a.session.friendly) || (t.session != nil && !t.session.friendly)
	if lethal && a.side != "" && a.side == t.side {
		return nil, fmt.Errorf("%w: %s and %s are allies", ErrInvalidTarget, a.ID(), t.ID())
	}
	distance := opts.Distance
	if distance == move.RangeAny {
		distance = move.RangeMelee
	}

	var s *Session
	switch {
	case a.session != nil && a.session == t.session:
		s = a.session
	case a.session == nil && t.session == nil:
		s = newSession(opts.Friendly, e.tick)
		e.sessions = append(e.sessions, s)
		joiners := []*Combatant{a, t}
		slices.SortStableFunc(joiners, func(x, y *Combatant) int { return cmp.Compare(y.initiative, x.initiative) })
		for _, c := range joiners {
			e.admit(ctx, s, c)
		}
	case t.session == nil:
		s = a.session
		if err := e.join(ctx, s, t); err != nil {
			return nil, err
		}
	case a.session == nil:
		s = t.session
		if err := e.join(ctx, s, a); err != nil {
			return nil, err
		}
	default:
		s = a.session
		if err := e.merge(ctx, s, t.session); err != nil {
			return nil, err
		}
	}
	if lethal {
		s.friendly = false
	}

	if a.target != t {
		a.distance = distance
	}
	e.retarget(ctx, a, t)
	if t.target == nil || t.target.session != s {
		t.distance = a.distance
		e.retarget(ctx, t, a)
	}
	e.maybeActivate(ctx, s)
	return s, nil
}

// NewSession opens an empty session in the forming state.
func (e *Engine) NewSession(friendly bool) *Session {
	s := newSession(friendly, e.tick)
	e.sessions = append(e.sessions, s)
	return s
}

// Join adds a combatant to a forming or active session.
func (e *Engine) Join(ctx context.Context, sessionID, id string) error {
	s, ok := e.Session(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	c, err := e.get(id)
	if err != nil {
		return err
	}
	return e.join(ctx, s, c)
}

func (e *Engine) join(ctx context.Context, s *Session, c *Combatant) error {
	if st := s.State(); st != StateForming && st != StateActive {
		return fmt.Errorf("%w: session %s is %s", ErrIllegalStateTransition, s.id, st)
	}
	if c.session == s {
		return nil
	}
	if c.session != nil {
		return fmt.Errorf("%w: %s already fights in session %s", ErrIllegalStateTransition, c.ID(), c.session.id)
	}
	if !c.body.Alive() {
		return fmt.Errorf("%w: %s is dead", ErrInvalidTarget, c.ID())
	}
	e.admit(ctx, s, c)
	return nil
}

func (e *Engine) admit(ctx context.Context, s *Session, c *Combatant) {
	s.add(c)
	e.emit(ctx, s, Event{Type: EventJoined, Actor: c.ID(), Detail: map[string]any{"initiative": c.initiative}})
}

// merge moves every member and grapple of src into dst and retires src.
func (e *Engine) merge(ctx context.Context, dst, src *Session) error {
	if st := src.State(); st != StateForming && st != StateActive {
		return fmt.Errorf("%w: session %s is %s", ErrIllegalStateTransition, src.id, st)
	}
	for _, m := range src.members {
		m.session = dst
		dst.members = append(dst.members, m)
	}
	for _, g := range src.grapples {
		g.session = dst
		dst.grapples = append(dst.grapples, g)
	}
	for k, g := range src.locks {
		dst.locks[k] = g
	}
	dst.friendly = dst.friendly && src.friendly
	dst.dead += src.dead
	src.members = nil
	src.grapples = nil
	clear(src.locks)

	src.reason = ReasonMerged
	if err := src.transition(ctx, eventEnd); err != nil {
		return err
	}
	if err := src.transition(ctx, eventFinish); err != nil {
		return err
	}
	e.dropSession(src)
	e.emit(ctx, dst, Event{Type: EventSessionMerged, Detail: map[string]any{"merged": src.id}})
	return nil
}

func (e *Engine) maybeActivate(ctx context.Context, s *Session) {
	if s.State() != StateForming || len(s.members) < 2 || s.engagedCount() < 2 {
		return
	}
	if err := s.transition(ctx, eventActivate); err != nil {
		e.logger.Warn("failed to activate session", "session_id", s.id, "error", err)
		return
	}
	ids := make([]string, len(s.members))
	for i, m := range s.members {
		ids[i] = m.ID()
	}
	e.emit(ctx, s, Event{Type: EventSessionStarted, Detail: map[string]any{"friendly": s.friendly, "members": ids}})
}

// Leave disengages a combatant from its session.
func (e *Engine) Leave(ctx context.Context, id string) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	s := c.session
	if s == nil {
		return fmt.Errorf("%w: %s is not fighting", ErrIllegalStateTransition, id)
	}
	e.detach(ctx, c, "disengaged")
	e.checkTermination(ctx, s)
	return nil
}

// detach removes c from its session and clears every reference to it there.
func (e *Engine) detach(ctx context.Context, c *Combatant, reason string) {
	s := c.session
	if s == nil {
		c.pending = nil
		c.inflight = nil
		return
	}
	e.interrupt(ctx, c, InterruptLeft)
	e.leaveCover(ctx, c)
	c.guarding = nil
	for _, m := range s.members {
		if m == c {
			continue
		}
		if m.guarding == c {
			m.guarding = nil
		}
		if m.target == c {
			m.target = nil
		}
		if m.inflight != nil && m.inflight.target == c {
			act := m.inflight
			m.inflight = nil
			e.emit(ctx, s, Event{Type: EventMoveCancelled, Actor: m.ID(), Target: c.ID(), Move: act.move.Name, Detail: map[string]any{"reason": "target left"}})
		}
	}
	c.pending = nil
	c.inflight = nil
	c.target = nil
	if !c.body.Alive() {
		s.dead++
	}
	s.remove(c)
	e.emit(ctx, s, Event{Type: EventLeft, Actor: c.ID(), Detail: map[string]any{"reason": reason}})
}

// Peace ends a session by explicit agreement.
func (e *Engine) Peace(ctx context.Context, sessionID string) error {
	s, ok := e.Session(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return e.endSession(ctx, s, ReasonPeace)
}

// End is the administrative override that stops a session at once.
func (e *Engine) End(ctx context.Context, sessionID string) error {
	s, ok := e.Session(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return e.endSession(ctx, s, ReasonAdmin)
}

// endSession walks Ending → Ended: every grapple is released and every member
// released and notified before the session reaches Ended.
func (e *Engine) endSession(ctx context.Context, s *Session, reason string) error {
	if st := s.State(); st == StateEnding || st == StateEnded {
		return fmt.Errorf("%w: session %s is already %s", ErrIllegalStateTransition, s.id, st)
	}
	s.reason = reason
	if err := s.transition(ctx, eventEnd); err != nil {
		return err
	}
	e.emit(ctx, s, Event{Type: EventSessionEnding, Detail: map[string]any{"reason": reason}})

	for _, g := range s.Grapples() {
		e.release(ctx, g, ReleaseSessionEnd)
	}
	for _, m := range s.Members() {
		e.detach(ctx, m, "session ended")
	}
	if err := s.transition(ctx, eventFinish); err != nil {
		e.invariant(false, "session %s could not finish: %v", s.id, err)
		return err
	}
	e.dropSession(s)
	e.emit(ctx, s, Event{Type: EventSessionEnded, Detail: map[string]any{"reason": reason}})
	e.logger.Info("combat session ended", "session_id", s.id, "reason", reason, "tick", e.tick)
	return nil
}

func (e *Engine) dropSession(s *Session) {
	e.sessions = slices.DeleteFunc(e.sessions, func(x *Session) bool { return x == s })
}

// checkTermination removes the dead and ends the session when its predicate holds.
func (e *Engine) checkTermination(ctx context.Context, s *Session) {
	if s.State() != StateActive {
		return
	}
	for _, m := range s.Members() {
		if !m.body.Alive() {
			e.detach(ctx, m, "died")
		}
	}
	yielded := false
	for _, m := range s.members {
		if m.body.Helpless() || !m.body.Conscious() {
			yielded = true
			for _, g := range s.grapplesOf(m) {
				if g.Holder == m {
					e.release(ctx, g, ReleaseIncapacitated)
				}
			}
		}
	}

	var reason string
	switch {
	case s.friendly && yielded:
		reason = ReasonYield
	case len(s.members) < 2 && s.dead == 0:
		reason = ReasonNoOpponents
	case s.fightingSides() < 2:
		reason = ReasonVictory
	case s.engagedCount() == 0:
		reason = ReasonDisengaged
	default:
		return
	}
	if err := e.endSession(ctx, s, reason); err != nil {
		e.logger.Warn("failed to end session", "session_id", s.id, "error", err)
	}
}

// SetTarget points a combatant at another member of its session.
func (e *Engine) SetTarget(ctx context.Context, id, targetID string) error {
	c, t, err := e.pair(id, targetID)
	if err != nil {
		return err
	}
	s := c.session
	if s == nil || t.session != s {
		return fmt.Errorf("%w: %s is not in %s's conflict", ErrInvalidTarget, targetID, id)
	}
	if !s.opponents(c, t) && !s.friendly {
		return fmt.Errorf("%w: %s is an ally", ErrInvalidTarget, targetID)
	}
	if !t.body.Alive() {
		return fmt.Errorf("%w: %s is dead", ErrInvalidTarget, targetID)
	}
	e.retarget(ctx, c, t)
	e.maybeActivate(ctx, s)
	return nil
}

func (e *Engine) retarget(ctx context.Context, c, t *Combatant) {
	if c.target == t {
		return
	}
	switched := c.target != nil
	c.target = t
	if switched {
		e.interrupt(ctx, c, InterruptTargetSwitched)
	}
	e.emit(ctx, c.session, Event{Type: EventTargetChanged, Actor: c.ID(), Target: t.ID()})
}

// SetMode changes a combatant's strategy mode. The mode's required tags must
// not collide with the policy's forbidden tags.
func (e *Engine) SetMode(ctx context.Context, id string, mode strategy.Mode) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	if err := c.policy.Effective(mode).Validate(); err != nil {
		return fmt.Errorf("mode %s for %s: %w", mode, id, err)
	}
	e.setMode(ctx, c, mode)
	return nil
}

func (e *Engine) setMode(ctx context.Context, c *Combatant, mode strategy.Mode) {
	if c.mode == mode {
		return
	}
	from := c.mode
	c.mode = mode
	e.emit(ctx, c.session, Event{Type: EventModeChanged, Actor: c.ID(), Detail: map[string]any{"from": from.String(), "to": mode.String()}})
}

// SetDefaultMode sets the mode restored after grapples end.
func (e *Engine) SetDefaultMode(id string, mode strategy.Mode) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	c.defaultMode = mode
	return nil
}

// SetPolicy replaces a combatant's policy.
func (e *Engine) SetPolicy(id string, p strategy.Policy) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := p.Effective(c.mode).Validate(); err != nil {
		return fmt.Errorf("policy in mode %s: %w", c.mode, err)
	}
	c.policy = p
	return nil
}

// ApplyTemplate adopts a strategy template's mode and policy. The eligibility
// hook may refuse; a missing or failing hook allows.
func (e *Engine) ApplyTemplate(ctx context.Context, id string, tmpl strategy.Template) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	if err := tmpl.Validate(); err != nil {
		return err
	}
	if e.hook != nil && strings.TrimSpace(tmpl.Eligibility) != "" {
		ok, err := e.hook.Eligible(ctx, tmpl.Eligibility, c)
		switch {
		case err != nil:
			e.logger.Warn("eligibility hook failed, allowing template", "template", tmpl.Name, "combatant", id, "error", err)
		case !ok:
			return fmt.Errorf("%w: %s may not use template %q", ErrNotEligible, id, tmpl.Name)
		}
	}
	c.policy = tmpl.Policy
	e.setMode(ctx, c, tmpl.Mode)
	return nil
}

// SetOverride fixes selection to moves carrying the override's tags. A nil
// override clears it.
func (e *Engine) SetOverride(id string, o *move.Override) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	c.effects.fixed = o
	return nil
}

// SetBodypart sets the body part a combatant aims its blows at.
func (e *Engine) SetBodypart(id, part string) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	c.bodypart = part
	return nil
}

// SetBurden records a signed difficulty offset from one source.
func (e *Engine) SetBurden(id, source string, degrees int) error {
	c, err := e.get(id)
	if err != nil {
		return err
	}
	c.ledger.SetBurden(source, degrees)
	return nil
}

// Tick advances every conflict by one pulse. Within a tick the order is:
// in-flight actions, timed preparations, queued intents, then ordinary turns,
// each pass in session join order.
func (e *Engine) Tick(ctx context.Context) uint64 {
	e.tick++
	e.ticking = true
	defer func() { e.ticking = false }()

	order := e.turnOrder()
	for _, c := range order {
		e.invariant(c.session == nil || c.session.Contains(c), "%s points at session %s without membership", c.ID(), c.SessionID())
	}

	for _, c := range order {
		if act := c.inflight; act != nil && act.resolveAt <= e.tick {
			c.inflight = nil
			c.acted = e.tick
			e.resolve(ctx, c, act)
		}
	}
	for _, c := range order {
		e.advancePreparation(ctx, c)
	}
	for _, c := range order {
		if c.pending == nil || c.acted >= e.tick || e.busy(c) {
			continue
		}
		in := *c.pending
		c.pending = nil
		c.acted = e.tick
		if err := e.execute(ctx, c, in); err != nil {
			e.skip(ctx, c, err)
		}
	}
	for _, c := range order {
		if c.acted >= e.tick || e.busy(c) || !c.able() {
			continue
		}
		if c.effects.aim != nil && c.mode == strategy.ModeAiming {
			e.continueAim(ctx, c)
			continue
		}
		if c.session == nil || c.session.State() != StateActive {
			continue
		}
		e.takeTurn(ctx, c)
	}
	for _, c := range order {
		e.aimUpkeep(ctx, c)
		if e.settings.StaminaRegen > 0 {
			c.ledger.Restore(e.settings.StaminaRegen)
		}
	}
	for _, s := range e.Sessions() {
		e.checkTermination(ctx, s)
	}
	e.expireProposals(ctx)
	return e.tick
}

// turnOrder lists session members in session and join order, then everyone else.
func (e *Engine) turnOrder() []*Combatant {
	var out []*Combatant
	for _, s := range e.sessions {
		out = append(out, s.members...)
	}
	for _, c := range e.order {
		if c.session == nil {
			out = append(out, c)
		}
	}
	return out
}

// busy reports whether c is mid-resolution: its own action is in flight, it is
// preparing, or someone's in-flight action targets it.
func (e *Engine) busy(c *Combatant) bool {
	if c.inflight != nil || c.effects.prep != nil {
		return true
	}
	if c.session == nil {
		return false
	}
	for _, m := range c.session.members {
		if m != c && m.inflight != nil && m.inflight.target == c {
			return true
		}
	}
	return false
}

func (e *Engine) skip(ctx context.Context, c *Combatant, err error) {
	e.logger.Debug("combat turn skipped", "combatant", c.ID(), "session_id", c.SessionID(), "error", err)
	e.emit(ctx, c.session, Event{Type: EventMoveSkipped, Actor: c.ID(), Target: c.TargetID(), Detail: map[string]any{"reason": err.Error()}})
}

// takeTurn is an automatic turn for a combatant with nothing queued.
func (e *Engine) takeTurn(ctx context.Context, c *Combatant) {
	s := c.session
	if c.target == nil || c.target.session != s || !c.target.body.Alive() {
		t := s.pickTarget(c)
		if t == nil {
			return
		}
		e.retarget(ctx, c, t)
	}
	if c.body.Prone() && c.policy.Position == strategy.AutomationFull {
		e.stand(ctx, c)
		return
	}
	if c.policy.Movement == strategy.AutomationFull && c.distance == move.RangeRanged && !rangedMode(c.mode) {
		e.closeIn(ctx, c)
		return
	}

	err := e.act(ctx, c, nil, "")
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoLegalMove) {
		if c.body.Prone() && c.policy.Position != strategy.AutomationNone {
			e.stand(ctx, c)
			return
		}
		if c.policy.Movement != strategy.AutomationNone && c.distance == move.RangeRanged {
			e.closeIn(ctx, c)
			return
		}
	}
	e.skip(ctx, c, err)
}

func rangedMode(m strategy.Mode) bool {
	return m == strategy.ModeStandardRanged || m == strategy.ModeAiming
}

func (e *Engine) stand(ctx context.Context, c *Combatant) {
	c.body.SetProne(false)
	c.acted = e.tick
	e.emit(ctx, c.session, Event{Type: EventStoodUp, Actor: c.ID()})
}

func (e *Engine) closeIn(ctx context.Context, c *Combatant) {
	c.distance = move.RangeMelee
	if t := c.target; t != nil && t.target == c {
		t.distance = move.RangeMelee
	}
	c.acted = e.tick
	e.interrupt(ctx, c, InterruptMoved)
	e.emit(ctx, c.session, Event{Type: EventClosedIn, Actor: c.ID(), Target: c.TargetID()})
}

// act selects a move and performs it against the current target. An explicit
// override takes precedence over the combatant's fixed-move override.
func (e *Engine) act(ctx context.Context, c *Combatant, override *move.Override, limb string) error {
	eff := c.policy.Effective(c.mode)
	if err := eff.Validate(); err != nil {
		return err
	}
	o := override
	if o == nil {
		o = c.effects.fixed
	}
	mv, err := e.selector.Select(Selection{
		Candidates: c.body.Moves(),
		Situation:  c.situation(),
		Override:   o,
		Policy:     eff,
		Ledger:     c.ledger,
	})
	if err != nil {
		return err
	}
	if override == nil && c.effects.fixed != nil && !c.effects.fixed.Sticky {
		c.effects.fixed = nil
	}
	e.perform(ctx, c, mv, limb)
	return nil
}

// perform starts a paid-for move: slow moves go in flight, the rest resolve now.
func (e *Engine) perform(ctx context.Context, c *Combatant, mv move.Move, limb string) {
	c.acted = max(c.acted, e.tick)
	e.emit(ctx, c.session, Event{
		Type: EventMoveAttempted, Actor: c.ID(), Target: c.TargetID(), Move: mv.Name,
		Detail: map[string]any{"cost": mv.Cost, "delay": mv.Delay, "tags": mv.Tags.Names()},
	})
	act := &action{move: mv, target: c.target, limb: limb, resolveAt: e.tick + uint64(max(0, mv.Delay))}
	if mv.Delay > 0 && c.target != nil {
		c.inflight = act
		return
	}
	e.resolve(ctx, c, act)
}

func (e *Engine) resolve(ctx context.Context, c *Combatant, act *action) {
	mv := act.move
	s := c.session
	difficulty := mv.Difficulty + float64(c.ledger.Burden())

	if mv.Has(move.TagFlee) {
		out := e.checker.Resolve(c, act.target, mv, difficulty)
		e.emit(ctx, s, Event{Type: EventMoveResolved, Actor: c.ID(), Move: mv.Name, Detail: map[string]any{"success": out.Success, "degree": out.Degree}})
		if out.Success && s != nil {
			e.detach(ctx, c, "fled")
			e.checkTermination(ctx, s)
		}
		return
	}

	t := act.target
	if t == nil {
		e.emit(ctx, s, Event{Type: EventMoveResolved, Actor: c.ID(), Move: mv.Name, Detail: map[string]any{"success": true}})
		return
	}
	if s == nil || t.session != s || !t.body.Alive() {
		e.emit(ctx, s, Event{Type: EventMoveCancelled, Actor: c.ID(), Target: t.ID(), Move: mv.Name, Detail: map[string]any{"reason": "target gone"}})
		return
	}
	if mv.Has(move.TagRanged) {
		t = e.interpose(ctx, c, t)
		difficulty += e.coverBonus(t)
	}

	// hit or miss, the defender's preparations are broken
	e.interrupt(ctx, t, InterruptAttacked)
	out := e.checker.Resolve(c, t, mv, difficulty)
	e.emit(ctx, s, Event{
		Type: EventMoveResolved, Actor: c.ID(), Target: t.ID(), Move: mv.Name,
		Detail: map[string]any{"success": out.Success, "degree": out.Degree, "difficulty": difficulty},
	})
	if !out.Success {
		return
	}

	switch {
	case mv.Has(move.TagGrapple):
		g, err := e.grapple(ctx, c, t)
		if err != nil {
			e.logger.Debug("grapple failed", "combatant", c.ID(), "error", err)
			break
		}
		if mv.Has(move.TagLimbLock) {
			e.lockAny(ctx, g, act.limb)
		}
	case mv.Has(move.TagLimbLock):
		if g := s.grappleBetween(c, t); g != nil {
			e.lockAny(ctx, g, act.limb)
		}
	}
	e.applyHit(ctx, c, t, mv)
}

func (e *Engine) lockAny(ctx context.Context, g *Grapple, want string) {
	limb, ok := g.session.freeLimb(g.Held, want)
	if !ok {
		return
	}
	if err := e.lockLimb(ctx, g, limb, false); err != nil {
		e.logger.Debug("limb lock failed", "grapple_id", g.ID, "limb", limb, "error", err)
	}
}

// applyHit applies the effects of a successful move to t.
func (e *Engine) applyHit(ctx context.Context, c, t *Combatant, mv move.Move) {
	if mv.Has(move.TagTrip) {
		t.body.SetProne(true)
	}
	if mv.Damage > 0 {
		lethal := !mv.Has(move.TagNonLethal) && (c.session == nil || !c.session.friendly)
		t.body.Wound(mv.Damage, lethal)
		e.interrupt(ctx, t, InterruptDamaged)
	}
	if s := t.session; s != nil {
		if !t.body.Alive() {
			e.detach(ctx, t, "died")
			return
		}
		if t.body.Helpless() || !t.body.Conscious() {
			for _, g := range s.grapplesOf(t) {
				if g.Holder == t {
					e.release(ctx, g, ReleaseIncapacitated)
				}
			}
		}
	}
}
