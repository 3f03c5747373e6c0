package combat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

// State is a conflict session lifecycle state.
type State string

const (
	StateForming State = "forming"
	StateActive  State = "active"
	StateEnding  State = "ending"
	StateEnded   State = "ended"
)

const (
	eventActivate = "activate"
	eventEnd      = "end"
	eventFinish   = "finish"
)

// End reasons carried by session.ending and session.ended events.
const (
	ReasonVictory     = "victory"
	ReasonYield       = "yield"
	ReasonPeace       = "peace"
	ReasonTruce       = "truce"
	ReasonAdmin       = "admin"
	ReasonDisengaged  = "disengaged"
	ReasonMerged      = "merged"
	ReasonNoOpponents = "no_opponents"
)

// Session groups the combatants currently fighting or sparring together.
type Session struct {
	id       string
	friendly bool
	started  uint64
	members  []*Combatant
	grapples []*Grapple
	locks    map[string]*Grapple // held ID + "/" + limb
	truce    map[string]bool     // sides that accepted a truce
	dead     int                 // members removed because they died
	reason   string
	machine  *fsm.FSM
}

func newSession(friendly bool, tick uint64) *Session {
	s := &Session{
		id:       uuid.NewString(),
		friendly: friendly,
		started:  tick,
		locks:    make(map[string]*Grapple),
		truce:    make(map[string]bool),
	}
	s.machine = fsm.NewFSM(
		string(StateForming),
		fsm.Events{
			{Name: eventActivate, Src: []string{string(StateForming)}, Dst: string(StateActive)},
			{Name: eventEnd, Src: []string{string(StateForming), string(StateActive)}, Dst: string(StateEnding)},
			{Name: eventFinish, Src: []string{string(StateEnding)}, Dst: string(StateEnded)},
		},
		fsm.Callbacks{
			"before_" + eventFinish: func(_ context.Context, e *fsm.Event) {
				if len(s.grapples) > 0 || len(s.locks) > 0 || len(s.members) > 0 {
					e.Cancel(fmt.Errorf("session %s still holds %d grapples and %d members", s.id, len(s.grapples), len(s.members)))
				}
			},
		},
	)
	return s
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Friendly() bool  { return s.friendly }
func (s *Session) Started() uint64 { return s.started }
func (s *Session) State() State    { return State(s.machine.Current()) }

// EndReason is set once the session starts ending.
func (s *Session) EndReason() string { return s.reason }

// Members returns the combatants in join order.
func (s *Session) Members() []*Combatant { return slices.Clone(s.members) }

func (s *Session) Contains(c *Combatant) bool { return slices.Contains(s.members, c) }

// Grapples returns the live grapple relationships.
func (s *Session) Grapples() []*Grapple { return slices.Clone(s.grapples) }

func (s *Session) transition(ctx context.Context, event string) error {
	if err := s.machine.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return fmt.Errorf("%w: session %s cannot %s from %s: %w", ErrIllegalStateTransition, s.id, event, s.State(), err)
	}
	return nil
}

// sideOf groups combatants. Friendly sessions are everyone for themselves.
func (s *Session) sideOf(c *Combatant) string {
	if s.friendly || c.side == "" {
		return c.ID()
	}
	return c.side
}

func (s *Session) opponents(a, b *Combatant) bool {
	return a != b && s.sideOf(a) != s.sideOf(b)
}

// fightingSides counts sides with at least one member able to fight.
func (s *Session) fightingSides() int {
	sides := make(map[string]bool)
	for _, m := range s.members {
		if m.able() {
			sides[s.sideOf(m)] = true
		}
	}
	return len(sides)
}

func (s *Session) engagedCount() int {
	n := 0
	for _, m := range s.members {
		if m.target != nil && m.target.session == s {
			n++
		}
	}
	return n
}

func (s *Session) add(c *Combatant) {
	c.session = s
	s.members = append(s.members, c)
}

func (s *Session) remove(c *Combatant) {
	s.members = slices.DeleteFunc(s.members, func(m *Combatant) bool { return m == c })
	c.session = nil
}

// pickTarget returns the first able opponent in join order, preferring one
// already attacking c.
func (s *Session) pickTarget(c *Combatant) *Combatant {
	var fallback *Combatant
	for _, m := range s.members {
		if !s.opponents(c, m) || !m.body.Alive() {
			continue
		}
		if m.target == c && m.able() {
			return m
		}
		if fallback == nil && m.able() {
			fallback = m
		}
	}
	return fallback
}
