package combat

import (
	"context"
	"slices"
	"sync"
)

// EventType names a structured combat event. Presentation layers render them;
// the engine never formats text.
type EventType string

const (
	EventSessionStarted EventType = "session.started"
	EventSessionMerged  EventType = "session.merged"
	EventSessionEnding  EventType = "session.ending"
	EventSessionEnded   EventType = "session.ended"
	EventJoined         EventType = "combatant.joined"
	EventLeft           EventType = "combatant.left"
	EventTargetChanged  EventType = "combatant.target"
	EventModeChanged    EventType = "combatant.mode"

	EventMoveAttempted EventType = "move.attempted"
	EventMoveResolved  EventType = "move.resolved"
	EventMoveSkipped   EventType = "move.skipped"
	EventMoveCancelled EventType = "move.cancelled"
	EventActionQueued  EventType = "action.queued"
	EventStoodUp       EventType = "position.stood"
	EventClosedIn      EventType = "position.closed"

	EventGrappleFormed   EventType = "grapple.formed"
	EventLimbLocked      EventType = "grapple.limb_locked"
	EventGrappleReleased EventType = "grapple.released"

	EventCoverTaken    EventType = "cover.taken"
	EventCoverReleased EventType = "cover.released"
	EventGuardSet      EventType = "guard.set"
	EventInterposed    EventType = "guard.interposed"
	EventRescue        EventType = "rescue.attempted"

	EventAimStarted EventType = "aim.started"
	EventAimLost    EventType = "aim.lost"
	EventFired      EventType = "aim.fired"

	EventPreparationStarted   EventType = "preparation.started"
	EventPreparationCancelled EventType = "preparation.cancelled"
	EventPreparationCompleted EventType = "preparation.completed"

	EventProposalCreated  EventType = "proposal.created"
	EventProposalAccepted EventType = "proposal.accepted"
	EventProposalRejected EventType = "proposal.rejected"
	EventProposalExpired  EventType = "proposal.expired"
)

// Event is one structured notification.
type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	SessionID string         `json:"session_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Target    string         `json:"target,omitempty"`
	Move      string         `json:"move,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Notifier receives engine events synchronously during resolution.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// MultiNotifier fans events out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

// Recorder keeps every event it is notified of.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// OfType returns the recorded events of the given types.
func (r *Recorder) OfType(types ...EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if slices.Contains(types, ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
