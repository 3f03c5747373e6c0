package combat

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/move"
)

// ProposalKind is what one combatant offers another.
type ProposalKind int

const (
	ProposalSpar ProposalKind = iota
	ProposalTruce
	// ProposalSurrender offers to let the recipient take hold of the proposer.
	ProposalSurrender
)

func (k ProposalKind) String() string {
	switch k {
	case ProposalSpar:
		return "spar"
	case ProposalTruce:
		return "truce"
	case ProposalSurrender:
		return "surrender"
	default:
		return "unknown"
	}
}

func ParseProposalKind(s string) (ProposalKind, error) {
	for _, k := range []ProposalKind{ProposalSpar, ProposalTruce, ProposalSurrender} {
		if k.String() == strings.ToLower(strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown proposal kind %q", s)
}

func (k ProposalKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ProposalKind) UnmarshalText(text []byte) error {
	parsed, err := ParseProposalKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Proposal is a timed offer awaiting the recipient's answer.
type Proposal struct {
	ID      string       `json:"id"`
	Kind    ProposalKind `json:"kind"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Created uint64       `json:"created"`
	Expires uint64       `json:"expires"`
}

// Propose offers kind from one combatant to another. A newer offer of the same
// kind between the same pair replaces the older one.
func (e *Engine) Propose(ctx context.Context, kind ProposalKind, fromID, toID string) (Proposal, error) {
	from, to, err := e.pair(fromID, toID)
	if err != nil {
		return Proposal{}, err
	}
	switch kind {
	case ProposalSpar:
		if from.session != nil || to.session != nil {
			return Proposal{}, fmt.Errorf("%w: spar needs two combatants outside any conflict", ErrInvalidTarget)
		}
	case ProposalTruce:
		if from.session == nil || from.session != to.session || !from.session.friendly {
			return Proposal{}, fmt.Errorf("%w: truce needs a shared sparring session", ErrInvalidTarget)
		}
	case ProposalSurrender:
		if from.session == nil || from.session != to.session {
			return Proposal{}, fmt.Errorf("%w: surrender needs a shared conflict", ErrInvalidTarget)
		}
	default:
		return Proposal{}, fmt.Errorf("unknown proposal kind %d", kind)
	}

	e.proposals = slices.DeleteFunc(e.proposals, func(p *Proposal) bool {
		return p.Kind == kind && p.From == fromID && p.To == toID
	})
	p := &Proposal{
		ID:      uuid.NewString(),
		Kind:    kind,
		From:    fromID,
		To:      toID,
		Created: e.tick,
		Expires: e.tick + uint64(max(1, e.settings.ProposalTTL)),
	}
	e.proposals = append(e.proposals, p)
	e.emit(ctx, from.session, Event{Type: EventProposalCreated, Actor: fromID, Target: toID, Detail: map[string]any{"proposal_id": p.ID, "kind": kind.String()}})
	return *p, nil
}

// Proposals returns the outstanding proposals addressed to id, oldest first.
func (e *Engine) Proposals(id string) []Proposal {
	var out []Proposal
	for _, p := range e.proposals {
		if p.To == id {
			out = append(out, *p)
		}
	}
	return out
}

func (e *Engine) takeProposal(proposalID, by string) (*Proposal, error) {
	i := slices.IndexFunc(e.proposals, func(p *Proposal) bool { return p.ID == proposalID })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProposal, proposalID)
	}
	p := e.proposals[i]
	if p.To != by {
		return nil, fmt.Errorf("%w: proposal %s is addressed to %s", ErrInvalidTarget, proposalID, p.To)
	}
	e.proposals = slices.Delete(e.proposals, i, i+1)
	return p, nil
}

// Accept answers a proposal. Spar forms a friendly session, surrender forms a
// grapple with the acceptor holding the proposer, and a truce accepted by every
// side ends the sparring session.
func (e *Engine) Accept(ctx context.Context, proposalID, by string) error {
	p, err := e.takeProposal(proposalID, by)
	if err != nil {
		return err
	}
	from, to, err := e.pair(p.From, p.To)
	if err != nil {
		return err
	}
	e.emit(ctx, from.session, Event{Type: EventProposalAccepted, Actor: by, Target: p.From, Detail: map[string]any{"proposal_id": p.ID, "kind": p.Kind.String()}})

	switch p.Kind {
	case ProposalSpar:
		_, err = e.engage(ctx, from, to, EngageOptions{Friendly: true, Distance: from.distance})
		return err
	case ProposalSurrender:
		// the surrendering party walks up to its captor
		if to.distance != move.RangeMelee && to.distance != move.RangeClinch {
			to.distance = move.RangeMelee
		}
		_, err = e.grapple(ctx, to, from)
		return err
	case ProposalTruce:
		s := from.session
		if s == nil || s != to.session {
			return fmt.Errorf("%w: truce partners no longer spar together", ErrInvalidTarget)
		}
		s.truce[s.sideOf(from)] = true
		s.truce[s.sideOf(to)] = true
		for _, m := range s.members {
			if !s.truce[s.sideOf(m)] {
				return nil
			}
		}
		return e.endSession(ctx, s, ReasonTruce)
	}
	return nil
}

// Reject declines a proposal.
func (e *Engine) Reject(ctx context.Context, proposalID, by string) error {
	p, err := e.takeProposal(proposalID, by)
	if err != nil {
		return err
	}
	e.emit(ctx, nil, Event{Type: EventProposalRejected, Actor: by, Target: p.From, Detail: map[string]any{"proposal_id": p.ID, "kind": p.Kind.String()}})
	return nil
}

func (e *Engine) expireProposals(ctx context.Context) {
	kept := e.proposals[:0]
	for _, p := range e.proposals {
		if e.tick >= p.Expires {
			e.emit(ctx, nil, Event{Type: EventProposalExpired, Actor: p.From, Target: p.To, Detail: map[string]any{"proposal_id": p.ID, "kind": p.Kind.String()}})
			continue
		}
		kept = append(kept, p)
	}
	clear(e.proposals[len(kept):])
	e.proposals = kept
}
