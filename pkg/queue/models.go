package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeSpawn registers a fighter loaded from storage
	RequestTypeSpawn RequestType = "spawn"

	// RequestTypeIntent submits a player intent for a combatant
	RequestTypeIntent RequestType = "intent"

	// RequestTypeCancel drops a combatant's queued intent
	RequestTypeCancel RequestType = "cancel"

	// RequestTypePropose offers a spar, truce or surrender
	RequestTypePropose RequestType = "propose"

	// RequestTypeAnswer accepts or rejects an open proposal
	RequestTypeAnswer RequestType = "answer"

	// RequestTypeTemplate applies a stored strategy template by name
	RequestTypeTemplate RequestType = "template"

	// RequestTypeLeave removes a combatant from its session
	RequestTypeLeave RequestType = "leave"
)

// IntentRequest is one command for the pulse worker.
type IntentRequest struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	Combatant string      `json:"combatant"`

	// Spawn-specific fields
	FighterID string `json:"fighter_id,omitempty"`

	// Intent-specific fields
	Intent *combat.Intent `json:"intent,omitempty"`

	// Proposal-specific fields
	Proposal   string `json:"proposal,omitempty"`    // kind when proposing
	To         string `json:"to,omitempty"`          // recipient when proposing
	ProposalID string `json:"proposal_id,omitempty"` // when answering
	Accept     bool   `json:"accept,omitempty"`

	Template string `json:"template,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks the fields each request type needs.
func (r *IntentRequest) Validate() error {
	if r.Combatant == "" {
		return fmt.Errorf("combatant is required")
	}
	switch r.Type {
	case RequestTypeSpawn, RequestTypeCancel, RequestTypeLeave:
	case RequestTypeIntent:
		if r.Intent == nil {
			return fmt.Errorf("intent is required")
		}
	case RequestTypePropose:
		if _, err := combat.ParseProposalKind(r.Proposal); err != nil {
			return err
		}
		if r.To == "" {
			return fmt.Errorf("proposal recipient is required")
		}
	case RequestTypeAnswer:
		if r.ProposalID == "" {
			return fmt.Errorf("proposal_id is required")
		}
	case RequestTypeTemplate:
		if r.Template == "" {
			return fmt.Errorf("template name is required")
		}
	default:
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *IntentRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*IntentRequest, error) {
	var req IntentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
