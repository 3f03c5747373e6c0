package queue

import (
	"strings"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     IntentRequest
		wantErr string
	}{
		{"spawn", IntentRequest{Type: RequestTypeSpawn, Combatant: "ann"}, ""},
		{"cancel", IntentRequest{Type: RequestTypeCancel, Combatant: "ann"}, ""},
		{"leave", IntentRequest{Type: RequestTypeLeave, Combatant: "ann"}, ""},
		{"missing combatant", IntentRequest{Type: RequestTypeSpawn}, "combatant is required"},
		{"intent without body", IntentRequest{Type: RequestTypeIntent, Combatant: "ann"}, "intent is required"},
		{"intent", IntentRequest{Type: RequestTypeIntent, Combatant: "ann", Intent: &combat.Intent{Kind: combat.IntentDefend}}, ""},
		{"propose", IntentRequest{Type: RequestTypePropose, Combatant: "ann", To: "bob", Proposal: "truce"}, ""},
		{"propose unknown kind", IntentRequest{Type: RequestTypePropose, Combatant: "ann", To: "bob", Proposal: "duel"}, "duel"},
		{"propose without recipient", IntentRequest{Type: RequestTypePropose, Combatant: "ann", Proposal: "spar"}, "recipient"},
		{"answer", IntentRequest{Type: RequestTypeAnswer, Combatant: "bob", ProposalID: "p1", Accept: true}, ""},
		{"answer without id", IntentRequest{Type: RequestTypeAnswer, Combatant: "bob"}, "proposal_id"},
		{"template", IntentRequest{Type: RequestTypeTemplate, Combatant: "ann", Template: "turtle"}, ""},
		{"template without name", IntentRequest{Type: RequestTypeTemplate, Combatant: "ann"}, "template name"},
		{"unknown type", IntentRequest{Type: "chat", Combatant: "ann"}, "unknown request type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromJSON_IntentUsesKindNames(t *testing.T) {
	data := `{"request_id":"r1","type":"intent","combatant":"ann","intent":{"kind":"grapple","target":"bob"}}`
	req, err := FromJSON([]byte(data))
	require.NoError(t, err)
	require.NotNil(t, req.Intent)
	assert.Equal(t, combat.IntentGrapple, req.Intent.Kind)
	assert.Equal(t, "bob", req.Intent.Target)

	out, err := req.ToJSON()
	require.NoError(t, err)
	if !strings.Contains(string(out), `"kind":"grapple"`) {
		t.Errorf("expected kind to marshal by name, got %s", out)
	}
}

func TestFromJSON_UnknownIntentKind(t *testing.T) {
	_, err := FromJSON([]byte(`{"type":"intent","combatant":"ann","intent":{"kind":"dance"}}`))
	assert.Error(t, err)
}
