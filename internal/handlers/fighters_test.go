package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/storage"
)

func fighterStore() *storage.MockStorage {
	s := storage.NewMockStorage()
	s.AddFighterSpec("pit_fighter", &actor.FighterSpec{
		ID: "pit_fighter", Name: "Pit Fighter", Side: "arena", MaxHP: 18, AC: 13,
		Moves: []move.Move{{Name: "elbow", Category: move.CategoryNatural, Weight: 1}},
	})
	s.AddFighterSpec("broken", &actor.FighterSpec{ID: "broken", Name: "No HP"})
	return s
}

func TestFighterHandler_List(t *testing.T) {
	h := NewFighterHandler(testLogger(), fighterStore())

	w := do(t, h, http.MethodGet, "/v1/fighters", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var list []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d fighters, want 2", len(list))
	}
	for _, f := range list {
		for _, key := range []string{"id", "name", "side", "max_hp", "mode"} {
			if _, ok := f[key]; !ok {
				t.Errorf("fighter summary missing %q", key)
			}
		}
	}
}

func TestFighterHandler_Get(t *testing.T) {
	h := NewFighterHandler(testLogger(), fighterStore())

	tests := []struct {
		path string
		want int
	}{
		{"/v1/fighters/pit_fighter", http.StatusOK},
		{"/v1/fighters/missing", http.StatusNotFound},
		{"/v1/fighters/..%2Fetc", http.StatusBadRequest},
		{"/v1/fighters/broken", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.path, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d, body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	w := do(t, h, http.MethodGet, "/v1/fighters/pit_fighter", nil)
	var body struct {
		Fighter actor.FighterSpec `json:"fighter"`
		Moves   []move.Move       `json:"moves"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body.Fighter.HP != 18 {
		t.Errorf("HP = %d, want 18", body.Fighter.HP)
	}
	if len(body.Moves) != 1 || body.Moves[0].Name != "elbow" {
		t.Errorf("moves = %+v, want [elbow]", body.Moves)
	}
}
