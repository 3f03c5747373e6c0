package worker

import (
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// SnapshotKey holds the JSON Snapshot written after every pulse.
const SnapshotKey = "combat-snapshot"

// Snapshot is a read-only view of the engine for the API.
type Snapshot struct {
	Tick       uint64              `json:"tick"`
	Combatants []CombatantSnapshot `json:"combatants"`
	Sessions   []SessionSnapshot   `json:"sessions"`
}

type CombatantSnapshot struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Side       string   `json:"side,omitempty"`
	Mode       string   `json:"mode"`
	Target     string   `json:"target,omitempty"`
	Session    string   `json:"session,omitempty"`
	Stamina    float64  `json:"stamina"`
	MaxStamina float64  `json:"max_stamina"`
	Aim        float64  `json:"aim"`
	Burden     int      `json:"burden"`
	Conscious  bool     `json:"conscious"`
	Prone      bool     `json:"prone"`
	Pending    string   `json:"pending,omitempty"`
	Proposals  []string `json:"proposals,omitempty"`
}

type SessionSnapshot struct {
	ID       string   `json:"id"`
	State    string   `json:"state"`
	Friendly bool     `json:"friendly"`
	Started  uint64   `json:"started"`
	Members  []string `json:"members"`
	Grapples int      `json:"grapples"`
}

// BuildSnapshot reads the engine. It must run on the goroutine that owns it.
func BuildSnapshot(e *combat.Engine) Snapshot {
	snap := Snapshot{Tick: e.CurrentTick()}
	for _, c := range e.Combatants() {
		cs := CombatantSnapshot{
			ID:         c.ID(),
			Name:       c.Name(),
			Side:       c.Side(),
			Mode:       c.Mode().String(),
			Target:     c.TargetID(),
			Session:    c.SessionID(),
			Stamina:    c.Ledger().Stamina(),
			MaxStamina: c.Ledger().MaxStamina(),
			Aim:        c.Ledger().Aim(),
			Burden:     c.Ledger().Burden(),
			Conscious:  c.Body().Conscious(),
			Prone:      c.Body().Prone(),
		}
		if in, ok := c.Pending(); ok {
			cs.Pending = in.Kind.String()
		}
		for _, p := range e.Proposals(c.ID()) {
			cs.Proposals = append(cs.Proposals, p.ID)
		}
		snap.Combatants = append(snap.Combatants, cs)
	}
	for _, s := range e.Sessions() {
		ss := SessionSnapshot{
			ID:       s.ID(),
			State:    string(s.State()),
			Friendly: s.Friendly(),
			Started:  s.Started(),
			Grapples: len(s.Grapples()),
		}
		for _, m := range s.Members() {
			ss.Members = append(ss.Members, m.ID())
		}
		snap.Sessions = append(snap.Sessions, ss)
	}
	return snap
}
