package combat

import (
	"context"

	"github.com/jwebster45206/combat-engine/pkg/move"
)

// Body is the body and equipment of a combatant. It supplies limbs, candidate
// moves, and the state predicates the move catalogue filters against.
type Body interface {
	ID() string
	Name() string
	Limbs() []string
	// Moves returns every candidate move from wielded weapons, natural weapons,
	// auxiliary items and spells. It is called every selection cycle.
	Moves() []move.Move
	FreeHands() int
	Size() float64
	HasItem(name string) bool

	Alive() bool
	Conscious() bool
	Helpless() bool
	Prone() bool
	SetProne(prone bool)

	// Wound applies damage. lethal is false for sparring and non-lethal moves.
	Wound(amount int, lethal bool)
}

// Outcome is a graded result of an opposed check. Degree is the margin of
// success (positive) or failure (negative).
type Outcome struct {
	Success bool `json:"success"`
	Degree  int  `json:"degree"`
}

// Checker resolves opposed checks. The engine treats it as a black box.
type Checker interface {
	Resolve(attacker, defender *Combatant, mv move.Move, difficulty float64) Outcome
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(attacker, defender *Combatant, mv move.Move, difficulty float64) Outcome

func (f CheckerFunc) Resolve(attacker, defender *Combatant, mv move.Move, difficulty float64) Outcome {
	return f(attacker, defender, mv, difficulty)
}

// EligibilityHook decides whether a combatant may adopt a strategy template.
// A missing hook, an empty script, or an error all mean allow.
type EligibilityHook interface {
	Eligible(ctx context.Context, script string, c *Combatant) (bool, error)
}

// LineOfFire validates an aim path when a shot is released.
type LineOfFire interface {
	Clear(shooter, target *Combatant, path []string) bool
}

// Tuning is key lookup for deployment thresholds.
type Tuning interface {
	Float(key string, def float64) float64
	Int(key string, def int) int
	Bool(key string, def bool) bool
}
