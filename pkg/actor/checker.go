package actor

import (
	"math"
	"math/rand/v2"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/move"
)

// baseDC is the target number when the defender has no armour class.
const baseDC = 10

// Checker resolves opposed checks with a d20 roll. The attacker adds the
// modifier of its governing ability and its combat modifiers; the target
// number is the defender's AC plus the difficulty.
type Checker struct {
	rng *rand.Rand
}

var _ combat.Checker = (*Checker)(nil)

// NewChecker returns a Checker with a deterministic stream for the seed.
func NewChecker(seed uint64) *Checker {
	return &Checker{rng: rand.New(rand.NewPCG(seed, seed^0x5bd1e995))}
}

// Resolve rolls for attacker against defender. defender may be nil, e.g. when
// fleeing, in which case only the difficulty opposes the roll.
func (c *Checker) Resolve(attacker, defender *combat.Combatant, mv move.Move, difficulty float64) combat.Outcome {
	roll := c.rng.IntN(20) + 1
	total := roll + Bonus(fighterOf(attacker), mv)

	dc := baseDC
	if f := fighterOf(defender); f != nil && f.Actor != nil {
		dc = f.Actor.AC()
	}
	dc += int(math.Round(difficulty))

	margin := total - dc
	switch roll {
	case 1:
		return combat.Outcome{Success: false, Degree: min(margin, -1)}
	case 20:
		return combat.Outcome{Success: true, Degree: max(margin, 0)}
	}
	return combat.Outcome{Success: margin >= 0, Degree: margin}
}

// Bonus is the attack bonus a fighter brings to a move: the ability modifier
// (dexterity for ranged moves, strength otherwise) plus combat modifiers.
func Bonus(f *Fighter, mv move.Move) int {
	if f == nil || f.Actor == nil {
		return 0
	}
	ability := "strength"
	if mv.Has(move.TagRanged) {
		ability = "dexterity"
	}
	bonus := 0
	if score, ok := f.Actor.Attribute(ability); ok {
		bonus = Modifier(score)
	}
	for _, mod := range f.Actor.GetCombatModifiers() {
		bonus += mod.Value
	}
	return bonus
}

// Modifier converts an ability score to its 5e modifier.
func Modifier(score int) int {
	return int(math.Floor(float64(score-10) / 2))
}

func fighterOf(c *combat.Combatant) *Fighter {
	if c == nil {
		return nil
	}
	f, _ := c.Body().(*Fighter)
	return f
}
