// Package ledger tracks the consumable resources of a single combatant:
// stamina, accumulated aim, and burden offsets.
package ledger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrInsufficientResource is returned when a spend exceeds what is available.
var ErrInsufficientResource = errors.New("insufficient resource")

// Ledger is owned by one combatant and mutated only during its own resolution step.
type Ledger struct {
	stamina    float64
	maxStamina float64
	aim        float64
	maxBurden  int
	burden     map[string]int
}

// New creates a ledger with full stamina. maxBurden bounds the absolute total
// burden offset; zero disables the bound.
func New(maxStamina float64, maxBurden int) *Ledger {
	if maxStamina < 0 {
		maxStamina = 0
	}
	return &Ledger{
		stamina:    maxStamina,
		maxStamina: maxStamina,
		maxBurden:  maxBurden,
		burden:     make(map[string]int),
	}
}

func (l *Ledger) Stamina() float64    { return l.stamina }
func (l *Ledger) MaxStamina() float64 { return l.maxStamina }

// CanAfford reports whether cost can be spent now. Negative costs are never affordable.
func (l *Ledger) CanAfford(cost float64) bool {
	return cost >= 0 && cost <= l.stamina
}

// Spend deducts cost from stamina. On failure stamina is unchanged.
func (l *Ledger) Spend(cost float64) error {
	if !l.CanAfford(cost) {
		return fmt.Errorf("%w: need %.2f stamina, have %.2f", ErrInsufficientResource, cost, l.stamina)
	}
	l.stamina -= cost
	return nil
}

// Restore adds stamina up to the maximum and returns the amount actually restored.
func (l *Ledger) Restore(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := l.stamina
	l.stamina = min(l.maxStamina, l.stamina+amount)
	return l.stamina - before
}

// Aim returns the accumulated aim fraction in [0,1].
func (l *Ledger) Aim() float64 { return l.aim }

// AccumulateAim raises the aim fraction by delta, clamped to 1.
func (l *Ledger) AccumulateAim(delta float64) float64 {
	if delta > 0 {
		l.aim = clamp01(l.aim + delta)
	}
	return l.aim
}

// DecayAim lowers the aim fraction by decrement, clamped at 0.
func (l *Ledger) DecayAim(decrement float64) float64 {
	if decrement > 0 {
		l.aim = clamp01(l.aim - decrement)
	}
	return l.aim
}

// ResetAim drops the aim fraction to zero.
func (l *Ledger) ResetAim() { l.aim = 0 }

// SetBurden records a signed difficulty offset from a named source. A zero
// value removes the source.
func (l *Ledger) SetBurden(source string, degrees int) {
	if degrees == 0 {
		delete(l.burden, source)
		return
	}
	l.burden[source] = degrees
}

// Burden returns the summed offset, clamped to the configured maximum degrees.
func (l *Ledger) Burden() int {
	total := 0
	for _, v := range l.burden {
		total += v
	}
	if l.maxBurden > 0 {
		total = max(-l.maxBurden, min(l.maxBurden, total))
	}
	return total
}

// BurdenSources returns the names of the sources currently contributing burden.
func (l *Ledger) BurdenSources() []string {
	return slices.Sorted(maps.Keys(l.burden))
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
