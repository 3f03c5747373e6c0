package combat

import (
	"fmt"
	"math/rand/v2"

	"github.com/jwebster45206/combat-engine/pkg/ledger"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// Selection is everything the selector needs for one draw.
type Selection struct {
	Candidates []move.Move
	Situation  move.Situation
	Override   *move.Override
	// Policy is the effective policy, mode bias already merged.
	Policy strategy.Policy
	Ledger *ledger.Ledger
}

// Selector draws one move per turn from the filtered, weighted candidates.
type Selector struct {
	rng                 *rand.Rand
	preferredMultiplier float64
}

func NewSelector(rng *rand.Rand, preferredMultiplier float64) *Selector {
	if preferredMultiplier <= 1 {
		preferredMultiplier = DefaultSettings().PreferredMultiplier
	}
	return &Selector{rng: rng, preferredMultiplier: preferredMultiplier}
}

type weighted struct {
	move   move.Move
	weight float64
}

// Select picks a move and spends its cost from the ledger.
func (s *Selector) Select(sel Selection) (move.Move, error) {
	mv, err := s.Choose(sel)
	if err != nil {
		return move.Move{}, err
	}
	if err := sel.Ledger.Spend(mv.Cost); err != nil {
		return move.Move{}, fmt.Errorf("spend for %s: %w", mv.Name, err)
	}
	return mv, nil
}

// Choose picks a move without spending.
func (s *Selector) Choose(sel Selection) (move.Move, error) {
	usable := move.Usable(sel.Candidates, sel.Situation, sel.Override)
	pool, unaffordable := s.weigh(usable, sel, true)

	if len(pool) == 0 && sel.Policy.FallbackUnarmed && !anyArmed(usable) {
		natural := move.OfCategory(usable, move.CategoryNatural)
		var more bool
		pool, more = s.weigh(natural, sel, false)
		unaffordable = unaffordable || more
	}

	if len(pool) == 0 {
		if unaffordable {
			return move.Move{}, fmt.Errorf("%w: %w", ErrNoLegalMove, ErrInsufficientResource)
		}
		return move.Move{}, fmt.Errorf("%w: nothing usable among %d candidates", ErrNoLegalMove, len(sel.Candidates))
	}
	return s.draw(pool), nil
}

// weigh applies the tag filters, affordability and weighting. It reports whether
// any move passed the filters but could not be afforded.
func (s *Selector) weigh(moves []move.Move, sel Selection, enforceRequired bool) ([]weighted, bool) {
	p := sel.Policy
	var filtered []move.Move
	for _, m := range moves {
		if enforceRequired && !m.Tags.ContainsAll(p.Required) {
			continue
		}
		if m.Tags.Intersects(p.Forbidden) {
			continue
		}
		filtered = append(filtered, m)
	}

	catTotals := make(map[move.Category]float64)
	for _, m := range filtered {
		catTotals[m.Category] += max(0, m.Weight)
	}

	var pool []weighted
	unaffordable := false
	for _, m := range filtered {
		w := max(0, m.Weight)
		if w == 0 {
			continue
		}
		if m.Tags.Intersects(p.Preferred) {
			w *= s.preferredMultiplier
		}
		if p.Mix != nil {
			w *= p.Mix.Share(m.Category) / catTotals[m.Category]
		}
		if w <= 0 {
			continue
		}
		if sel.Ledger != nil && !sel.Ledger.CanAfford(m.Cost) {
			unaffordable = true
			continue
		}
		pool = append(pool, weighted{move: m, weight: w})
	}
	return pool, unaffordable
}

// draw is a cumulative weighted draw.
func (s *Selector) draw(pool []weighted) move.Move {
	total := 0.0
	for _, w := range pool {
		total += w.weight
	}
	r := s.rng.Float64() * total
	cum := 0.0
	for _, w := range pool {
		cum += w.weight
		if r < cum {
			return w.move
		}
	}
	return pool[len(pool)-1].move
}

func anyArmed(moves []move.Move) bool {
	for _, m := range moves {
		if m.Armed() {
			return true
		}
	}
	return false
}
