package strategy

import (
	"fmt"

	"github.com/jwebster45206/combat-engine/pkg/move"
	"gopkg.in/yaml.v3"
)

// CategoryMix is the target share of weapon, natural, auxiliary and magic moves.
// Shares are in [0,1] and sum to 1.
type CategoryMix map[move.Category]float64

// EvenMix splits selection evenly across all categories.
func EvenMix() CategoryMix {
	mix := make(CategoryMix, len(move.Categories))
	for _, c := range move.Categories {
		mix[c] = 1 / float64(len(move.Categories))
	}
	return mix
}

// Share returns the share of a category. A nil mix gives every category 1.
func (mix CategoryMix) Share(c move.Category) float64 {
	if mix == nil {
		return 1
	}
	return mix[c]
}

// Total sums the shares.
func (mix CategoryMix) Total() float64 {
	total := 0.0
	for _, c := range move.Categories {
		total += mix[c]
	}
	return total
}

// Set fixes one category's share (clamped to [0,1]) and rebalances the others
// proportionally so the total stays 1. Categories already at zero keep their zero
// while any other category has weight; only when every other share is zero is the
// remainder spread evenly.
func (mix CategoryMix) Set(c move.Category, share float64) CategoryMix {
	share = max(0, min(1, share))
	out := make(CategoryMix, len(move.Categories))

	others := 0.0
	var rest []move.Category
	for _, o := range move.Categories {
		if o == c {
			continue
		}
		rest = append(rest, o)
		others += max(0, mix[o])
	}

	remaining := 1 - share
	out[c] = share
	for _, o := range rest {
		switch {
		case others > 0:
			out[o] = max(0, min(1, max(0, mix[o])*remaining/others))
		default:
			out[o] = remaining / float64(len(rest))
		}
	}
	return out
}

// Normalized rescales the shares to sum to 1. An all-zero mix becomes even.
func (mix CategoryMix) Normalized() CategoryMix {
	total := 0.0
	for _, c := range move.Categories {
		total += max(0, mix[c])
	}
	if total == 0 {
		return EvenMix()
	}
	out := make(CategoryMix, len(move.Categories))
	for _, c := range move.Categories {
		out[c] = max(0, mix[c]) / total
	}
	return out
}

func (mix CategoryMix) MarshalYAML() (interface{}, error) {
	out := make(map[string]float64, len(mix))
	for c, v := range mix {
		out[c.String()] = v
	}
	return out, nil
}

func (mix *CategoryMix) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]float64
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode category mix: %w", err)
	}
	out := make(CategoryMix, len(raw))
	for name, v := range raw {
		c, err := move.ParseCategory(name)
		if err != nil {
			return err
		}
		out[c] = max(0, min(1, v))
	}
	*mix = out
	return nil
}

func (mix CategoryMix) String() string {
	return fmt.Sprintf("weapon=%.2f natural=%.2f auxiliary=%.2f magic=%.2f",
		mix[move.CategoryWeapon], mix[move.CategoryNatural], mix[move.CategoryAuxiliary], mix[move.CategoryMagic])
}
