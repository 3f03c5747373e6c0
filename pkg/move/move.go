// Package move describes the candidate actions a combatant can take and filters
// them down to the ones usable in the current situation.
package move

import (
	"fmt"
	"strings"
)

// Category is the source family of a move. Strategy policies weight these
// families against each other.
type Category int

const (
	CategoryWeapon Category = iota
	CategoryNatural
	CategoryAuxiliary
	CategoryMagic
)

// Categories lists every category in declaration order.
var Categories = []Category{CategoryWeapon, CategoryNatural, CategoryAuxiliary, CategoryMagic}

func (c Category) String() string {
	switch c {
	case CategoryWeapon:
		return "weapon"
	case CategoryNatural:
		return "natural"
	case CategoryAuxiliary:
		return "auxiliary"
	case CategoryMagic:
		return "magic"
	default:
		return "unknown"
	}
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if c.String() == strings.ToLower(strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown move category %q", s)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Range is the distance band between two combatants.
type Range int

const (
	RangeAny Range = iota
	RangeClinch
	RangeMelee
	RangeRanged
)

func (r Range) String() string {
	switch r {
	case RangeAny:
		return "any"
	case RangeClinch:
		return "clinch"
	case RangeMelee:
		return "melee"
	case RangeRanged:
		return "ranged"
	default:
		return "unknown"
	}
}

var rangeNames = []Range{RangeAny, RangeClinch, RangeMelee, RangeRanged}

func (r Range) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Range) UnmarshalText(text []byte) error {
	for _, candidate := range rangeNames {
		if candidate.String() == strings.ToLower(string(text)) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown range %q", string(text))
}

// TargetRequirement constrains the state the opponent must be in.
type TargetRequirement int

const (
	TargetAny TargetRequirement = iota
	TargetHelpless
	TargetProne
	TargetStanding
	// TargetHeld requires the actor to already hold the target in a grapple.
	TargetHeld
)

var targetNames = map[TargetRequirement]string{
	TargetAny:      "any",
	TargetHelpless: "helpless",
	TargetProne:    "prone",
	TargetStanding: "standing",
	TargetHeld:     "held",
}

func (t TargetRequirement) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t TargetRequirement) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TargetRequirement) UnmarshalText(text []byte) error {
	for req, name := range targetNames {
		if name == strings.ToLower(string(text)) {
			*t = req
			return nil
		}
	}
	return fmt.Errorf("unknown target requirement %q", string(text))
}

// AimProfile holds the aim parameters of a ranged weapon.
type AimProfile struct {
	Rate            float64 `json:"rate" yaml:"rate"`                         // aim gained per tick
	Decrement       float64 `json:"decrement" yaml:"decrement"`               // aim lost per shot
	RequiredMinimum float64 `json:"required_minimum" yaml:"required_minimum"` // below this accuracy suffers
}

// Move is one candidate action. Moves are rebuilt every selection cycle and
// never persisted.
type Move struct {
	Name       string            `json:"name"`
	Category   Category          `json:"category"`
	Cost       float64           `json:"cost"`
	Weight     float64           `json:"weight"`
	Tags       TagSet            `json:"tags"`
	Range      Range             `json:"range,omitempty"`
	Target     TargetRequirement `json:"target,omitempty"`
	Hands      int               `json:"hands,omitempty"`
	Difficulty float64           `json:"difficulty,omitempty"`
	Damage     int               `json:"damage,omitempty"`
	// Delay is the number of ticks the move winds up before it resolves.
	Delay int         `json:"delay,omitempty"`
	Aim   *AimProfile `json:"aim,omitempty"`
}

func (m Move) Has(t Tag) bool { return m.Tags.Has(t) }

// Armed reports whether the move comes from a wielded weapon.
func (m Move) Armed() bool { return m.Category == CategoryWeapon }

// Override forces selection toward one move family, e.g. "always strangle".
type Override struct {
	Tags   TagSet `json:"tags"`
	Sticky bool   `json:"sticky,omitempty"` // persists until cleared instead of one use
}

// Matches reports whether the move carries every tag of the override.
func (o *Override) Matches(m Move) bool {
	if o == nil {
		return true
	}
	return m.Tags.ContainsAll(o.Tags)
}

// Situation is the snapshot of actor and opponent state a move is checked against.
type Situation struct {
	Distance       Range
	TargetHelpless bool
	TargetProne    bool
	FreeHands      int
	// Holding is true when the actor already holds the opponent in a grapple.
	Holding bool
	// NoTarget is set when the actor has nobody to act against; only moves
	// without a target requirement and with RangeAny stay usable.
	NoTarget bool
}

// Usable reports whether a move can be attempted in the situation.
func (m Move) Usable(s Situation) bool {
	if s.NoTarget {
		return m.Range == RangeAny && m.Target == TargetAny && !m.Has(TagGrapple) && !m.Has(TagStrangle)
	}
	if !rangeFits(m.Range, s.Distance) {
		return false
	}
	switch m.Target {
	case TargetHelpless:
		if !s.TargetHelpless {
			return false
		}
	case TargetProne:
		if !s.TargetProne {
			return false
		}
	case TargetStanding:
		if s.TargetProne {
			return false
		}
	case TargetHeld:
		if !s.Holding {
			return false
		}
	}
	if m.Has(TagStrangle) && !s.Holding {
		return false
	}
	if m.Has(TagFinisher) && !s.TargetHelpless {
		return false
	}
	return m.Hands <= s.FreeHands
}

func rangeFits(need, have Range) bool {
	switch need {
	case RangeAny:
		return true
	case RangeRanged:
		return have == RangeRanged || have == RangeMelee
	case RangeMelee:
		return have == RangeMelee || have == RangeClinch
	default:
		return need == have
	}
}

// Usable filters candidates down to moves usable in the situation and, if an
// override is given, to moves matching its tags.
func Usable(candidates []Move, s Situation, o *Override) []Move {
	out := make([]Move, 0, len(candidates))
	for _, m := range candidates {
		if !m.Usable(s) || !o.Matches(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// OfCategory returns the moves of the given category.
func OfCategory(moves []Move, c Category) []Move {
	var out []Move
	for _, m := range moves {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}

// Find returns the first move with the given name.
func Find(moves []Move, name string) (Move, bool) {
	for _, m := range moves {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Move{}, false
}
