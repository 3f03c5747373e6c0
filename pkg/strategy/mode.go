// Package strategy holds the behavioural stance of a combatant: its mode and
// the policy filters that shape which moves it is willing to make.
package strategy

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/move"
)

// Mode is the overall stance governing move selection bias.
type Mode int

const (
	ModeStandardMelee Mode = iota
	ModeFullDefense
	ModeClinch
	ModeWard
	ModeGrappleControl
	ModeGrappleIncapacitate
	ModeGrappleKill
	ModeFlee
	ModeStandardRanged
	ModeAiming
)

var modeNames = map[Mode]string{
	ModeStandardMelee:       "standard_melee",
	ModeFullDefense:         "full_defense",
	ModeClinch:              "clinch",
	ModeWard:                "ward",
	ModeGrappleControl:      "grapple_control",
	ModeGrappleIncapacitate: "grapple_incapacitate",
	ModeGrappleKill:         "grapple_kill",
	ModeFlee:                "flee",
	ModeStandardRanged:      "standard_ranged",
	ModeAiming:              "aiming",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Grappling reports whether the mode is one of the grapple modes.
func (m Mode) Grappling() bool {
	return m == ModeGrappleControl || m == ModeGrappleIncapacitate || m == ModeGrappleKill
}

// Preferred returns the tags this mode biases selection toward.
// Grapple-for-control consolidates the hold, incapacitation and kill exploit it.
func (m Mode) Preferred() move.TagSet {
	switch m {
	case ModeStandardMelee:
		return move.NewTagSet(move.TagMelee)
	case ModeFullDefense:
		return move.NewTagSet(move.TagDefensive)
	case ModeClinch:
		return move.NewTagSet(move.TagClinch)
	case ModeWard:
		return move.NewTagSet(move.TagWard, move.TagDefensive)
	case ModeGrappleControl:
		return move.NewTagSet(move.TagGrapple, move.TagLimbLock)
	case ModeGrappleIncapacitate:
		return move.NewTagSet(move.TagLimbLock, move.TagTrip, move.TagNonLethal)
	case ModeGrappleKill:
		return move.NewTagSet(move.TagStrangle, move.TagLethal)
	case ModeStandardRanged, ModeAiming:
		return move.NewTagSet(move.TagRanged)
	default:
		return move.NewTagSet()
	}
}

// Required returns tags every selected move must carry in this mode.
func (m Mode) Required() move.TagSet {
	switch m {
	case ModeFullDefense:
		return move.NewTagSet(move.TagDefensive)
	case ModeFlee:
		return move.NewTagSet(move.TagFlee)
	default:
		return move.NewTagSet()
	}
}

// Automation is how much the engine may do on a combatant's behalf.
type Automation int

const (
	AutomationNone Automation = iota
	AutomationPartial
	AutomationFull
)

func (a Automation) String() string {
	switch a {
	case AutomationNone:
		return "none"
	case AutomationPartial:
		return "partial"
	case AutomationFull:
		return "full"
	default:
		return "unknown"
	}
}

func (a Automation) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Automation) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none", "":
		*a = AutomationNone
	case "partial":
		*a = AutomationPartial
	case "full":
		*a = AutomationFull
	default:
		return fmt.Errorf("unknown automation level %q", string(text))
	}
	return nil
}
