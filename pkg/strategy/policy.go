package strategy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/move"
)

// ErrPolicyConflict is returned when required and forbidden tags overlap,
// leaving a class of moves permanently unusable.
var ErrPolicyConflict = errors.New("policy conflict")

// Policy filters and biases move selection.
type Policy struct {
	Required  move.TagSet `json:"required,omitempty" yaml:"required,omitempty"`
	Preferred move.TagSet `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	Forbidden move.TagSet `json:"forbidden,omitempty" yaml:"forbidden,omitempty"`

	// FallbackUnarmed lets the selector retry with natural moves when no armed move fits.
	FallbackUnarmed bool `json:"fallback_unarmed,omitempty" yaml:"fallback_unarmed,omitempty"`

	Inventory Automation `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	Movement  Automation `json:"movement,omitempty" yaml:"movement,omitempty"`
	Position  Automation `json:"position,omitempty" yaml:"position,omitempty"`

	// MinimumAim is the aim fraction at which an aiming combatant fires on its own.
	MinimumAim float64 `json:"minimum_aim,omitempty" yaml:"minimum_aim,omitempty"`
	AutoFire   bool    `json:"auto_fire,omitempty" yaml:"auto_fire,omitempty"`

	Mix CategoryMix `json:"mix,omitempty" yaml:"mix,omitempty"`
}

// DefaultPolicy is the stance of a freshly engaged combatant.
func DefaultPolicy() Policy {
	return Policy{
		Required:        move.NewTagSet(),
		Preferred:       move.NewTagSet(),
		Forbidden:       move.NewTagSet(),
		FallbackUnarmed: true,
		Movement:        AutomationPartial,
		Position:        AutomationPartial,
		MinimumAim:      0.8,
		AutoFire:        true,
	}
}

// Validate checks that the policy can ever be satisfied.
func (p Policy) Validate() error {
	if overlap := p.Required.Intersect(p.Forbidden); !overlap.IsEmpty() {
		return fmt.Errorf("%w: tags %s are both required and forbidden", ErrPolicyConflict, overlap)
	}
	if p.MinimumAim < 0 || p.MinimumAim > 1 {
		return fmt.Errorf("minimum aim %.2f outside [0,1]", p.MinimumAim)
	}
	return nil
}

// SetMinimumAim stores the auto-fire threshold clamped to [0,1].
func (p *Policy) SetMinimumAim(v float64) {
	p.MinimumAim = max(0, min(1, v))
}

// SetCategoryShare fixes one category share and rebalances the others.
func (p *Policy) SetCategoryShare(c move.Category, share float64) {
	base := p.Mix
	if base == nil {
		base = EvenMix()
	}
	p.Mix = base.Set(c, share)
}

// Require adds required tags, rejecting any that are currently forbidden.
func (p *Policy) Require(tags ...move.Tag) error {
	add := move.NewTagSet(tags...)
	if overlap := add.Intersect(p.Forbidden); !overlap.IsEmpty() {
		return fmt.Errorf("%w: %s already forbidden", ErrPolicyConflict, overlap)
	}
	p.Required = p.Required.Union(add)
	return nil
}

// Forbid adds forbidden tags, rejecting any that are currently required.
func (p *Policy) Forbid(tags ...move.Tag) error {
	add := move.NewTagSet(tags...)
	if overlap := add.Intersect(p.Required); !overlap.IsEmpty() {
		return fmt.Errorf("%w: %s already required", ErrPolicyConflict, overlap)
	}
	p.Forbidden = p.Forbidden.Union(add)
	p.Preferred = p.Preferred.Subtract(add)
	return nil
}

// Prefer adds preferred tags. Forbidden tags are never preferred.
func (p *Policy) Prefer(tags ...move.Tag) {
	p.Preferred = p.Preferred.Union(move.NewTagSet(tags...)).Subtract(p.Forbidden)
}

// Effective merges the mode's bias into the policy. The result may fail
// Validate when the mode requires something the policy forbids.
func (p Policy) Effective(mode Mode) Policy {
	out := p
	out.Required = p.Required.Union(mode.Required())
	out.Preferred = p.Preferred.Union(mode.Preferred()).Subtract(p.Forbidden)
	out.Forbidden = p.Forbidden.Clone()
	return out
}

// Template is a named, reusable policy bundle.
type Template struct {
	ID          uuid.UUID `json:"id" yaml:"id,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Mode        Mode      `json:"mode" yaml:"mode"`
	Policy      Policy    `json:"policy" yaml:"policy"`
	// Eligibility is an optional script deciding whether a combatant may adopt the template.
	Eligibility string    `json:"eligibility,omitempty" yaml:"eligibility,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Validate checks the template is storable and its policy satisfiable in its mode.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if err := t.Policy.Validate(); err != nil {
		return fmt.Errorf("template %q: %w", t.Name, err)
	}
	if err := t.Policy.Effective(t.Mode).Validate(); err != nil {
		return fmt.Errorf("template %q in mode %s: %w", t.Name, t.Mode, err)
	}
	return nil
}
