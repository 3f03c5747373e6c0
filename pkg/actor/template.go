package actor

import "maps"

// NewFromTemplate builds a FighterSpec from a base template with overrides.
// The overrides must carry the instance ID; every other non-zero field
// replaces the template value. Attribute and modifier maps are merged.
func NewFromTemplate(template *FighterSpec, overrides *FighterSpec) *FighterSpec {
	if template == nil || overrides == nil {
		return nil
	}

	s := *template
	s.ID = overrides.ID
	s.TemplateID = template.ID
	if overrides.TemplateID != "" {
		s.TemplateID = overrides.TemplateID
	}

	if overrides.Name != "" {
		s.Name = overrides.Name
	}
	if overrides.Pronouns != "" {
		s.Pronouns = overrides.Pronouns
	}
	if overrides.Description != "" {
		s.Description = overrides.Description
	}
	if overrides.Side != "" {
		s.Side = overrides.Side
	}
	if overrides.Initiative != 0 {
		s.Initiative = overrides.Initiative
	}
	if overrides.Size != 0 {
		s.Size = overrides.Size
	}
	if overrides.Hands != 0 {
		s.Hands = overrides.Hands
	}
	if len(overrides.Limbs) > 0 {
		s.Limbs = overrides.Limbs
	}
	if overrides.Stats != (Stats5e{}) {
		s.Stats = overrides.Stats
	}
	if overrides.AC != 0 {
		s.AC = overrides.AC
	}
	if overrides.HP != 0 {
		s.HP = overrides.HP
	}
	if overrides.MaxHP != 0 {
		s.MaxHP = overrides.MaxHP
	}
	if overrides.Stamina != 0 {
		s.Stamina = overrides.Stamina
	}

	s.Attributes = merged(template.Attributes, overrides.Attributes)
	s.CombatModifiers = merged(template.CombatModifiers, overrides.CombatModifiers)

	if len(overrides.Inventory) > 0 {
		s.Inventory = overrides.Inventory
	} else {
		s.Inventory = append([]string(nil), template.Inventory...)
	}
	if len(overrides.Moves) > 0 {
		s.Moves = overrides.Moves
	}
	if len(overrides.Weapons) > 0 {
		s.Weapons = overrides.Weapons
	}
	if overrides.Mode != 0 {
		s.Mode = overrides.Mode
	}
	if overrides.Policy != nil {
		p := *overrides.Policy
		s.Policy = &p
	} else if template.Policy != nil {
		p := *template.Policy
		s.Policy = &p
	}

	if s.HP < 0 {
		s.HP = 0
	}
	if s.MaxHP > 0 && s.HP == 0 {
		s.HP = s.MaxHP
	}
	return &s
}

// merged copies base and applies over on top without touching either input.
func merged(base, over map[string]int) map[string]int {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]int, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
