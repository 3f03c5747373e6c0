package actor

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/jwebster45206/d20"
)

// Stats5e represents the six core D&D 5e ability scores
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s *Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// HumanoidLimbs is used when a spec lists no limbs.
var HumanoidLimbs = []string{"neck", "left_arm", "right_arm", "left_leg", "right_leg"}

// Weapon is an item that grants moves while it is carried.
type Weapon struct {
	Name  string      `json:"name"`
	Hands int         `json:"hands,omitempty"`
	Moves []move.Move `json:"moves"`
}

// FighterSpec is the serializable specification of a combatant body
type FighterSpec struct {
	ID          string `json:"id"`
	TemplateID  string `json:"template_id,omitempty"` // base spec in the fighters directory
	Name        string `json:"name,omitempty"`
	Pronouns    string `json:"pronouns,omitempty"`
	Description string `json:"description,omitempty"`
	Side        string `json:"side,omitempty"`
	Initiative  int    `json:"initiative,omitempty"`

	Size  float64  `json:"size,omitempty"`
	Hands int      `json:"hands,omitempty"`
	Limbs []string `json:"limbs,omitempty"`

	Stats           Stats5e        `json:"stats,omitempty"`
	HP              int            `json:"hp,omitempty"`     // Current HP (for serialization)
	MaxHP           int            `json:"max_hp,omitempty"` // Maximum HP
	AC              int            `json:"ac,omitempty"`
	Stamina         float64        `json:"stamina,omitempty"`
	CombatModifiers map[string]int `json:"combat_modifiers,omitempty"`
	Attributes      map[string]int `json:"attributes,omitempty"` // Skills, proficiencies, etc.
	Inventory       []string       `json:"inventory,omitempty"`

	// Moves are natural attacks, auxiliary moves and spells. Weapon moves come
	// from Weapons and are only offered while the weapon is in the inventory.
	Moves   []move.Move      `json:"moves,omitempty"`
	Weapons []Weapon         `json:"weapons,omitempty"`
	Mode    strategy.Mode    `json:"mode,omitempty"`
	Policy  *strategy.Policy `json:"policy,omitempty"`
}

// Fighter is the runtime body of a combatant. It implements combat.Body.
type Fighter struct {
	Spec  *FighterSpec
	Actor *d20.Actor // Built at runtime from FighterSpec

	hp          int
	dead        bool
	unconscious bool
	asleep      bool
	prone       bool
}

var _ combat.Body = (*Fighter)(nil)

// NewFighterFromSpec creates a Fighter from a FighterSpec
func NewFighterFromSpec(spec *FighterSpec) (*Fighter, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("fighter id is required")
	}

	allAttrs := spec.Stats.ToAttributes()
	maps.Copy(allAttrs, spec.Attributes)

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(allAttrs).
		WithCombatModifiers(spec.CombatModifiers).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	f := &Fighter{Spec: spec, Actor: actor, hp: spec.MaxHP}
	if spec.HP > 0 && spec.HP < spec.MaxHP {
		f.hp = spec.HP
		if err := actor.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return f, nil
}

// LoadFighter loads a fighter from a JSON file and builds its d20.Actor.
// The filename (without .json extension) overrides any ID in the JSON
func LoadFighter(path string) (*Fighter, error) {
	spec, err := LoadFighterSpec(path)
	if err != nil {
		return nil, err
	}
	return NewFighterFromSpec(spec)
}

// LoadFighterSpec reads a spec without building it.
func LoadFighterSpec(path string) (*FighterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fighter file: %w", err)
	}
	var spec FighterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fighter spec: %w", err)
	}
	spec.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	return &spec, nil
}

// CombatSpec is what the engine needs to register this fighter.
func (f *Fighter) CombatSpec() combat.Spec {
	return combat.Spec{
		Body:       f,
		Side:       f.Spec.Side,
		Initiative: f.Spec.Initiative,
		MaxStamina: f.Spec.Stamina,
		Mode:       f.Spec.Mode,
		Policy:     f.Spec.Policy,
	}
}

func (f *Fighter) ID() string { return f.Spec.ID }

func (f *Fighter) Name() string {
	if f.Spec.Name != "" {
		return f.Spec.Name
	}
	return f.Spec.ID
}

func (f *Fighter) Limbs() []string {
	if len(f.Spec.Limbs) == 0 {
		return HumanoidLimbs
	}
	return f.Spec.Limbs
}

// Moves lists natural moves followed by the moves of every carried weapon.
func (f *Fighter) Moves() []move.Move {
	out := slices.Clone(f.Spec.Moves)
	for _, w := range f.Spec.Weapons {
		if !f.HasItem(w.Name) {
			continue
		}
		for _, m := range w.Moves {
			m.Category = move.CategoryWeapon
			if m.Hands == 0 {
				m.Hands = w.Hands
			}
			out = append(out, m)
		}
	}
	return out
}

func (f *Fighter) FreeHands() int {
	if f.Spec.Hands == 0 {
		return 2
	}
	return f.Spec.Hands
}

func (f *Fighter) Size() float64 {
	if f.Spec.Size <= 0 {
		return 1
	}
	return f.Spec.Size
}

func (f *Fighter) HasItem(name string) bool {
	return slices.ContainsFunc(f.Spec.Inventory, func(item string) bool { return strings.EqualFold(item, name) })
}

// Drop removes an item from the inventory, e.g. when disarmed.
func (f *Fighter) Drop(name string) bool {
	i := slices.IndexFunc(f.Spec.Inventory, func(item string) bool { return strings.EqualFold(item, name) })
	if i < 0 {
		return false
	}
	f.Spec.Inventory = slices.Delete(f.Spec.Inventory, i, i+1)
	return true
}

func (f *Fighter) HP() int          { return f.hp }
func (f *Fighter) Alive() bool      { return !f.dead }
func (f *Fighter) Conscious() bool  { return !f.dead && !f.unconscious && !f.asleep }
func (f *Fighter) Helpless() bool   { return f.unconscious || f.asleep }
func (f *Fighter) Prone() bool      { return f.prone }
func (f *Fighter) SetProne(p bool)  { f.prone = p }
func (f *Fighter) SetAsleep(a bool) { f.asleep = a }

// Wound reduces HP. Lethal damage at zero HP kills; non-lethal damage knocks
// the fighter out instead.
func (f *Fighter) Wound(amount int, lethal bool) {
	if amount <= 0 || f.dead {
		return
	}
	f.asleep = false
	f.hp -= amount
	if f.hp > 0 {
		f.sync()
		return
	}
	f.hp = 0
	if lethal {
		f.dead = true
		return
	}
	f.unconscious = true
}

// Heal restores HP up to the maximum and wakes an unconscious fighter.
func (f *Fighter) Heal(n int) {
	if n <= 0 || f.dead {
		return
	}
	f.hp = min(f.hp+n, f.Actor.MaxHP())
	if f.hp > 0 {
		f.unconscious = false
	}
	f.sync()
}

// sync mirrors tracked HP into the d20 actor, which rejects non-positive values.
func (f *Fighter) sync() {
	if f.hp > 0 {
		_ = f.Actor.SetHP(f.hp)
	}
}

// MarshalJSON writes the spec with the current HP.
func (f *Fighter) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	spec := *f.Spec
	spec.HP = f.hp
	if f.Actor != nil {
		spec.MaxHP = f.Actor.MaxHP()
		spec.AC = f.Actor.AC()
		spec.CombatModifiers = make(map[string]int)
		for _, mod := range f.Actor.GetCombatModifiers() {
			spec.CombatModifiers[mod.Reason] = mod.Value
		}
	}
	return json.Marshal(spec)
}

// UnmarshalJSON reconstructs a Fighter and rebuilds its Actor
func (f *Fighter) UnmarshalJSON(data []byte) error {
	var spec FighterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to unmarshal fighter spec: %w", err)
	}
	built, err := NewFighterFromSpec(&spec)
	if err != nil {
		return err
	}
	*f = *built
	return nil
}
