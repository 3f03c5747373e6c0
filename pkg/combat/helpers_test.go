package combat

import (
	"context"
	"os"
	"slices"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Strict = true
	os.Exit(m.Run())
}

// testBody is a scriptable Body.
type testBody struct {
	id          string
	limbs       []string
	moves       []move.Move
	hands       int
	size        float64
	items       []string
	hp          int
	dead        bool
	unconscious bool
	helpless    bool
	prone       bool
	wounds      int
}

func newBody(id string, moves ...move.Move) *testBody {
	return &testBody{
		id:    id,
		limbs: []string{"left_arm", "right_arm", "left_leg", "right_leg", "neck"},
		moves: moves,
		hands: 2,
		size:  1,
		hp:    100,
	}
}

func (b *testBody) ID() string            { return b.id }
func (b *testBody) Name() string          { return b.id }
func (b *testBody) Limbs() []string       { return b.limbs }
func (b *testBody) Moves() []move.Move    { return b.moves }
func (b *testBody) FreeHands() int        { return b.hands }
func (b *testBody) Size() float64         { return b.size }
func (b *testBody) HasItem(n string) bool { return slices.Contains(b.items, n) }
func (b *testBody) Alive() bool           { return !b.dead }
func (b *testBody) Conscious() bool       { return !b.dead && !b.unconscious }
func (b *testBody) Helpless() bool        { return b.helpless || b.unconscious }
func (b *testBody) Prone() bool           { return b.prone }
func (b *testBody) SetProne(p bool)       { b.prone = p }

func (b *testBody) Wound(amount int, lethal bool) {
	b.wounds++
	b.hp -= amount
	if b.hp > 0 {
		return
	}
	if lethal {
		b.dead = true
		return
	}
	b.hp = 0
	b.unconscious = true
}

var (
	alwaysHit  = CheckerFunc(func(_, _ *Combatant, _ move.Move, _ float64) Outcome { return Outcome{Success: true, Degree: 1} })
	alwaysMiss = CheckerFunc(func(_, _ *Combatant, _ move.Move, _ float64) Outcome { return Outcome{Success: false, Degree: -1} })
)

func quietSettings() Settings {
	s := DefaultSettings()
	s.StaminaRegen = 0
	return s
}

func newTestEngine(t *testing.T, checker Checker, opts ...Option) (*Engine, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	opts = append([]Option{WithSeed(42), WithNotifier(rec)}, opts...)
	return New(quietSettings(), checker, opts...), rec
}

func register(t *testing.T, e *Engine, b *testBody, mods ...func(*Spec)) *Combatant {
	t.Helper()
	spec := Spec{Body: b, MaxStamina: 20, Mode: strategy.ModeStandardMelee}
	for _, m := range mods {
		m(&spec)
	}
	c, err := e.Register(spec)
	require.NoError(t, err)
	return c
}

func withPolicy(p strategy.Policy) func(*Spec) {
	return func(s *Spec) { s.Policy = &p }
}

func withSide(side string) func(*Spec) {
	return func(s *Spec) { s.Side = side }
}

func melee(name string, cost, weight float64, tags ...move.Tag) move.Move {
	return move.Move{
		Name:     name,
		Category: move.CategoryNatural,
		Cost:     cost,
		Weight:   weight,
		Tags:     move.NewTagSet(append([]move.Tag{move.TagMelee}, tags...)...),
		Range:    move.RangeMelee,
	}
}

func engage(t *testing.T, e *Engine, a, b string, friendly bool) *Session {
	t.Helper()
	s, err := e.Engage(context.Background(), a, b, EngageOptions{Friendly: friendly})
	require.NoError(t, err)
	return s
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
