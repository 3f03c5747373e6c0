package ledger

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_SpendNeverGoesNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	l := New(10, 10)

	for i := 0; i < 5000; i++ {
		cost := rng.Float64() * 6
		affordable := l.CanAfford(cost)
		err := l.Spend(cost)
		if affordable && err != nil {
			t.Fatalf("CanAfford(%.2f) = true but Spend failed: %v", cost, err)
		}
		if !affordable && !errors.Is(err, ErrInsufficientResource) {
			t.Fatalf("CanAfford(%.2f) = false but Spend returned %v", cost, err)
		}
		if l.Stamina() < 0 {
			t.Fatalf("stamina went negative: %.2f", l.Stamina())
		}
		if i%7 == 0 {
			l.Restore(rng.Float64() * 4)
		}
	}
}

func TestLedger_SpendFailureLeavesStamina(t *testing.T) {
	l := New(5, 0)
	err := l.Spend(6)
	assert.ErrorIs(t, err, ErrInsufficientResource)
	assert.Equal(t, 5.0, l.Stamina())

	assert.False(t, l.CanAfford(-1), "negative costs are never affordable")
	assert.Error(t, l.Spend(-1))
}

func TestLedger_RestoreClampsToMax(t *testing.T) {
	l := New(10, 0)
	assert.NoError(t, l.Spend(4))
	assert.Equal(t, 4.0, l.Restore(100))
	assert.Equal(t, 10.0, l.Stamina())
	assert.Equal(t, 0.0, l.Restore(-3))
}

func TestLedger_AimStaysInUnitInterval(t *testing.T) {
	l := New(10, 0)
	for i := 0; i < 8; i++ {
		l.AccumulateAim(0.2)
	}
	assert.Equal(t, 1.0, l.Aim())

	assert.InDelta(t, 0.75, l.DecayAim(0.25), 1e-9)
	assert.InDelta(t, 0.0, l.DecayAim(5), 1e-9)

	l.AccumulateAim(0.4)
	l.ResetAim()
	assert.Equal(t, 0.0, l.Aim())
}

func TestLedger_Burden(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		sources map[string]int
		want    int
	}{
		{"empty", 10, nil, 0},
		{"sums sources", 10, map[string]int{"armor": 3, "wound": 2}, 5},
		{"clamped high", 10, map[string]int{"armor": 8, "pack": 6}, 10},
		{"clamped low", 10, map[string]int{"blessing": -14}, -10},
		{"unbounded", 0, map[string]int{"armor": 30}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(10, tt.max)
			for k, v := range tt.sources {
				l.SetBurden(k, v)
			}
			assert.Equal(t, tt.want, l.Burden())
		})
	}

	l := New(10, 10)
	l.SetBurden("armor", 3)
	l.SetBurden("armor", 0)
	assert.Empty(t, l.BurdenSources())
}
