package config

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/spf13/viper"
)

// Tuning is the deployment's combat thresholds. Values come from an optional
// YAML file, overridden by COMBAT_* environment variables, e.g.
// COMBAT_BURDEN_MAX_DEGREES for burden.max_degrees.
type Tuning struct {
	v *viper.Viper
}

var _ combat.Tuning = (*Tuning)(nil)

// LoadTuning reads path if it is not empty. Defaults match combat.DefaultSettings.
func LoadTuning(path string) (*Tuning, error) {
	v := viper.New()
	d := combat.DefaultSettings()
	v.SetDefault(combat.KeyMaxBurden, d.MaxBurden)
	v.SetDefault(combat.KeyEchoQueued, d.EchoQueued)
	v.SetDefault(combat.KeyPreferredMultiplier, d.PreferredMultiplier)
	v.SetDefault(combat.KeyStaminaRegen, d.StaminaRegen)
	v.SetDefault(combat.KeyAimTimeout, d.AimTimeout)
	v.SetDefault(combat.KeyAimPenaltyScale, d.AimPenaltyScale)
	v.SetDefault(combat.KeyCoverBonusScale, d.CoverBonusScale)
	v.SetDefault(combat.KeyCoupDelay, d.CoupDelay)
	v.SetDefault(combat.KeyProposalTTL, d.ProposalTTL)
	v.SetDefault(combat.KeyRescueDifficulty, d.RescueDifficulty)
	v.SetDefault(combat.KeyGuardFactor, d.GuardFactor)
	v.SetDefault(combat.KeyLimbLockCost, d.LimbLockCost)

	v.SetEnvPrefix("COMBAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading tuning file: %w", err)
		}
	}
	return &Tuning{v: v}, nil
}

func (t *Tuning) Float(key string, def float64) float64 {
	if !t.v.IsSet(key) {
		return def
	}
	return t.v.GetFloat64(key)
}

func (t *Tuning) Int(key string, def int) int {
	if !t.v.IsSet(key) {
		return def
	}
	return t.v.GetInt(key)
}

func (t *Tuning) Bool(key string, def bool) bool {
	if !t.v.IsSet(key) {
		return def
	}
	return t.v.GetBool(key)
}

// Settings snapshots the tuning for an engine.
func (t *Tuning) Settings() combat.Settings {
	return combat.LoadSettings(t)
}
