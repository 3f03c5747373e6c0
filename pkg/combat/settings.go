package combat

// Tuning keys read by LoadSettings.
const (
	KeyMaxBurden           = "burden.max_degrees"
	KeyEchoQueued          = "queue.echo"
	KeyPreferredMultiplier = "selector.preferred_multiplier"
	KeyStaminaRegen        = "stamina.regen_per_tick"
	KeyAimTimeout          = "aim.timeout_ticks"
	KeyAimPenaltyScale     = "aim.penalty_scale"
	KeyCoverBonusScale     = "cover.bonus_scale"
	KeyCoupDelay           = "coup.delay_ticks"
	KeyProposalTTL         = "proposal.ttl_ticks"
	KeyRescueDifficulty    = "rescue.difficulty"
	KeyGuardFactor         = "interpose.guard_factor"
	KeyLimbLockCost        = "grapple.limb_lock_cost"
)

// Settings is the snapshot of tuning values an engine runs with.
type Settings struct {
	MaxBurden           int
	EchoQueued          bool
	PreferredMultiplier float64
	StaminaRegen        float64
	AimTimeout          int
	AimPenaltyScale     float64
	CoverBonusScale     float64
	CoupDelay           int
	ProposalTTL         int
	RescueDifficulty    float64
	GuardFactor         float64
	LimbLockCost        float64
}

func DefaultSettings() Settings {
	return Settings{
		MaxBurden:           10,
		EchoQueued:          true,
		PreferredMultiplier: 2.0,
		StaminaRegen:        1,
		AimTimeout:          3,
		AimPenaltyScale:     10,
		CoverBonusScale:     4,
		CoupDelay:           2,
		ProposalTTL:         10,
		RescueDifficulty:    10,
		GuardFactor:         1.0,
		LimbLockCost:        2,
	}
}

// LoadSettings reads every key from t, falling back to DefaultSettings.
// A nil Tuning yields the defaults.
func LoadSettings(t Tuning) Settings {
	s := DefaultSettings()
	if t == nil {
		return s
	}
	s.MaxBurden = t.Int(KeyMaxBurden, s.MaxBurden)
	s.EchoQueued = t.Bool(KeyEchoQueued, s.EchoQueued)
	s.PreferredMultiplier = t.Float(KeyPreferredMultiplier, s.PreferredMultiplier)
	s.StaminaRegen = t.Float(KeyStaminaRegen, s.StaminaRegen)
	s.AimTimeout = t.Int(KeyAimTimeout, s.AimTimeout)
	s.AimPenaltyScale = t.Float(KeyAimPenaltyScale, s.AimPenaltyScale)
	s.CoverBonusScale = t.Float(KeyCoverBonusScale, s.CoverBonusScale)
	s.CoupDelay = t.Int(KeyCoupDelay, s.CoupDelay)
	s.ProposalTTL = t.Int(KeyProposalTTL, s.ProposalTTL)
	s.RescueDifficulty = t.Float(KeyRescueDifficulty, s.RescueDifficulty)
	s.GuardFactor = t.Float(KeyGuardFactor, s.GuardFactor)
	s.LimbLockCost = t.Float(KeyLimbLockCost, s.LimbLockCost)

	// a multiplier at or below 1 would not prefer anything
	if s.PreferredMultiplier <= 1 {
		s.PreferredMultiplier = DefaultSettings().PreferredMultiplier
	}
	return s
}
