package combat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/combat-engine/pkg/ledger"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// Recoverable outcomes. Callers match these with errors.Is and decide what to tell
// the player; the engine never aborts a session because of them.
var (
	ErrInvalidTarget          = errors.New("invalid target")
	ErrInsufficientResource   = ledger.ErrInsufficientResource
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrNoLegalMove            = errors.New("no legal move")
	ErrPolicyConflict         = strategy.ErrPolicyConflict
	ErrLimbAlreadyLocked      = errors.New("limb already locked")
	ErrNotEligible            = errors.New("not eligible")
)

var (
	ErrUnknownCombatant = fmt.Errorf("%w: unknown combatant", ErrInvalidTarget)
	ErrUnknownSession   = errors.New("unknown session")
	ErrUnknownProposal  = errors.New("unknown proposal")
)

// Strict makes broken engine invariants panic instead of logging. Development
// builds and tests turn it on.
var Strict = false

func (e *Engine) invariant(ok bool, msg string, args ...any) {
	if ok {
		return
	}
	if Strict {
		panic(fmt.Sprintf("combat invariant violated: "+msg, args...))
	}
	e.logger.Warn("combat invariant violated", slog.String("detail", fmt.Sprintf(msg, args...)))
}
