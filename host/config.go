package host

import (
	"time"

	"github.com/circlefin/malachite-sub001/consensus"
)

// TimeoutConfig is the host's answer to §6's timeout configuration: a
// base duration and a per-round growth delta for each step, plus the
// commit/rebroadcast durations that are not step-indexed.
//
// Grounded on tm/tmengine's tmengine.RoundTimer config shape, adapted
// from tmengine's single flat duration set into the base+delta pair
// §6 requires so timeout_step(r) = base + r*delta per step.
type TimeoutConfig struct {
	Propose      time.Duration
	ProposeDelta time.Duration

	Prevote      time.Duration
	PrevoteDelta time.Duration

	Precommit      time.Duration
	PrecommitDelta time.Duration

	Commit time.Duration

	Rebroadcast time.Duration

	// TargetBlockTime bounds the finalization window (§4.8 item 4):
	// remaining = max(0, TargetBlockTime - elapsed).
	TargetBlockTime time.Duration
}

// DefaultTimeoutConfig returns sane defaults for local testing; a
// production deployment overrides these with WithTimeouts.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Propose:      3 * time.Second,
		ProposeDelta: 500 * time.Millisecond,

		Prevote:      1 * time.Second,
		PrevoteDelta: 500 * time.Millisecond,

		Precommit:      1 * time.Second,
		PrecommitDelta: 500 * time.Millisecond,

		Commit: 1 * time.Second,

		Rebroadcast: 5 * time.Second,

		TargetBlockTime: 3 * time.Second,
	}
}

// propose returns the propose-step timeout for round r.
func (c TimeoutConfig) propose(r consensus.Round) time.Duration {
	return c.Propose + time.Duration(r)*c.ProposeDelta
}

func (c TimeoutConfig) prevote(r consensus.Round) time.Duration {
	return c.Prevote + time.Duration(r)*c.PrevoteDelta
}

func (c TimeoutConfig) precommit(r consensus.Round) time.Duration {
	return c.Precommit + time.Duration(r)*c.PrecommitDelta
}
