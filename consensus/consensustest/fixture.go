// Package consensustest builds small, deterministic validator sets for
// use across the core's test suites, mirroring
// tm/tmconsensus/tmconsensustest in the teacher repository.
package consensustest

import (
	"crypto/ed25519"
	"fmt"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/gcrypto"
)

// PrivVal pairs a public Validator with the Signer backing it, so tests
// can sign on a validator's behalf.
type PrivVal struct {
	Val    consensus.Validator
	Signer gcrypto.Signer
}

// NewValidators deterministically derives n validators, each with
// voting power 1, from fixed seeds so that test output is reproducible
// across runs.
func NewValidators(n int) []PrivVal {
	out := make([]PrivVal, n)
	for i := 0; i < n; i++ {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(i + 1)
		priv := ed25519.NewKeyFromSeed(seed)
		signer := gcrypto.NewEd25519Signer(priv)

		addr := consensus.Address(fmt.Sprintf("v%d", i+1))
		out[i] = PrivVal{
			Val: consensus.Validator{
				Address:     addr,
				PubKey:      signer.PubKey(),
				VotingPower: 1,
			},
			Signer: signer,
		}
	}
	return out
}

// NewValidatorsWithPower is like NewValidators but assigns the given
// per-validator voting powers.
func NewValidatorsWithPower(powers []uint64) []PrivVal {
	out := NewValidators(len(powers))
	for i := range out {
		out[i].Val.VotingPower = powers[i]
	}
	return out
}

// Set builds a consensus.ValidatorSet from pvs.
func Set(pvs []PrivVal) consensus.ValidatorSet {
	vals := make([]consensus.Validator, len(pvs))
	for i, pv := range pvs {
		vals[i] = pv.Val
	}
	return consensus.NewValidatorSet(vals)
}

// ByAddress finds the PrivVal with the given address, panicking if none
// matches -- acceptable in test helpers, where the address is always a
// fixture constant.
func ByAddress(pvs []PrivVal, addr consensus.Address) PrivVal {
	for _, pv := range pvs {
		if pv.Val.Address == addr {
			return pv
		}
	}
	panic(fmt.Sprintf("consensustest: no validator with address %q", addr))
}
