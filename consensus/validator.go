package consensus

import (
	"sort"

	"github.com/circlefin/malachite-sub001/gcrypto"
)

// Validator is one member of a ValidatorSet.
type Validator struct {
	Address     Address
	PubKey      gcrypto.PubKey
	VotingPower uint64
}

// ValidatorSet is the fixed-per-height set of validators, ordered by
// address. The voting power distribution never changes within a
// height, per spec.md's Non-goals.
type ValidatorSet struct {
	validators []Validator
	byAddress  map[Address]int
	total      uint64
}

// NewValidatorSet builds a ValidatorSet from vals, sorting a copy by
// address and precomputing the total voting power and address index.
func NewValidatorSet(vals []Validator) ValidatorSet {
	sorted := make([]Validator, len(vals))
	copy(sorted, vals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	byAddress := make(map[Address]int, len(sorted))
	var total uint64
	for i, v := range sorted {
		byAddress[v.Address] = i
		total += v.VotingPower
	}

	return ValidatorSet{validators: sorted, byAddress: byAddress, total: total}
}

// Validators returns the ordered validator slice. Callers must not
// mutate the returned slice.
func (vs ValidatorSet) Validators() []Validator {
	return vs.validators
}

// Len is the number of validators in the set.
func (vs ValidatorSet) Len() int {
	return len(vs.validators)
}

// TotalVotingPower is the sum of every validator's voting power.
func (vs ValidatorSet) TotalVotingPower() uint64 {
	return vs.total
}

// GetByAddress looks up a validator by address.
func (vs ValidatorSet) GetByAddress(a Address) (Validator, bool) {
	idx, ok := vs.byAddress[a]
	if !ok {
		return Validator{}, false
	}
	return vs.validators[idx], true
}

// GetProposer returns the validator who must propose at (h, r): a
// deterministic, weighted round-robin rotating by one slot per height
// and one slot per round. See [proposerPriority] for the algorithm.
func (vs ValidatorSet) GetProposer(h Height, r Round) Validator {
	if len(vs.validators) == 0 {
		return Validator{}
	}
	if len(vs.validators) == 1 {
		return vs.validators[0]
	}

	steps := int64(h) + int64(r)
	if steps < 0 {
		steps = 0
	}
	idx := proposerPriority(vs.validators, steps)
	return vs.validators[idx]
}
