package consensus

// proposerPriority runs the classic weighted round-robin priority
// algorithm for steps+1 iterations from a canonical all-zero starting
// state, returning the index (into vals, which must already be sorted
// by address) of the validator chosen on the last iteration, so steps
// = 0 yields the first proposer of the rotation.
//
// Each iteration: every validator's accumulated priority increases by
// its voting power; the validator with the highest accumulated
// priority proposes and has the total voting power subtracted from its
// priority (ties broken by address, since vals is address-ordered).
// Because the starting state and the per-step transition are both pure
// functions of the validator set, GetProposer(h, r) is a pure function
// of (h, r, validator set) as spec.md §6 requires, with no dependency
// on history beyond the rotation count `h + r`.
func proposerPriority(vals []Validator, steps int64) int {
	n := len(vals)
	priorities := make([]int64, n)

	var total int64
	for _, v := range vals {
		total += int64(v.VotingPower)
	}
	if total == 0 {
		return 0
	}

	var winner int
	for i := int64(0); i <= steps; i++ {
		best := 0
		for j, v := range vals {
			priorities[j] += int64(v.VotingPower)
			if priorities[j] > priorities[best] {
				best = j
			}
		}
		priorities[best] -= total
		winner = best
	}
	return winner
}
