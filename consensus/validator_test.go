package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/consensus/consensustest"
)

func TestValidatorSet_OrderingAndLookup(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)

	require.Equal(t, 4, vs.Len())
	require.Equal(t, uint64(4), vs.TotalVotingPower())

	vals := vs.Validators()
	for i := 1; i < len(vals); i++ {
		assert.Less(t, vals[i-1].Address, vals[i].Address, "validators must be address-ordered")
	}

	for _, pv := range pvs {
		got, ok := vs.GetByAddress(pv.Val.Address)
		require.True(t, ok)
		assert.Equal(t, pv.Val, got)
	}

	_, ok := vs.GetByAddress(consensus.Address("unknown"))
	assert.False(t, ok)
}

func TestValidatorSet_GetProposer_Deterministic(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)

	first := vs.GetProposer(1, 0)
	again := vs.GetProposer(1, 0)
	assert.Equal(t, first, again, "GetProposer must be a pure function of (height, round, validator set)")
}

func TestValidatorSet_GetProposer_StableAcrossRebuild(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)
	rebuilt := consensus.NewValidatorSet(vs.Validators())

	for r := consensus.Round(0); r < 6; r++ {
		assert.Equal(t, vs.GetProposer(1, r), rebuilt.GetProposer(1, r),
			"a set rebuilt from its own Validators() slice must agree on every proposer")
	}
}

func TestValidatorSet_GetProposer_SingleValidator(t *testing.T) {
	pvs := consensustest.NewValidators(1)
	vs := consensustest.Set(pvs)

	for r := consensus.Round(0); r < 5; r++ {
		assert.Equal(t, pvs[0].Val, vs.GetProposer(1, r))
	}
}

func TestValidatorSet_GetProposer_RotatesAcrossRounds(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)

	seen := make(map[consensus.Address]bool)
	for r := consensus.Round(0); r < 4; r++ {
		seen[vs.GetProposer(1, r).Address] = true
	}
	assert.Len(t, seen, 4, "equal-power validators must each get a turn within one cycle")
}

func TestValidatorSet_GetProposer_WeightedByPower(t *testing.T) {
	// A validator with much greater power should propose far more often
	// than the other members over a long rotation.
	pvs := consensustest.NewValidatorsWithPower([]uint64{1, 1, 100})
	vs := consensustest.Set(pvs)

	heavy := pvs[2].Val.Address
	counts := make(map[consensus.Address]int)
	for r := consensus.Round(0); r < 102; r++ {
		counts[vs.GetProposer(1, r).Address]++
	}
	assert.Greater(t, counts[heavy], 90)
}
