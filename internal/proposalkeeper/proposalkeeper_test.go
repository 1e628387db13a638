package proposalkeeper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/proposalkeeper"
)

func proposal(round consensus.Round, proposer consensus.Address, v consensus.BytesValue) consensus.SignedProposal {
	return consensus.SignedProposal{Message: consensus.Proposal{
		Height:   1,
		Round:    round,
		Proposer: proposer,
		PolRound: consensus.NilRound,
		Value:    v,
	}}
}

func TestKeeper_StoreAndLookup(t *testing.T) {
	k := proposalkeeper.New()
	p := proposal(0, "p1", consensus.BytesValue("v1"))
	k.Store(p, true)

	got, ok := k.ValidProposal(0)
	require.True(t, ok)
	assert.Equal(t, p, got)

	byID, ok := k.ByValueID(0, consensus.BytesValue("v1").ID())
	require.True(t, ok)
	assert.Equal(t, p, byID)
}

func TestKeeper_DropsExactDuplicates(t *testing.T) {
	k := proposalkeeper.New()
	p := proposal(0, "p1", consensus.BytesValue("v1"))
	k.Store(p, true)
	k.Store(p, true)

	assert.Len(t, k.Proposals(0), 1)
}

func TestKeeper_ConflictingProposalsFormEvidence(t *testing.T) {
	k := proposalkeeper.New()
	a := proposal(0, "p1", consensus.BytesValue("v1"))
	b := proposal(0, "p1", consensus.BytesValue("v2"))

	k.Store(a, true)
	k.Store(b, true)

	assert.Len(t, k.Proposals(0), 2)
	ev := k.Evidence("p1")
	require.Len(t, ev, 1)
	assert.Equal(t, a, ev[0].A)
	assert.Equal(t, b, ev[0].B)
}

func TestKeeper_InvalidProposalNotReturnedAsValid(t *testing.T) {
	k := proposalkeeper.New()
	k.Store(proposal(0, "p1", consensus.BytesValue("v1")), false)

	_, ok := k.ValidProposal(0)
	assert.False(t, ok)
}
