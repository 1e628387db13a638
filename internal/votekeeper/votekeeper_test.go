package votekeeper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/votekeeper"
)

func sv(kind consensus.VoteKind, round consensus.Round, voter consensus.Address, v consensus.NilOrVal) consensus.SignedVote {
	return consensus.SignedVote{Message: consensus.Vote{Kind: kind, Height: 1, Round: round, Voter: voter, Value: v}}
}

func TestKeeper_PolkaValue(t *testing.T) {
	k := votekeeper.New(10)
	id := consensus.ValueID{7}

	r := k.ApplyVote(sv(consensus.Prevote, 0, "v1", consensus.VVal(id)), 3, 0)
	assert.Nil(t, r.Output)

	r = k.ApplyVote(sv(consensus.Prevote, 0, "v2", consensus.VVal(id)), 3, 0)
	assert.Nil(t, r.Output)

	r = k.ApplyVote(sv(consensus.Prevote, 0, "v3", consensus.VVal(id)), 4, 0)
	require.NotNil(t, r.Output)
	assert.Equal(t, votekeeper.PolkaValue, r.Output.Kind)
	assert.Equal(t, id, r.Output.ValueID)
}

func TestKeeper_PrecommitNilMapsToPrecommitAny(t *testing.T) {
	k := votekeeper.New(10)

	k.ApplyVote(sv(consensus.Precommit, 0, "v1", consensus.VNil), 4, 0)
	r := k.ApplyVote(sv(consensus.Precommit, 0, "v2", consensus.VNil), 4, 0)
	require.NotNil(t, r.Output)
	assert.Equal(t, votekeeper.PrecommitAny, r.Output.Kind)
}

func TestKeeper_PrecommitValue(t *testing.T) {
	k := votekeeper.New(10)
	id := consensus.ValueID{3}

	k.ApplyVote(sv(consensus.Precommit, 0, "v1", consensus.VVal(id)), 4, 0)
	r := k.ApplyVote(sv(consensus.Precommit, 0, "v2", consensus.VVal(id)), 4, 0)
	require.NotNil(t, r.Output)
	assert.Equal(t, votekeeper.PrecommitValue, r.Output.Kind)
	assert.Equal(t, id, r.Output.ValueID)
}

func TestKeeper_DoubleVoteEvidence(t *testing.T) {
	k := votekeeper.New(10)
	idA := consensus.ValueID{1}
	idB := consensus.ValueID{2}

	k.ApplyVote(sv(consensus.Prevote, 0, "v1", consensus.VVal(idA)), 3, 0)
	k.ApplyVote(sv(consensus.Prevote, 0, "v1", consensus.VVal(idB)), 3, 0)

	ev := k.Evidence()
	require.Len(t, ev, 1)
	assert.Equal(t, consensus.Address("v1"), ev[0].Voter)
}

func TestKeeper_SkipRound(t *testing.T) {
	k := votekeeper.New(10)

	// Two validators, weight 3 each, vote in round 2 while driver sits
	// in round 0: 3/10 is not above 1/3, 6/10 is, so skip fires once.
	r := k.ApplyVote(sv(consensus.Prevote, 2, "v1", consensus.VVal(consensus.ValueID{1})), 3, 0)
	assert.Nil(t, r.Skip)

	r = k.ApplyVote(sv(consensus.Prevote, 2, "v2", consensus.VVal(consensus.ValueID{1})), 3, 0)
	require.NotNil(t, r.Skip)
	assert.Equal(t, votekeeper.SkipRound, r.Skip.Kind)
	assert.Equal(t, consensus.Round(2), r.Skip.Round)

	// Further votes in the same higher round don't re-skip.
	r = k.ApplyVote(sv(consensus.Prevote, 2, "v3", consensus.VVal(consensus.ValueID{1})), 2, 0)
	assert.Nil(t, r.Skip)
}

func TestKeeper_SkipIgnoresRoundsAtOrBelowCurrent(t *testing.T) {
	k := votekeeper.New(10)
	r := k.ApplyVote(sv(consensus.Prevote, 1, "v1", consensus.VVal(consensus.ValueID{1})), 9, 1)
	assert.Nil(t, r.Skip)
}

func TestKeeper_CommitSignatures(t *testing.T) {
	k := votekeeper.New(10)
	id := consensus.ValueID{5}

	sv1 := sv(consensus.Precommit, 0, "v1", consensus.VVal(id))
	sv2 := sv(consensus.Precommit, 0, "v2", consensus.VVal(id))
	k.ApplyVote(sv1, 4, 0)
	k.ApplyVote(sv2, 4, 0)

	sigs := k.CommitSignatures(0, id)
	assert.Len(t, sigs, 2)
}

func TestKeeper_PrevoteWeight(t *testing.T) {
	k := votekeeper.New(10)
	id := consensus.ValueID{9}
	k.ApplyVote(sv(consensus.Prevote, 3, "v1", consensus.VVal(id)), 4, 0)

	assert.Equal(t, uint64(4), k.PrevoteWeight(3, consensus.VVal(id)))
	assert.Equal(t, uint64(0), k.PrevoteWeight(99, consensus.VVal(id)))
}
