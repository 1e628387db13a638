package host_test

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/host"
)

// TestLoop_ReceiveVoteSet_RejectsUnverifiedVotesWithoutMutatingState
// covers the vote-set sync scenario recovered from the original
// implementation's own test suite: a response carrying an invalid
// signature must be dropped before it ever reaches the vote keeper,
// not folded in and unwound afterward.
func TestLoop_ReceiveVoteSet_RejectsUnverifiedVotesWithoutMutatingState(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	fh := &fakeHost{set: vs}
	fw := &fakeWAL{}
	l := host.New(proposer.Address, "test-chain", consensus.DefaultSignatureScheme{}, &rejectingVerifier{fakeHost: fh}, fakeSigner{}, fw, host.WithLogger(slogt.New(t)))

	ctx := context.Background()
	require.NoError(t, l.StartHeight(ctx, 1))

	var victim consensus.Address
	for _, pv := range pvs {
		if pv.Val.Address != proposer.Address {
			victim = pv.Val.Address
			break
		}
	}

	bogus := consensus.SignedVote{
		Message: consensus.Vote{
			Kind: consensus.Precommit, Height: 1, Round: 0, Voter: victim, Value: consensus.VVal(consensus.ValueID{1}),
		},
		Signature: []byte("not-a-real-signature"),
	}

	err := l.ReceiveVoteSet(ctx, "req-1", []consensus.SignedVote{bogus})
	require.NoError(t, err)

	assert.Empty(t, fh.decisions, "an unverified synced vote must never contribute toward a decision")
	for _, e := range fw.entries {
		assert.NotEqual(t, host.WALConsensusVote, e.Kind, "an unverified synced vote must never be logged")
	}
}
