package host_test

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/consensus/consensustest"
	"github.com/circlefin/malachite-sub001/driver"
	"github.com/circlefin/malachite-sub001/host"
	"github.com/circlefin/malachite-sub001/internal/round"
)

// fakeHost records every effect call instead of touching a real
// network, timer, or application.
type fakeHost struct {
	vs consensustest.PrivVal
	set consensus.ValidatorSet

	votes      []consensus.SignedVote
	proposals  []consensus.SignedProposal
	timeouts   []scheduled
	decisions  []consensus.CommitCertificate
	getValueAt []struct {
		h consensus.Height
		r consensus.Round
	}
	nextValue consensus.Value
}

type scheduled struct {
	kind  round.TimeoutKind
	round consensus.Round
	d     time.Duration
}

func (h *fakeHost) PublishVote(_ context.Context, sv consensus.SignedVote) error {
	h.votes = append(h.votes, sv)
	return nil
}

func (h *fakeHost) PublishProposal(_ context.Context, sp consensus.SignedProposal) error {
	h.proposals = append(h.proposals, sp)
	return nil
}

func (h *fakeHost) GetValue(_ context.Context, ht consensus.Height, r consensus.Round, _ time.Duration) error {
	h.getValueAt = append(h.getValueAt, struct {
		h consensus.Height
		r consensus.Round
	}{ht, r})
	return nil
}

func (h *fakeHost) GetValidatorSet(_ context.Context, _ consensus.Height) (consensus.ValidatorSet, error) {
	return h.set, nil
}

func (h *fakeHost) VerifySignature(_ context.Context, _ consensus.Address, _, _ []byte) (bool, error) {
	return true, nil
}

func (h *fakeHost) ScheduleTimeout(_ context.Context, kind round.TimeoutKind, r consensus.Round, d time.Duration) error {
	h.timeouts = append(h.timeouts, scheduled{kind, r, d})
	return nil
}

func (h *fakeHost) CancelTimeout(_ context.Context, _ round.TimeoutKind, _ consensus.Round) error {
	return nil
}

func (h *fakeHost) CancelAllTimeouts(_ context.Context) error { return nil }

func (h *fakeHost) Decide(_ context.Context, cert consensus.CommitCertificate, _ consensus.Evidence) error {
	h.decisions = append(h.decisions, cert)
	return nil
}

func (h *fakeHost) SyncedBlock(_ context.Context, _ consensus.Height, _ consensus.Round, _ []byte) error {
	return nil
}

func (h *fakeHost) GetVoteSet(_ context.Context, _ consensus.Height, _ consensus.Round) error {
	return nil
}

func (h *fakeHost) SendVoteSetResponse(_ context.Context, _ string, _ []consensus.SignedVote) error {
	return nil
}

// fakeSigner signs with a fixed, unverified signature -- the loop's
// own VerifySignature calls are routed through fakeHost, which always
// accepts, so the signature bytes here are never actually checked.
type fakeSigner struct{}

func (fakeSigner) SignVote(_ context.Context, v consensus.Vote) (consensus.SignedVote, error) {
	return consensus.SignedVote{Message: v, Signature: []byte("sig")}, nil
}

func (fakeSigner) SignProposal(_ context.Context, p consensus.Proposal) (consensus.SignedProposal, error) {
	return consensus.SignedProposal{Message: p, Signature: []byte("sig")}, nil
}

type fakeWAL struct {
	entries []host.WALEntry
}

func (w *fakeWAL) Append(e host.WALEntry) error {
	w.entries = append(w.entries, e)
	return nil
}

func fourValidators() (consensus.ValidatorSet, []consensustest.PrivVal) {
	pvs := consensustest.NewValidators(4)
	return consensustest.Set(pvs), pvs
}

func TestLoop_HappyPath_GetValueThroughDecision(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	fh := &fakeHost{set: vs}
	fw := &fakeWAL{}
	l := host.New(proposer.Address, "test-chain", consensus.DefaultSignatureScheme{}, fh, fakeSigner{}, fw, host.WithLogger(slogt.New(t)))

	ctx := context.Background()
	require.NoError(t, l.StartHeight(ctx, 1))

	require.Len(t, fh.getValueAt, 1)
	assert.Equal(t, consensus.Round(0), fh.getValueAt[0].r)
	require.Len(t, fh.timeouts, 1)
	assert.Equal(t, round.TimeoutProposeKind, fh.timeouts[0].kind)

	value := consensus.BytesValue("block-1")
	require.NoError(t, l.HandleProposedValue(ctx, driver.ProposedValueMsg{Height: 1, Round: 0, Value: value, Valid: true}))

	require.Len(t, fh.proposals, 1)
	assert.Equal(t, value.ID(), fh.proposals[0].Message.Value.ID())
	require.Len(t, fh.votes, 1)
	assert.Equal(t, consensus.Prevote, fh.votes[0].Message.Kind)

	var walProposals, walVotes int
	for _, e := range fw.entries {
		switch e.Kind {
		case host.WALConsensusProposal:
			walProposals++
		case host.WALConsensusVote:
			walVotes++
		}
	}
	assert.Equal(t, 1, walProposals)
	assert.Equal(t, 1, walVotes)

	others := make([]consensus.Address, 0, 3)
	for _, pv := range pvs {
		if pv.Val.Address != proposer.Address {
			others = append(others, pv.Val.Address)
		}
	}

	for i, addr := range others[:2] {
		err := l.HandleVote(ctx, consensus.SignedVote{Message: consensus.Vote{
			Kind: consensus.Prevote, Height: 1, Round: 0, Voter: addr, Value: consensus.VVal(value.ID()),
		}})
		require.NoError(t, err)
		if i == 1 {
			require.Len(t, fh.votes, 2)
			assert.Equal(t, consensus.Precommit, fh.votes[1].Message.Kind)
		}
	}

	for _, addr := range others[:2] {
		err := l.HandleVote(ctx, consensus.SignedVote{Message: consensus.Vote{
			Kind: consensus.Precommit, Height: 1, Round: 0, Voter: addr, Value: consensus.VVal(value.ID()),
		}})
		require.NoError(t, err)
	}

	require.Len(t, fh.decisions, 1)
	assert.Equal(t, value.ID(), fh.decisions[0].ValueID)
}

// TestLoop_Decision_ArmsFinalizeWindowThenAdvancesHeight covers §4.8
// item 4: a decision must arm a TimeoutFinalizeKind bounded by
// TargetBlockTime rather than advancing to the next height immediately,
// and only HandleTimeout firing that timeout may call TearDown and
// start h+1.
func TestLoop_Decision_ArmsFinalizeWindowThenAdvancesHeight(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	fh := &fakeHost{set: vs}
	fw := &fakeWAL{}
	cfg := host.DefaultTimeoutConfig()
	cfg.TargetBlockTime = time.Hour
	l := host.New(proposer.Address, "test-chain", consensus.DefaultSignatureScheme{}, fh, fakeSigner{}, fw, host.WithTimeouts(cfg), host.WithLogger(slogt.New(t)))

	ctx := context.Background()
	require.NoError(t, l.StartHeight(ctx, 1))

	value := consensus.BytesValue("block-1")
	require.NoError(t, l.HandleProposedValue(ctx, driver.ProposedValueMsg{Height: 1, Round: 0, Value: value, Valid: true}))

	others := make([]consensus.Address, 0, 3)
	for _, pv := range pvs {
		if pv.Val.Address != proposer.Address {
			others = append(others, pv.Val.Address)
		}
	}
	for _, addr := range others[:2] {
		require.NoError(t, l.HandleVote(ctx, consensus.SignedVote{Message: consensus.Vote{
			Kind: consensus.Prevote, Height: 1, Round: 0, Voter: addr, Value: consensus.VVal(value.ID()),
		}}))
	}
	for _, addr := range others[:2] {
		require.NoError(t, l.HandleVote(ctx, consensus.SignedVote{Message: consensus.Vote{
			Kind: consensus.Precommit, Height: 1, Round: 0, Voter: addr, Value: consensus.VVal(value.ID()),
		}}))
	}

	require.Len(t, fh.decisions, 1)
	require.Equal(t, consensus.Height(1), l.Height(), "deciding must not advance the height by itself")

	var fin *scheduled
	for i := range fh.timeouts {
		if fh.timeouts[i].kind == round.TimeoutFinalizeKind {
			fin = &fh.timeouts[i]
		}
	}
	require.NotNil(t, fin, "a decision must arm a finalize timeout")
	assert.LessOrEqual(t, fin.d, cfg.TargetBlockTime)

	require.NoError(t, l.HandleTimeout(ctx, fin.round, round.TimeoutFinalizeKind))
	assert.Equal(t, consensus.Height(2), l.Height(), "the finalize timeout firing must tear down and start h+1")
}

func TestLoop_NonProposer_SchedulesTimeoutPropose(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	var nonProposer consensus.Address
	for _, pv := range pvs {
		if pv.Val.Address != proposer.Address {
			nonProposer = pv.Val.Address
			break
		}
	}

	fh := &fakeHost{set: vs}
	l := host.New(nonProposer, "test-chain", consensus.DefaultSignatureScheme{}, fh, fakeSigner{}, &fakeWAL{}, host.WithLogger(slogt.New(t)))

	require.NoError(t, l.StartHeight(context.Background(), 1))

	require.Len(t, fh.timeouts, 1)
	assert.Equal(t, round.TimeoutProposeKind, fh.timeouts[0].kind)
	assert.Empty(t, fh.getValueAt)
}

func TestLoop_InvalidSignature_Dropped(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	fh := &fakeHost{set: vs}
	l := host.New(proposer.Address, "test-chain", consensus.DefaultSignatureScheme{}, fh, fakeSigner{}, &fakeWAL{}, host.WithLogger(slogt.New(t)))
	ctx := context.Background()
	require.NoError(t, l.StartHeight(ctx, 1))

	badHost := &rejectingVerifier{fakeHost: fh}
	l2 := host.New(proposer.Address, "test-chain", consensus.DefaultSignatureScheme{}, badHost, fakeSigner{}, &fakeWAL{}, host.WithLogger(slogt.New(t)))
	require.NoError(t, l2.StartHeight(ctx, 1))

	err := l2.HandleVote(ctx, consensus.SignedVote{Message: consensus.Vote{
		Kind: consensus.Prevote, Height: 1, Round: 0, Voter: pvs[0].Val.Address, Value: consensus.VNil,
	}})
	assert.NoError(t, err)
}

type rejectingVerifier struct {
	*fakeHost
}

func (r *rejectingVerifier) VerifySignature(_ context.Context, _ consensus.Address, _, _ []byte) (bool, error) {
	return false, nil
}
