package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/consensus/consensustest"
	"github.com/circlefin/malachite-sub001/driver"
	"github.com/circlefin/malachite-sub001/internal/round"
)

func fourValidators() (consensus.ValidatorSet, []consensustest.PrivVal) {
	pvs := consensustest.NewValidators(4)
	return consensustest.Set(pvs), pvs
}

func addressOf(pvs []consensustest.PrivVal, i int) consensus.Address { return pvs[i].Val.Address }

func vote(kind consensus.VoteKind, h consensus.Height, r consensus.Round, voter consensus.Address, v consensus.NilOrVal) consensus.SignedVote {
	return consensus.SignedVote{Message: consensus.Vote{Kind: kind, Height: h, Round: r, Voter: voter, Value: v}}
}

func TestDriver_HappyPath_DecidesWithCertificate(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	d := driver.New(proposer.Address)
	outs, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, round.OutputGetValue, outs[0].Round.Kind)

	value := consensus.BytesValue("block-1")
	sp := consensus.SignedProposal{Message: consensus.Proposal{
		Height: 1, Round: 0, Value: value, PolRound: consensus.NilRound, Proposer: proposer.Address,
	}}
	outs, err = d.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: sp})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	require.Equal(t, round.OutputVote, outs[0].Round.Kind)
	assert.Equal(t, consensus.Prevote, outs[0].Round.Vote.Kind)

	// The host feeds a node's own signed vote back through the normal
	// vote path, same as a vote arriving over the network.
	_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: consensus.SignedVote{Message: outs[0].Round.Vote}})
	require.NoError(t, err)

	others := make([]consensus.Address, 0, 3)
	for i := 0; i < 4; i++ {
		if addressOf(pvs, i) != proposer.Address {
			others = append(others, addressOf(pvs, i))
		}
	}

	var precommitOuts []driver.Output
	for i, addr := range others[:2] {
		precommitOuts, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Prevote, 1, 0, addr, consensus.VVal(value.ID()))})
		require.NoError(t, err)
		if i == 1 {
			require.Len(t, precommitOuts, 1)
			assert.Equal(t, round.OutputVote, precommitOuts[0].Round.Kind)
			assert.Equal(t, consensus.Precommit, precommitOuts[0].Round.Vote.Kind)
		}
	}

	_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: consensus.SignedVote{Message: precommitOuts[0].Round.Vote}})
	require.NoError(t, err)

	var lastOuts []driver.Output
	for _, addr := range others[:2] {
		lastOuts, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Precommit, 1, 0, addr, consensus.VVal(value.ID()))})
		require.NoError(t, err)
	}
	require.Len(t, lastOuts, 1)
	assert.Equal(t, round.OutputDecision, lastOuts[0].Round.Kind)
	require.NotNil(t, lastOuts[0].Certificate)
	assert.Equal(t, value.ID(), lastOuts[0].Certificate.ValueID)
	assert.GreaterOrEqual(t, len(lastOuts[0].Certificate.CommitSignatures), 2)
}

func TestDriver_EquivocationEvidence_DoesNotBlockDecision(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	d := driver.New(proposer.Address)
	_, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)

	value := consensus.BytesValue("block-1")
	sp := consensus.SignedProposal{Message: consensus.Proposal{
		Height: 1, Round: 0, Value: value, PolRound: consensus.NilRound, Proposer: proposer.Address,
	}}
	_, err = d.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: sp})
	require.NoError(t, err)

	others := make([]consensus.Address, 0, 3)
	for i := 0; i < 4; i++ {
		if addressOf(pvs, i) != proposer.Address {
			others = append(others, addressOf(pvs, i))
		}
	}
	equivocator := others[2]

	for _, addr := range others {
		_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Prevote, 1, 0, addr, consensus.VVal(value.ID()))})
		require.NoError(t, err)
	}

	var lastOuts []driver.Output
	for _, addr := range others {
		lastOuts, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Precommit, 1, 0, addr, consensus.VVal(value.ID()))})
		require.NoError(t, err)
		if len(lastOuts) > 0 && lastOuts[0].Round.Kind == round.OutputDecision {
			break
		}
	}
	require.NotEmpty(t, lastOuts)
	require.Equal(t, round.OutputDecision, lastOuts[0].Round.Kind)
	require.NotNil(t, lastOuts[0].Certificate)
	decidedValueID := lastOuts[0].Certificate.ValueID

	// The equivocator now sends a conflicting precommit for a different
	// value at the same (height, round); it must be recorded as
	// evidence without disturbing the certificate already decided.
	otherValue := consensus.BytesValue("block-evil")
	_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Precommit, 1, 0, equivocator, consensus.VVal(otherValue.ID()))})
	require.NoError(t, err)

	ev := d.Evidence()
	require.Len(t, ev.Votes, 1)
	assert.Equal(t, equivocator, ev.Votes[0].Voter)
	assert.Empty(t, ev.Proposals)
	assert.Equal(t, decidedValueID, lastOuts[0].Certificate.ValueID)
}

func TestDriver_ConflictingProposals_RecordedAsEvidence(t *testing.T) {
	vs, _ := fourValidators()
	proposer := vs.GetProposer(1, 0)

	d := driver.New(proposer.Address)
	_, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)

	first := consensus.SignedProposal{Message: consensus.Proposal{
		Height: 1, Round: 0, Value: consensus.BytesValue("block-1"), PolRound: consensus.NilRound, Proposer: proposer.Address,
	}}
	_, err = d.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: first})
	require.NoError(t, err)

	second := consensus.SignedProposal{Message: consensus.Proposal{
		Height: 1, Round: 0, Value: consensus.BytesValue("block-evil"), PolRound: consensus.NilRound, Proposer: proposer.Address,
	}}
	_, err = d.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: second})
	require.NoError(t, err)

	ev := d.Evidence()
	require.Len(t, ev.Proposals, 1)
	assert.Equal(t, proposer.Address, ev.Proposals[0].Proposer)
	assert.Empty(t, ev.Votes)
}

func TestDriver_ProposalFromWrongProposer_Rejected(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	var impostor consensus.Address
	for i := 0; i < 4; i++ {
		if addressOf(pvs, i) != proposer.Address {
			impostor = addressOf(pvs, i)
			break
		}
	}

	d := driver.New(proposer.Address)
	_, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)

	sp := consensus.SignedProposal{Message: consensus.Proposal{
		Height: 1, Round: 0, Value: consensus.BytesValue("block-1"), PolRound: consensus.NilRound, Proposer: impostor,
	}}
	_, err = d.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: sp})
	assert.IsType(t, consensus.InvalidProposalError{}, err, "a proposal from anyone but the selected proposer must be rejected")
}

func TestDriver_UnknownValidatorDropped(t *testing.T) {
	vs, _ := fourValidators()
	d := driver.New(vs.GetProposer(1, 0).Address)
	_, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)

	_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Prevote, 1, 0, "ghost", consensus.VNil)})
	assert.IsType(t, consensus.UnknownValidatorError{}, err)
}

func TestDriver_NonProposer_SchedulesTimeoutPropose(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	var nonProposer consensus.Address
	for i := 0; i < 4; i++ {
		if addressOf(pvs, i) != proposer.Address {
			nonProposer = addressOf(pvs, i)
			break
		}
	}

	d := driver.New(nonProposer)
	outs, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, round.OutputTimeout, outs[0].Round.Kind)
	assert.Equal(t, round.TimeoutProposeKind, outs[0].Round.Timeout)
}

func TestDriver_SkipRound(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)

	d := driver.New(proposer.Address)
	_, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)

	others := make([]consensus.Address, 0, 3)
	for i := 0; i < 4; i++ {
		if addressOf(pvs, i) != proposer.Address {
			others = append(others, addressOf(pvs, i))
		}
	}

	_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Prevote, 1, 5, others[0], consensus.VVal(consensus.ValueID{9}))})
	require.NoError(t, err)
	_, err = d.Handle(driver.Input{Kind: driver.Vote, SignedVote: vote(consensus.Prevote, 1, 5, others[1], consensus.VVal(consensus.ValueID{9}))})
	require.NoError(t, err)

	assert.Equal(t, consensus.Round(5), d.CurrentRound())
}

func TestDriver_TimeoutPrecommit_AdvancesRound(t *testing.T) {
	vs, pvs := fourValidators()
	proposer := vs.GetProposer(1, 0)
	_ = pvs

	d := driver.New(proposer.Address)
	_, err := d.Handle(driver.Input{Kind: driver.StartHeight, Height: 1, ValidatorSet: vs})
	require.NoError(t, err)

	value := consensus.BytesValue("v")
	_, err = d.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: consensus.SignedProposal{Message: consensus.Proposal{
		Height: 1, Round: 0, Value: value, PolRound: consensus.NilRound, Proposer: proposer.Address,
	}}})
	require.NoError(t, err)

	// The prevote timeout moves the round to the precommit step (it
	// precommits nil); TimeoutElapsed(Precommit) must then advance the
	// driver to round 1.
	_, err = d.Handle(driver.Input{Kind: driver.TimeoutElapsed, TimeoutRound: 0, TimeoutKind: round.TimeoutPrevoteKind})
	require.NoError(t, err)

	_, err = d.Handle(driver.Input{Kind: driver.TimeoutElapsed, TimeoutRound: 0, TimeoutKind: round.TimeoutPrecommitKind})
	require.NoError(t, err)

	assert.Equal(t, consensus.Round(1), d.CurrentRound())
}
