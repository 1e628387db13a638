// Package driver owns one height's worth of consensus state: the
// validator set, vote keeper, proposal keeper, and the map of per-round
// state machines, and multiplexes vote-keeper and proposal-keeper
// events into the round state machine's compound inputs.
//
// Grounded on tm/tmengine/internal/tmstate/internal/tsi's
// consensusManager (the component owning RoundLifecycle plus the vote
// and proposal stores, translating store events into state machine
// transitions), adapted from its goroutine/channel plumbing into a
// synchronous Handle(Input) ([]Output, error) method, since this
// package has no actor loop of its own -- the host package (§4.6) owns
// the single sequential loop that calls it.
package driver

import (
	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/round"
)

// InputKind enumerates every input the driver accepts, per spec.md §6's
// external interface list.
type InputKind uint8

const (
	StartHeight InputKind = iota
	Vote
	Proposal
	ProposedValue
	TimeoutElapsed
	CommitCertificate
	VoteSetRequest
	VoteSetResponse
)

// ProposedValueMsg is the application's answer to a GetValue effect.
type ProposedValueMsg struct {
	Height consensus.Height
	Round  consensus.Round
	Value  consensus.Value
	Valid  bool
}

// Input is a tagged union over every InputKind.
type Input struct {
	Kind InputKind

	Height       consensus.Height     // StartHeight
	ValidatorSet consensus.ValidatorSet // StartHeight

	SignedVote consensus.SignedVote // Vote

	SignedProposal consensus.SignedProposal // Proposal

	Value ProposedValueMsg // ProposedValue

	TimeoutRound consensus.Round   // TimeoutElapsed
	TimeoutKind  round.TimeoutKind // TimeoutElapsed

	Certificate consensus.CommitCertificate // CommitCertificate

	RequestID string           // VoteSetRequest / VoteSetResponse
	SyncVotes []consensus.SignedVote // VoteSetResponse
}

// Output wraps a round-level output with driver-level enrichment: a
// Decision output additionally carries the assembled CommitCertificate,
// since the round state machine itself only knows the decided value,
// not the signatures that justify it.
type Output struct {
	Round       round.Output
	Certificate *consensus.CommitCertificate
}
