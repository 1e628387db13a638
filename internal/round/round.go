// Package round implements the per-round Tendermint algorithm as a pure
// state machine: Step(State, Input) -> Transition, with no channels, no
// goroutines, and no I/O of its own.
//
// Grounded on tm/tmengine's internal/tmstate/internal/tsi package: the
// Propose/Prevote/Precommit/Commit step progression and the
// lock/valid/decided field shape come from tsi.RoundLifecycle and
// tsi.commitProofFinalizer, adapted from a goroutine-owning,
// channel-carrying struct (reset per round by a dedicated actor) into
// one pure function returning a value, since this package's caller owns
// the single sequential driver loop and needs no actor of its own.
package round

import "github.com/circlefin/malachite-sub001/consensus"

// InputKind enumerates every input the round state machine accepts, a
// superset of Tendermint's numbered algorithm lines.
type InputKind uint8

const (
	NewRound InputKind = iota
	NewRoundProposer
	Proposal
	ProposalInvalid
	ProposalAndPolkaPreviousAndValid
	PolkaValue
	PolkaAny
	PolkaNil
	ProposalAndPolkaCurrent
	PrecommitAny
	PrecommitValue
	ProposalAndPrecommitValue
	RoundSkip
	TimeoutPropose
	TimeoutPrevote
	TimeoutPrecommit
	CommitCertificate
	TransitionToFinalize
)

// Input is a tagged union over every InputKind; only the fields
// relevant to Kind are meaningful.
type Input struct {
	Kind InputKind

	Round consensus.Round // NewRound / NewRoundProposer / RoundSkip

	SignedProposal consensus.SignedProposal // Proposal / ProposalAndPolkaCurrent / ProposalAndPrecommitValue

	Value    consensus.Value // ProposalAndPolkaPreviousAndValid
	PolRound consensus.Round // ProposalAndPolkaPreviousAndValid: the prior round with the polka

	ValueID consensus.ValueID // PolkaValue / PrecommitValue

	Certificate consensus.CommitCertificate // CommitCertificate
}

// OutputKind enumerates every output the round state machine can emit.
type OutputKind uint8

const (
	OutputNone OutputKind = iota
	OutputProposal
	OutputVote
	OutputTimeout
	OutputDecision
	OutputGetValue
	OutputScheduleRebroadcast
)

// TimeoutKind names which step's timer an OutputTimeout or
// OutputGetValue output is arming.
type TimeoutKind uint8

const (
	TimeoutUnspecified TimeoutKind = iota
	TimeoutProposeKind
	TimeoutPrevoteKind
	TimeoutPrecommitKind
	// TimeoutFinalizeKind arms the finalization window (§4.8 item 4)
	// after a decision, bounding how long the host waits before tearing
	// the height down and starting the next one. It never reaches the
	// round state machine itself -- host.Loop handles it directly,
	// since by the time it is scheduled the round has already moved to
	// StepFinalize.
	TimeoutFinalizeKind
)

func (k TimeoutKind) String() string {
	switch k {
	case TimeoutProposeKind:
		return "propose"
	case TimeoutPrevoteKind:
		return "prevote"
	case TimeoutPrecommitKind:
		return "precommit"
	case TimeoutFinalizeKind:
		return "finalize"
	default:
		return "unspecified"
	}
}

// Output is a tagged union over every OutputKind.
type Output struct {
	Kind OutputKind

	Proposal consensus.Proposal // OutputProposal
	Vote     consensus.Vote     // OutputVote
	Timeout  TimeoutKind        // OutputTimeout / OutputGetValue

	Height consensus.Height // OutputDecision / OutputGetValue
	Round  consensus.Round  // OutputDecision / OutputGetValue / OutputTimeout
	Value  consensus.Value  // OutputDecision
}

// Transition is the result of one Step call. Valid=false means in was
// illegal for state's current step; state is returned unchanged and
// Output is always nil in that case. Err is only ever set for the one
// case that indicates a driver bug rather than an unexpected message:
// TransitionToFinalize arriving with no decision recorded.
type Transition struct {
	Next   consensus.RoundState
	Output *Output
	Valid  bool
	Err    error
}

func noop(state consensus.RoundState) Transition {
	return Transition{Next: state, Valid: true}
}

func invalid(state consensus.RoundState) Transition {
	return Transition{Next: state, Valid: false}
}

// Step advances state by one input. self is the address this node
// votes and proposes as.
func Step(state consensus.RoundState, in Input, self consensus.Address) Transition {
	if state.Step == consensus.StepFinalize {
		// §4.4: once finalized, every input is ignored; evidence and
		// certificate bookkeeping for stray late messages is the
		// driver's concern (it still holds the vote/proposal keepers),
		// not this state machine's.
		return noop(state)
	}

	switch in.Kind {
	case NewRound:
		return enterRound(state, in.Round, false, self)
	case NewRoundProposer:
		return enterRound(state, in.Round, true, self)

	case Proposal:
		return receiveProposal(state, in, self)
	case ProposalInvalid:
		return prevoteNilOnPropose(state, self)
	case TimeoutPropose:
		return prevoteNilOnPropose(state, self)

	case ProposalAndPolkaPreviousAndValid:
		return receivePolkaPrevious(state, in, self)

	case PolkaAny:
		if state.Step != consensus.StepPrevote {
			return invalid(state)
		}
		return Transition{Next: state, Valid: true, Output: &Output{
			Kind: OutputTimeout, Timeout: TimeoutPrevoteKind, Round: state.Round,
		}}

	case PolkaNil:
		if state.Step != consensus.StepPrevote {
			return invalid(state)
		}
		return precommit(state, consensus.VNil, self, nil)

	case TimeoutPrevote:
		if state.Step != consensus.StepPrevote {
			return invalid(state)
		}
		return precommit(state, consensus.VNil, self, nil)

	case ProposalAndPolkaCurrent:
		return receivePolkaCurrent(state, in, self)

	case PrecommitAny:
		if state.Step != consensus.StepPrecommit {
			return invalid(state)
		}
		return Transition{Next: state, Valid: true, Output: &Output{
			Kind: OutputTimeout, Timeout: TimeoutPrecommitKind, Round: state.Round,
		}}

	case ProposalAndPrecommitValue:
		if state.Step >= consensus.StepCommit {
			return invalid(state)
		}
		return decide(state, in.SignedProposal.Message.Value)

	case PrecommitValue:
		if state.Step >= consensus.StepCommit {
			return invalid(state)
		}
		// No matching proposal yet; the driver will resend this as
		// ProposalAndPrecommitValue once it arrives.
		return noop(state)

	case CommitCertificate:
		if state.Step >= consensus.StepCommit {
			return invalid(state)
		}
		if state.Proposal != nil && state.Proposal.Value != nil && state.Proposal.Value.ID() == in.Certificate.ValueID {
			return decide(state, state.Proposal.Value)
		}
		return noop(state)

	case RoundSkip:
		if in.Round <= state.Round {
			return invalid(state)
		}
		// Advancing to the skipped-to round is the driver's job (it
		// owns the map of per-round states); this machine only
		// acknowledges the input as legal.
		return noop(state)

	case TimeoutPrecommit:
		if state.Step != consensus.StepPrecommit {
			return invalid(state)
		}
		// Entering round+1 is likewise the driver's job.
		return noop(state)

	case TransitionToFinalize:
		if state.Step != consensus.StepCommit {
			return invalid(state)
		}
		if state.Decided == nil {
			return Transition{Next: state, Valid: false, Err: consensus.DecisionNotFoundError{
				Height: state.Height, Round: state.Round,
			}}
		}
		next := state
		next.Step = consensus.StepFinalize
		return Transition{Next: next, Valid: true}

	default:
		return invalid(state)
	}
}

func enterRound(state consensus.RoundState, r consensus.Round, isProposer bool, self consensus.Address) Transition {
	next := state
	next.Round = r
	next.Step = consensus.StepPropose
	next.Proposal = nil

	if !isProposer {
		return Transition{Next: next, Valid: true, Output: &Output{
			Kind: OutputTimeout, Timeout: TimeoutProposeKind, Round: r,
		}}
	}

	if next.Valid != nil && next.Valid.Round < r {
		return Transition{Next: next, Valid: true, Output: &Output{
			Kind: OutputProposal,
			Proposal: consensus.Proposal{
				Height:   next.Height,
				Round:    r,
				Value:    next.Valid.Value,
				PolRound: next.Valid.Round,
				Proposer: self,
			},
		}}
	}

	return Transition{Next: next, Valid: true, Output: &Output{
		Kind: OutputGetValue, Height: next.Height, Round: r, Timeout: TimeoutProposeKind,
	}}
}

func receiveProposal(state consensus.RoundState, in Input, self consensus.Address) Transition {
	if state.Step != consensus.StepPropose {
		return invalid(state)
	}
	p := in.SignedProposal.Message
	if p.PolRound != consensus.NilRound {
		return invalid(state)
	}

	next := state
	next.Proposal = &p
	next.Step = consensus.StepPrevote

	if state.Locked == nil || state.Locked.Value.ID() == p.Value.ID() {
		return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Prevote, consensus.VVal(p.Value.ID()), self)}
	}
	return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Prevote, consensus.VNil, self)}
}

func receivePolkaPrevious(state consensus.RoundState, in Input, self consensus.Address) Transition {
	if state.Step != consensus.StepPropose {
		return invalid(state)
	}
	if in.PolRound >= state.Round {
		return invalid(state)
	}

	next := state
	if in.SignedProposal.Message.Value != nil {
		p := in.SignedProposal.Message
		next.Proposal = &p
	}
	next.Step = consensus.StepPrevote

	lockedOnDifferentHigherValue := state.Locked != nil &&
		state.Locked.Round > in.PolRound &&
		state.Locked.Value.ID() != in.Value.ID()

	if lockedOnDifferentHigherValue {
		return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Prevote, consensus.VNil, self)}
	}
	return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Prevote, consensus.VVal(in.Value.ID()), self)}
}

func prevoteNilOnPropose(state consensus.RoundState, self consensus.Address) Transition {
	if state.Step != consensus.StepPropose {
		return invalid(state)
	}
	next := state
	next.Step = consensus.StepPrevote
	return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Prevote, consensus.VNil, self)}
}

func receivePolkaCurrent(state consensus.RoundState, in Input, self consensus.Address) Transition {
	if state.Step < consensus.StepPrevote || state.Step >= consensus.StepCommit {
		return invalid(state)
	}
	v := in.SignedProposal.Message.Value

	next := state
	rv := consensus.RoundValue{Value: v, Round: state.Round}
	next.Valid = &rv

	if state.Step == consensus.StepPrevote {
		locked := rv
		next.Locked = &locked
		next.Step = consensus.StepPrecommit
		return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Precommit, consensus.VVal(v.ID()), self)}
	}
	return Transition{Next: next, Valid: true}
}

func precommit(state consensus.RoundState, target consensus.NilOrVal, self consensus.Address, _ *consensus.Value) Transition {
	next := state
	next.Step = consensus.StepPrecommit
	return Transition{Next: next, Valid: true, Output: voteOutput(state, consensus.Precommit, target, self)}
}

func decide(state consensus.RoundState, v consensus.Value) Transition {
	next := state
	rv := consensus.RoundValue{Value: v, Round: state.Round}
	next.Decided = &rv
	next.Step = consensus.StepCommit
	return Transition{Next: next, Valid: true, Output: &Output{
		Kind: OutputDecision, Height: state.Height, Round: state.Round, Value: v,
	}}
}

func voteOutput(state consensus.RoundState, kind consensus.VoteKind, target consensus.NilOrVal, self consensus.Address) *Output {
	return &Output{
		Kind: OutputVote,
		Vote: consensus.Vote{
			Kind:   kind,
			Height: state.Height,
			Round:  state.Round,
			Value:  target,
			Voter:  self,
		},
	}
}
