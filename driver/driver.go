package driver

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/proposalkeeper"
	"github.com/circlefin/malachite-sub001/internal/round"
	"github.com/circlefin/malachite-sub001/internal/votekeeper"
)

// heightSnapshot is what TearDown retains for a finalized height: its
// certificates and evidence. No driver method reads snapshots back.
type heightSnapshot struct {
	certificates []consensus.CommitCertificate
	evidence     consensus.Evidence
}

// Driver owns every piece of state scoped to one height: the validator
// set, the vote and proposal keepers, and the map of per-round state
// machines. It is not safe for concurrent use; the host loop (§4.6)
// guarantees single-sequence access.
type Driver struct {
	self consensus.Address

	height       consensus.Height
	validatorSet consensus.ValidatorSet
	currentRound consensus.Round

	voteKeeper     *votekeeper.Keeper
	proposalKeeper *proposalkeeper.Keeper
	roundStates    map[consensus.Round]consensus.RoundState

	// pendingPolka/pendingCommits remember a keeper threshold that
	// could not yet be paired with a stored proposal, so that proposal
	// arrival can replay it, per §4.5's multiplexing rule.
	pendingPolka   map[consensus.Round]consensus.ValueID
	pendingCommits map[consensus.Round]consensus.ValueID

	proposedValues map[consensus.Round][]ProposedValueMsg

	certificates []consensus.CommitCertificate

	proposerFunc ProposerFunc

	// history retains a bounded number (64) of finalized heights'
	// evidence and certificates, instead of an unbounded map that grows
	// for the life of the process. It is written by TearDown only.
	history *lru.Cache[consensus.Height, heightSnapshot]
}

// ProposerFunc computes the proposer for (height, round) against a
// validator set. The default is [consensus.ValidatorSet.GetProposer];
// an alternative can be installed with [WithProposerSelector], e.g. to
// exercise the driver against a fixed rotation in tests.
type ProposerFunc func(vs consensus.ValidatorSet, h consensus.Height, r consensus.Round) consensus.Validator

func defaultProposerFunc(vs consensus.ValidatorSet, h consensus.Height, r consensus.Round) consensus.Validator {
	return vs.GetProposer(h, r)
}

// Opt configures a Driver at construction time.
type Opt func(*Driver) error

// WithProposerSelector overrides the default weighted round-robin
// proposer selection.
func WithProposerSelector(fn ProposerFunc) Opt {
	return func(d *Driver) error {
		d.proposerFunc = fn
		return nil
	}
}

// New returns a Driver with no active height. Call Handle with a
// StartHeight input before anything else.
func New(self consensus.Address, opts ...Opt) *Driver {
	history, err := lru.New[consensus.Height, heightSnapshot](64)
	if err != nil {
		// Only possible with a non-positive size, which is a
		// programmer error in this constant, not a runtime condition.
		panic(err)
	}
	d := &Driver{
		self:           self,
		currentRound:   consensus.NilRound,
		pendingPolka:   make(map[consensus.Round]consensus.ValueID),
		pendingCommits: make(map[consensus.Round]consensus.ValueID),
		proposedValues: make(map[consensus.Round][]ProposedValueMsg),
		history:        history,
		proposerFunc:   defaultProposerFunc,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			// Options are compile-time constants in every caller; a
			// failing option indicates a construction bug.
			panic(err)
		}
	}
	return d
}

// Height is the height currently being driven.
func (d *Driver) Height() consensus.Height { return d.height }

// CurrentRound is the active round within Height.
func (d *Driver) CurrentRound() consensus.Round { return d.currentRound }

// Evidence returns every equivocation pair collected so far at the
// current height, across both the vote and proposal keepers.
func (d *Driver) Evidence() consensus.Evidence {
	return consensus.Evidence{
		Votes:     d.voteKeeper.Evidence(),
		Proposals: d.proposalKeeper.AllEvidence(),
	}
}

// Handle folds one input into the driver, returning every output it
// produces (round outputs enriched with certificates, in order).
func (d *Driver) Handle(in Input) ([]Output, error) {
	switch in.Kind {
	case StartHeight:
		return d.startHeight(in.Height, in.ValidatorSet)
	case Vote:
		return d.handleVote(in.SignedVote)
	case Proposal:
		return d.handleProposal(in.SignedProposal)
	case ProposedValue:
		return d.handleProposedValue(in.Value)
	case TimeoutElapsed:
		return d.handleTimeout(in.TimeoutRound, in.TimeoutKind)
	case CommitCertificate:
		return d.handleCertificate(in.Certificate)
	case VoteSetRequest, VoteSetResponse:
		return d.handleVoteSet(in)
	default:
		return nil, nil
	}
}

// TransitionToFinalize feeds the finalize transition to the round that
// just decided, per §4.8 item 3. The host calls this once it has
// emitted Decide and is ready to enter the finalization window.
func (d *Driver) TransitionToFinalize() ([]Output, error) {
	return d.feedRound(d.currentRound, round.Input{Kind: round.TransitionToFinalize})
}

// TearDown closes out Height, adding its evidence and certificates to
// the bounded history cache (which nothing reads back), and clears all
// per-height state so the driver is ready for the next StartHeight.
func (d *Driver) TearDown() {
	d.history.Add(d.height, heightSnapshot{
		certificates: d.certificates,
		evidence:     d.Evidence(),
	})
	d.voteKeeper = nil
	d.proposalKeeper = nil
	d.roundStates = nil
	d.pendingPolka = make(map[consensus.Round]consensus.ValueID)
	d.pendingCommits = make(map[consensus.Round]consensus.ValueID)
	d.proposedValues = make(map[consensus.Round][]ProposedValueMsg)
	d.certificates = nil
	d.currentRound = consensus.NilRound
}

func (d *Driver) startHeight(h consensus.Height, vs consensus.ValidatorSet) ([]Output, error) {
	d.height = h
	d.validatorSet = vs
	d.voteKeeper = votekeeper.New(vs.TotalVotingPower())
	d.proposalKeeper = proposalkeeper.New()
	d.roundStates = make(map[consensus.Round]consensus.RoundState)
	d.currentRound = consensus.NilRound

	return d.enterRound(0)
}

func (d *Driver) enterRound(r consensus.Round) ([]Output, error) {
	state := consensus.NewRoundState(d.height)
	if prev, ok := d.roundStates[d.currentRound]; ok && d.currentRound != consensus.NilRound {
		state.Locked = prev.Locked
		state.Valid = prev.Valid
		state.Decided = prev.Decided
	}
	d.currentRound = r

	proposer := d.proposerFunc(d.validatorSet, d.height, r)
	kind := round.NewRound
	if proposer.Address == d.self {
		kind = round.NewRoundProposer
	}

	return d.feedRoundWithState(r, state, round.Input{Kind: kind, Round: r})
}

func (d *Driver) feedRound(r consensus.Round, in round.Input) ([]Output, error) {
	state, ok := d.roundStates[r]
	if !ok {
		state = consensus.NewRoundState(d.height)
		state.Round = r
	}
	return d.feedRoundWithState(r, state, in)
}

func (d *Driver) feedRoundWithState(r consensus.Round, state consensus.RoundState, in round.Input) ([]Output, error) {
	tr := round.Step(state, in, d.self)
	if tr.Err != nil {
		return nil, tr.Err
	}
	if !tr.Valid {
		return nil, nil
	}
	d.roundStates[r] = tr.Next

	if tr.Output == nil {
		return nil, nil
	}

	out := Output{Round: *tr.Output}
	if tr.Output.Kind == round.OutputDecision {
		id := tr.Output.Value.ID()
		cert := consensus.CommitCertificate{
			Height:           d.height,
			Round:            r,
			ValueID:          id,
			CommitSignatures: d.voteKeeper.CommitSignatures(r, id),
		}
		d.certificates = append(d.certificates, cert)
		out.Certificate = &cert
	}
	return []Output{out}, nil
}

func (d *Driver) handleVote(sv consensus.SignedVote) ([]Output, error) {
	voter, ok := d.validatorSet.GetByAddress(sv.Message.Voter)
	if !ok {
		return nil, consensus.UnknownValidatorError{Address: sv.Message.Voter}
	}

	result := d.voteKeeper.ApplyVote(sv, voter.VotingPower, d.currentRound)

	var outputs []Output

	if result.Output != nil {
		if in, ok := d.mapKeeperOutput(sv.Message.Round, *result.Output); ok {
			out, err := d.feedRound(sv.Message.Round, in)
			if err != nil {
				return outputs, err
			}
			outputs = append(outputs, out...)
		}
	}

	if result.Skip != nil {
		out, err := d.feedRound(d.currentRound, round.Input{Kind: round.RoundSkip, Round: result.Skip.Round})
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out...)

		more, err := d.enterRound(result.Skip.Round)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, more...)
	}

	return outputs, nil
}

// mapKeeperOutput is §4.5's multiplexer core: it pairs a vote keeper's
// value_id-carrying threshold with a stored proposal to build the
// round state machine's compound inputs, falling back to the "any"
// variant and remembering the target id for replay when no proposal is
// stored yet.
func (d *Driver) mapKeeperOutput(r consensus.Round, out votekeeper.Output) (round.Input, bool) {
	switch out.Kind {
	case votekeeper.PolkaValue:
		if sp, ok := d.proposalKeeper.ByValueID(r, out.ValueID); ok {
			if r == d.currentRound {
				return round.Input{Kind: round.ProposalAndPolkaCurrent, SignedProposal: sp}, true
			}
			return round.Input{Kind: round.ProposalAndPolkaPreviousAndValid, Value: sp.Message.Value, PolRound: r, SignedProposal: sp}, true
		}
		d.pendingPolka[r] = out.ValueID
		return round.Input{Kind: round.PolkaAny}, true

	case votekeeper.PolkaNil:
		return round.Input{Kind: round.PolkaNil}, true
	case votekeeper.PolkaAny:
		return round.Input{Kind: round.PolkaAny}, true

	case votekeeper.PrecommitValue:
		if sp, ok := d.proposalKeeper.ByValueID(r, out.ValueID); ok {
			return round.Input{Kind: round.ProposalAndPrecommitValue, SignedProposal: sp}, true
		}
		d.pendingCommits[r] = out.ValueID
		return round.Input{Kind: round.PrecommitValue, ValueID: out.ValueID}, true

	case votekeeper.PrecommitAny:
		return round.Input{Kind: round.PrecommitAny}, true
	}
	return round.Input{}, false
}

func (d *Driver) handleProposal(sp consensus.SignedProposal) ([]Output, error) {
	p := sp.Message
	if p.Height != d.height {
		return nil, consensus.InvalidProposalError{Reason: "height mismatch"}
	}
	if !p.Valid() {
		return nil, consensus.InvalidProposalError{Reason: "pol_round must be nil or strictly less than round"}
	}
	expected := d.proposerFunc(d.validatorSet, d.height, p.Round)
	if expected.Address != p.Proposer {
		return nil, consensus.InvalidProposalError{Reason: "proposer does not match validator set selection"}
	}

	d.proposalKeeper.Store(sp, true)

	var outputs []Output

	if p.Round == d.currentRound && p.PolRound == consensus.NilRound {
		out, err := d.feedRound(p.Round, round.Input{Kind: round.Proposal, SignedProposal: sp})
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out...)
	} else if p.PolRound != consensus.NilRound && p.Round == d.currentRound {
		if 3*d.voteKeeper.PrevoteWeight(p.PolRound, consensus.VVal(p.Value.ID())) > 2*d.voteKeeper.TotalWeight() {
			out, err := d.feedRound(p.Round, round.Input{
				Kind: round.ProposalAndPolkaPreviousAndValid, Value: p.Value, PolRound: p.PolRound, SignedProposal: sp,
			})
			if err != nil {
				return outputs, err
			}
			outputs = append(outputs, out...)
		}
	}

	id := p.Value.ID()
	if pv, ok := d.pendingPolka[p.Round]; ok && pv == id {
		delete(d.pendingPolka, p.Round)
		var in round.Input
		if p.Round == d.currentRound {
			in = round.Input{Kind: round.ProposalAndPolkaCurrent, SignedProposal: sp}
		} else {
			in = round.Input{Kind: round.ProposalAndPolkaPreviousAndValid, Value: p.Value, PolRound: p.Round, SignedProposal: sp}
		}
		out, err := d.feedRound(d.currentRound, in)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out...)
	}
	if pc, ok := d.pendingCommits[p.Round]; ok && pc == id {
		delete(d.pendingCommits, p.Round)
		out, err := d.feedRound(p.Round, round.Input{Kind: round.ProposalAndPrecommitValue, SignedProposal: sp})
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out...)
	}

	return outputs, nil
}

func (d *Driver) handleProposedValue(pv ProposedValueMsg) ([]Output, error) {
	d.proposedValues[pv.Round] = append(d.proposedValues[pv.Round], pv)
	return nil, nil
}

// ProposedValues returns every value the application has supplied for
// round so far, in arrival order.
func (d *Driver) ProposedValues(r consensus.Round) []ProposedValueMsg {
	return d.proposedValues[r]
}

func (d *Driver) handleTimeout(r consensus.Round, kind round.TimeoutKind) ([]Output, error) {
	if r != d.currentRound {
		// Late timeout for a round we've already left; ignored per
		// §5's cancellation/timeout rule.
		return nil, nil
	}

	var in round.Input
	switch kind {
	case round.TimeoutProposeKind:
		in = round.Input{Kind: round.TimeoutPropose}
	case round.TimeoutPrevoteKind:
		in = round.Input{Kind: round.TimeoutPrevote}
	case round.TimeoutPrecommitKind:
		in = round.Input{Kind: round.TimeoutPrecommit}
	default:
		return nil, nil
	}

	outputs, err := d.feedRound(r, in)
	if err != nil {
		return outputs, err
	}

	if kind == round.TimeoutPrecommitKind {
		more, err := d.enterRound(r + 1)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, more...)
	}

	return outputs, nil
}

func (d *Driver) handleCertificate(cert consensus.CommitCertificate) ([]Output, error) {
	if cert.Height != d.height {
		// A certificate for a different height belongs to the
		// value-sync handshake, which the host mediates; the driver
		// just remembers it was offered.
		d.certificates = append(d.certificates, cert)
		return nil, nil
	}

	if cert.Round != d.currentRound {
		if _, err := d.enterRound(cert.Round); err != nil {
			return nil, err
		}
	}

	return d.feedRound(cert.Round, round.Input{Kind: round.CommitCertificate, Certificate: cert})
}

func (d *Driver) handleVoteSet(in Input) ([]Output, error) {
	// The value-sync vote-set handshake is served by the host (which
	// owns the network transport). A request is accepted and ignored:
	// the driver keeps no record of it. A response's synced votes are
	// folded through the normal vote path; a vote that path rejects is
	// skipped and the rest are still applied.
	if in.Kind == VoteSetResponse {
		var outputs []Output
		for _, sv := range in.SyncVotes {
			out, err := d.handleVote(sv)
			if err != nil {
				continue
			}
			outputs = append(outputs, out...)
		}
		return outputs, nil
	}
	return nil, nil
}
