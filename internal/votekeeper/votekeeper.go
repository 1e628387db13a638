// Package votekeeper owns one RoundVotes per observed round within a
// height: it detects polka (prevote quorum), commit (precommit quorum),
// and skip (cross-round) thresholds, and collects equivocation
// evidence, grounded on the per-round state lifecycle of
// tm/tmengine's internal/tmmirror/internal/tmi/kstate.go (re-cast here
// as a map of per-round counters rather than kstate's three-view
// Committing/Voting/NextRound design, since that design answers a
// gossip/catch-up problem this package does not need to solve).
package votekeeper

import (
	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/votecount"
)

// OutputKind distinguishes the compound outputs a Keeper can emit.
type OutputKind uint8

const (
	OutputNone OutputKind = iota
	PolkaValue
	PolkaNil
	PolkaAny
	PrecommitValue
	PrecommitAny
	SkipRound
)

func (k OutputKind) String() string {
	switch k {
	case PolkaValue:
		return "polka_value"
	case PolkaNil:
		return "polka_nil"
	case PolkaAny:
		return "polka_any"
	case PrecommitValue:
		return "precommit_value"
	case PrecommitAny:
		return "precommit_any"
	case SkipRound:
		return "skip_round"
	default:
		return "none"
	}
}

// Output is one compound event emitted by the keeper.
type Output struct {
	Kind    OutputKind
	Round   consensus.Round // meaningful for SkipRound: the round to jump to.
	ValueID consensus.ValueID
}

// Result is what ApplyVote returns: an optional polka/commit output and
// an optional skip output, always in that order, per §4.2's output
// ordering guarantee.
type Result struct {
	Output *Output
	Skip   *Output
}

type outputKey struct {
	kind    OutputKind
	valueID consensus.ValueID
}

type perRound struct {
	prevote   *votecount.Counter
	precommit *votecount.Counter

	seenPrevote   map[consensus.Address]consensus.SignedVote
	seenPrecommit map[consensus.Address]consensus.SignedVote

	// seenAny is the union, across both vote kinds, of every address
	// that has voted in this round, with the weight that address
	// carries -- used only for the cross-round skip computation.
	seenAny map[consensus.Address]uint64

	emittedPrevoteOutput   map[outputKey]bool
	emittedPrecommitOutput map[outputKey]bool
}

func newPerRound() *perRound {
	return &perRound{
		seenPrevote:            make(map[consensus.Address]consensus.SignedVote),
		seenPrecommit:          make(map[consensus.Address]consensus.SignedVote),
		seenAny:                make(map[consensus.Address]uint64),
		emittedPrevoteOutput:   make(map[outputKey]bool),
		emittedPrecommitOutput: make(map[outputKey]bool),
	}
}

// Keeper owns every round observed within one height.
type Keeper struct {
	totalWeight uint64
	perRound    map[consensus.Round]*perRound
	evidence    []consensus.VoteEvidence

	// skipEmittedForRound is the round a SkipRound output was last
	// emitted for; a new skip can only emit for a round strictly
	// greater than this one, so that the driver is never told to skip
	// to a round it has already been told to skip to (or past).
	skipEmittedForRound consensus.Round
}

// New returns an empty Keeper for a height whose validator set carries
// the given total voting power.
func New(totalWeight uint64) *Keeper {
	return &Keeper{
		totalWeight:         totalWeight,
		perRound:            make(map[consensus.Round]*perRound),
		skipEmittedForRound: consensus.NilRound,
	}
}

func (k *Keeper) round(r consensus.Round) *perRound {
	pr, ok := k.perRound[r]
	if !ok {
		pr = newPerRound()
		k.perRound[r] = pr
	}
	return pr
}

// Evidence returns every double-vote pair collected so far.
func (k *Keeper) Evidence() []consensus.VoteEvidence {
	return k.evidence
}

// TotalWeight is the total voting power the keeper was constructed with.
func (k *Keeper) TotalWeight() uint64 {
	return k.totalWeight
}

// PrevoteWeight returns the weight accumulated for value at round so
// far, for callers (the driver's multiplexer) that need to check
// whether a historical round already holds a polka for a specific
// value without waiting for a fresh ApplyVote call.
func (k *Keeper) PrevoteWeight(round consensus.Round, value consensus.NilOrVal) uint64 {
	pr, ok := k.perRound[round]
	if !ok || pr.prevote == nil {
		return 0
	}
	return pr.prevote.WeightFor(value)
}

// CommitSignatures returns every signed precommit recorded at round for
// value id -- the raw material the driver assembles into a
// CommitCertificate once a precommit quorum decides id.
func (k *Keeper) CommitSignatures(round consensus.Round, id consensus.ValueID) []consensus.SignedVote {
	pr, ok := k.perRound[round]
	if !ok {
		return nil
	}
	var out []consensus.SignedVote
	for _, sv := range pr.seenPrecommit {
		if vid, ok := sv.Message.Value.Value(); ok && vid == id {
			out = append(out, sv)
		}
	}
	return out
}

// ApplyVote folds sv into the keeper, returning any polka/commit and/or
// skip output it triggers. weight is the voting power of sv.Message.Voter,
// as looked up by the caller against the height's validator set (the
// keeper has no validator set of its own). currentRound is the round
// the driver currently occupies.
func (k *Keeper) ApplyVote(sv consensus.SignedVote, weight uint64, currentRound consensus.Round) Result {
	vote := sv.Message
	pr := k.round(vote.Round)

	seen, counter, outputs := k.kindState(pr, vote.Kind)

	if prior, ok := seen[vote.Voter]; ok {
		if !prior.Message.Value.Equal(vote.Value) {
			k.evidence = append(k.evidence, consensus.VoteEvidence{
				Voter: vote.Voter,
				A:     prior,
				B:     sv,
			})
		}
	} else {
		seen[vote.Voter] = sv
	}

	pr.seenAny[vote.Voter] = weight

	var result Result

	th := counter.Add(vote.Voter, vote.Value, weight)
	if th.Kind != consensus.ThresholdUnreached {
		if out := mapThreshold(vote.Kind, th); out != nil {
			key := outputKey{kind: out.Kind, valueID: out.ValueID}
			if !outputs[key] {
				outputs[key] = true
				result.Output = out
			}
		}
	}

	if skip := k.maybeSkip(vote.Round, currentRound); skip != nil {
		result.Skip = skip
	}

	return result
}

func (k *Keeper) kindState(pr *perRound, kind consensus.VoteKind) (map[consensus.Address]consensus.SignedVote, *votecount.Counter, map[outputKey]bool) {
	if kind == consensus.Prevote {
		if pr.prevote == nil {
			pr.prevote = votecount.New(k.totalWeight)
		}
		return pr.seenPrevote, pr.prevote, pr.emittedPrevoteOutput
	}
	if pr.precommit == nil {
		pr.precommit = votecount.New(k.totalWeight)
	}
	return pr.seenPrecommit, pr.precommit, pr.emittedPrecommitOutput
}

// mapThreshold translates a raw votecount.Counter threshold into the
// vote-kind-specific compound output §4.2 defines, collapsing
// precommit-nil into PrecommitAny.
func mapThreshold(kind consensus.VoteKind, th consensus.Threshold) *Output {
	if kind == consensus.Prevote {
		switch th.Kind {
		case consensus.ThresholdValue:
			return &Output{Kind: PolkaValue, ValueID: th.ValueID}
		case consensus.ThresholdNil:
			return &Output{Kind: PolkaNil}
		case consensus.ThresholdAny:
			return &Output{Kind: PolkaAny}
		}
		return nil
	}
	switch th.Kind {
	case consensus.ThresholdValue:
		return &Output{Kind: PrecommitValue, ValueID: th.ValueID}
	case consensus.ThresholdNil, consensus.ThresholdAny:
		return &Output{Kind: PrecommitAny}
	}
	return nil
}

// maybeSkip implements §4.2 step 5: if the weight of every address seen
// voting in any round strictly greater than currentRound exceeds a
// third of the total, and no skip has yet been emitted for that round
// or beyond, emit SkipRound(votedRound).
func (k *Keeper) maybeSkip(votedRound, currentRound consensus.Round) *Output {
	if votedRound <= currentRound {
		return nil
	}
	if k.skipEmittedForRound != consensus.NilRound && k.skipEmittedForRound >= votedRound {
		return nil
	}

	weight := make(map[consensus.Address]uint64)
	for r, pr := range k.perRound {
		if r <= currentRound {
			continue
		}
		for addr, w := range pr.seenAny {
			weight[addr] = w
		}
	}
	var sum uint64
	for _, w := range weight {
		sum += w
	}
	if 3*sum <= k.totalWeight {
		return nil
	}

	k.skipEmittedForRound = votedRound
	return &Output{Kind: SkipRound, Round: votedRound}
}
