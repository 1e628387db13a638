// Package consensus holds the data model shared by every core
// component: heights, rounds, validators, proposals, votes, round
// state, and the certificates that justify a decision.
//
// The design is monomorphic rather than generic over a Context type:
// per Design Note 9, the Context abstraction in the source material
// exists for testability across data models, not for runtime
// polymorphism, so this package picks one concrete data model
// (ed25519/BLS-keyed validators, opaque hashed values) and keeps the
// rest of the core working against it directly.
package consensus

import "fmt"

// Height is the position in the decided sequence. Heights are
// monotonically increasing and start at a chain-specific initial height.
type Height uint64

// Round identifies an attempt to decide within a height.
// Non-negative values are real rounds; NilRound and AnyRound are
// sentinels used where the protocol needs to talk about "no round yet"
// or "any round" rather than a specific one.
type Round int64

const (
	// NilRound marks an uninitialized round, e.g. a RoundValue that has
	// never been set, or a Proposal's pol_round when the proposer saw
	// no prior polka.
	NilRound Round = -1

	// AnyRound is used by cross-round matching logic (the vote-set sync
	// wildcard query, primarily); it is never a round a RoundState or
	// Vote actually occupies.
	AnyRound Round = -2
)

func (r Round) String() string {
	switch r {
	case NilRound:
		return "nil"
	case AnyRound:
		return "any"
	default:
		return fmt.Sprintf("%d", int64(r))
	}
}

// Address is an opaque, ordered, equality-comparable validator
// identifier, derived from a validator's public key.
type Address string

// ValueID is a content hash identifying a Value. Two values with equal
// IDs are treated as the same value by every core component; the core
// never compares Values directly.
type ValueID [32]byte

func (id ValueID) String() string {
	return fmt.Sprintf("%x", id[:8])
}

// Value is the application-defined payload a height decides on.
// The core only ever needs a Value's ID; everything else about the
// payload (encoding, validity, execution) is the application's concern.
type Value interface {
	ID() ValueID
}

// NilOrVal represents a vote's target: an explicit rejection (Nil) or a
// concrete value id. The zero value is Nil.
type NilOrVal struct {
	id    ValueID
	isVal bool
}

// VNil is the nil vote target.
var VNil = NilOrVal{}

// VVal returns a vote target for the given value id.
func VVal(id ValueID) NilOrVal {
	return NilOrVal{id: id, isVal: true}
}

func (v NilOrVal) IsNil() bool { return !v.isVal }

// Value returns the value id and true, or the zero ValueID and false if
// v is nil.
func (v NilOrVal) Value() (ValueID, bool) {
	if !v.isVal {
		return ValueID{}, false
	}
	return v.id, true
}

func (v NilOrVal) Equal(o NilOrVal) bool {
	return v.isVal == o.isVal && (!v.isVal || v.id == o.id)
}

func (v NilOrVal) String() string {
	if v.IsNil() {
		return "nil"
	}
	return v.id.String()
}

// VoteKind distinguishes a prevote from a precommit.
type VoteKind uint8

const (
	Prevote VoteKind = iota
	Precommit
)

func (k VoteKind) String() string {
	if k == Prevote {
		return "prevote"
	}
	return "precommit"
}

// Vote is a single validator's prevote or precommit.
// Extension is only ever populated on precommits, and only if the
// application uses vote extensions; the core propagates it verbatim
// and never inspects its contents.
type Vote struct {
	Kind      VoteKind
	Height    Height
	Round     Round
	Value     NilOrVal
	Voter     Address
	Extension []byte
}

// Proposal is a proposer's claim that Value should be decided at
// (Height, Round). PolRound ("proof-of-lock round") is NilRound for a
// freshly built value, or a prior round in which the proposer observed
// a polka for Value.
type Proposal struct {
	Height   Height
	Round    Round
	Value    Value
	PolRound Round
	Proposer Address
}

// Valid reports whether p's fields satisfy the structural constraint
// that PolRound is nil or strictly less than Round. It does not check
// application-level validity of the value.
func (p Proposal) Valid() bool {
	return p.PolRound == NilRound || p.PolRound < p.Round
}

// SignedMessage pairs a message with the signature over its canonical
// sign bytes.
type SignedMessage[T any] struct {
	Message   T
	Signature []byte
}

// SignedVote and SignedProposal are the two concrete SignedMessage
// instantiations the core moves around.
type (
	SignedVote     = SignedMessage[Vote]
	SignedProposal = SignedMessage[Proposal]
)

// RoundValue is a value together with the round in which it was locked
// or deemed valid.
type RoundValue struct {
	Value Value
	Round Round
}

// Step is where a RoundState is within the Tendermint algorithm.
type Step uint8

const (
	StepUnstarted Step = iota
	StepNewRound
	StepPropose
	StepPrevote
	StepPrecommit
	StepCommit
	StepFinalize
)

func (s Step) String() string {
	switch s {
	case StepUnstarted:
		return "unstarted"
	case StepNewRound:
		return "new_round"
	case StepPropose:
		return "propose"
	case StepPrevote:
		return "prevote"
	case StepPrecommit:
		return "precommit"
	case StepCommit:
		return "commit"
	case StepFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// RoundState is the per-round state held by the round state machine.
type RoundState struct {
	Height Height
	Round  Round
	Step   Step

	Proposal *Proposal
	Locked   *RoundValue
	Valid    *RoundValue
	Decided  *RoundValue
}

// NewRoundState returns the initial, unstarted state for (h, NilRound).
func NewRoundState(h Height) RoundState {
	return RoundState{
		Height: h,
		Round:  NilRound,
		Step:   StepUnstarted,
	}
}

// ThresholdKind is the kind of super-majority the vote keeper detected.
type ThresholdKind uint8

const (
	ThresholdUnreached ThresholdKind = iota
	ThresholdAny
	ThresholdNil
	ThresholdValue
	ThresholdSkip
)

func (k ThresholdKind) String() string {
	switch k {
	case ThresholdUnreached:
		return "unreached"
	case ThresholdAny:
		return "any"
	case ThresholdNil:
		return "nil"
	case ThresholdValue:
		return "value"
	case ThresholdSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Threshold is the output of the round-vote counter and vote keeper:
// which, if any, quorum was just crossed.
type Threshold struct {
	Kind    ThresholdKind
	ValueID ValueID // only meaningful when Kind == ThresholdValue
}

var UnreachedThreshold = Threshold{Kind: ThresholdUnreached}

// CommitCertificate is a transferable proof that ValueID was decided at
// (Height, Round): enough precommits for it to exceed the commit
// threshold.
type CommitCertificate struct {
	Height           Height
	Round            Round
	ValueID          ValueID
	CommitSignatures []SignedVote
}

// EnterRoundCertificate justifies jumping to a higher round: a set of
// precommits or prevotes, from strictly higher rounds, whose combined
// weight crosses the skip threshold.
type EnterRoundCertificate struct {
	Height Height
	Round  Round
	Votes  []SignedVote
}

// VoteEvidence is a pair of conflicting signed votes from one voter at
// the same (height, round, kind).
type VoteEvidence struct {
	Voter Address
	A, B  SignedVote
}

// ProposalEvidence is a pair of conflicting signed proposals from one
// proposer at the same (height, round).
type ProposalEvidence struct {
	Proposer Address
	A, B     SignedProposal
}

// Evidence bundles every equivocation pair collected at a height,
// across both voters (§7's DoubleVote) and proposers (§7's
// ConflictingProposal). §3 describes Evidence as "pairs of conflicting
// (signed) proposals or votes"; the two kinds carry different payload
// types, so they are kept as separate slices rather than forced into
// one interface.
type Evidence struct {
	Votes     []VoteEvidence
	Proposals []ProposalEvidence
}

// Len is the total number of equivocation pairs in e.
func (e Evidence) Len() int { return len(e.Votes) + len(e.Proposals) }
