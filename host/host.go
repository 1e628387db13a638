// Package host drives the consensus core by interpreting the effects
// the driver's round outputs imply, per §4.6: the core is modeled as a
// coroutine that yields one effect and suspends until the host resumes
// with a typed value, but since this implementation has no actor loop
// of its own, Loop plays the host's part with direct synchronous calls
// instead of a channel-based yield/resume handshake -- §5 only
// requires one logical sequence of (input -> effects -> completion),
// which a synchronous call graph already satisfies.
//
// Grounded on tm/tmengine/engine.go's Engine, which owns the
// equivalent role (driving tmstate/tmmirror and dispatching their
// requests to stores, timers, and the gossip strategy) behind a
// similar functional-options constructor.
package host

import (
	"context"
	"time"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/round"
)

// Host is the application/network/timer boundary the core never
// reaches past directly. Every method corresponds to one row of §4.6's
// effect table, minus SignVote/SignProposal (split out as [Signer], so
// a remote signer can be swapped in without touching the rest of the
// host boundary) and WalAppend (split out as [WAL], so replay can
// substitute a reader for a writer without changing this interface).
type Host interface {
	// Publish broadcasts a signed vote or proposal to the network.
	PublishVote(ctx context.Context, sv consensus.SignedVote) error
	PublishProposal(ctx context.Context, sp consensus.SignedProposal) error

	// GetValue asks the application to build a value to propose at
	// (h, r); the answer arrives asynchronously as a ProposedValue
	// input fed back through Loop.HandleProposedValue.
	GetValue(ctx context.Context, h consensus.Height, r consensus.Round, timeout time.Duration) error

	// GetValidatorSet returns the validator set active at h.
	GetValidatorSet(ctx context.Context, h consensus.Height) (consensus.ValidatorSet, error)

	// VerifySignature checks msg/sig under voter's registered public
	// key; the core never hashes or verifies directly.
	VerifySignature(ctx context.Context, voter consensus.Address, msg, sig []byte) (bool, error)

	// ScheduleTimeout arms a wall-clock timer; CancelTimeout/
	// CancelAllTimeouts manage it.
	ScheduleTimeout(ctx context.Context, kind round.TimeoutKind, r consensus.Round, d time.Duration) error
	CancelTimeout(ctx context.Context, kind round.TimeoutKind, r consensus.Round) error
	CancelAllTimeouts(ctx context.Context) error

	// Decide reports a height's decision: the certificate plus any
	// vote- or proposal-equivocation evidence collected at that height.
	// Vote extensions are carried on CommitSignatures' Vote.Extension
	// fields already, so Decide does not take them separately.
	Decide(ctx context.Context, cert consensus.CommitCertificate, evidence consensus.Evidence) error

	// SyncedBlock delivers a value-synced block's raw bytes, received
	// out of band from the normal proposal/vote flow.
	SyncedBlock(ctx context.Context, h consensus.Height, r consensus.Round, bytes []byte) error

	// GetVoteSet/SendVoteSetResponse implement the value-sync vote-set
	// handshake; the host owns the network transport for it.
	GetVoteSet(ctx context.Context, h consensus.Height, r consensus.Round) error
	SendVoteSetResponse(ctx context.Context, requestID string, votes []consensus.SignedVote) error
}

// Signer produces the signed vote/proposal for the SignVote/
// SignProposal effects. [LocalSigner] is the in-process default;
// host/remotesigner provides a gRPC-backed alternative.
type Signer interface {
	SignVote(ctx context.Context, v consensus.Vote) (consensus.SignedVote, error)
	SignProposal(ctx context.Context, p consensus.Proposal) (consensus.SignedProposal, error)
}

// WALEntryKind tags one WAL record, per §4.7's three entry kinds.
type WALEntryKind uint8

const (
	WALConsensusVote WALEntryKind = iota
	WALConsensusProposal
	WALTimeout
	WALProposedValue
)

// TimeoutEntry is the WAL-logged record of a scheduled timeout.
type TimeoutEntry struct {
	Kind  round.TimeoutKind
	Round consensus.Round
}

// ProposedValueEntry is the WAL-logged record of an application's
// answer to GetValue.
type ProposedValueEntry struct {
	Height consensus.Height
	Round  consensus.Round
	Value  consensus.Value
	Valid  bool
}

// WALEntry is a tagged union over every entry kind WalAppend can
// receive; only the field matching Kind is meaningful.
type WALEntry struct {
	Kind WALEntryKind

	Vote     *consensus.SignedVote
	Proposal *consensus.SignedProposal
	Timeout  *TimeoutEntry
	Proposed *ProposedValueEntry
}

// WAL is the durable append-only log the core's WalAppend effect
// writes to. Append must not return until the entry is durable (§4.7's
// fsync-before-resume discipline); wal.File is the on-disk
// implementation built in the wal package.
type WAL interface {
	Append(entry WALEntry) error
}
