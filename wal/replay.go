package wal

import (
	"context"
	"fmt"
	"time"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/driver"
	"github.com/circlefin/malachite-sub001/host"
	"github.com/circlefin/malachite-sub001/internal/round"
)

// replayHost wraps a real Host, suppressing every externally visible
// effect a replay must not repeat (§4.7: "never actually publishes,
// never actually schedules timeouts... answers GetValue from the next
// ProposedValue entry"). GetValue's answer arrives instead through
// HandleProposedValue as the corresponding log entry is replayed, so
// GetValue itself is a no-op here. GetValidatorSet and VerifySignature
// pass through unsuppressed: both are needed to reconstruct state
// correctly and are pure reads, not externally visible actions.
type replayHost struct {
	host.Host
}

func (replayHost) PublishVote(context.Context, consensus.SignedVote) error         { return nil }
func (replayHost) PublishProposal(context.Context, consensus.SignedProposal) error { return nil }
func (replayHost) GetValue(context.Context, consensus.Height, consensus.Round, time.Duration) error {
	return nil
}
func (replayHost) ScheduleTimeout(context.Context, round.TimeoutKind, consensus.Round, time.Duration) error {
	return nil
}
func (replayHost) CancelTimeout(context.Context, round.TimeoutKind, consensus.Round) error {
	return nil
}
func (replayHost) CancelAllTimeouts(context.Context) error { return nil }
func (replayHost) Decide(context.Context, consensus.CommitCertificate, consensus.Evidence) error {
	return nil
}

// noopWAL discards every entry -- used during replay since every entry
// it would be asked to write already exists in the log being replayed.
type noopWAL struct{}

func (noopWAL) Append(host.WALEntry) error { return nil }

// Apply replays entries (as returned by ReadEntries) through a freshly
// started Loop, then calls Resume so it continues with realHost and
// realWAL. self must match the Loop's own address so self-originated
// vote and proposal entries can be recognized and skipped in
// applyEntry (they are reconstructed as a natural side effect of
// replaying the entries that caused them), rather than replayed twice.
//
// Limitation: every self-originated proposal entry is skipped,
// including a re-proposal of a previously valid value, which has no
// ProposedValue entry of its own. Such a re-proposal is rebuilt only
// when the replayed entries bring the Loop into that round as its
// proposer, so that the round state machine emits it again; logged
// timeouts are not replayed, so a round entered through a timeout is
// not reached this way.
func Apply(ctx context.Context, self consensus.Address, chainID string, scheme consensus.SignatureScheme, h consensus.Height, realHost host.Host, signer host.Signer, realWAL host.WAL, entries []host.WALEntry, opts ...host.Opt) (*host.Loop, error) {
	l := host.New(self, chainID, scheme, replayHost{realHost}, signer, noopWAL{}, opts...)
	if err := l.StartHeight(ctx, h); err != nil {
		return nil, fmt.Errorf("wal: replay start height %d: %w", h, err)
	}

	for _, e := range entries {
		if err := applyEntry(ctx, l, self, e); err != nil {
			return nil, fmt.Errorf("wal: replay entry: %w", err)
		}
	}

	l.Resume(realHost, realWAL)
	return l, nil
}

func applyEntry(ctx context.Context, l *host.Loop, self consensus.Address, e host.WALEntry) error {
	switch e.Kind {
	case host.WALConsensusVote:
		if e.Vote.Message.Voter == self {
			return nil
		}
		return l.HandleVote(ctx, *e.Vote)
	case host.WALConsensusProposal:
		if e.Proposal.Message.Proposer == self {
			return nil
		}
		return l.HandleProposal(ctx, *e.Proposal)
	case host.WALProposedValue:
		return l.HandleProposedValue(ctx, driver.ProposedValueMsg{
			Height: e.Proposed.Height, Round: e.Proposed.Round, Value: e.Proposed.Value, Valid: e.Proposed.Valid,
		})
	case host.WALTimeout:
		// A record that ScheduleTimeout was once called, not an input
		// to replay: the same schedule call is naturally reproduced as
		// a side effect of replaying the vote/proposal/proposed-value
		// entries above.
		return nil
	default:
		return fmt.Errorf("unknown WAL entry kind %v", e.Kind)
	}
}
