package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/circlefin/malachite-sub001/certverify"
	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/driver"
	"github.com/circlefin/malachite-sub001/internal/round"
	"github.com/circlefin/malachite-sub001/metrics"
)

// Opt configures a Loop at construction time, the same pattern
// tmengine.Opt uses for tmengine.Engine.
type Opt func(*Loop) error

// WithTimeouts overrides DefaultTimeoutConfig.
func WithTimeouts(cfg TimeoutConfig) Opt {
	return func(l *Loop) error {
		l.cfg = cfg
		return nil
	}
}

// WithProposerSelector overrides the driver's default weighted
// round-robin proposer selection; forwarded to [driver.WithProposerSelector].
func WithProposerSelector(fn driver.ProposerFunc) Opt {
	return func(l *Loop) error {
		l.driverOpts = append(l.driverOpts, driver.WithProposerSelector(fn))
		return nil
	}
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(log *slog.Logger) Opt {
	return func(l *Loop) error {
		l.log = log
		return nil
	}
}

// WithMetrics attaches a [metrics.Metrics] collector; a Loop built
// without this option records nothing (every call site nil-checks).
func WithMetrics(m *metrics.Metrics) Opt {
	return func(l *Loop) error {
		l.metrics = m
		return nil
	}
}

// Loop drives one [driver.Driver] by dispatching every round output it
// produces to a [Host]: signing outgoing votes and proposals, logging
// them to the [WAL] before publishing (§4.7's fsync-before-resume
// discipline), and feeding a node's own signed messages back through
// the driver exactly like a message arriving over the network.
//
// Grounded on tm/tmengine/engine.go's Engine.handleStateMachineRoundEntrance
// and friends, which perform the equivalent dispatch against
// tmengine's gossip strategy and action store; reshaped here around a
// single Handle-and-dispatch call graph since this package has no
// actor mailbox of its own.
type Loop struct {
	self    consensus.Address
	chainID string
	scheme  consensus.SignatureScheme

	host   Host
	signer Signer
	wal    WAL

	cfg     TimeoutConfig
	log     *slog.Logger
	metrics *metrics.Metrics

	decisionStart time.Time

	// pendingNextHeight is the height to start once the finalization
	// window armed by the most recent OutputDecision elapses.
	pendingNextHeight consensus.Height

	driver     *driver.Driver
	driverOpts []driver.Opt
}

// New builds a Loop for self, signing with signer and logging with wal.
// scheme must be the same SignatureScheme every peer uses to validate
// incoming signatures.
func New(self consensus.Address, chainID string, scheme consensus.SignatureScheme, h Host, signer Signer, wal WAL, opts ...Opt) *Loop {
	l := &Loop{
		self:    self,
		chainID: chainID,
		scheme:  scheme,
		host:    h,
		signer:  signer,
		wal:     wal,
		cfg:     DefaultTimeoutConfig(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			panic(err)
		}
	}
	l.driver = driver.New(self, l.driverOpts...)
	return l
}

// Height is the height currently being driven.
func (l *Loop) Height() consensus.Height { return l.driver.Height() }

// CurrentRound is the active round within Height.
func (l *Loop) CurrentRound() consensus.Round { return l.driver.CurrentRound() }

// Evidence returns every equivocation pair collected so far at Height.
func (l *Loop) Evidence() consensus.Evidence { return l.driver.Evidence() }

// StartHeight begins driving h: §4.8 item 1's "issue StartHeight(h,
// validator_set)". StartHeight itself always starts the round state
// machine fresh at round 0. To recover h from a non-empty WAL,
// wal.Apply calls StartHeight on a Loop built around replay-mode Host
// and WAL decorators (§4.7) and then feeds the logged entries through
// HandleVote/HandleProposal/HandleProposedValue; logged timeouts are
// not fed back.
func (l *Loop) StartHeight(ctx context.Context, h consensus.Height) error {
	vs, err := l.host.GetValidatorSet(ctx, h)
	if err != nil {
		return fmt.Errorf("host: get validator set for height %d: %w", h, err)
	}
	outs, err := l.driver.Handle(driver.Input{Kind: driver.StartHeight, Height: h, ValidatorSet: vs})
	if err != nil {
		return fmt.Errorf("host: start height %d: %w", h, err)
	}
	l.decisionStart = time.Now()
	if l.metrics != nil {
		l.metrics.SetHeightRound(float64(h), 0)
	}
	return l.process(ctx, outs)
}

// TearDown closes out the current height through driver.TearDown,
// which clears all per-height state. Called once the
// finalization window (§4.8 item 4) armed by scheduleFinalize elapses.
func (l *Loop) TearDown() {
	l.driver.TearDown()
}

// Resume swaps in the real Host and WAL after a replay-mode StartHeight
// completes (§4.7: "once replay is complete, the host resumes normal
// operation"), keeping the driver's accumulated round state intact.
func (l *Loop) Resume(h Host, w WAL) {
	l.host = h
	l.wal = w
}

// HandleVote accepts a vote arriving over the network: verifies its
// signature before folding it into the driver, per §7's InvalidSignature
// policy (drop, no evidence -- an unattributable message isn't evidence).
func (l *Loop) HandleVote(ctx context.Context, sv consensus.SignedVote) error {
	bytes := l.scheme.VoteSignBytes(sv.Message, l.chainID)
	ok, err := l.host.VerifySignature(ctx, sv.Message.Voter, bytes, sv.Signature)
	if err != nil {
		return fmt.Errorf("host: verify vote signature: %w", err)
	}
	if !ok {
		l.log.Warn("dropping vote with invalid signature", "voter", sv.Message.Voter)
		return nil
	}
	if err := l.wal.Append(WALEntry{Kind: WALConsensusVote, Vote: &sv}); err != nil {
		return fmt.Errorf("host: wal append received vote: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ObserveVote(sv.Message.Kind.String())
	}
	return l.feedVote(ctx, sv)
}

// HandleProposal accepts a proposal arriving over the network.
func (l *Loop) HandleProposal(ctx context.Context, sp consensus.SignedProposal) error {
	bytes := l.scheme.ProposalSignBytes(sp.Message, l.chainID)
	ok, err := l.host.VerifySignature(ctx, sp.Message.Proposer, bytes, sp.Signature)
	if err != nil {
		return fmt.Errorf("host: verify proposal signature: %w", err)
	}
	if !ok {
		l.log.Warn("dropping proposal with invalid signature", "proposer", sp.Message.Proposer)
		return nil
	}
	if err := l.wal.Append(WALEntry{Kind: WALConsensusProposal, Proposal: &sp}); err != nil {
		return fmt.Errorf("host: wal append received proposal: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ObserveProposal()
	}
	return l.feedProposal(ctx, sp)
}

// HandleProposedValue accepts the application's answer to a GetValue
// effect: it logs the answer to the WAL, and if it is still valid and
// the round hasn't moved on, builds, signs, and publishes this node's
// own proposal for it, feeding the signed proposal back through the
// normal proposal path exactly like one arriving over the network.
func (l *Loop) HandleProposedValue(ctx context.Context, pv driver.ProposedValueMsg) error {
	if err := l.wal.Append(WALEntry{Kind: WALProposedValue, Proposed: &ProposedValueEntry{
		Height: pv.Height, Round: pv.Round, Value: pv.Value, Valid: pv.Valid,
	}}); err != nil {
		return fmt.Errorf("host: wal append proposed value: %w", err)
	}

	if _, err := l.driver.Handle(driver.Input{Kind: driver.ProposedValue, Value: pv}); err != nil {
		return fmt.Errorf("host: record proposed value: %w", err)
	}

	if !pv.Valid || pv.Round != l.driver.CurrentRound() {
		return nil
	}

	p := consensus.Proposal{
		Height: pv.Height, Round: pv.Round, Value: pv.Value,
		PolRound: consensus.NilRound, Proposer: l.self,
	}
	return l.proposeAndFeed(ctx, p)
}

// HandleTimeout feeds an elapsed wall-clock timer into the driver, or,
// for TimeoutFinalizeKind, tears down the decided height and starts
// the next one (§4.8 items 4-5) -- that timer never reaches the round
// state machine, since the round it was armed for has already finished.
func (l *Loop) HandleTimeout(ctx context.Context, r consensus.Round, kind round.TimeoutKind) error {
	if kind == round.TimeoutFinalizeKind {
		return l.finalize(ctx)
	}

	outs, err := l.driver.Handle(driver.Input{Kind: driver.TimeoutElapsed, TimeoutRound: r, TimeoutKind: kind})
	if err != nil {
		return fmt.Errorf("host: timeout elapsed: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ObserveTimeout(kind.String())
	}
	return l.process(ctx, outs)
}

// finalize closes out the height whose finalization window just
// elapsed and starts the next one (§4.8 items 4-5).
func (l *Loop) finalize(ctx context.Context) error {
	next := l.pendingNextHeight
	l.TearDown()
	if l.metrics != nil {
		l.metrics.ObserveTimeout(round.TimeoutFinalizeKind.String())
	}
	return l.StartHeight(ctx, next)
}

// scheduleFinalize arms the finalization window (§4.8 item 4) that
// follows a decision: the host is given until
// max(0, TargetBlockTime - elapsed since the height started) before
// HandleTimeout(TimeoutFinalizeKind) tears h down and starts h+1.
func (l *Loop) scheduleFinalize(ctx context.Context, h consensus.Height, r consensus.Round) error {
	remaining := l.cfg.TargetBlockTime - time.Since(l.decisionStart)
	if remaining < 0 {
		remaining = 0
	}
	l.pendingNextHeight = h + 1

	if err := l.wal.Append(WALEntry{Kind: WALTimeout, Timeout: &TimeoutEntry{
		Kind: round.TimeoutFinalizeKind, Round: r,
	}}); err != nil {
		return fmt.Errorf("host: wal append finalize timeout: %w", err)
	}
	return l.host.ScheduleTimeout(ctx, round.TimeoutFinalizeKind, r, remaining)
}

// HandleCertificate verifies an externally-sourced commit certificate
// (value-sync) against the validator set active at its height before
// feeding it into the driver: unlike a vote or proposal, a
// certificate's signatures have never individually passed through
// HandleVote/HandleProposal, so nothing else in the core checks them.
func (l *Loop) HandleCertificate(ctx context.Context, cert consensus.CommitCertificate) error {
	vs, err := l.host.GetValidatorSet(ctx, cert.Height)
	if err != nil {
		return fmt.Errorf("host: get validator set for certificate height %d: %w", cert.Height, err)
	}
	if err := certverify.Verify(cert, vs, l.scheme, l.chainID); err != nil {
		var invalid consensus.InvalidCertificateError
		if errors.As(err, &invalid) {
			l.log.Warn("rejecting invalid certificate", "reason", invalid.Reason)
			return nil
		}
		return fmt.Errorf("host: verify certificate: %w", err)
	}

	outs, err := l.driver.Handle(driver.Input{Kind: driver.CommitCertificate, Certificate: cert})
	if err != nil {
		var invalid consensus.InvalidCertificateError
		if errors.As(err, &invalid) {
			l.log.Warn("rejecting invalid certificate", "reason", invalid.Reason)
			return nil
		}
		return fmt.Errorf("host: commit certificate: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ObserveCertificateSynced()
	}
	return l.process(ctx, outs)
}

// RequestVoteSet asks the host to serve a peer's request for votes at
// (h, r); the driver accepts the request without acting on it, so the
// actual vote-set lookup and SendVoteSetResponse call is the host's
// responsibility (it owns whatever store holds raw votes).
func (l *Loop) RequestVoteSet(ctx context.Context, requestID string, h consensus.Height, r consensus.Round) error {
	if _, err := l.driver.Handle(driver.Input{Kind: driver.VoteSetRequest, RequestID: requestID}); err != nil {
		return fmt.Errorf("host: vote set request: %w", err)
	}
	return l.host.GetVoteSet(ctx, h, r)
}

// ReceiveVoteSet folds a peer's vote-set response into the driver,
// exactly like each vote arriving individually. Every vote's signature
// is checked before any of them are folded in: an unverified vote set
// must not be allowed to mutate the vote keeper at all, since a peer
// answering a sync request is just as untrusted as one gossiping a
// single vote.
func (l *Loop) ReceiveVoteSet(ctx context.Context, requestID string, votes []consensus.SignedVote) error {
	verified := make([]consensus.SignedVote, 0, len(votes))
	for _, sv := range votes {
		bytes := l.scheme.VoteSignBytes(sv.Message, l.chainID)
		ok, err := l.host.VerifySignature(ctx, sv.Message.Voter, bytes, sv.Signature)
		if err != nil {
			return fmt.Errorf("host: verify synced vote signature: %w", err)
		}
		if !ok {
			l.log.Warn("dropping synced vote with invalid signature", "voter", sv.Message.Voter)
			continue
		}
		if err := l.wal.Append(WALEntry{Kind: WALConsensusVote, Vote: &sv}); err != nil {
			return fmt.Errorf("host: wal append synced vote: %w", err)
		}
		if l.metrics != nil {
			l.metrics.ObserveVote(sv.Message.Kind.String())
		}
		verified = append(verified, sv)
	}

	outs, err := l.driver.Handle(driver.Input{Kind: driver.VoteSetResponse, RequestID: requestID, SyncVotes: verified})
	if err != nil {
		return fmt.Errorf("host: vote set response: %w", err)
	}
	return l.process(ctx, outs)
}

func (l *Loop) feedVote(ctx context.Context, sv consensus.SignedVote) error {
	outs, err := l.driver.Handle(driver.Input{Kind: driver.Vote, SignedVote: sv})
	if err != nil {
		if dropped(err) {
			l.log.Warn("dropping vote", "err", err)
			return nil
		}
		return fmt.Errorf("host: handle vote: %w", err)
	}
	return l.process(ctx, outs)
}

func (l *Loop) feedProposal(ctx context.Context, sp consensus.SignedProposal) error {
	outs, err := l.driver.Handle(driver.Input{Kind: driver.Proposal, SignedProposal: sp})
	if err != nil {
		if dropped(err) {
			l.log.Warn("dropping proposal", "err", err)
			return nil
		}
		return fmt.Errorf("host: handle proposal: %w", err)
	}
	return l.process(ctx, outs)
}

// proposeAndFeed signs p, logs it to the WAL, publishes it, and feeds
// it back through the driver as though it had arrived over the
// network -- the same resubmission pattern required of self-emitted
// votes (§5's single-sequence invariant makes no exception for a
// node's own messages).
func (l *Loop) proposeAndFeed(ctx context.Context, p consensus.Proposal) error {
	sp, err := l.signer.SignProposal(ctx, p)
	if err != nil {
		return fmt.Errorf("host: sign proposal: %w", err)
	}
	if err := l.wal.Append(WALEntry{Kind: WALConsensusProposal, Proposal: &sp}); err != nil {
		return fmt.Errorf("host: wal append proposal: %w", err)
	}
	if err := l.host.PublishProposal(ctx, sp); err != nil {
		return fmt.Errorf("host: publish proposal: %w", err)
	}
	return l.feedProposal(ctx, sp)
}

func (l *Loop) voteAndFeed(ctx context.Context, v consensus.Vote) error {
	sv, err := l.signer.SignVote(ctx, v)
	if err != nil {
		return fmt.Errorf("host: sign vote: %w", err)
	}
	if err := l.wal.Append(WALEntry{Kind: WALConsensusVote, Vote: &sv}); err != nil {
		return fmt.Errorf("host: wal append vote: %w", err)
	}
	if err := l.host.PublishVote(ctx, sv); err != nil {
		return fmt.Errorf("host: publish vote: %w", err)
	}
	return l.feedVote(ctx, sv)
}

// process dispatches every round output the driver just produced,
// recursing into whatever further outputs a self-fed vote or proposal
// triggers, until the driver has nothing more to say for this input.
func (l *Loop) process(ctx context.Context, outs []driver.Output) error {
	for _, out := range outs {
		if err := l.processOne(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) processOne(ctx context.Context, out driver.Output) error {
	ro := out.Round
	switch ro.Kind {
	case round.OutputNone:
		return nil

	case round.OutputGetValue:
		timeout := l.cfg.propose(ro.Round)
		if err := l.wal.Append(WALEntry{Kind: WALTimeout, Timeout: &TimeoutEntry{
			Kind: round.TimeoutProposeKind, Round: ro.Round,
		}}); err != nil {
			return fmt.Errorf("host: wal append timeout: %w", err)
		}
		if err := l.host.ScheduleTimeout(ctx, round.TimeoutProposeKind, ro.Round, timeout); err != nil {
			return fmt.Errorf("host: schedule propose timeout: %w", err)
		}
		if err := l.host.GetValue(ctx, ro.Height, ro.Round, timeout); err != nil {
			return fmt.Errorf("host: get value: %w", err)
		}
		return nil

	case round.OutputProposal:
		return l.proposeAndFeed(ctx, ro.Proposal)

	case round.OutputVote:
		return l.voteAndFeed(ctx, ro.Vote)

	case round.OutputTimeout:
		d := l.timeoutDuration(ro.Timeout, ro.Round)
		if err := l.wal.Append(WALEntry{Kind: WALTimeout, Timeout: &TimeoutEntry{
			Kind: ro.Timeout, Round: ro.Round,
		}}); err != nil {
			return fmt.Errorf("host: wal append timeout: %w", err)
		}
		return l.host.ScheduleTimeout(ctx, ro.Timeout, ro.Round, d)

	case round.OutputDecision:
		if err := l.host.Decide(ctx, *out.Certificate, l.driver.Evidence()); err != nil {
			return fmt.Errorf("host: decide: %w", err)
		}
		if l.metrics != nil {
			l.metrics.ObserveDecision(time.Since(l.decisionStart).Seconds())
		}
		fin, err := l.driver.TransitionToFinalize()
		if err != nil {
			return fmt.Errorf("host: transition to finalize: %w", err)
		}
		if err := l.process(ctx, fin); err != nil {
			return err
		}
		return l.scheduleFinalize(ctx, ro.Height, ro.Round)

	case round.OutputScheduleRebroadcast:
		return l.host.ScheduleTimeout(ctx, round.TimeoutUnspecified, ro.Round, l.cfg.Rebroadcast)

	default:
		return nil
	}
}

func (l *Loop) timeoutDuration(kind round.TimeoutKind, r consensus.Round) time.Duration {
	switch kind {
	case round.TimeoutProposeKind:
		return l.cfg.propose(r)
	case round.TimeoutPrevoteKind:
		return l.cfg.prevote(r)
	case round.TimeoutPrecommitKind:
		return l.cfg.precommit(r)
	default:
		return l.cfg.Commit
	}
}

// dropped reports whether err is one of §7's "drop the triggering
// message, log, continue" error kinds rather than a fatal one.
func dropped(err error) bool {
	var unknownValidator consensus.UnknownValidatorError
	var invalidProposal consensus.InvalidProposalError
	return errors.As(err, &unknownValidator) || errors.As(err, &invalidProposal)
}
