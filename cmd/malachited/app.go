package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/driver"
	"github.com/circlefin/malachite-sub001/host"
	"github.com/circlefin/malachite-sub001/internal/round"
)

// demoApp is the reference application driving a single local
// validator: it answers GetValue by hashing the height and round, and
// runs the timers through which host.Loop moves to the next height once
// the finalization window after a decision elapses. Grounded on
// cmd/gordian-echo's echoApp, reshaped from tmdriver's
// request-channel handshake into host.Host's direct method calls,
// since this package has no actor loop of its own to own those
// channels.
//
// There is exactly one validator in this demo, so PublishVote and
// PublishProposal have no peer to reach; every decision is made
// entirely from this node's own votes.
type demoApp struct {
	log     *slog.Logger
	self    consensus.Address
	chainID string
	vs      consensus.ValidatorSet

	loop *host.Loop

	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

type timerKey struct {
	kind  round.TimeoutKind
	round consensus.Round
}

func newDemoApp(log *slog.Logger, self consensus.Address, chainID string, vs consensus.ValidatorSet) *demoApp {
	return &demoApp{
		log:     log,
		self:    self,
		chainID: chainID,
		vs:      vs,
		timers:  make(map[timerKey]*time.Timer),
	}
}

// attach completes construction once the Loop this app drives exists;
// app and Loop are mutually referential so neither can be built first.
func (a *demoApp) attach(l *host.Loop) {
	a.loop = l
}

func (a *demoApp) PublishVote(_ context.Context, sv consensus.SignedVote) error {
	a.log.Debug("publish vote", "kind", sv.Message.Kind, "height", sv.Message.Height, "round", sv.Message.Round)
	return nil
}

func (a *demoApp) PublishProposal(_ context.Context, sp consensus.SignedProposal) error {
	a.log.Debug("publish proposal", "height", sp.Message.Height, "round", sp.Message.Round)
	return nil
}

func (a *demoApp) GetValue(ctx context.Context, h consensus.Height, r consensus.Round, _ time.Duration) error {
	go func() {
		blockData := fmt.Sprintf("height:%d round:%d", h, r)
		sum := sha256.Sum256([]byte(blockData))

		a.log.Info("proposing value", "height", h, "round", r)
		if err := a.loop.HandleProposedValue(ctx, driver.ProposedValueMsg{
			Height: h, Round: r, Value: consensus.BytesValue(sum[:]), Valid: true,
		}); err != nil {
			a.log.Error("handle proposed value", "err", err)
		}
	}()
	return nil
}

func (a *demoApp) GetValidatorSet(_ context.Context, _ consensus.Height) (consensus.ValidatorSet, error) {
	return a.vs, nil
}

func (a *demoApp) VerifySignature(_ context.Context, voter consensus.Address, msg, sig []byte) (bool, error) {
	val, ok := a.vs.GetByAddress(voter)
	if !ok {
		return false, nil
	}
	return val.PubKey.Verify(msg, sig), nil
}

func (a *demoApp) ScheduleTimeout(ctx context.Context, kind round.TimeoutKind, r consensus.Round, d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := timerKey{kind, r}
	if t, ok := a.timers[key]; ok {
		t.Stop()
	}
	a.timers[key] = time.AfterFunc(d, func() {
		if err := a.loop.HandleTimeout(ctx, r, kind); err != nil {
			a.log.Error("handle timeout", "err", err, "kind", kind, "round", r)
		}
	})
	return nil
}

func (a *demoApp) CancelTimeout(_ context.Context, kind round.TimeoutKind, r consensus.Round) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := timerKey{kind, r}
	if t, ok := a.timers[key]; ok {
		t.Stop()
		delete(a.timers, key)
	}
	return nil
}

func (a *demoApp) CancelAllTimeouts(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, t := range a.timers {
		t.Stop()
		delete(a.timers, key)
	}
	return nil
}

// Decide only logs: the finalization window and the transition to the
// next height are entirely host.Loop's concern (§4.8 items 4-5), armed
// as an ordinary ScheduleTimeout/HandleTimeout round trip through this
// app's own timer bookkeeping.
func (a *demoApp) Decide(_ context.Context, cert consensus.CommitCertificate, evidence consensus.Evidence) error {
	a.log.Info("decided",
		"height", cert.Height, "round", cert.Round, "value_id", cert.ValueID,
		"evidence", evidence.Len(),
	)
	return nil
}

func (a *demoApp) SyncedBlock(_ context.Context, h consensus.Height, r consensus.Round, _ []byte) error {
	a.log.Debug("synced block", "height", h, "round", r)
	return nil
}

func (a *demoApp) GetVoteSet(_ context.Context, h consensus.Height, r consensus.Round) error {
	a.log.Debug("vote set requested", "height", h, "round", r)
	return nil
}

func (a *demoApp) SendVoteSetResponse(_ context.Context, _ string, _ []consensus.SignedVote) error {
	return nil
}
