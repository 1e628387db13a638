// Package proposalkeeper stores every distinct signed proposal seen for
// a round, grounded on the per-round, per-height record shape of
// tm/tmstore's ActionStore (RoundActions), generalized here from "the
// one action this validator took" to "every distinct proposal the
// driver has observed", since the keeper's job is multiplexing incoming
// messages rather than remembering this node's own actions.
package proposalkeeper

import "github.com/circlefin/malachite-sub001/consensus"

type entry struct {
	proposal consensus.SignedProposal
	valid    bool
}

// Keeper stores every distinct proposal observed per round within a
// height, and the evidence formed when a proposer is caught proposing
// two different values at the same (height, round).
type Keeper struct {
	perRound map[consensus.Round][]entry
	evidence map[consensus.Address][]consensus.ProposalEvidence
}

// New returns an empty Keeper.
func New() *Keeper {
	return &Keeper{
		perRound: make(map[consensus.Round][]entry),
		evidence: make(map[consensus.Address][]consensus.ProposalEvidence),
	}
}

// Store records sp as valid or invalid for its round. Exact duplicates
// (same proposer, round, and value id) are dropped silently. A second,
// distinct proposal for a round already holding one is still stored,
// but also recorded as evidence against the proposer.
func (k *Keeper) Store(sp consensus.SignedProposal, valid bool) {
	round := sp.Message.Round
	existing := k.perRound[round]

	for _, e := range existing {
		if sameProposal(e.proposal.Message, sp.Message) {
			return
		}
	}

	if len(existing) > 0 {
		k.evidence[sp.Message.Proposer] = append(k.evidence[sp.Message.Proposer], consensus.ProposalEvidence{
			Proposer: sp.Message.Proposer,
			A:        existing[0].proposal,
			B:        sp,
		})
	}

	k.perRound[round] = append(existing, entry{proposal: sp, valid: valid})
}

// Proposals returns every distinct proposal stored for round, valid or
// not, in the order they were received.
func (k *Keeper) Proposals(round consensus.Round) []consensus.SignedProposal {
	existing := k.perRound[round]
	out := make([]consensus.SignedProposal, len(existing))
	for i, e := range existing {
		out[i] = e.proposal
	}
	return out
}

// ValidProposal returns the first valid proposal stored for round, if any.
func (k *Keeper) ValidProposal(round consensus.Round) (consensus.SignedProposal, bool) {
	for _, e := range k.perRound[round] {
		if e.valid {
			return e.proposal, true
		}
	}
	return consensus.SignedProposal{}, false
}

// ByValueID returns the stored proposal for round whose value hashes to
// id, if any -- the lookup the multiplexer needs to pair a keeper
// polka/commit output (carrying only a ValueID) back to a proposal.
func (k *Keeper) ByValueID(round consensus.Round, id consensus.ValueID) (consensus.SignedProposal, bool) {
	for _, e := range k.perRound[round] {
		if e.proposal.Message.Value != nil && e.proposal.Message.Value.ID() == id {
			return e.proposal, true
		}
	}
	return consensus.SignedProposal{}, false
}

// Evidence returns every conflicting-proposal pair collected so far,
// for proposer.
func (k *Keeper) Evidence(proposer consensus.Address) []consensus.ProposalEvidence {
	return k.evidence[proposer]
}

// AllEvidence returns every conflicting-proposal pair collected so far,
// across every proposer seen this height, since the driver has no
// reason to track which addresses have ever proposed separately from
// the keeper that already does.
func (k *Keeper) AllEvidence() []consensus.ProposalEvidence {
	var out []consensus.ProposalEvidence
	for _, evs := range k.evidence {
		out = append(out, evs...)
	}
	return out
}

func sameProposal(a, b consensus.Proposal) bool {
	if a.Height != b.Height || a.Round != b.Round || a.Proposer != b.Proposer || a.PolRound != b.PolRound {
		return false
	}
	if a.Value == nil || b.Value == nil {
		return a.Value == nil && b.Value == nil
	}
	return a.Value.ID() == b.Value.ID()
}
