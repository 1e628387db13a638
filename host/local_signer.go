package host

import (
	"context"
	"fmt"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/gcrypto"
)

// LocalSigner signs votes and proposals in-process against a
// [gcrypto.Signer] and a [consensus.SignatureScheme], the default path
// every node takes unless host/remotesigner is configured instead.
type LocalSigner struct {
	signer  gcrypto.Signer
	scheme  consensus.SignatureScheme
	chainID string
}

// NewLocalSigner returns a Signer bound to one node's key.
func NewLocalSigner(signer gcrypto.Signer, scheme consensus.SignatureScheme, chainID string) LocalSigner {
	return LocalSigner{signer: signer, scheme: scheme, chainID: chainID}
}

func (s LocalSigner) SignVote(ctx context.Context, v consensus.Vote) (consensus.SignedVote, error) {
	bytes := s.scheme.VoteSignBytes(v, s.chainID)
	sig, err := s.signer.Sign(ctx, bytes)
	if err != nil {
		return consensus.SignedVote{}, fmt.Errorf("host: sign vote: %w", err)
	}
	return consensus.SignedVote{Message: v, Signature: sig}, nil
}

func (s LocalSigner) SignProposal(ctx context.Context, p consensus.Proposal) (consensus.SignedProposal, error) {
	bytes := s.scheme.ProposalSignBytes(p, s.chainID)
	sig, err := s.signer.Sign(ctx, bytes)
	if err != nil {
		return consensus.SignedProposal{}, fmt.Errorf("host: sign proposal: %w", err)
	}
	return consensus.SignedProposal{Message: p, Signature: sig}, nil
}
