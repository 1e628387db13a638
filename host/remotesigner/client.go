package remotesigner

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/gcrypto"
	"github.com/circlefin/malachite-sub001/host"
)

var _ host.Signer = (*Client)(nil)

const serviceName = "malachite.remotesigner.v1.RemoteSigner"

var (
	signVoteMethod     = "/" + serviceName + "/SignVote"
	signProposalMethod = "/" + serviceName + "/SignProposal"
	pubKeyMethod       = "/" + serviceName + "/PubKey"
)

// Client is a [github.com/circlefin/malachite-sub001/host.Signer] that
// forwards every signing request to an external signer process.
type Client struct {
	cc      *grpc.ClientConn
	chainID string
	pubKeys *gcrypto.Registry
}

// Dial connects to an external signer at target. pubKeys decodes the
// scheme name the server reports its key under; register at least
// "ed25519" via gcrypto.RegisterEd25519 for the reference scheme.
func Dial(target string, chainID string, pubKeys *gcrypto.Registry, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	cc, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("remotesigner: dial %s: %w", target, err)
	}
	return &Client{cc: cc, chainID: chainID, pubKeys: pubKeys}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) PubKey(ctx context.Context) (gcrypto.PubKey, error) {
	req := &pubKeyRequest{ChainID: c.chainID}
	resp := new(pubKeyResponse)
	if err := c.cc.Invoke(ctx, pubKeyMethod, req, resp); err != nil {
		return nil, fmt.Errorf("remotesigner: PubKey: %w", err)
	}
	return c.pubKeys.Decode(resp.Scheme, resp.Bytes)
}

func (c *Client) SignVote(ctx context.Context, v consensus.Vote) (consensus.SignedVote, error) {
	req := &signVoteRequest{ChainID: c.chainID, Kind: uint8(v.Kind), Height: uint64(v.Height), Round: int64(v.Round)}
	if id, ok := v.Value.Value(); ok {
		req.IsVal = true
		req.ValueID = id
	}
	resp := new(signResponse)
	if err := c.cc.Invoke(ctx, signVoteMethod, req, resp); err != nil {
		return consensus.SignedVote{}, fmt.Errorf("remotesigner: SignVote: %w", err)
	}
	return consensus.SignedVote{Message: v, Signature: resp.Signature}, nil
}

func (c *Client) SignProposal(ctx context.Context, p consensus.Proposal) (consensus.SignedProposal, error) {
	req := &signProposalRequest{ChainID: c.chainID, Height: uint64(p.Height), Round: int64(p.Round), PolRound: int64(p.PolRound)}
	if p.Value != nil {
		req.HasValue = true
		req.ValueID = p.Value.ID()
	}
	resp := new(signResponse)
	if err := c.cc.Invoke(ctx, signProposalMethod, req, resp); err != nil {
		return consensus.SignedProposal{}, fmt.Errorf("remotesigner: SignProposal: %w", err)
	}
	return consensus.SignedProposal{Message: p, Signature: resp.Signature}, nil
}
