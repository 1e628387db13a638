package remotesigner

import (
	"context"

	"google.golang.org/grpc"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/gcrypto"
)

// Server answers SignVote/SignProposal/PubKey RPCs against a local
// [gcrypto.Signer], the process an operator runs on separate, more
// trusted hardware than the consensus node itself.
type Server struct {
	signer  gcrypto.Signer
	scheme  consensus.SignatureScheme
	chainID string
	keyName string
}

// NewServer wraps signer. chainID is stored on the Server but not
// checked: signVote and signProposal build sign bytes from each
// request's own ChainID. keyName is the scheme name the signer's public
// key is reported under (e.g. "ed25519").
func NewServer(signer gcrypto.Signer, scheme consensus.SignatureScheme, chainID, keyName string) *Server {
	return &Server{signer: signer, scheme: scheme, chainID: chainID, keyName: keyName}
}

func (s *Server) pubKey(ctx context.Context, req *pubKeyRequest) (*pubKeyResponse, error) {
	pk := s.signer.PubKey()
	return &pubKeyResponse{Scheme: s.keyName, Bytes: pk.PubKeyBytes()}, nil
}

func (s *Server) signVote(ctx context.Context, req *signVoteRequest) (*signResponse, error) {
	v := consensus.Vote{
		Kind:   consensus.VoteKind(req.Kind),
		Height: consensus.Height(req.Height),
		Round:  consensus.Round(req.Round),
		Value:  consensus.VNil,
	}
	if req.IsVal {
		v.Value = consensus.VVal(req.ValueID)
	}
	sig, err := s.signer.Sign(ctx, s.scheme.VoteSignBytes(v, req.ChainID))
	if err != nil {
		return nil, err
	}
	return &signResponse{Signature: sig}, nil
}

func (s *Server) signProposal(ctx context.Context, req *signProposalRequest) (*signResponse, error) {
	p := consensus.Proposal{
		Height:   consensus.Height(req.Height),
		Round:    consensus.Round(req.Round),
		PolRound: consensus.Round(req.PolRound),
	}
	if req.HasValue {
		p.Value = remoteValue{id: req.ValueID}
	}
	sig, err := s.signer.Sign(ctx, s.scheme.ProposalSignBytes(p, req.ChainID))
	if err != nil {
		return nil, err
	}
	return &signResponse{Signature: sig}, nil
}

// remoteValue is a bare [consensus.Value] standing in for a proposal's
// payload on the signer side, which only ever needs the value's id to
// build sign bytes, never the payload itself.
type remoteValue struct{ id consensus.ValueID }

func (v remoteValue) ID() consensus.ValueID { return v.id }

func signVoteHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(signVoteRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(*Server).signVote(ctx, req)
}

func signProposalHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(signProposalRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(*Server).signProposal(ctx, req)
}

func pubKeyHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(pubKeyRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(*Server).pubKey(ctx, req)
}

// ServiceDesc registers Server against a *grpc.Server, hand-written in
// place of the usual protoc-gen-go-grpc output.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignVote", Handler: signVoteHandler},
		{MethodName: "SignProposal", Handler: signProposalHandler},
		{MethodName: "PubKey", Handler: pubKeyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "malachite/remotesigner.proto",
}

// Register attaches Server to gs.
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, s)
}
