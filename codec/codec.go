// Package codec defines the pluggable wire format §6 requires: every
// message the core sends or receives over the network, or logs to the
// WAL, is encoded through one implementation of [Codec]. codec/pbcodec
// is the reference implementation; codec/jsoncodec is a
// debugging-friendly alternative that is byte-compatible at the field
// level (same fields, same meaning, different framing).
//
// Grounded on tm/tmcodec/codec.go's Marshaler/Unmarshaler pair, merged
// here into one interface per message kind since this core has a
// fixed, small message set rather than tmconsensus's open-ended
// gossip envelope.
package codec

import "github.com/circlefin/malachite-sub001/consensus"

// ProposedValue is the wire shape of a host's answer to GetValue: the
// value is carried as its raw bytes (the reference [consensus.Value]
// implementation, [consensus.BytesValue]), since the core's wire
// boundary only ever needs to reconstruct an ID()-able value, not an
// application-specific payload type.
type ProposedValue struct {
	Height consensus.Height
	Round  consensus.Round
	Value  []byte
	Valid  bool
}

// VoteSetRequest is the wire shape of a value-sync peer's request for
// every vote known at (Height, Round).
type VoteSetRequest struct {
	RequestID string
	Height    consensus.Height
	Round     consensus.Round
}

// VoteSetResponse answers a VoteSetRequest with the votes a peer holds.
type VoteSetResponse struct {
	RequestID string
	Votes     []consensus.SignedVote
}

// Status is the minimal peer-status gossip message: the height and
// round a peer believes it is at, used to drive value-sync decisions.
type Status struct {
	Height consensus.Height
	Round  consensus.Round
}

// Codec encodes and decodes every message kind the core's external
// interface (§6) and WAL (§4.7) need on the wire.
type Codec interface {
	EncodeVote(consensus.SignedVote) ([]byte, error)
	DecodeVote([]byte) (consensus.SignedVote, error)

	EncodeProposal(consensus.SignedProposal) ([]byte, error)
	DecodeProposal([]byte) (consensus.SignedProposal, error)

	EncodeProposedValue(ProposedValue) ([]byte, error)
	DecodeProposedValue([]byte) (ProposedValue, error)

	EncodeCommitCertificate(consensus.CommitCertificate) ([]byte, error)
	DecodeCommitCertificate([]byte) (consensus.CommitCertificate, error)

	EncodeVoteSetRequest(VoteSetRequest) ([]byte, error)
	DecodeVoteSetRequest([]byte) (VoteSetRequest, error)

	EncodeVoteSetResponse(VoteSetResponse) ([]byte, error)
	DecodeVoteSetResponse([]byte) (VoteSetResponse, error)

	EncodeStatus(Status) ([]byte, error)
	DecodeStatus([]byte) (Status, error)
}
