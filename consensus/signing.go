package consensus

import (
	"encoding/binary"
)

// SignatureScheme builds the canonical bytes signed for a vote or a
// proposal. It is supplied by the host so that sign bytes can evolve
// (e.g. to add a chain ID or a new field) without the core caring about
// the wire representation.
type SignatureScheme interface {
	VoteSignBytes(v Vote, chainID string) []byte
	ProposalSignBytes(p Proposal, chainID string) []byte
}

// DefaultSignatureScheme is the reference implementation: the
// length-prefixed chain ID (a domain separator between chains that
// might otherwise produce identical sign bytes) followed by the
// message's fields in fixed-width big-endian form. A vote's voter and
// extension and a proposal's proposer are not part of the sign bytes.
type DefaultSignatureScheme struct{}

func (DefaultSignatureScheme) VoteSignBytes(v Vote, chainID string) []byte {
	buf := make([]byte, 0, 64+len(chainID))
	buf = appendString(buf, chainID)
	buf = append(buf, byte(v.Kind))
	buf = appendUint64(buf, uint64(v.Height))
	buf = appendInt64(buf, int64(v.Round))
	if id, ok := v.Value.Value(); ok {
		buf = append(buf, 1)
		buf = append(buf, id[:]...)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func (DefaultSignatureScheme) ProposalSignBytes(p Proposal, chainID string) []byte {
	buf := make([]byte, 0, 64+len(chainID))
	buf = appendString(buf, chainID)
	buf = appendUint64(buf, uint64(p.Height))
	buf = appendInt64(buf, int64(p.Round))
	buf = appendInt64(buf, int64(p.PolRound))
	if p.Value != nil {
		id := p.Value.ID()
		buf = append(buf, id[:]...)
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint64(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	return appendUint64(buf, uint64(v))
}
