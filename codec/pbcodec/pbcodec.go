// Package pbcodec is the reference [codec.Codec]: a protobuf-wire-
// compatible encoding built directly on protowire's low-level varint
// and length-delimited primitives, without a .proto/protoc step.
// Field numbers and wire types below are chosen so that a generated
// protobuf message with the same field layout would decode identical
// bytes, matching how the pack's gordian-engine-gordian and related
// repos treat "protobuf-compatible" as a wire contract rather than a
// requirement to run protoc.
package pbcodec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/circlefin/malachite-sub001/codec"
	"github.com/circlefin/malachite-sub001/consensus"
)

// Codec is the protowire-based [codec.Codec] implementation.
type Codec struct{}

var _ codec.Codec = Codec{}

const (
	fVoteKind = protowire.Number(iota + 1)
	fVoteHeight
	fVoteRound
	fVoteHasValue
	fVoteValueID
	fVoteVoter
	fVoteExtension
	fVoteSignature
)

func (Codec) EncodeVote(sv consensus.SignedVote) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fVoteKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(sv.Message.Kind))
	b = protowire.AppendTag(b, fVoteHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(sv.Message.Height))
	b = protowire.AppendTag(b, fVoteRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(sv.Message.Round)))
	if id, ok := sv.Message.Value.Value(); ok {
		b = protowire.AppendTag(b, fVoteHasValue, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
		b = protowire.AppendTag(b, fVoteValueID, protowire.BytesType)
		b = protowire.AppendBytes(b, id[:])
	}
	b = protowire.AppendTag(b, fVoteVoter, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(sv.Message.Voter))
	if len(sv.Message.Extension) > 0 {
		b = protowire.AppendTag(b, fVoteExtension, protowire.BytesType)
		b = protowire.AppendBytes(b, sv.Message.Extension)
	}
	b = protowire.AppendTag(b, fVoteSignature, protowire.BytesType)
	b = protowire.AppendBytes(b, sv.Signature)
	return b, nil
}

func (Codec) DecodeVote(b []byte) (consensus.SignedVote, error) {
	var sv consensus.SignedVote
	var hasValue bool
	var valueID consensus.ValueID
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return sv, fmt.Errorf("pbcodec: DecodeVote: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fVoteKind:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: kind: %w", protowire.ParseError(n))
			}
			sv.Message.Kind = consensus.VoteKind(v)
			b = b[n:]
		case fVoteHeight:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: height: %w", protowire.ParseError(n))
			}
			sv.Message.Height = consensus.Height(v)
			b = b[n:]
		case fVoteRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: round: %w", protowire.ParseError(n))
			}
			sv.Message.Round = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		case fVoteHasValue:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: has_value: %w", protowire.ParseError(n))
			}
			hasValue = v == 1
			b = b[n:]
		case fVoteValueID:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || len(v) != len(valueID) {
				return sv, fmt.Errorf("pbcodec: DecodeVote: value_id: malformed")
			}
			copy(valueID[:], v)
			b = b[n:]
		case fVoteVoter:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: voter: %w", protowire.ParseError(n))
			}
			sv.Message.Voter = consensus.Address(v)
			b = b[n:]
		case fVoteExtension:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: extension: %w", protowire.ParseError(n))
			}
			sv.Message.Extension = append([]byte(nil), v...)
			b = b[n:]
		case fVoteSignature:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: signature: %w", protowire.ParseError(n))
			}
			sv.Signature = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return sv, fmt.Errorf("pbcodec: DecodeVote: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if hasValue {
		sv.Message.Value = consensus.VVal(valueID)
	} else {
		sv.Message.Value = consensus.VNil
	}
	return sv, nil
}

const (
	fPropHeight = protowire.Number(iota + 1)
	fPropRound
	fPropPolRound
	fPropValue
	fPropProposer
	fPropSignature
)

func (Codec) EncodeProposal(sp consensus.SignedProposal) ([]byte, error) {
	bv, ok := sp.Message.Value.(consensus.BytesValue)
	if sp.Message.Value != nil && !ok {
		return nil, fmt.Errorf("pbcodec: EncodeProposal: value type %T is not a BytesValue", sp.Message.Value)
	}
	var b []byte
	b = protowire.AppendTag(b, fPropHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(sp.Message.Height))
	b = protowire.AppendTag(b, fPropRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(sp.Message.Round)))
	b = protowire.AppendTag(b, fPropPolRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(sp.Message.PolRound)))
	if ok {
		b = protowire.AppendTag(b, fPropValue, protowire.BytesType)
		b = protowire.AppendBytes(b, bv)
	}
	b = protowire.AppendTag(b, fPropProposer, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(sp.Message.Proposer))
	b = protowire.AppendTag(b, fPropSignature, protowire.BytesType)
	b = protowire.AppendBytes(b, sp.Signature)
	return b, nil
}

func (Codec) DecodeProposal(b []byte) (consensus.SignedProposal, error) {
	var sp consensus.SignedProposal
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return sp, fmt.Errorf("pbcodec: DecodeProposal: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fPropHeight:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: height: %w", protowire.ParseError(n))
			}
			sp.Message.Height = consensus.Height(v)
			b = b[n:]
		case fPropRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: round: %w", protowire.ParseError(n))
			}
			sp.Message.Round = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		case fPropPolRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: pol_round: %w", protowire.ParseError(n))
			}
			sp.Message.PolRound = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		case fPropValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: value: %w", protowire.ParseError(n))
			}
			sp.Message.Value = consensus.BytesValue(append([]byte(nil), v...))
			b = b[n:]
		case fPropProposer:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: proposer: %w", protowire.ParseError(n))
			}
			sp.Message.Proposer = consensus.Address(v)
			b = b[n:]
		case fPropSignature:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: signature: %w", protowire.ParseError(n))
			}
			sp.Signature = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return sp, fmt.Errorf("pbcodec: DecodeProposal: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return sp, nil
}

const (
	fPVHeight = protowire.Number(iota + 1)
	fPVRound
	fPVValue
	fPVValid
)

func (Codec) EncodeProposedValue(pv codec.ProposedValue) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fPVHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(pv.Height))
	b = protowire.AppendTag(b, fPVRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(pv.Round)))
	b = protowire.AppendTag(b, fPVValue, protowire.BytesType)
	b = protowire.AppendBytes(b, pv.Value)
	b = protowire.AppendTag(b, fPVValid, protowire.VarintType)
	validBit := uint64(0)
	if pv.Valid {
		validBit = 1
	}
	b = protowire.AppendVarint(b, validBit)
	return b, nil
}

func (Codec) DecodeProposedValue(b []byte) (codec.ProposedValue, error) {
	var pv codec.ProposedValue
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return pv, fmt.Errorf("pbcodec: DecodeProposedValue: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fPVHeight:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return pv, fmt.Errorf("pbcodec: DecodeProposedValue: height: %w", protowire.ParseError(n))
			}
			pv.Height = consensus.Height(v)
			b = b[n:]
		case fPVRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return pv, fmt.Errorf("pbcodec: DecodeProposedValue: round: %w", protowire.ParseError(n))
			}
			pv.Round = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		case fPVValue:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return pv, fmt.Errorf("pbcodec: DecodeProposedValue: value: %w", protowire.ParseError(n))
			}
			pv.Value = append([]byte(nil), v...)
			b = b[n:]
		case fPVValid:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return pv, fmt.Errorf("pbcodec: DecodeProposedValue: valid: %w", protowire.ParseError(n))
			}
			pv.Valid = v == 1
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return pv, fmt.Errorf("pbcodec: DecodeProposedValue: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return pv, nil
}

const (
	fCCHeight = protowire.Number(iota + 1)
	fCCRound
	fCCValueID
	fCCVote
)

func (c Codec) EncodeCommitCertificate(cc consensus.CommitCertificate) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fCCHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(cc.Height))
	b = protowire.AppendTag(b, fCCRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(cc.Round)))
	b = protowire.AppendTag(b, fCCValueID, protowire.BytesType)
	b = protowire.AppendBytes(b, cc.ValueID[:])
	for _, sv := range cc.CommitSignatures {
		vb, err := c.EncodeVote(sv)
		if err != nil {
			return nil, fmt.Errorf("pbcodec: EncodeCommitCertificate: %w", err)
		}
		b = protowire.AppendTag(b, fCCVote, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	return b, nil
}

func (c Codec) DecodeCommitCertificate(b []byte) (consensus.CommitCertificate, error) {
	var cc consensus.CommitCertificate
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fCCHeight:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: height: %w", protowire.ParseError(n))
			}
			cc.Height = consensus.Height(v)
			b = b[n:]
		case fCCRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: round: %w", protowire.ParseError(n))
			}
			cc.Round = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		case fCCValueID:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || len(v) != len(cc.ValueID) {
				return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: value_id: malformed")
			}
			copy(cc.ValueID[:], v)
			b = b[n:]
		case fCCVote:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: vote: %w", protowire.ParseError(n))
			}
			sv, err := c.DecodeVote(v)
			if err != nil {
				return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: %w", err)
			}
			cc.CommitSignatures = append(cc.CommitSignatures, sv)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return cc, fmt.Errorf("pbcodec: DecodeCommitCertificate: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return cc, nil
}

const (
	fVSReqID = protowire.Number(iota + 1)
	fVSReqHeight
	fVSReqRound
)

func (Codec) EncodeVoteSetRequest(r codec.VoteSetRequest) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fVSReqID, protowire.BytesType)
	b = protowire.AppendString(b, r.RequestID)
	b = protowire.AppendTag(b, fVSReqHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Height))
	b = protowire.AppendTag(b, fVSReqRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(r.Round)))
	return b, nil
}

func (Codec) DecodeVoteSetRequest(b []byte) (codec.VoteSetRequest, error) {
	var r codec.VoteSetRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, fmt.Errorf("pbcodec: DecodeVoteSetRequest: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fVSReqID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetRequest: request_id: %w", protowire.ParseError(n))
			}
			r.RequestID = v
			b = b[n:]
		case fVSReqHeight:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetRequest: height: %w", protowire.ParseError(n))
			}
			r.Height = consensus.Height(v)
			b = b[n:]
		case fVSReqRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetRequest: round: %w", protowire.ParseError(n))
			}
			r.Round = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetRequest: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return r, nil
}

const (
	fVSRespID = protowire.Number(iota + 1)
	fVSRespVote
)

func (c Codec) EncodeVoteSetResponse(r codec.VoteSetResponse) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fVSRespID, protowire.BytesType)
	b = protowire.AppendString(b, r.RequestID)
	for _, sv := range r.Votes {
		vb, err := c.EncodeVote(sv)
		if err != nil {
			return nil, fmt.Errorf("pbcodec: EncodeVoteSetResponse: %w", err)
		}
		b = protowire.AppendTag(b, fVSRespVote, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	return b, nil
}

func (c Codec) DecodeVoteSetResponse(b []byte) (codec.VoteSetResponse, error) {
	var r codec.VoteSetResponse
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, fmt.Errorf("pbcodec: DecodeVoteSetResponse: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fVSRespID:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetResponse: request_id: %w", protowire.ParseError(n))
			}
			r.RequestID = v
			b = b[n:]
		case fVSRespVote:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetResponse: vote: %w", protowire.ParseError(n))
			}
			sv, err := c.DecodeVote(v)
			if err != nil {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetResponse: %w", err)
			}
			r.Votes = append(r.Votes, sv)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, fmt.Errorf("pbcodec: DecodeVoteSetResponse: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return r, nil
}

const (
	fStatusHeight = protowire.Number(iota + 1)
	fStatusRound
)

func (Codec) EncodeStatus(s codec.Status) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fStatusHeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Height))
	b = protowire.AppendTag(b, fStatusRound, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(s.Round)))
	return b, nil
}

func (Codec) DecodeStatus(b []byte) (codec.Status, error) {
	var s codec.Status
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, fmt.Errorf("pbcodec: DecodeStatus: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fStatusHeight:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return s, fmt.Errorf("pbcodec: DecodeStatus: height: %w", protowire.ParseError(n))
			}
			s.Height = consensus.Height(v)
			b = b[n:]
		case fStatusRound:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return s, fmt.Errorf("pbcodec: DecodeStatus: round: %w", protowire.ParseError(n))
			}
			s.Round = consensus.Round(protowire.DecodeZigZag(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return s, fmt.Errorf("pbcodec: DecodeStatus: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return s, nil
}
