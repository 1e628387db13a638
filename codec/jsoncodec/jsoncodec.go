// Package jsoncodec is a human-readable [codec.Codec] alternative to
// codec/pbcodec, useful for debugging WAL contents or running a
// network of nodes under a packet sniffer. It carries the same fields
// as the reference codec, just framed as JSON instead of protobuf wire.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"github.com/circlefin/malachite-sub001/codec"
	"github.com/circlefin/malachite-sub001/consensus"
)

// Codec is the JSON [codec.Codec] implementation.
type Codec struct{}

var _ codec.Codec = Codec{}

type voteJSON struct {
	Kind      consensus.VoteKind `json:"kind"`
	Height    consensus.Height   `json:"height"`
	Round     consensus.Round    `json:"round"`
	ValueID   *consensus.ValueID `json:"value_id,omitempty"`
	Voter     consensus.Address  `json:"voter"`
	Extension []byte             `json:"extension,omitempty"`
	Signature []byte             `json:"signature"`
}

func (Codec) EncodeVote(sv consensus.SignedVote) ([]byte, error) {
	j := voteJSON{
		Kind: sv.Message.Kind, Height: sv.Message.Height, Round: sv.Message.Round,
		Voter: sv.Message.Voter, Extension: sv.Message.Extension, Signature: sv.Signature,
	}
	if id, ok := sv.Message.Value.Value(); ok {
		j.ValueID = &id
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeVote: %w", err)
	}
	return b, nil
}

func (Codec) DecodeVote(b []byte) (consensus.SignedVote, error) {
	var j voteJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return consensus.SignedVote{}, fmt.Errorf("jsoncodec: DecodeVote: %w", err)
	}
	value := consensus.VNil
	if j.ValueID != nil {
		value = consensus.VVal(*j.ValueID)
	}
	return consensus.SignedVote{
		Message: consensus.Vote{
			Kind: j.Kind, Height: j.Height, Round: j.Round,
			Value: value, Voter: j.Voter, Extension: j.Extension,
		},
		Signature: j.Signature,
	}, nil
}

type proposalJSON struct {
	Height    consensus.Height  `json:"height"`
	Round     consensus.Round   `json:"round"`
	PolRound  consensus.Round   `json:"pol_round"`
	Value     []byte            `json:"value,omitempty"`
	Proposer  consensus.Address `json:"proposer"`
	Signature []byte            `json:"signature"`
}

func (Codec) EncodeProposal(sp consensus.SignedProposal) ([]byte, error) {
	bv, ok := sp.Message.Value.(consensus.BytesValue)
	if sp.Message.Value != nil && !ok {
		return nil, fmt.Errorf("jsoncodec: EncodeProposal: value type %T is not a BytesValue", sp.Message.Value)
	}
	j := proposalJSON{
		Height: sp.Message.Height, Round: sp.Message.Round, PolRound: sp.Message.PolRound,
		Proposer: sp.Message.Proposer, Signature: sp.Signature,
	}
	if ok {
		j.Value = bv
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeProposal: %w", err)
	}
	return b, nil
}

func (Codec) DecodeProposal(b []byte) (consensus.SignedProposal, error) {
	var j proposalJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return consensus.SignedProposal{}, fmt.Errorf("jsoncodec: DecodeProposal: %w", err)
	}
	var v consensus.Value
	if j.Value != nil {
		v = consensus.BytesValue(j.Value)
	}
	return consensus.SignedProposal{
		Message: consensus.Proposal{
			Height: j.Height, Round: j.Round, PolRound: j.PolRound, Value: v, Proposer: j.Proposer,
		},
		Signature: j.Signature,
	}, nil
}

type proposedValueJSON struct {
	Height consensus.Height `json:"height"`
	Round  consensus.Round  `json:"round"`
	Value  []byte           `json:"value"`
	Valid  bool             `json:"valid"`
}

func (Codec) EncodeProposedValue(pv codec.ProposedValue) ([]byte, error) {
	b, err := json.Marshal(proposedValueJSON{pv.Height, pv.Round, pv.Value, pv.Valid})
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeProposedValue: %w", err)
	}
	return b, nil
}

func (Codec) DecodeProposedValue(b []byte) (codec.ProposedValue, error) {
	var j proposedValueJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return codec.ProposedValue{}, fmt.Errorf("jsoncodec: DecodeProposedValue: %w", err)
	}
	return codec.ProposedValue{Height: j.Height, Round: j.Round, Value: j.Value, Valid: j.Valid}, nil
}

type commitCertificateJSON struct {
	Height  consensus.Height  `json:"height"`
	Round   consensus.Round   `json:"round"`
	ValueID consensus.ValueID `json:"value_id"`
	Votes   []voteJSON        `json:"votes"`
}

// voteJSONs and fromVoteJSONs convert between the wire voteJSON shape
// and []consensus.SignedVote, since NilOrVal has no exported fields
// and would otherwise marshal to an empty object.
func voteJSONs(svs []consensus.SignedVote) []voteJSON {
	out := make([]voteJSON, len(svs))
	for i, sv := range svs {
		j := voteJSON{Kind: sv.Message.Kind, Height: sv.Message.Height, Round: sv.Message.Round,
			Voter: sv.Message.Voter, Extension: sv.Message.Extension, Signature: sv.Signature}
		if id, ok := sv.Message.Value.Value(); ok {
			j.ValueID = &id
		}
		out[i] = j
	}
	return out
}

func fromVoteJSONs(js []voteJSON) []consensus.SignedVote {
	out := make([]consensus.SignedVote, len(js))
	for i, j := range js {
		value := consensus.VNil
		if j.ValueID != nil {
			value = consensus.VVal(*j.ValueID)
		}
		out[i] = consensus.SignedVote{
			Message:   consensus.Vote{Kind: j.Kind, Height: j.Height, Round: j.Round, Value: value, Voter: j.Voter, Extension: j.Extension},
			Signature: j.Signature,
		}
	}
	return out
}

func (c Codec) EncodeCommitCertificate(cc consensus.CommitCertificate) ([]byte, error) {
	b, err := json.Marshal(commitCertificateJSON{cc.Height, cc.Round, cc.ValueID, voteJSONs(cc.CommitSignatures)})
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeCommitCertificate: %w", err)
	}
	return b, nil
}

func (c Codec) DecodeCommitCertificate(b []byte) (consensus.CommitCertificate, error) {
	var j commitCertificateJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return consensus.CommitCertificate{}, fmt.Errorf("jsoncodec: DecodeCommitCertificate: %w", err)
	}
	return consensus.CommitCertificate{Height: j.Height, Round: j.Round, ValueID: j.ValueID, CommitSignatures: fromVoteJSONs(j.Votes)}, nil
}

type voteSetRequestJSON = codec.VoteSetRequest

func (Codec) EncodeVoteSetRequest(r codec.VoteSetRequest) ([]byte, error) {
	b, err := json.Marshal(voteSetRequestJSON(r))
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeVoteSetRequest: %w", err)
	}
	return b, nil
}

func (Codec) DecodeVoteSetRequest(b []byte) (codec.VoteSetRequest, error) {
	var r codec.VoteSetRequest
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("jsoncodec: DecodeVoteSetRequest: %w", err)
	}
	return r, nil
}

type voteSetResponseJSON struct {
	RequestID string     `json:"request_id"`
	Votes     []voteJSON `json:"votes"`
}

func (Codec) EncodeVoteSetResponse(r codec.VoteSetResponse) ([]byte, error) {
	b, err := json.Marshal(voteSetResponseJSON{r.RequestID, voteJSONs(r.Votes)})
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeVoteSetResponse: %w", err)
	}
	return b, nil
}

func (Codec) DecodeVoteSetResponse(b []byte) (codec.VoteSetResponse, error) {
	var j voteSetResponseJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return codec.VoteSetResponse{}, fmt.Errorf("jsoncodec: DecodeVoteSetResponse: %w", err)
	}
	return codec.VoteSetResponse{RequestID: j.RequestID, Votes: fromVoteJSONs(j.Votes)}, nil
}

func (Codec) EncodeStatus(s codec.Status) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: EncodeStatus: %w", err)
	}
	return b, nil
}

func (Codec) DecodeStatus(b []byte) (codec.Status, error) {
	var s codec.Status
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("jsoncodec: DecodeStatus: %w", err)
	}
	return s, nil
}
