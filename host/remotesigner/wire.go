// Package remotesigner is an optional [github.com/circlefin/malachite-sub001/host.Signer]
// that forwards SignVote/SignProposal effects to an external signer
// process over gRPC, so a node's private key never has to live in the
// consensus process itself.
//
// Grounded on tm's sibling gexternalsigner package (ExternalSigner,
// dialing with grpc.NewClient and insecure transport credentials),
// adapted from its generated-protobuf request/response types to a
// small hand-rolled wire codec, since no .proto toolchain is available
// here; the encoding style (length-prefixed fields) matches
// consensus.DefaultSignatureScheme's sign-bytes builder.
package remotesigner

import (
	"encoding/binary"
	"fmt"
)

// signVoteRequest, signProposalRequest, pubKeyRequest, their shared
// signResponse and pubKeyResponse are the messages carried over the
// RemoteSigner service;
// they implement the rawCodec's Marshal/Unmarshal contract directly
// rather than through generated protobuf code.
type signVoteRequest struct {
	ChainID string
	Kind    uint8
	Height  uint64
	Round   int64
	IsVal   bool
	ValueID [32]byte
}

type signResponse struct {
	Signature []byte
}

type signProposalRequest struct {
	ChainID  string
	Height   uint64
	Round    int64
	PolRound int64
	ValueID  [32]byte
	HasValue bool
}

type pubKeyRequest struct {
	ChainID string
}

type pubKeyResponse struct {
	Scheme string
	Bytes  []byte
}

func putString(buf []byte, s string) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	buf = append(buf, n[:]...)
	return append(buf, s...)
}

func getString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, fmt.Errorf("remotesigner: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", nil, fmt.Errorf("remotesigner: truncated string body")
	}
	return string(buf[:n]), buf[n:], nil
}

func putBytes(buf []byte, b []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf = append(buf, n[:]...)
	return append(buf, b...)
}

func getBytes(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("remotesigner: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, fmt.Errorf("remotesigner: truncated byte body")
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, buf[n:], nil
}

func putUint64(buf []byte, v uint64) []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], v)
	return append(buf, n[:]...)
}

func getUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, fmt.Errorf("remotesigner: truncated uint64")
	}
	return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
}

func (r signVoteRequest) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 64+len(r.ChainID))
	buf = putString(buf, r.ChainID)
	buf = append(buf, r.Kind)
	buf = putUint64(buf, r.Height)
	buf = putUint64(buf, uint64(r.Round))
	if r.IsVal {
		buf = append(buf, 1)
		buf = append(buf, r.ValueID[:]...)
	} else {
		buf = append(buf, 0)
	}
	return buf, nil
}

func (r *signVoteRequest) Unmarshal(b []byte) error {
	chainID, b, err := getString(b)
	if err != nil {
		return err
	}
	if len(b) < 1 {
		return fmt.Errorf("remotesigner: truncated sign vote request")
	}
	kind := b[0]
	b = b[1:]
	height, b, err := getUint64(b)
	if err != nil {
		return err
	}
	round, b, err := getUint64(b)
	if err != nil {
		return err
	}
	if len(b) < 1 {
		return fmt.Errorf("remotesigner: truncated sign vote request")
	}
	isVal := b[0] == 1
	b = b[1:]
	r.ChainID, r.Kind, r.Height, r.Round, r.IsVal = chainID, kind, height, int64(round), isVal
	if isVal {
		if len(b) < 32 {
			return fmt.Errorf("remotesigner: truncated value id")
		}
		copy(r.ValueID[:], b[:32])
	}
	return nil
}

func (r signResponse) Marshal() ([]byte, error) {
	return putBytes(nil, r.Signature), nil
}

func (r *signResponse) Unmarshal(b []byte) error {
	sig, _, err := getBytes(b)
	if err != nil {
		return err
	}
	r.Signature = sig
	return nil
}

func (r signProposalRequest) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 64+len(r.ChainID))
	buf = putString(buf, r.ChainID)
	buf = putUint64(buf, r.Height)
	buf = putUint64(buf, uint64(r.Round))
	buf = putUint64(buf, uint64(r.PolRound))
	if r.HasValue {
		buf = append(buf, 1)
		buf = append(buf, r.ValueID[:]...)
	} else {
		buf = append(buf, 0)
	}
	return buf, nil
}

func (r *signProposalRequest) Unmarshal(b []byte) error {
	chainID, b, err := getString(b)
	if err != nil {
		return err
	}
	height, b, err := getUint64(b)
	if err != nil {
		return err
	}
	round, b, err := getUint64(b)
	if err != nil {
		return err
	}
	polRound, b, err := getUint64(b)
	if err != nil {
		return err
	}
	if len(b) < 1 {
		return fmt.Errorf("remotesigner: truncated sign proposal request")
	}
	hasValue := b[0] == 1
	b = b[1:]
	r.ChainID, r.Height, r.Round, r.PolRound, r.HasValue = chainID, height, int64(round), int64(polRound), hasValue
	if hasValue {
		if len(b) < 32 {
			return fmt.Errorf("remotesigner: truncated value id")
		}
		copy(r.ValueID[:], b[:32])
	}
	return nil
}

func (r pubKeyRequest) Marshal() ([]byte, error) {
	return putString(nil, r.ChainID), nil
}

func (r *pubKeyRequest) Unmarshal(b []byte) error {
	chainID, _, err := getString(b)
	if err != nil {
		return err
	}
	r.ChainID = chainID
	return nil
}

func (r pubKeyResponse) Marshal() ([]byte, error) {
	buf := putString(nil, r.Scheme)
	return putBytes(buf, r.Bytes), nil
}

func (r *pubKeyResponse) Unmarshal(b []byte) error {
	scheme, b, err := getString(b)
	if err != nil {
		return err
	}
	bz, _, err := getBytes(b)
	if err != nil {
		return err
	}
	r.Scheme, r.Bytes = scheme, bz
	return nil
}
