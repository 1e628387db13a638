// Package aggsig provides an optional BLS min-sig aggregate signature
// scheme. Most deployments are fine with the default per-vote ed25519
// scheme in [github.com/circlefin/malachite-sub001/gcrypto]; aggsig
// adds Aggregate and VerifyAggregate, which check many signatures over
// one message against a single aggregated signature. Nothing else in
// this module calls them: [certverify] verifies every vote of a
// CommitCertificate individually.
//
// This is a deliberately small slice of what a full BLS signature
// scheme can do: one message, one aggregate signature, one aggregate
// public key. There is no support for sparse/partial aggregation across
// the network; that is left to the individual-signature certificate
// path.
package aggsig

import (
	"context"
	"errors"
	"fmt"

	"github.com/circlefin/malachite-sub001/gcrypto"
	blst "github.com/supranational/blst/bindings/go"
)

const schemeName = "bls-minsig"

// DomainSeparationTag is the ciphersuite ID for minimized-signature BLS
// over BLS12-381, basic scheme, per draft-irtf-cfrg-bls-signature.
var DomainSeparationTag = []byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_")

// Register registers the BLS scheme with reg, under the name "bls-minsig".
func Register(reg *gcrypto.Registry) {
	reg.Register(schemeName, PubKey{}, NewPubKey)
}

// PubKey is an affine G2 point; PubKeyBytes returns its compressed
// encoding.
type PubKey blst.P2Affine

// NewPubKey decodes a compressed G2 point.
func NewPubKey(b []byte) (gcrypto.PubKey, error) {
	if len(b) != blst.BLST_P2_COMPRESS_BYTES {
		return nil, fmt.Errorf("aggsig: expected %d compressed bytes, got %d", blst.BLST_P2_COMPRESS_BYTES, len(b))
	}
	p2 := new(blst.P2Affine).Uncompress(b)
	if p2 == nil {
		return nil, errors.New("aggsig: failed to decompress public key")
	}
	if !p2.KeyValidate() {
		return nil, errors.New("aggsig: public key failed validation")
	}
	return PubKey(*p2), nil
}

func (k PubKey) Address() []byte {
	b := k.PubKeyBytes()
	// The high 20 bytes of a well-formed compressed G2 point are a fine
	// address; a dedicated hash isn't needed since the full key is
	// already fixed-size and unique.
	return b[:20]
}

func (k PubKey) PubKeyBytes() []byte {
	p2 := blst.P2Affine(k)
	return p2.Compress()
}

func (k PubKey) Equal(other gcrypto.PubKey) bool {
	o, ok := other.(PubKey)
	if !ok {
		return false
	}
	p2k, p2o := blst.P2Affine(k), blst.P2Affine(o)
	return p2k.Equals(&p2o)
}

func (k PubKey) Verify(msg, sig []byte) bool {
	p1 := new(blst.P1Affine).Uncompress(sig)
	if p1 == nil {
		return false
	}
	if !p1.SigValidate(false) {
		return false
	}
	p2 := blst.P2Affine(k)
	return p1.Verify(false, &p2, false, msg, DomainSeparationTag)
}

// Signer signs with an in-process BLS secret scalar.
type Signer struct {
	secret blst.SecretKey
	point  blst.P2Affine
}

// NewSigner derives a signer from ikm, which must be at least 32 bytes
// of cryptographically random key material.
func NewSigner(ikm []byte) (Signer, error) {
	if len(ikm) < blst.BLST_SCALAR_BYTES {
		return Signer{}, fmt.Errorf("aggsig: ikm too short: got %d, need at least %d", len(ikm), blst.BLST_SCALAR_BYTES)
	}
	sk := blst.KeyGenV5(ikm, []byte("malachite-bls-salt"))
	pt := new(blst.P2Affine).From(sk)
	return Signer{secret: *sk, point: *pt}, nil
}

func (s Signer) PubKey() gcrypto.PubKey {
	return PubKey(s.point)
}

func (s Signer) Sign(_ context.Context, msg []byte) ([]byte, error) {
	sig := new(blst.P1Affine).Sign(&s.secret, msg, DomainSeparationTag, true)
	if sig == nil {
		return nil, errors.New("aggsig: failed to sign")
	}
	return sig.Compress(), nil
}

// Aggregate combines per-validator signatures over the same message
// into a single compressed aggregate signature. It does not verify the
// individual signatures; callers are expected to have already checked
// each one (as host.Loop does for every vote on arrival), since aggregation
// itself performs no validity checks.
func Aggregate(sigs [][]byte) ([]byte, error) {
	if len(sigs) == 0 {
		return nil, errors.New("aggsig: cannot aggregate zero signatures")
	}
	var agg blst.P1AggregateSignature
	if !agg.AggregateCompressed(sigs, false) {
		return nil, errors.New("aggsig: failed to aggregate signatures")
	}
	return agg.ToAffine().Compress(), nil
}

// VerifyAggregate checks a compressed aggregate signature against the
// aggregate of pubKeys, all signing the same msg (a "fast aggregate
// verify" in BLS terminology).
func VerifyAggregate(msg []byte, aggSig []byte, pubKeys []gcrypto.PubKey) bool {
	if len(pubKeys) == 0 {
		return false
	}
	sig := new(blst.P1Affine).Uncompress(aggSig)
	if sig == nil || !sig.SigValidate(false) {
		return false
	}
	pts := make([]*blst.P2Affine, len(pubKeys))
	for i, pk := range pubKeys {
		bpk, ok := pk.(PubKey)
		if !ok {
			return false
		}
		p2 := blst.P2Affine(bpk)
		pts[i] = &p2
	}
	return sig.FastAggregateVerify(false, pts, msg, DomainSeparationTag)
}
