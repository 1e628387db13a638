package gcrypto

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

// RegisterEd25519 registers the ed25519 scheme with reg, under the name "ed25519".
// This is the default scheme used by consensustest fixtures and the
// reference host-loop demo.
func RegisterEd25519(reg *Registry) {
	reg.Register("ed25519", Ed25519PubKey{}, func(b []byte) (PubKey, error) {
		if len(b) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("gcrypto: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
		}
		return Ed25519PubKey(b), nil
	})
}

// Ed25519PubKey is an ed25519 public key.
type Ed25519PubKey ed25519.PublicKey

func (k Ed25519PubKey) Address() []byte {
	sum := sha256.Sum256(k)
	return sum[:20]
}

func (k Ed25519PubKey) PubKeyBytes() []byte {
	return []byte(k)
}

func (k Ed25519PubKey) Equal(other PubKey) bool {
	o, ok := other.(Ed25519PubKey)
	if !ok {
		return false
	}
	return ed25519.PublicKey(k).Equal(ed25519.PublicKey(o))
}

func (k Ed25519PubKey) Verify(msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(k), msg, sig)
}

// Ed25519Signer signs with an in-process private key.
// Production deployments needing key isolation should use
// [github.com/circlefin/malachite-sub001/host/remotesigner] instead.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  Ed25519PubKey
}

// NewEd25519Signer wraps priv as a Signer.
func NewEd25519Signer(priv ed25519.PrivateKey) Ed25519Signer {
	return Ed25519Signer{
		priv: priv,
		pub:  Ed25519PubKey(priv.Public().(ed25519.PublicKey)),
	}
}

func (s Ed25519Signer) PubKey() PubKey {
	return s.pub
}

func (s Ed25519Signer) Sign(_ context.Context, msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}
