package gcrypto_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/circlefin/malachite-sub001/gcrypto"
	"github.com/stretchr/testify/require"
)

func TestEd25519Signer_SignAndVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signer := gcrypto.NewEd25519Signer(priv)
	require.True(t, signer.PubKey().Equal(gcrypto.Ed25519PubKey(pub)))

	msg := []byte("prevote for height 1 round 0")
	sig, err := signer.Sign(context.Background(), msg)
	require.NoError(t, err)

	require.True(t, signer.PubKey().Verify(msg, sig))
	require.False(t, signer.PubKey().Verify([]byte("different message"), sig))
}

func TestEd25519PubKey_Equal(t *testing.T) {
	pub1, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pub2, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	k1 := gcrypto.Ed25519PubKey(pub1)
	k1Copy := gcrypto.Ed25519PubKey(append([]byte(nil), pub1...))
	k2 := gcrypto.Ed25519PubKey(pub2)

	require.True(t, k1.Equal(k1Copy))
	require.False(t, k1.Equal(k2))
}

func TestRegistry_DecodeUnknownScheme(t *testing.T) {
	reg := gcrypto.NewRegistry()
	gcrypto.RegisterEd25519(reg)

	_, err := reg.Decode("secp256k1", nil)
	require.Error(t, err)
	require.IsType(t, gcrypto.UnknownSchemeError{}, err)
}

func TestRegistry_DecodeEd25519(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	reg := gcrypto.NewRegistry()
	gcrypto.RegisterEd25519(reg)

	decoded, err := reg.Decode("ed25519", pub)
	require.NoError(t, err)
	require.True(t, decoded.Equal(gcrypto.Ed25519PubKey(pub)))
}
