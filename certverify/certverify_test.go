package certverify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlefin/malachite-sub001/certverify"
	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/consensus/consensustest"
)

const chainID = "test-chain"

func buildCert(t *testing.T, pvs []consensustest.PrivVal, value consensus.Value, signers []int) consensus.CommitCertificate {
	t.Helper()
	cert := consensus.CommitCertificate{Height: 1, Round: 0, ValueID: value.ID()}
	for _, i := range signers {
		pv := pvs[i]
		v := consensus.Vote{Kind: consensus.Precommit, Height: 1, Round: 0, Voter: pv.Val.Address, Value: consensus.VVal(value.ID())}
		sig, err := pv.Signer.Sign(context.Background(), consensus.DefaultSignatureScheme{}.VoteSignBytes(v, chainID))
		require.NoError(t, err)
		cert.CommitSignatures = append(cert.CommitSignatures, consensus.SignedVote{Message: v, Signature: sig})
	}
	return cert
}

func TestVerify_Accepts_QuorumCertificate(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)
	value := consensus.BytesValue("block")
	cert := buildCert(t, pvs, value, []int{0, 1, 2})

	err := certverify.Verify(cert, vs, consensus.DefaultSignatureScheme{}, chainID)
	assert.NoError(t, err)
}

func TestVerify_Rejects_InsufficientPower(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)
	value := consensus.BytesValue("block")
	cert := buildCert(t, pvs, value, []int{0, 1})

	err := certverify.Verify(cert, vs, consensus.DefaultSignatureScheme{}, chainID)
	var invalid consensus.InvalidCertificateError
	require.ErrorAs(t, err, &invalid)
}

func TestVerify_Rejects_DuplicateVoter(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)
	value := consensus.BytesValue("block")
	cert := buildCert(t, pvs, value, []int{0, 1, 2})
	cert.CommitSignatures = append(cert.CommitSignatures, cert.CommitSignatures[0])

	err := certverify.Verify(cert, vs, consensus.DefaultSignatureScheme{}, chainID)
	var invalid consensus.InvalidCertificateError
	require.ErrorAs(t, err, &invalid)
}

func TestVerify_Rejects_WrongChainID(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs)
	value := consensus.BytesValue("block")
	cert := buildCert(t, pvs, value, []int{0, 1, 2})

	err := certverify.Verify(cert, vs, consensus.DefaultSignatureScheme{}, "other-chain")
	var invalid consensus.InvalidCertificateError
	require.ErrorAs(t, err, &invalid)
}

func TestVerify_Rejects_UnknownVoter(t *testing.T) {
	pvs := consensustest.NewValidators(4)
	vs := consensustest.Set(pvs[:3])
	value := consensus.BytesValue("block")
	cert := buildCert(t, pvs, value, []int{0, 1, 3})

	err := certverify.Verify(cert, vs, consensus.DefaultSignatureScheme{}, chainID)
	var invalid consensus.InvalidCertificateError
	require.ErrorAs(t, err, &invalid)
}
