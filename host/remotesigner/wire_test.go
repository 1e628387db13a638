package remotesigner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVoteRequest_RoundTrip(t *testing.T) {
	want := signVoteRequest{ChainID: "test-chain", Kind: 1, Height: 7, Round: 3, IsVal: true, ValueID: [32]byte{9, 9}}
	b, err := want.Marshal()
	require.NoError(t, err)

	var got signVoteRequest
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, want, got)
}

func TestSignVoteRequest_NilValue_RoundTrip(t *testing.T) {
	want := signVoteRequest{ChainID: "c", Kind: 0, Height: 1, Round: 0, IsVal: false}
	b, err := want.Marshal()
	require.NoError(t, err)

	var got signVoteRequest
	require.NoError(t, got.Unmarshal(b))
	assert.False(t, got.IsVal)
	assert.Equal(t, want.ChainID, got.ChainID)
}

func TestSignProposalRequest_RoundTrip(t *testing.T) {
	want := signProposalRequest{ChainID: "x", Height: 10, Round: 2, PolRound: -1, HasValue: true, ValueID: [32]byte{1}}
	b, err := want.Marshal()
	require.NoError(t, err)

	var got signProposalRequest
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, want, got)
}

func TestPubKeyResponse_RoundTrip(t *testing.T) {
	want := pubKeyResponse{Scheme: "ed25519", Bytes: []byte{1, 2, 3, 4}}
	b, err := want.Marshal()
	require.NoError(t, err)

	var got pubKeyResponse
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, want, got)
}

func TestRawCodec_MarshalUnmarshal(t *testing.T) {
	c := rawCodec{}
	req := &signVoteRequest{ChainID: "c", Kind: 1, Height: 5, Round: 1, IsVal: false}
	b, err := c.Marshal(req)
	require.NoError(t, err)

	got := new(signVoteRequest)
	require.NoError(t, c.Unmarshal(b, got))
	assert.Equal(t, *req, *got)
}
