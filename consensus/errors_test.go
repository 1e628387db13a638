package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/circlefin/malachite-sub001/consensus"
)

func TestErrors_MessagesMentionKeyFields(t *testing.T) {
	assert.Contains(t, consensus.HeightUnknownError{Want: 7}.Error(), "7")
	assert.Contains(t, consensus.RoundUnknownError{Height: 3, Round: 2}.Error(), "3")
	assert.Contains(t, consensus.UnknownValidatorError{Address: "v9"}.Error(), "v9")
	assert.Contains(t, consensus.InvalidSignatureError{Voter: "v9"}.Error(), "v9")
	assert.Contains(t, consensus.InvalidProposalError{Reason: "proposer mismatch"}.Error(), "proposer mismatch")
	assert.Contains(t, consensus.ValidatorSetNotFoundError{Height: 4}.Error(), "4")
	assert.Contains(t, consensus.InvalidCertificateError{Reason: "insufficient power"}.Error(), "insufficient power")
	assert.Contains(t, consensus.DecisionNotFoundError{Height: 1, Round: 0}.Error(), "1")
}
