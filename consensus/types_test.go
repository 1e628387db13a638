package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/circlefin/malachite-sub001/consensus"
)

func TestProposal_Valid(t *testing.T) {
	cases := []struct {
		name string
		p    consensus.Proposal
		want bool
	}{
		{"nil pol round", consensus.Proposal{Round: 3, PolRound: consensus.NilRound}, true},
		{"pol round strictly less", consensus.Proposal{Round: 3, PolRound: 1}, true},
		{"pol round equal", consensus.Proposal{Round: 3, PolRound: 3}, false},
		{"pol round greater", consensus.Proposal{Round: 3, PolRound: 4}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.Valid())
		})
	}
}

func TestNilOrVal(t *testing.T) {
	assert.True(t, consensus.VNil.IsNil())
	_, ok := consensus.VNil.Value()
	assert.False(t, ok)

	id := consensus.ValueID{1, 2, 3}
	v := consensus.VVal(id)
	assert.False(t, v.IsNil())
	got, ok := v.Value()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	assert.True(t, v.Equal(consensus.VVal(id)))
	assert.False(t, v.Equal(consensus.VNil))
}

func TestRound_String(t *testing.T) {
	assert.Equal(t, "nil", consensus.NilRound.String())
	assert.Equal(t, "any", consensus.AnyRound.String())
	assert.Equal(t, "5", consensus.Round(5).String())
}

func TestNewRoundState(t *testing.T) {
	rs := consensus.NewRoundState(42)
	assert.Equal(t, consensus.Height(42), rs.Height)
	assert.Equal(t, consensus.NilRound, rs.Round)
	assert.Equal(t, consensus.StepUnstarted, rs.Step)
	assert.Nil(t, rs.Proposal)
	assert.Nil(t, rs.Locked)
	assert.Nil(t, rs.Valid)
	assert.Nil(t, rs.Decided)
}
