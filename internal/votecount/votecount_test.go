package votecount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/internal/votecount"
)

func TestCounter_ValueQuorum(t *testing.T) {
	c := votecount.New(10)
	id := consensus.ValueID{1}

	assert.Equal(t, consensus.UnreachedThreshold, c.Add("v1", consensus.VVal(id), 3))
	assert.Equal(t, consensus.UnreachedThreshold, c.Add("v2", consensus.VVal(id), 3))

	got := c.Add("v3", consensus.VVal(id), 2)
	assert.Equal(t, consensus.Threshold{Kind: consensus.ThresholdValue, ValueID: id}, got)

	// Further votes for the same value don't re-emit.
	got = c.Add("v4", consensus.VVal(id), 2)
	assert.Equal(t, consensus.UnreachedThreshold, got)
}

func TestCounter_NilQuorum(t *testing.T) {
	c := votecount.New(10)
	c.Add("v1", consensus.VNil, 4)
	got := c.Add("v2", consensus.VNil, 4)
	assert.Equal(t, consensus.Threshold{Kind: consensus.ThresholdNil}, got)
}

func TestCounter_AnyQuorum_MixedSupermajority(t *testing.T) {
	c := votecount.New(10)
	idA := consensus.ValueID{1}
	idB := consensus.ValueID{2}

	c.Add("v1", consensus.VVal(idA), 3)
	c.Add("v2", consensus.VVal(idB), 3)
	got := c.Add("v3", consensus.VNil, 2)
	assert.Equal(t, consensus.Threshold{Kind: consensus.ThresholdAny}, got)
}

func TestCounter_ValueTakesPrecedenceOverAny(t *testing.T) {
	c := votecount.New(10)
	id := consensus.ValueID{1}

	// v1 and v2 both vote the same value, crossing both the value and
	// any thresholds in the same call; value must win.
	c.Add("v1", consensus.VVal(id), 3)
	got := c.Add("v2", consensus.VVal(id), 4)
	assert.Equal(t, consensus.ThresholdValue, got.Kind)
}

func TestCounter_DuplicateVoterIgnored(t *testing.T) {
	c := votecount.New(10)
	id := consensus.ValueID{1}

	c.Add("v1", consensus.VVal(id), 3)
	got := c.Add("v1", consensus.VVal(id), 100)
	assert.Equal(t, consensus.UnreachedThreshold, got)
	assert.Equal(t, uint64(3), c.WeightFor(consensus.VVal(id)))
}

func TestCounter_SeenVoter(t *testing.T) {
	c := votecount.New(10)
	assert.False(t, c.SeenVoter("v1"))
	c.Add("v1", consensus.VNil, 1)
	assert.True(t, c.SeenVoter("v1"))
}
