// Package votecount tallies weighted votes of one kind within one round,
// reporting the first super-majority threshold crossed. It is the
// innermost counting primitive; internal/votekeeper owns one pair of
// these per round (one for prevotes, one for precommits).
package votecount

import "github.com/circlefin/malachite-sub001/consensus"

// Counter tallies weighted votes toward one value at a time, mirroring
// the vote-tally vocabulary of tm/tmengine's internal/tmmirror/internal/tmi
// package (accepted/conflict/redundant) but collapsed to a synchronous
// value-returning method, since a Counter has no actor loop of its own --
// it is owned and driven synchronously by the vote keeper.
type Counter struct {
	totalWeight uint64
	perValue    map[consensus.NilOrVal]uint64
	voters      map[consensus.Address]bool
	emitted     map[consensus.Threshold]bool
}

// New returns an empty Counter for a round whose validator set has the
// given total voting power.
func New(totalWeight uint64) *Counter {
	return &Counter{
		totalWeight: totalWeight,
		perValue:    make(map[consensus.NilOrVal]uint64),
		voters:      make(map[consensus.Address]bool),
		emitted:     make(map[consensus.Threshold]bool),
	}
}

// Add records voter's vote for value with the given weight, returning
// the threshold crossed by this call, or [consensus.UnreachedThreshold]
// if none was (or it was already emitted).
//
// If voter has already cast a vote counted by this Counter, the vote is
// not re-counted -- equivocation handling is the vote keeper's
// responsibility, one level up, which still records the message as
// evidence even though it does not affect the tally here.
func (c *Counter) Add(voter consensus.Address, value consensus.NilOrVal, weight uint64) consensus.Threshold {
	if c.voters[voter] {
		return consensus.UnreachedThreshold
	}
	c.voters[voter] = true
	c.perValue[value] += weight

	if id, ok := value.Value(); ok {
		if th, ok := c.tryEmit(consensus.Threshold{Kind: consensus.ThresholdValue, ValueID: id}, c.perValue[value]); ok {
			return th
		}
	} else {
		if th, ok := c.tryEmit(consensus.Threshold{Kind: consensus.ThresholdNil}, c.perValue[consensus.VNil]); ok {
			return th
		}
	}

	var sum uint64
	for _, w := range c.perValue {
		sum += w
	}
	if th, ok := c.tryEmit(consensus.Threshold{Kind: consensus.ThresholdAny}, sum); ok {
		return th
	}

	return consensus.UnreachedThreshold
}

// tryEmit reports whether w crosses the strict two-thirds majority of
// c.totalWeight and th has not already been emitted, marking it emitted
// if so.
func (c *Counter) tryEmit(th consensus.Threshold, w uint64) (consensus.Threshold, bool) {
	if 3*w <= 2*c.totalWeight {
		return consensus.Threshold{}, false
	}
	if c.emitted[th] {
		return consensus.Threshold{}, false
	}
	c.emitted[th] = true
	return th, true
}

// SeenVoter reports whether voter has already been counted.
func (c *Counter) SeenVoter(voter consensus.Address) bool {
	return c.voters[voter]
}

// WeightFor returns the weight accumulated for value so far.
func (c *Counter) WeightFor(value consensus.NilOrVal) uint64 {
	return c.perValue[value]
}
