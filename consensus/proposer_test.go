package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func equalPowerVals(n int) []Validator {
	vals := make([]Validator, n)
	letters := "abcdefgh"
	for i := 0; i < n; i++ {
		vals[i] = Validator{Address: Address(letters[i : i+1]), VotingPower: 1}
	}
	return vals
}

func TestProposerPriority_PureFunctionOfSteps(t *testing.T) {
	vals := equalPowerVals(4)

	a := proposerPriority(vals, 7)
	b := proposerPriority(vals, 7)
	assert.Equal(t, a, b, "proposerPriority must be deterministic given the same inputs")
}

func TestProposerPriority_EveryValidatorTurnsUpInOneCycle(t *testing.T) {
	vals := equalPowerVals(5)

	seen := make(map[int]bool)
	for steps := int64(0); steps < 5; steps++ {
		seen[proposerPriority(vals, steps)] = true
	}
	assert.Len(t, seen, 5)
}

func TestProposerPriority_ZeroTotalPowerDoesNotPanic(t *testing.T) {
	vals := []Validator{{Address: "a", VotingPower: 0}, {Address: "b", VotingPower: 0}}
	assert.Equal(t, 0, proposerPriority(vals, 3))
}

func TestProposerPriority_SingleValidatorAlwaysWins(t *testing.T) {
	vals := []Validator{{Address: "solo", VotingPower: 1}}
	for steps := int64(0); steps < 10; steps++ {
		assert.Equal(t, 0, proposerPriority(vals, steps))
	}
}
