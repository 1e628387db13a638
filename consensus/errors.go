package consensus

import "fmt"

// HeightUnknownError is returned when a store has no record of the
// requested height (e.g. pruned, or not yet reached).
type HeightUnknownError struct {
	Want Height
}

func (e HeightUnknownError) Error() string {
	return fmt.Sprintf("consensus: height %d is unknown", e.Want)
}

// RoundUnknownError is returned when a store has no record of the
// requested round.
type RoundUnknownError struct {
	Height Height
	Round  Round
}

func (e RoundUnknownError) Error() string {
	return fmt.Sprintf("consensus: round %s unknown at height %d", e.Round, e.Height)
}

// UnknownValidatorError is §7's "UnknownValidator": a vote or proposal
// arrived from an address not in the active validator set. The
// message must be dropped; it is not evidence, since there is no
// validator to attribute it to.
type UnknownValidatorError struct {
	Address Address
}

func (e UnknownValidatorError) Error() string {
	return fmt.Sprintf("consensus: address %q is not in the active validator set", e.Address)
}

// InvalidSignatureError is §7's "InvalidSignature".
type InvalidSignatureError struct {
	Voter Address
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("consensus: signature from %q failed verification", e.Voter)
}

// InvalidProposalError is §7's "InvalidProposal": proposer mismatch,
// pol_round >= round, or a height mismatch.
type InvalidProposalError struct {
	Reason string
}

func (e InvalidProposalError) Error() string {
	return fmt.Sprintf("consensus: invalid proposal: %s", e.Reason)
}

// ValidatorSetNotFoundError is §7's "ValidatorSetNotFound": the host
// returned no validator set for a height. It is fatal to the triggering
// message (dropped) but not to the driver, which must not advance past
// a height it cannot obtain a validator set for.
type ValidatorSetNotFoundError struct {
	Height Height
}

func (e ValidatorSetNotFoundError) Error() string {
	return fmt.Sprintf("consensus: no validator set available for height %d", e.Height)
}

// InvalidCertificateError is §7's "InvalidCertificate".
type InvalidCertificateError struct {
	Reason string
}

func (e InvalidCertificateError) Error() string {
	return fmt.Sprintf("consensus: invalid certificate: %s", e.Reason)
}

// DecisionNotFoundError is §7's "DecisionNotFound": TransitionToFinalize
// was fed to a round state machine that never decided. This indicates
// a driver bug, not a Byzantine input, so callers should treat it as fatal.
type DecisionNotFoundError struct {
	Height Height
	Round  Round
}

func (e DecisionNotFoundError) Error() string {
	return fmt.Sprintf("consensus: no decision recorded at height %d round %s on finalize", e.Height, e.Round)
}
