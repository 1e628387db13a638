package host

import "fmt"

// UnexpectedResumeError is §7's "Unexpected resume values from the
// host are fatal": a host method returned a shape the loop's contract
// with the core does not allow, indicating a host-core contract
// violation rather than a Byzantine input.
type UnexpectedResumeError struct {
	Effect string
	Detail string
}

func (e UnexpectedResumeError) Error() string {
	return fmt.Sprintf("host: unexpected resume for effect %s: %s", e.Effect, e.Detail)
}

// SignatureInvalidError is returned when VerifySignature reports a
// signature does not verify; the caller treats it the same as
// consensus.InvalidSignatureError (drop, no evidence).
type SignatureInvalidError struct {
	Voter string
}

func (e SignatureInvalidError) Error() string {
	return fmt.Sprintf("host: signature from %q failed verification", e.Voter)
}
