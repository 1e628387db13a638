// Package certverify checks a [consensus.CommitCertificate] against a
// validator set, the standalone verifier §4.9 calls out separately
// from the driver because it is used during value-sync to accept a
// decision made elsewhere, with no round state machine involved at all.
//
// Grounded on tm/tmconsensus/precommit.go's PrecommitProof verification
// shape: one proof per value, checked signature-by-signature against a
// validator set with a running voting-power tally, reshaped around
// this package's single CommitCertificate type instead of tmconsensus's
// per-block PrecommitProof/PrevoteProof duals.
package certverify

import (
	"fmt"

	"github.com/circlefin/malachite-sub001/consensus"
)

// SignatureScheme is the subset of consensus.SignatureScheme a
// certificate verifier needs: it never builds sign bytes for anything
// but votes.
type SignatureScheme interface {
	VoteSignBytes(v consensus.Vote, chainID string) []byte
}

// Verify checks cert against vs per §4.9:
//   - every vote is a Precommit for (cert.Height, cert.Round, cert.ValueID),
//   - every voter is in vs and appears at most once,
//   - every signature verifies under the voter's registered public key,
//   - the summed voting power of valid voters strictly exceeds 2/3 of
//     vs's total voting power.
//
// chainID is mixed into each vote's sign bytes exactly as it is when
// the driver verifies an inbound vote, so a certificate assembled on
// one chain can never be replayed as valid on another.
func Verify(cert consensus.CommitCertificate, vs consensus.ValidatorSet, scheme SignatureScheme, chainID string) error {
	seen := make(map[consensus.Address]struct{}, len(cert.CommitSignatures))
	var power uint64

	for _, sv := range cert.CommitSignatures {
		v := sv.Message
		if v.Kind != consensus.Precommit {
			return consensus.InvalidCertificateError{Reason: fmt.Sprintf("vote from %q is not a precommit", v.Voter)}
		}
		if v.Height != cert.Height || v.Round != cert.Round {
			return consensus.InvalidCertificateError{Reason: fmt.Sprintf("vote from %q is for (%d,%s), not (%d,%s)", v.Voter, v.Height, v.Round, cert.Height, cert.Round)}
		}
		id, ok := v.Value.Value()
		if !ok || id != cert.ValueID {
			return consensus.InvalidCertificateError{Reason: fmt.Sprintf("vote from %q does not commit to the certificate's value", v.Voter)}
		}

		if _, dup := seen[v.Voter]; dup {
			return consensus.InvalidCertificateError{Reason: fmt.Sprintf("voter %q appears more than once", v.Voter)}
		}
		seen[v.Voter] = struct{}{}

		validator, ok := vs.GetByAddress(v.Voter)
		if !ok {
			return consensus.InvalidCertificateError{Reason: fmt.Sprintf("voter %q is not in the validator set", v.Voter)}
		}

		bytes := scheme.VoteSignBytes(v, chainID)
		if !validator.PubKey.Verify(bytes, sv.Signature) {
			return consensus.InvalidCertificateError{Reason: fmt.Sprintf("signature from %q does not verify", v.Voter)}
		}

		power += validator.VotingPower
	}

	if total := vs.TotalVotingPower(); power*3 <= total*2 {
		return consensus.InvalidCertificateError{Reason: fmt.Sprintf("commit power %d does not exceed 2/3 of total %d", power, total)}
	}
	return nil
}
