// Package gcrypto provides the signing primitives used by the consensus
// core: public keys, signers, and a pluggable signature scheme used to
// build the bytes that get signed for votes and proposals.
//
// The core never chooses a concrete scheme; it is supplied by the host
// through [consensus.SignatureScheme] and a [Signer].
package gcrypto

import "context"

// PubKey is an opaque, comparable public key.
// Address is the validator address derived from the key
// (typically a hash of PubKeyBytes).
type PubKey interface {
	Address() []byte

	PubKeyBytes() []byte

	Equal(other PubKey) bool

	Verify(msg, sig []byte) bool
}

// Signer produces signatures for this node's own public key.
// The core calls Sign only in response to a SignVote or SignProposal
// effect; it never signs directly.
type Signer interface {
	PubKey() PubKey

	Sign(ctx context.Context, msg []byte) ([]byte, error)
}

// Registry maps a scheme name to constructors for that scheme's PubKey type.
// There is no global registry; callers build one explicitly so that a
// process only accepts the key types it was configured to trust.
type Registry struct {
	byName map[string]func([]byte) (PubKey, error)
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]func([]byte) (PubKey, error))}
}

// Register adds a constructor for the named scheme.
// Register panics if name is already registered, since that indicates
// a programming error in how the registry was assembled.
func (r *Registry) Register(name string, _ PubKey, ctor func([]byte) (PubKey, error)) {
	if _, ok := r.byName[name]; ok {
		panic("gcrypto: duplicate registration for scheme " + name)
	}
	r.byName[name] = ctor
}

// Decode builds a PubKey for the named scheme from its wire bytes.
func (r *Registry) Decode(name string, b []byte) (PubKey, error) {
	ctor, ok := r.byName[name]
	if !ok {
		return nil, UnknownSchemeError{Name: name}
	}
	return ctor(b)
}

// UnknownSchemeError is returned by Registry.Decode for an unregistered scheme name.
type UnknownSchemeError struct {
	Name string
}

func (e UnknownSchemeError) Error() string {
	return "gcrypto: unknown signature scheme " + e.Name
}
