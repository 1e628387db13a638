package consensus

import "golang.org/x/crypto/blake2b"

// BytesValue is the default [Value] implementation: an opaque payload
// whose ID is its blake2b-256 digest. Applications with a richer value
// type (e.g. a structured block) can implement Value directly and use
// whatever hash they already compute for the block header.
type BytesValue []byte

func (b BytesValue) ID() ValueID {
	return blake2b.Sum256(b)
}

// HashScheme hashes arbitrary bytes into a ValueID. It is pluggable so
// a host can swap in a different digest (or a domain-separated one)
// without touching the core.
type HashScheme interface {
	Hash(b []byte) ValueID
}

// DefaultHashScheme hashes with blake2b-256, for hosts that need to
// hash something other than a BytesValue (e.g. deriving a
// PubKeyHash-style digest over a validator set for display/debugging).
type DefaultHashScheme struct{}

func (DefaultHashScheme) Hash(b []byte) ValueID {
	return blake2b.Sum256(b)
}
