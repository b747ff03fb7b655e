// Package identity is the boundary collaborator for signature
// verification: the WAL integrity chain's optional signature check
// consumes a Verifier opaquely and never constructs key material
// itself (spec §1, §4.11).
package identity

import "golang.org/x/crypto/ed25519"

// Verifier checks a detached signature over an arbitrary message.
// record.Verifier is structurally identical; this package exists so
// key-loading concerns stay out of record.
type Verifier interface {
	Verify(message, signature []byte) bool
}

// DevEd25519Verifier is a development-only ed25519 verifier. It does
// NOT load key material from any external PKI and exists only to
// unblock early integration of the integrity chain's signature path.
type DevEd25519Verifier struct {
	PublicKey ed25519.PublicKey
}

// NewDevEd25519Verifier wraps pub for use as a Verifier.
func NewDevEd25519Verifier(pub ed25519.PublicKey) DevEd25519Verifier {
	return DevEd25519Verifier{PublicKey: pub}
}

// Verify reports whether signature is a valid ed25519 signature of
// message under the wrapped public key.
func (v DevEd25519Verifier) Verify(message, signature []byte) bool {
	if len(v.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(v.PublicKey, message, signature)
}
