// Package cryptosign implements the mesh's Signer/Verifier external
// contract: sign(bytes) -> Signature, verify(pubkey, bytes,
// sig) -> bool, over ed25519. Within this module, pkg/audit uses it to
// sign audit-record hashes.
package cryptosign

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Signer produces detached hex-encoded ed25519 signatures over arbitrary
// canonical byte payloads.
type Signer interface {
	Sign(data []byte) (string, error)
	KeyID() string
	PublicKeyHex() string
}

// Verifier checks a hex-encoded ed25519 signature over data against the
// public key it was constructed with.
type Verifier interface {
	Verify(sigHex string, data []byte) (bool, error)
}

// Ed25519Signer holds a single ed25519 keypair under a stable key ID.
type Ed25519Signer struct {
	priv  ed25519.PrivateKey
	pub   ed25519.PublicKey
	keyID string
}

// NewEd25519Signer generates a fresh keypair under keyID.
func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptosign: generate key: %w", err)
	}
	return &Ed25519Signer{priv: priv, pub: pub, keyID: keyID}, nil
}

// NewEd25519SignerFromKey wraps an existing private key, e.g. one loaded
// from a zone's key store rather than generated in-process.
func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	return &Ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey), keyID: keyID}
}

// Sign returns a hex-encoded detached signature over data.
func (s *Ed25519Signer) Sign(data []byte) (string, error) {
	return hex.EncodeToString(ed25519.Sign(s.priv, data)), nil
}

// KeyID returns the signer's stable key identifier, carried alongside the
// signature so a verifier can select the matching public key.
func (s *Ed25519Signer) KeyID() string { return s.keyID }

// PublicKeyHex returns the signer's public key, hex-encoded.
func (s *Ed25519Signer) PublicKeyHex() string { return hex.EncodeToString(s.pub) }

// Ed25519Verifier verifies signatures against a fixed ed25519 public key.
type Ed25519Verifier struct {
	pub ed25519.PublicKey
}

var _ Verifier = (*Ed25519Verifier)(nil)

// NewEd25519Verifier parses a hex-encoded public key.
func NewEd25519Verifier(pubKeyHex string) (*Ed25519Verifier, error) {
	raw, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("cryptosign: invalid public key hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("cryptosign: invalid public key size %d", len(raw))
	}
	return &Ed25519Verifier{pub: ed25519.PublicKey(raw)}, nil
}

// Verify checks a hex-encoded signature over data against the verifier's key.
func (v *Ed25519Verifier) Verify(sigHex string, data []byte) (bool, error) {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("cryptosign: invalid signature hex: %w", err)
	}
	return ed25519.Verify(v.pub, data, sig), nil
}

// Verify is the package-level form used when the verifier key arrives
// alongside the payload rather than being held by a long-lived Verifier,
// e.g. validating an unfamiliar zone's audit record during replication.
func Verify(pubKeyHex, sigHex string, data []byte) (bool, error) {
	v, err := NewEd25519Verifier(pubKeyHex)
	if err != nil {
		return false, err
	}
	return v.Verify(sigHex, data)
}
