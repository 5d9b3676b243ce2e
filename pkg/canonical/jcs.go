// Package canonical provides deterministic byte encodings for records that
// can be hashed, signed, or used as an approval/plan fingerprint: RFC 8785
// JSON canonicalization for textual digests, canonical CBOR for the schema
// conformance vectors, and a schema-hash registry keyed by
// (namespace, name, version).
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JSON returns the RFC 8785 canonical JSON encoding of v: object members
// sorted lexicographically by UTF-8 bytes, no insignificant whitespace, no
// HTML escaping. v is first marshalled with the standard encoder (so JSON
// struct tags are honored) and then transformed into canonical form.
func JSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal failed: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform failed: %w", err)
	}
	return out, nil
}

// HashJSON returns the SHA-256 hex digest of the RFC 8785 canonical JSON
// encoding of v. This is the digest pkg/audit uses for audit-record
// chaining.
func HashJSON(v interface{}) (string, error) {
	b, err := JSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the SHA-256 hex digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes a canonical '|'-joined string of scope fields, as used
// by the approval store's action_fingerprint.
func Fingerprint(fields ...string) string {
	joined := ""
	for i, f := range fields {
		if i > 0 {
			joined += "|"
		}
		joined += f
	}
	return HashBytes([]byte(joined))
}
