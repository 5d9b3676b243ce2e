package canonical

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// FieldSpec names one field of a registered schema: its wire name and its
// declared type tag (e.g. "string", "u64", "bytes32", "bool", "[]string").
// Floats are intentionally not a representable type tag: a canonical hash
// must never depend on a float's platform-specific textual rendering.
type FieldSpec struct {
	Name string
	Type string
}

// Schema is a registered, versioned record shape. SchemaHash is derived from
// (Namespace, Name, Version) plus the ordered field list, so it changes
// whenever the wire shape changes — callers MUST bump Version rather than
// silently widening a shape.
type Schema struct {
	Namespace string
	Name      string
	Version   uint32
	Fields    []FieldSpec
}

// ID returns the schema's (namespace, name, version) triple as a stable string.
func (s Schema) ID() string {
	return fmt.Sprintf("%s.%s.v%d", s.Namespace, s.Name, s.Version)
}

// Hash derives the schema hash: SHA-256 over the canonical CBOR encoding of
// the schema's identity and ordered field list. Two schemas with identical
// (namespace, name, version, fields) always hash identically, independent of
// field declaration order in source — the encoding sorts fields by name.
func (s Schema) Hash() (string, error) {
	fields := make([]FieldSpec, len(s.Fields))
	copy(fields, s.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	type wire struct {
		Namespace string      `cbor:"1,keyasint"`
		Name      string      `cbor:"2,keyasint"`
		Version   uint32      `cbor:"3,keyasint"`
		Fields    []FieldSpec `cbor:"4,keyasint"`
	}

	opts := cbor.CanonicalEncOptions()
	enc, err := opts.EncMode()
	if err != nil {
		return "", fmt.Errorf("canonical: cbor enc mode: %w", err)
	}
	b, err := enc.Marshal(wire{s.Namespace, s.Name, s.Version, fields})
	if err != nil {
		return "", fmt.Errorf("canonical: cbor marshal schema: %w", err)
	}
	return HashBytes(b), nil
}

// CanonicalCBOR returns the canonical (RFC 7049 §3.9 / core deterministic)
// CBOR encoding of v, used to produce the conformance-vector
// canonical_cbor_of_sample for a registered schema.
func CanonicalCBOR(v interface{}) ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	enc, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("canonical: cbor enc mode: %w", err)
	}
	b, err := enc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: cbor marshal: %w", err)
	}
	return b, nil
}

// Registry holds the set of schemas pinned for conformance checking.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register adds a schema to the registry, keyed by its ID. Re-registering the
// same ID with a different field list is an error: schema identity must be
// immutable once published.
func (r *Registry) Register(s Schema) error {
	if existing, ok := r.schemas[s.ID()]; ok {
		eh, _ := existing.Hash()
		nh, _ := s.Hash()
		if eh != nh {
			return fmt.Errorf("canonical: schema %s already registered with a different shape", s.ID())
		}
		return nil
	}
	r.schemas[s.ID()] = s
	return nil
}

// Get looks up a schema by its ID.
func (r *Registry) Get(id string) (Schema, bool) {
	s, ok := r.schemas[id]
	return s, ok
}

// Vector is one conformance vector: a schema paired with a pinned sample and
// its expected canonical CBOR bytes and schema hash.
type Vector struct {
	SchemaID           string
	SchemaHash         string
	Sample             interface{}
	CanonicalCBORBytes []byte
}

// Verify recomputes the schema hash and canonical CBOR of v.Sample and
// reports whether they match the pinned vector, byte-for-byte.
func (r *Registry) Verify(v Vector) (bool, error) {
	s, ok := r.Get(v.SchemaID)
	if !ok {
		return false, fmt.Errorf("canonical: unknown schema %s", v.SchemaID)
	}
	h, err := s.Hash()
	if err != nil {
		return false, err
	}
	if h != v.SchemaHash {
		return false, nil
	}
	enc, err := CanonicalCBOR(v.Sample)
	if err != nil {
		return false, err
	}
	if len(enc) != len(v.CanonicalCBORBytes) {
		return false, nil
	}
	for i := range enc {
		if enc[i] != v.CanonicalCBORBytes[i] {
			return false, nil
		}
	}
	return true, nil
}
