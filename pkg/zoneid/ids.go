// Package zoneid defines the mesh's stable identifiers: zone, connector,
// operation, capability, object, request, and credential addressing.
package zoneid

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ZoneID is a short administrative-boundary token, e.g. "z:work".
type ZoneID string

// Valid reports whether z has the "z:<name>" shape.
func (z ZoneID) Valid() bool {
	s := string(z)
	return strings.HasPrefix(s, "z:") && len(s) > 2
}

func (z ZoneID) String() string { return string(z) }

// Less gives the lexical ordering required by the spec's identifier contract.
func (z ZoneID) Less(other ZoneID) bool { return string(z) < string(other) }

var connectorIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]*(?:\.[a-z0-9][a-z0-9.\-]*)*:[a-z0-9][a-z0-9\-]*:v[0-9]+$`)

// ConnectorID is the triple namespace:name:vN, e.g. "fcp.telegram:messaging:v1".
type ConnectorID struct {
	Namespace string
	Name      string
	Version   uint32
}

// ParseConnectorID parses and validates a connector identifier, rejecting
// any shape other than "ns(.ns)*:name:v<uint>" — notably rejecting URL-like
// prefixes such as "https://".
func ParseConnectorID(s string) (ConnectorID, error) {
	if !connectorIDPattern.MatchString(s) {
		return ConnectorID{}, fmt.Errorf("zoneid: invalid connector id %q", s)
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ConnectorID{}, fmt.Errorf("zoneid: invalid connector id %q", s)
	}
	versionStr := strings.TrimPrefix(parts[2], "v")
	version, err := strconv.ParseUint(versionStr, 10, 32)
	if err != nil {
		return ConnectorID{}, fmt.Errorf("zoneid: invalid connector version %q: %w", parts[2], err)
	}
	return ConnectorID{Namespace: parts[0], Name: parts[1], Version: uint32(version)}, nil
}

func (c ConnectorID) String() string {
	return fmt.Sprintf("%s:%s:v%d", c.Namespace, c.Name, c.Version)
}

var dottedLowerPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// OperationID is a dotted lowercase identifier, immutable once published.
type OperationID string

// Valid reports whether the operation id matches the dotted-lowercase shape.
func (o OperationID) Valid() bool { return dottedLowerPattern.MatchString(string(o)) }

func (o OperationID) String() string { return string(o) }

// CapabilityID is a dotted lowercase identifier, e.g. "cap.vector.upsert".
type CapabilityID string

// Valid reports whether the capability id matches the dotted-lowercase shape.
func (c CapabilityID) Valid() bool { return dottedLowerPattern.MatchString(string(c)) }

func (c CapabilityID) String() string { return string(c) }

// UnderCeiling reports whether c is within the dotted-prefix lattice bound
// by ceiling, i.e. c == ceiling or c is a dotted-prefix-extension of ceiling.
func (c CapabilityID) UnderCeiling(ceiling CapabilityID) bool {
	cs, ps := string(c), string(ceiling)
	if cs == ps {
		return true
	}
	return strings.HasPrefix(cs, ps+".")
}

// CredentialID is an opaque 128-bit identifier; the mesh never holds the secret.
type CredentialID [16]byte

func (c CredentialID) String() string { return hex.EncodeToString(c[:]) }

// NewCredentialID generates a fresh random credential identifier.
func NewCredentialID() (CredentialID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return CredentialID{}, fmt.Errorf("zoneid: generate credential id: %w", err)
	}
	return CredentialID(id), nil
}

// NodeID identifies a mesh node (e.g. a Tailscale-addressed peer).
type NodeID string

func (n NodeID) String() string { return string(n) }

// ObjectID is a 256-bit content address derived from an object's canonical encoding.
type ObjectID [32]byte

func (o ObjectID) String() string { return hex.EncodeToString(o[:]) }

// IsZero reports whether the object id is the zero value (unset).
func (o ObjectID) IsZero() bool { return o == ObjectID{} }

// RequestID is a 128-bit opaque request identifier.
type RequestID [16]byte

func (r RequestID) String() string { return hex.EncodeToString(r[:]) }

// NewRequestID generates a fresh random request identifier.
func NewRequestID() (RequestID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return RequestID{}, fmt.Errorf("zoneid: generate request id: %w", err)
	}
	return RequestID(id), nil
}

// CorrelationID groups cross-component records belonging to one logical operation.
type CorrelationID [16]byte

func (c CorrelationID) String() string { return hex.EncodeToString(c[:]) }

// NewCorrelationID generates a fresh random correlation identifier.
func NewCorrelationID() (CorrelationID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return CorrelationID{}, fmt.Errorf("zoneid: generate correlation id: %w", err)
	}
	return CorrelationID(id), nil
}

// InstanceID identifies a connector instance running on a node.
type InstanceID string

func (i InstanceID) String() string { return string(i) }
