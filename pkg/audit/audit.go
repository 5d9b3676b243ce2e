// Package audit implements the mesh's append-only, hash-chained audit and
// decision-receipt log. Every record chains onto its predecessor within a
// zone and may carry a detached signature; redaction is applied to
// free-form fields before a record is ever persisted.
package audit

import (
	"fmt"

	"github.com/flywheel-mesh/zonemesh/internal/redact"
	"github.com/flywheel-mesh/zonemesh/pkg/canonical"
	"github.com/flywheel-mesh/zonemesh/pkg/cryptosign"
)

// Record is one append-only audit entry.
type Record struct {
	Seq             uint64 `json:"seq"`
	PrevHash        string `json:"prev_hash"`
	Actor           string `json:"actor"`
	Zone            string `json:"zone"`
	Connector       string `json:"connector,omitempty"`
	Operation       string `json:"operation,omitempty"`
	CapabilityJTI   string `json:"capability_jti,omitempty"`
	RequestObject   string `json:"request_object,omitempty"`
	Correlation     string `json:"correlation"`
	OccurredAtMS    uint64 `json:"occurred_at"`
	Redacted        bool   `json:"redacted"`
	Note            string `json:"note,omitempty"`
	RecordHash      string `json:"record_hash"`
	SignatureKeyID  string `json:"signature_key_id,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

// hashableFields is the subset of a Record hashed into RecordHash and chained
// into the next record's PrevHash. RecordHash and Signature are themselves
// excluded: they are computed from, not part of, the chained payload.
type hashableFields struct {
	Seq           uint64 `json:"seq"`
	PrevHash      string `json:"prev_hash"`
	Actor         string `json:"actor"`
	Zone          string `json:"zone"`
	Connector     string `json:"connector,omitempty"`
	Operation     string `json:"operation,omitempty"`
	CapabilityJTI string `json:"capability_jti,omitempty"`
	RequestObject string `json:"request_object,omitempty"`
	Correlation   string `json:"correlation"`
	OccurredAtMS  uint64 `json:"occurred_at"`
	Redacted      bool   `json:"redacted"`
	Note          string `json:"note,omitempty"`
}

func canonicalHash(r Record) (string, error) {
	h, err := canonical.HashJSON(hashableFields{
		Seq:           r.Seq,
		PrevHash:      r.PrevHash,
		Actor:         r.Actor,
		Zone:          r.Zone,
		Connector:     r.Connector,
		Operation:     r.Operation,
		CapabilityJTI: r.CapabilityJTI,
		RequestObject: r.RequestObject,
		Correlation:   r.Correlation,
		OccurredAtMS:  r.OccurredAtMS,
		Redacted:      r.Redacted,
		Note:          r.Note,
	})
	if err != nil {
		return "", fmt.Errorf("audit: hash record: %w", err)
	}
	return h, nil
}

// GenesisHash is prev_hash for the first record in a zone's chain.
const GenesisHash = "genesis"

// Entry is the caller-supplied content for one new audit record; Seq,
// PrevHash, RecordHash, and Signature are filled in by the Log.
type Entry struct {
	Actor         string
	Zone          string
	Connector     string
	Operation     string
	CapabilityJTI string
	RequestObject string
	Correlation   string
	OccurredAtMS  uint64
	Note          string
}

// Log is an in-memory, append-only, hash-chained, optionally-signed audit
// log for a single zone. Redaction runs over every free-form field (Note,
// RequestObject) before the record is hashed, chained, or signed — no raw
// input crosses the persistence boundary.
type Log struct {
	redactor cryptosignRedactor
	signer   cryptosign.Signer // may be nil: unsigned records are still chained
	seq      uint64
	head     string
	records  []Record
}

// cryptosignRedactor is the subset of redact.Redactor the log needs; named
// locally so Log does not force every caller to import internal/redact.
type cryptosignRedactor interface {
	Redact(s string) string
}

// NewLog creates an empty log. redactor must not be nil; pass
// redact.Default() for the mesh's standard secret patterns. signer may be
// nil when records need chaining but not signing (e.g. tests).
func NewLog(redactor cryptosignRedactor, signer cryptosign.Signer) *Log {
	if redactor == nil {
		redactor = redact.Default()
	}
	return &Log{redactor: redactor, signer: signer, head: GenesisHash}
}

// Append redacts e's free-form fields, computes the next sequence number,
// chains onto the current head, signs (if a signer is configured), and
// stores the resulting Record. Returns the stored record.
func (l *Log) Append(e Entry) (Record, error) {
	l.seq++
	r := Record{
		Seq:           l.seq,
		PrevHash:      l.head,
		Actor:         e.Actor,
		Zone:          e.Zone,
		Connector:     e.Connector,
		Operation:     e.Operation,
		CapabilityJTI: e.CapabilityJTI,
		RequestObject: l.redactor.Redact(e.RequestObject),
		Correlation:   e.Correlation,
		OccurredAtMS:  e.OccurredAtMS,
		Note:          l.redactor.Redact(e.Note),
	}
	r.Redacted = r.RequestObject != e.RequestObject || r.Note != e.Note

	hash, err := canonicalHash(r)
	if err != nil {
		l.seq--
		return Record{}, err
	}
	r.RecordHash = hash

	if l.signer != nil {
		sig, err := l.signer.Sign([]byte(hash))
		if err != nil {
			l.seq--
			return Record{}, fmt.Errorf("audit: sign record: %w", err)
		}
		r.Signature = sig
		r.SignatureKeyID = l.signer.KeyID()
	}

	l.head = r.RecordHash
	l.records = append(l.records, r)
	return r, nil
}

// Head returns the current chain head hash.
func (l *Log) Head() string { return l.head }

// Len returns the number of records appended so far.
func (l *Log) Len() int { return len(l.records) }

// Records returns a copy of every record appended so far, in order.
func (l *Log) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// VerifyChain checks the hash chain over records: each record's prev_hash must equal
// the canonical hash of its predecessor, and each record's own recorded
// hash must match a fresh recomputation.
func VerifyChain(records []Record) error {
	expectedPrev := GenesisHash
	for _, r := range records {
		if r.PrevHash != expectedPrev {
			return fmt.Errorf("audit: chain broken at seq %d: prev_hash %q, expected %q", r.Seq, r.PrevHash, expectedPrev)
		}
		computed, err := canonicalHash(r)
		if err != nil {
			return fmt.Errorf("audit: recompute hash at seq %d: %w", r.Seq, err)
		}
		if computed != r.RecordHash {
			return fmt.Errorf("audit: hash mismatch at seq %d: stored %q, computed %q", r.Seq, r.RecordHash, computed)
		}
		expectedPrev = r.RecordHash
	}
	return nil
}
