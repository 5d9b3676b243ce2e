package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/flywheel-mesh/zonemesh/pkg/cryptosign"
)

// PostgresLog persists a zone's hash chain against an "audit_records" table
// plus a one-row-per-zone "audit_zone_heads" table. Append locks the zone's
// head row with SELECT ... FOR UPDATE so concurrent appenders from
// different nodes serialize onto a single chain rather than forking it.
type PostgresLog struct {
	db       *sql.DB
	redactor cryptosignRedactor
	signer   cryptosign.Signer
}

// NewPostgresLog wraps db. redactor and signer behave as in NewLog.
func NewPostgresLog(db *sql.DB, redactor cryptosignRedactor, signer cryptosign.Signer) *PostgresLog {
	return &PostgresLog{db: db, redactor: redactor, signer: signer}
}

// Append redacts, chains, optionally signs, and persists one record for
// zone, returning the stored record.
func (l *PostgresLog) Append(zone string, e Entry) (Record, error) {
	ctx := context.Background()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("audit: begin append tx: %w", err)
	}
	defer tx.Rollback()

	var seq uint64
	var head string
	err = tx.QueryRowContext(ctx, `
		SELECT seq, head FROM audit_zone_heads WHERE zone = $1 FOR UPDATE
	`, zone).Scan(&seq, &head)
	switch {
	case err == sql.ErrNoRows:
		seq, head = 0, GenesisHash
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO audit_zone_heads (zone, seq, head) VALUES ($1, 0, $2)
		`, zone, GenesisHash); err != nil {
			return Record{}, fmt.Errorf("audit: init zone head: %w", err)
		}
	case err != nil:
		return Record{}, fmt.Errorf("audit: lock zone head: %w", err)
	}

	e.Zone = zone
	r := Record{
		Seq:           seq + 1,
		PrevHash:      head,
		Actor:         e.Actor,
		Zone:          zone,
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
		return Record{}, err
	}
	r.RecordHash = hash

	if l.signer != nil {
		sig, err := l.signer.Sign([]byte(hash))
		if err != nil {
			return Record{}, fmt.Errorf("audit: sign record: %w", err)
		}
		r.Signature = sig
		r.SignatureKeyID = l.signer.KeyID()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_records
			(zone, seq, prev_hash, actor, connector, operation, capability_jti,
			 request_object, correlation, occurred_at, redacted, note,
			 record_hash, signature_key_id, signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, zone, r.Seq, r.PrevHash, r.Actor, r.Connector, r.Operation, r.CapabilityJTI,
		r.RequestObject, r.Correlation, r.OccurredAtMS, r.Redacted, r.Note,
		r.RecordHash, r.SignatureKeyID, r.Signature); err != nil {
		return Record{}, fmt.Errorf("audit: insert record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE audit_zone_heads SET seq = $1, head = $2 WHERE zone = $3
	`, r.Seq, r.RecordHash, zone); err != nil {
		return Record{}, fmt.Errorf("audit: update zone head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("audit: commit append tx: %w", err)
	}
	return r, nil
}

// Tail returns the most recent limit records for zone, oldest first.
func (l *PostgresLog) Tail(zone string, limit int) ([]Record, error) {
	ctx := context.Background()
	rows, err := l.db.QueryContext(ctx, `
		SELECT seq, prev_hash, actor, connector, operation, capability_jti,
		       request_object, correlation, occurred_at, redacted, note,
		       record_hash, signature_key_id, signature
		FROM audit_records
		WHERE zone = $1
		ORDER BY seq DESC
		LIMIT $2
	`, zone, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query tail: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Seq, &r.PrevHash, &r.Actor, &r.Connector, &r.Operation,
			&r.CapabilityJTI, &r.RequestObject, &r.Correlation, &r.OccurredAtMS,
			&r.Redacted, &r.Note, &r.RecordHash, &r.SignatureKeyID, &r.Signature); err != nil {
			return nil, fmt.Errorf("audit: scan record: %w", err)
		}
		r.Zone = zone
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate tail: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
