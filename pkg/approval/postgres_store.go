package approval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store against a "approval_tokens" table,
// linearizing Consume with a row-level lock so at most one concurrent
// presentation of the same code wins even across nodes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert implements Store.
func (s *PostgresStore) Insert(tok Token, maxActiveTokens int) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("approval: begin insert tx: %w", err)
	}
	defer tx.Rollback()

	if maxActiveTokens > 0 {
		var active int
		err := tx.QueryRowContext(ctx, `
			SELECT count(*) FROM approval_tokens
			WHERE zone_id = $1 AND consumed = false AND expires_at > now()
		`, string(tok.Scope.ZoneID)).Scan(&active)
		if err != nil {
			return fmt.Errorf("approval: count active tokens: %w", err)
		}
		if active >= maxActiveTokens {
			return ErrTooManyActiveTokens
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO approval_tokens
			(code_hash, zone_id, action_kind, pane_id, action_fingerprint, kind, plan_hash, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
	`, tok.CodeHash, string(tok.Scope.ZoneID), tok.Scope.ActionKind, tok.Scope.PaneID,
		tok.Scope.ActionFingerprint, string(tok.Kind), tok.PlanHash, tok.ExpiresAt)
	if err != nil {
		return fmt.Errorf("approval: insert token: %w", err)
	}

	return tx.Commit()
}

// Consume implements Store's four-step redemption contract against
// PostgreSQL, using SELECT ... FOR UPDATE so a second concurrent
// transaction blocks until the first one commits its consumption.
func (s *PostgresStore) Consume(req ConsumeRequest, now time.Time, audit AuditSink) (*Token, error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("approval: begin consume tx: %w", err)
	}
	defer tx.Rollback()

	h := HashCode(req.Code)
	var row Token
	var expiresAt time.Time
	var consumed bool
	err = tx.QueryRowContext(ctx, `
		SELECT code_hash, zone_id, action_kind, pane_id, action_fingerprint, kind, plan_hash, expires_at, consumed
		FROM approval_tokens
		WHERE code_hash = $1 AND zone_id = $2 AND action_kind = $3 AND pane_id = $4 AND action_fingerprint = $5
		FOR UPDATE
	`, h, string(req.Scope.ZoneID), req.Scope.ActionKind, req.Scope.PaneID, req.Scope.ActionFingerprint).Scan(
		&row.CodeHash, (*string)(&row.Scope.ZoneID), &row.Scope.ActionKind, &row.Scope.PaneID,
		&row.Scope.ActionFingerprint, (*string)(&row.Kind), &row.PlanHash, &expiresAt, &consumed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("approval: lookup token: %w", err)
	}
	row.ExpiresAt = expiresAt
	row.Consumed = consumed

	if row.Consumed {
		return nil, nil
	}

	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.After(now) {
		if _, err := tx.ExecContext(ctx, `UPDATE approval_tokens SET consumed = true WHERE code_hash = $1`, h); err != nil {
			return nil, fmt.Errorf("approval: invalidate expired token: %w", err)
		}
		return nil, tx.Commit()
	}

	if row.Kind == KindPlanBound && row.PlanHash != req.PlanHash {
		if _, err := tx.ExecContext(ctx, `UPDATE approval_tokens SET consumed = true WHERE code_hash = $1`, h); err != nil {
			return nil, fmt.Errorf("approval: invalidate plan-drifted token: %w", err)
		}
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE approval_tokens SET consumed = true WHERE code_hash = $1`, h); err != nil {
		return nil, fmt.Errorf("approval: mark consumed: %w", err)
	}

	if audit != nil {
		if err := audit.RecordConsumption(row, req.CorrelationID, req.DecisionContext); err != nil {
			return nil, fmt.Errorf("approval: record consumption audit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("approval: commit consume tx: %w", err)
	}

	result := row
	return &result, nil
}

var _ Store = (*PostgresStore)(nil)
