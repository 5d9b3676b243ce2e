package approval

import (
	"sync"
	"time"

	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

// MemoryStore is an in-memory Store, single-locked so Consume serializes
// every redemption attempt: concurrent presentations of the same code race
// on the same mutex and exactly one observes the unconsumed row.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*Token // keyed by CodeHash
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*Token)}
}

func (s *MemoryStore) activeCount(zone zoneid.ZoneID, now time.Time) int {
	n := 0
	for _, t := range s.tokens {
		if t.Scope.ZoneID != zone || t.Consumed {
			continue
		}
		if !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now) {
			continue
		}
		n++
	}
	return n
}

// Insert implements Store.
func (s *MemoryStore) Insert(tok Token, maxActiveTokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxActiveTokens > 0 && s.activeCount(tok.Scope.ZoneID, time.Now()) >= maxActiveTokens {
		return ErrTooManyActiveTokens
	}
	cp := tok
	s.tokens[tok.CodeHash] = &cp
	return nil
}

func scopeMatches(a, b Scope) bool {
	return a.ZoneID == b.ZoneID &&
		a.ActionKind == b.ActionKind &&
		a.PaneID == b.PaneID &&
		a.ActionFingerprint == b.ActionFingerprint
}

// Consume implements Store's four-step redemption contract.
func (s *MemoryStore) Consume(req ConsumeRequest, now time.Time, audit AuditSink) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := HashCode(req.Code)
	row, ok := s.tokens[h]
	if !ok || row.Consumed || !scopeMatches(row.Scope, req.Scope) {
		return nil, nil
	}

	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.After(now) {
		row.Consumed = true // expired rows are invalidated in place
		return nil, nil
	}

	if row.Kind == KindPlanBound && row.PlanHash != req.PlanHash {
		row.Consumed = true // plan drift after approval: treat as TOCTOU, invalidate
		return nil, nil
	}

	row.Consumed = true
	result := *row

	if audit != nil {
		if err := audit.RecordConsumption(result, req.CorrelationID, req.DecisionContext); err != nil {
			// The mutation above already happened under the same lock the
			// audit write depends on; a failing sink must not leave the
			// token silently re-redeemable, so surface the error but keep
			// the row consumed.
			return nil, err
		}
	}

	return &result, nil
}
