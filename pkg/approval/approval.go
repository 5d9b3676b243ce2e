// Package approval implements the allow-once approval token store: scope-checked, TOCTOU-safe, single-use redemption with an audit
// record produced atomically with consumption.
package approval

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

// Kind distinguishes the two approval token variants.
type Kind string

const (
	KindExecution Kind = "Execution"
	KindPlanBound Kind = "PlanBound"
)

// Scope is the set of fields a presented code is looked up by. A row not
// matching on any of these behaves as "not found".
type Scope struct {
	ZoneID           zoneid.ZoneID
	ActionKind       string
	PaneID           string // optional; empty means unset
	ActionFingerprint string
}

// Token is one stored approval row.
type Token struct {
	CodeHash  string // hex sha256, the store's primary key
	Scope     Scope
	Kind      Kind
	PlanHash  string // required for KindPlanBound, empty otherwise
	ExpiresAt time.Time
	Consumed  bool
}

// HashCode computes the store's lookup key for a presented code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Fingerprint computes action_fingerprint: a SHA-256 over the canonical
// "|"-joined tuple. Field order is fixed; any differing
// field, notably command_text, yields a different fingerprint and
// therefore a different scope.
func Fingerprint(actionKind, paneID, domain, textSummary, workflowID, commandText, agentType, paneTitle, paneCWD string) string {
	joined := strings.Join([]string{
		actionKind, paneID, domain, textSummary, workflowID, commandText, agentType, paneTitle, paneCWD,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// AuditSink receives a redacted audit record at the moment a token is
// consumed. Emission must be atomic with the consuming mutation — the Store's Consume implementation calls it inside the
// same critical section / transaction it uses to mark the row consumed.
type AuditSink interface {
	RecordConsumption(token Token, correlationID zoneid.CorrelationID, decisionContext string) error
}

// Store is the allow-once token store. Implementations must serialize
// Consume per code hash so that concurrent presentations of the same code
// yield exactly one winner.
type Store interface {
	// Insert adds a new token, rejecting when the zone already holds
	// maxActiveTokens non-expired, non-consumed tokens.
	Insert(tok Token, maxActiveTokens int) error
	// Consume implements the redemption contract. A nil *Token with a nil
	// error means "not found": no mutation occurred.
	Consume(req ConsumeRequest, now time.Time, audit AuditSink) (*Token, error)
}

// ConsumeRequest is the presented redemption attempt.
type ConsumeRequest struct {
	Code            string
	Scope           Scope
	PlanHash        string // presented plan hash; ignored for KindExecution
	CorrelationID   zoneid.CorrelationID
	DecisionContext string
}

var (
	// ErrTooManyActiveTokens is returned by Insert when the zone's active
	// token count has reached maxActiveTokens.
	ErrTooManyActiveTokens = errors.New("approval: max_active_tokens exceeded for zone")
)
