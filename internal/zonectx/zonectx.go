// Package zonectx assembles, per zone, the concrete component instances a
// node needs to evaluate policy, track budgets, and append audit records.
// A process hosting multiple zones holds one Context per zone.
package zonectx

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/flywheel-mesh/zonemesh/internal/clock"
	"github.com/flywheel-mesh/zonemesh/internal/redact"
	"github.com/flywheel-mesh/zonemesh/internal/telemetry"
	"github.com/flywheel-mesh/zonemesh/pkg/approval"
	"github.com/flywheel-mesh/zonemesh/pkg/audit"
	"github.com/flywheel-mesh/zonemesh/pkg/budget"
	"github.com/flywheel-mesh/zonemesh/pkg/capability"
	"github.com/flywheel-mesh/zonemesh/pkg/cryptosign"
	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

// Context holds one zone's live component instances. Every field is owned
// by this zone alone; nothing here is shared across zones or read from a
// package-level variable.
type Context struct {
	Zone zoneid.ZoneID

	Clock    clock.Clock
	Redactor redact.Redactor
	Signer   cryptosign.Signer

	CapabilityGraph *capability.MapGraph
	ApprovalStore   approval.Store
	BudgetEngine    *budget.Engine
	AuditLog        *audit.Log

	Tracer trace.Tracer
}

// Option customizes a Context built by New.
type Option func(*Context)

// WithClock overrides the default system clock, e.g. with clock.Fixed in tests.
func WithClock(c clock.Clock) Option { return func(ctx *Context) { ctx.Clock = c } }

// WithSigner attaches a signer so audit records and decision receipts are signed.
func WithSigner(s cryptosign.Signer) Option { return func(ctx *Context) { ctx.Signer = s } }

// WithRedactor overrides the default secret-pattern redactor.
func WithRedactor(r redact.Redactor) Option { return func(ctx *Context) { ctx.Redactor = r } }

// WithApprovalStore overrides the default in-memory approval store, e.g.
// with approval.PostgresStore for cross-node deployments.
func WithApprovalStore(s approval.Store) Option { return func(ctx *Context) { ctx.ApprovalStore = s } }

// New assembles a fresh Context for zone with sensible single-node
// in-memory defaults, applying opts in order.
func New(zone zoneid.ZoneID, opts ...Option) *Context {
	ctx := &Context{
		Zone:            zone,
		Clock:           clock.System{},
		Redactor:        redact.Default(),
		CapabilityGraph: capability.NewMapGraph(),
		ApprovalStore:   approval.NewMemoryStore(),
		BudgetEngine:    budget.NewEngine(),
		Tracer:          telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	ctx.AuditLog = audit.NewLog(ctx.Redactor, ctx.Signer)
	return ctx
}

// AppendAudit wraps AuditLog.Append in a trace span tagged with the zone,
// so an operator with a tracing backend attached can see audit writes on
// the same timeline as the policy decisions that triggered them.
func (c *Context) AppendAudit(ctx context.Context, e audit.Entry) (audit.Record, error) {
	_, span := c.Tracer.Start(ctx, "zonectx.append_audit")
	defer span.End()
	span.SetAttributes(telemetry.ZoneAttr(string(c.Zone)))
	return c.AuditLog.Append(e)
}
