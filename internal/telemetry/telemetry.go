// Package telemetry wires up the ambient OpenTelemetry tracer and meter
// used to observe zone component calls (audit appends, policy
// simulations) without coupling those packages themselves to a specific
// exporter.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/flywheel-mesh/zonemesh"

// Provider holds a process-local tracer provider. With no span processor
// registered it is a safe, zero-configuration default: spans are created
// and discarded. A host process that wants real export registers its own
// processor on the *sdktrace.TracerProvider before calling SetGlobal.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New constructs a Provider. Callers that want OTLP (or any other)
// export register a BatchSpanProcessor on Raw() before the process
// starts handling requests.
func New() *Provider {
	return &Provider{tp: sdktrace.NewTracerProvider()}
}

// Raw exposes the underlying SDK provider so a host process can attach
// exporters/processors.
func (p *Provider) Raw() *sdktrace.TracerProvider { return p.tp }

// SetGlobal installs this provider as the process-wide otel default so
// Tracer() below picks it up.
func (p *Provider) SetGlobal() { otel.SetTracerProvider(p.tp) }

// Shutdown flushes and releases the provider's resources.
func (p *Provider) Shutdown(ctx context.Context) error { return p.tp.Shutdown(ctx) }

// Tracer returns the zone mesh's named tracer from whichever provider is
// currently installed globally (the zero-configuration Provider above, or
// a host-installed one).
func Tracer() trace.Tracer { return otel.Tracer(instrumentationName) }

// Meter returns the zone mesh's named meter.
func Meter() metric.Meter { return otel.Meter(instrumentationName) }

// ZoneAttr is the common span/metric attribute for scoping an observation
// to a single zone.
func ZoneAttr(zone string) attribute.KeyValue { return attribute.String("zone.id", zone) }
