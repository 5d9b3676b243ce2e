package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderStartsAndEndsSpans(t *testing.T) {
	p := New()
	p.SetGlobal()
	defer func() { require.NoError(t, p.Shutdown(context.Background())) }()

	_, span := Tracer().Start(context.Background(), "test.span")
	span.SetAttributes(ZoneAttr("z:work"))
	span.End()

	assert.NotNil(t, Meter())
}

func TestZoneAttrCarriesZoneID(t *testing.T) {
	attr := ZoneAttr("z:work")
	assert.Equal(t, "zone.id", string(attr.Key))
	assert.Equal(t, "z:work", attr.Value.AsString())
}
