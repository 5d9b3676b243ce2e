package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionAllowsWhenTrue(t *testing.T) {
	ext, err := NewExtension(`input["hour"] >= 9 && input["hour"] <= 17`)
	require.NoError(t, err)

	receipt, err := SimulateWithExtension(baseInput(), ext, map[string]interface{}{"hour": 12})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, receipt.Decision)
}

func TestExtensionDeniesWhenFalse(t *testing.T) {
	ext, err := NewExtension(`input["hour"] >= 9 && input["hour"] <= 17`)
	require.NoError(t, err)

	receipt, err := SimulateWithExtension(baseInput(), ext, map[string]interface{}{"hour": 22})
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, receipt.Decision)
	assert.Equal(t, ReasonZonePolicyCapabilityDenied, receipt.ReasonCode)
}

func TestExtensionNilLeavesDecisionUnchanged(t *testing.T) {
	receipt, err := SimulateWithExtension(baseInput(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, receipt.Decision)
}

func TestNewExtensionRejectsInvalidExpression(t *testing.T) {
	_, err := NewExtension(`this is not valid cel (((`)
	assert.Error(t, err)
}
