package freshness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testThresholds() Thresholds {
	return Thresholds{FreshMaxAgeMS: 5000, TooStaleMaxAgeMS: 30000}
}

func TestClassifyMissingWhenNeverSeen(t *testing.T) {
	assert.Equal(t, Missing, Classify(testThresholds(), 0, 100000))
}

func TestClassifyFreshStaleTooStale(t *testing.T) {
	th := testThresholds()
	assert.Equal(t, Fresh, Classify(th, 100000, 102000))
	assert.Equal(t, Stale, Classify(th, 100000, 120000))
	assert.Equal(t, TooStale, Classify(th, 100000, 999999))
}

func TestClassifyClockBackstepIsFresh(t *testing.T) {
	assert.Equal(t, Fresh, Classify(testThresholds(), 100000, 50000))
}

func TestEvaluateAssignsStableReasonCodes(t *testing.T) {
	heads := []Head{
		{Name: "checkpoint", Thresholds: testThresholds(), LastSeenMS: 100000},
		{Name: "revocation", Thresholds: testThresholds(), LastSeenMS: 0},
	}
	statuses := Evaluate(heads, 120000)
	assert.Equal(t, Stale, statuses[0].Level)
	assert.Equal(t, "FCP-1001", statuses[0].ReasonCode)
	assert.Equal(t, Missing, statuses[1].Level)
	assert.Equal(t, "FCP-1013", statuses[1].ReasonCode)
}

func TestIsDegradedOnAnyStaleHead(t *testing.T) {
	statuses := []Status{{Name: "checkpoint", Level: Fresh}, {Name: "revocation", Level: Stale}}
	assert.True(t, IsDegraded(DegradedInput{Statuses: statuses}))
}

func TestIsDegradedAllFreshIsNotDegraded(t *testing.T) {
	statuses := []Status{{Name: "checkpoint", Level: Fresh}, {Name: "revocation", Level: Fresh}}
	assert.False(t, IsDegraded(DegradedInput{Statuses: statuses}))
}

func TestIsDegradedOnTransportOrCoverage(t *testing.T) {
	assert.True(t, IsDegraded(DegradedInput{TransportPartiallyDisabled: true}))
	assert.True(t, IsDegraded(DegradedInput{CoverageBelowPolicy: true}))
}

func TestCheckpointAndRevocationFreshDerivation(t *testing.T) {
	statuses := []Status{{Name: "checkpoint", Level: Fresh}, {Name: "revocation", Level: Stale}}
	assert.True(t, CheckpointFresh(statuses))
	assert.False(t, RevocationFresh(statuses))
}
