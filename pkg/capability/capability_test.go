package capability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

func TestObjectHasGrantOperationScoped(t *testing.T) {
	obj := Object{
		Grants: []Grant{
			{Capability: "connector.invoke", Operation: "read"},
		},
	}
	assert.True(t, obj.HasGrant("connector.invoke", "read"))
	assert.False(t, obj.HasGrant("connector.invoke", "write"))
	assert.False(t, obj.HasGrant("connector.other", "read"))
}

func TestObjectHasGrantUnscoped(t *testing.T) {
	obj := Object{Grants: []Grant{{Capability: "connector.invoke"}}}
	assert.True(t, obj.HasGrant("connector.invoke", "read"))
	assert.True(t, obj.HasGrant("connector.invoke", "write"))
}

func TestObjectValidWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	obj := Object{Constraints: Constraints{ValidFrom: from, ValidUntil: until}}

	assert.False(t, obj.Valid(from.Add(-time.Second)))
	assert.True(t, obj.Valid(from.Add(time.Hour)))
	assert.False(t, obj.Valid(until.Add(time.Second)))
}

func TestTokenExpired(t *testing.T) {
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := Token{ExpiresAt: exp}
	assert.False(t, tok.Expired(exp.Add(-time.Minute)))
	assert.True(t, tok.Expired(exp.Add(time.Minute)))

	noExp := Token{}
	assert.False(t, noExp.Expired(exp.Add(24*time.Hour)))
}

func TestHolderProofBinds(t *testing.T) {
	var rid zoneid.RequestID
	rid[0] = 7
	h := HolderProof{RequestID: rid, DeadlineMS: 1000}
	assert.True(t, h.Binds(rid, 1000))
	assert.False(t, h.Binds(rid, 1001))

	var other zoneid.RequestID
	other[0] = 9
	assert.False(t, h.Binds(other, 1000))
}

func TestMatchPatternWildcardSegment(t *testing.T) {
	assert.True(t, MatchPattern("connector:*", "connector:test"))
	assert.False(t, MatchPattern("connector:*", "connector:test:v1"))
	assert.True(t, MatchPattern("connector:test:*", "connector:test:v1"))
	assert.False(t, MatchPattern("connector:test:*", "connector:other:v1"))
	assert.True(t, MatchPattern("*:*", "connector:test"))
}

func TestMatchAnyReturnsMatchingPattern(t *testing.T) {
	matched, pattern := MatchAny([]string{"vendor:*", "connector:*"}, "connector:acme")
	assert.True(t, matched)
	assert.Equal(t, "connector:*", pattern)

	matched, _ = MatchAny([]string{"vendor:*"}, "connector:acme")
	assert.False(t, matched)
}

func TestVerifyDeniesExpiredToken(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tok := Token{ExpiresAt: now.Add(-time.Minute)}
	result := Verify(NewMapGraph(), tok, "read", nil, now)
	require.False(t, result.OK)
	assert.Equal(t, "TokenExpired", result.DenyReason)
}

func TestVerifyDeniesUnresolvedObject(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tok := Token{Zone: "z:zone-a", ObjectID: zoneid.ObjectID{1}, ExpiresAt: now.Add(time.Hour)}
	result := Verify(NewMapGraph(), tok, "read", nil, now)
	require.False(t, result.OK)
	assert.Equal(t, "CapabilityObjectUnresolved", result.DenyReason)
}

func TestVerifyDeniesInsufficientGrant(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	objID := zoneid.ObjectID{2}
	graph := NewMapGraph()
	graph.Put(Object{
		ID:     objID,
		Zone:   "z:zone-a",
		Grants: []Grant{{Capability: "connector.invoke"}},
	})
	tok := Token{Zone: "z:zone-a", ObjectID: objID, Scope: "connector.other", ExpiresAt: now.Add(time.Hour)}
	result := Verify(graph, tok, "read", nil, now)
	require.False(t, result.OK)
	assert.Equal(t, "CapabilityInsufficient", result.DenyReason)
}

func TestVerifyDeniesOutsideCeiling(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	objID := zoneid.ObjectID{3}
	graph := NewMapGraph()
	graph.Put(Object{
		ID:     objID,
		Zone:   "z:zone-a",
		Grants: []Grant{{Capability: "connector.invoke.write"}},
	})
	tok := Token{Zone: "z:zone-a", ObjectID: objID, Scope: "connector.invoke.write", ExpiresAt: now.Add(time.Hour)}
	result := Verify(graph, tok, "", []zoneid.CapabilityID{"connector.read"}, now)
	require.False(t, result.OK)
	assert.Equal(t, "CapabilityInsufficient", result.DenyReason)
}

func TestVerifyAllowsWithinCeiling(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	objID := zoneid.ObjectID{4}
	graph := NewMapGraph()
	graph.Put(Object{
		ID:     objID,
		Zone:   "z:zone-a",
		Grants: []Grant{{Capability: "connector.invoke.write"}},
	})
	tok := Token{Zone: "z:zone-a", ObjectID: objID, Scope: "connector.invoke.write", ExpiresAt: now.Add(time.Hour)}
	result := Verify(graph, tok, "", []zoneid.CapabilityID{"connector.invoke"}, now)
	require.True(t, result.OK)
	assert.Equal(t, objID.String(), result.Evidence)
}
