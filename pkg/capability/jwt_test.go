package capability

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

func TestEncodeDecodeJWTRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	in := Token{
		JTI:       "jti-1",
		Issuer:    "z:work",
		Zone:      zoneid.ZoneID("z:work"),
		Scope:     zoneid.CapabilityID("connector.invoke"),
		ExpiresAt: exp,
	}

	s, err := EncodeJWT(in, priv)
	require.NoError(t, err)
	require.NotEmpty(t, s)

	out, err := DecodeJWT(s, pub)
	require.NoError(t, err)
	assert.Equal(t, in.JTI, out.JTI)
	assert.Equal(t, in.Issuer, out.Issuer)
	assert.Equal(t, in.Zone, out.Zone)
	assert.Equal(t, in.Scope, out.Scope)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.Equal(t, s, out.Signature)
}

func TestDecodeJWTRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s, err := EncodeJWT(Token{JTI: "jti-2"}, priv)
	require.NoError(t, err)

	_, err = DecodeJWT(s, otherPub)
	assert.Error(t, err)
}

func TestDecodeJWTRejectsTamperedToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	s, err := EncodeJWT(Token{JTI: "jti-3"}, priv)
	require.NoError(t, err)

	tampered := s[:len(s)-1] + "x"
	_, err = DecodeJWT(tampered, pub)
	assert.Error(t, err)
}

func TestEncodeJWTAssignsJTIWhenEmpty(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s, err := EncodeJWT(Token{Issuer: "z:work"}, priv)
	require.NoError(t, err)

	out, err := DecodeJWT(s, pub)
	require.NoError(t, err)
	assert.NotEmpty(t, out.JTI)
}

func TestNewJTIProducesDistinctValues(t *testing.T) {
	assert.NotEqual(t, NewJTI(), NewJTI())
}
