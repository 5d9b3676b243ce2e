package cryptosign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)

	payload := []byte("decision-receipt-canonical-bytes")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	ok, err := Verify(signer.PublicKeyHex(), sig, payload)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	ok, err := Verify(signer.PublicKeyHex(), sig, []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)
	other, err := NewEd25519Signer("key-2")
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("payload"))
	require.NoError(t, err)

	ok, err := Verify(other.PublicKeyHex(), sig, []byte("payload"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewEd25519VerifierRejectsBadKeySize(t *testing.T) {
	_, err := NewEd25519Verifier("deadbeef")
	assert.Error(t, err)
}

func TestVerifierFromExistingKey(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)
	v, err := NewEd25519Verifier(signer.PublicKeyHex())
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("hello"))
	require.NoError(t, err)
	ok, err := v.Verify(sig, []byte("hello"))
	require.NoError(t, err)
	assert.True(t, ok)
}
