package capability

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flywheel-mesh/zonemesh/pkg/zoneid"
)

// NewJTI generates a fresh token identifier for a capability token being
// issued. Callers that already track their own JTI scheme may ignore it.
func NewJTI() string { return uuid.New().String() }

// tokenClaims is the wire encoding of a Token as a signed JWT: the
// registered claims carry JTI/issuer/expiry, the extra fields carry the
// zone-mesh-specific binding.
type tokenClaims struct {
	jwt.RegisteredClaims
	Zone     zoneid.ZoneID       `json:"zone"`
	ObjectID zoneid.ObjectID     `json:"object_id"`
	Scope    zoneid.CapabilityID `json:"scope,omitempty"`
}

// EncodeJWT signs tok as a compact EdDSA JWT. The Token's own Signature
// field is left untouched by this encoding; callers that only need the
// struct form (e.g. an in-process capability graph) never need it.
func EncodeJWT(tok Token, priv ed25519.PrivateKey) (string, error) {
	jti := tok.JTI
	if jti == "" {
		jti = NewJTI()
	}
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:     jti,
			Issuer: tok.Issuer,
		},
		Zone:     tok.Zone,
		ObjectID: tok.ObjectID,
		Scope:    tok.Scope,
	}
	if !tok.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(tok.ExpiresAt)
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
}

// DecodeJWT parses and verifies a compact EdDSA JWT produced by EncodeJWT,
// returning the reconstructed Token. The Signature field is set to the raw
// compact JWT string so downstream code has a single opaque bearer value to
// pass around.
func DecodeJWT(tokenString string, pub ed25519.PublicKey) (Token, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("capability: unexpected signing method %v", t.Header["alg"])
		}
		return pub, nil
	})
	if err != nil {
		return Token{}, fmt.Errorf("capability: invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Token{}, fmt.Errorf("capability: token claims malformed")
	}

	tok := Token{
		JTI:       claims.ID,
		Issuer:    claims.Issuer,
		Zone:      claims.Zone,
		ObjectID:  claims.ObjectID,
		Scope:     claims.Scope,
		Signature: tokenString,
	}
	if claims.ExpiresAt != nil {
		tok.ExpiresAt = claims.ExpiresAt.Time
	}
	return tok, nil
}
