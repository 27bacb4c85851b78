// Package jwttest builds session tokens for tests. Tokens are HS256-signed
// with a fixed key; the console never verifies signatures, so any key works.
package jwttest

import (
	"testing"
	"time"

	sessionjwt "admin-console/internal/pkg/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var signingKey = []byte("jwttest-signing-key")

// Token returns a signed token for the given identity, valid for an hour.
func Token(t testing.TB, userID, role string, state sessionjwt.State, hook string) string {
	t.Helper()
	now := time.Now()
	return Sign(t, &sessionjwt.Claims{
		UserID: userID,
		Role:   role,
		State:  state,
		Hook:   hook,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(time.Hour)),
			ID:        ulid.Make().String(),
		},
	})
}

// Admin returns an ACTIVE admin token.
func Admin(t testing.TB) string {
	t.Helper()
	return Token(t, "admin-1", sessionjwt.RoleAdmin, sessionjwt.StateActive, "")
}

// Sign signs arbitrary claims. Use it for tokens with missing claims.
func Sign(t testing.TB, claims gojwt.Claims) string {
	t.Helper()
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
