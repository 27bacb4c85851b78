// internal/pkg/jwt/decoder.go
package jwt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDecode is returned for malformed tokens and tokens missing a required
// claim.
var ErrDecode = errors.New("cannot decode session token")

var parser = jwt.NewParser()

// Decode reads the claims of a bearer token. The signature is not verified:
// the issuer verifies its own tokens on every call, the console only reads
// them to decide where to navigate.
func Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrDecode)
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !claims.IsValid() {
		return nil, fmt.Errorf("%w: missing user id, role or state", ErrDecode)
	}
	return claims, nil
}

// Resolve is Decode for call sites that treat an invalid token exactly like
// no token. It returns nil in both cases.
func Resolve(raw string) *Claims {
	claims, err := Decode(raw)
	if err != nil {
		return nil
	}
	return claims
}
