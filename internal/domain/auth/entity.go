// internal/domain/auth/entity.go
package auth

import (
	"admin-console/internal/pkg/jwt"
)

// SigninResult is what the console does after a sign-in attempt: either a
// session was established, or a second factor is required.
type SigninResult struct {
	Claims          *jwt.Claims
	TwoFactorAuthID string
}

// RequiresTwoFactor reports whether the caller must route to two-factor
// confirmation.
func (r *SigninResult) RequiresTwoFactor() bool {
	return r != nil && r.TwoFactorAuthID != ""
}
