// internal/domain/auth/dto.go
package auth

// SigninRequest is sent to POST /authentication/signin
type SigninRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SigninResponse from the authentication service. Exactly one of the two
// fields is meaningful.
type SigninResponse struct {
	Token           *string `json:"token"`
	TwoFactorAuthID *string `json:"twoFactorAuthId"`
}

// TwoFactorRequest confirms a pending second factor
type TwoFactorRequest struct {
	TwoFactorAuthID string `json:"twoFactorAuthId"`
	Code            string `json:"code" binding:"required"`
}

// RegisterAdminRequest creates the first administrator of an
// uninitialized system
type RegisterAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// InvitationRequest accepts an invitation sent by an administrator
type InvitationRequest struct {
	Invitation string `json:"invitation" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
}

// ConfirmEmailRequest completes email confirmation of a PENDING account
type ConfirmEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// TokenResponse is returned by every endpoint issuing a session token
type TokenResponse struct {
	Token string `json:"token"`
}
