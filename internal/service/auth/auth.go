// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"admin-console/internal/client"
	"admin-console/internal/domain/auth"
	xerrors "admin-console/internal/pkg/errors"
	"admin-console/internal/pkg/jwt"

	"go.uber.org/zap"
)

// AuthService drives the authentication endpoints. Tokens it obtains are
// stored in the credential store carried by ctx (see client.WithCredentials).
// The client it uses must not carry a Recovery: a 401 here means bad
// credentials, not an expired session.
type AuthService struct {
	api    *client.Client
	logger *zap.Logger
}

func NewAuthService(api *client.Client, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{api: api, logger: logger}
}

var _ client.Refresher = (*AuthService)(nil)

// ========== Sign in ==========

// Signin authenticates with email and password. When the backend asks for a
// second factor the result carries its id and no session is established;
// the token field is then never read.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*auth.SigninResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("signin: %w: email and password are required", xerrors.ErrBadRequest)
	}

	var resp auth.SigninResponse
	req := auth.SigninRequest{Email: email, Password: password}
	if err := s.api.Post(ctx, "/authentication/signin", req, &resp); err != nil {
		return nil, fmt.Errorf("signin: %w", err)
	}

	if resp.TwoFactorAuthID != nil && *resp.TwoFactorAuthID != "" {
		s.logger.Info("second factor required", zap.String("two_factor_id", *resp.TwoFactorAuthID))
		return &auth.SigninResult{TwoFactorAuthID: *resp.TwoFactorAuthID}, nil
	}
	if resp.Token == nil || *resp.Token == "" {
		return nil, fmt.Errorf("signin: %w: neither token nor twoFactorAuthId", xerrors.ErrInvalidResponse)
	}

	claims, err := s.establish(ctx, *resp.Token)
	if err != nil {
		return nil, fmt.Errorf("signin: %w", err)
	}
	s.logger.Info("signed in", zap.String("user_id", claims.UserID), zap.String("role", claims.Role))
	return &auth.SigninResult{Claims: claims}, nil
}

// ConfirmTwoFactor completes a sign-in that required a second factor.
func (s *AuthService) ConfirmTwoFactor(ctx context.Context, twoFactorAuthID, code string) (*jwt.Claims, error) {
	if twoFactorAuthID == "" || strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("confirm two-factor: %w: id and code are required", xerrors.ErrBadRequest)
	}
	req := auth.TwoFactorRequest{TwoFactorAuthID: twoFactorAuthID, Code: strings.TrimSpace(code)}
	return s.exchange(ctx, "confirm two-factor", "/authentication/two-factor", req)
}

// ========== Registration ==========

// RegisterAdmin creates the first administrator of an uninitialized system.
func (s *AuthService) RegisterAdmin(ctx context.Context, email, password string) (*jwt.Claims, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("register admin: %w: email and password are required", xerrors.ErrBadRequest)
	}
	req := auth.RegisterAdminRequest{Email: email, Password: password}
	return s.exchange(ctx, "register admin", "/authentication/signup", req)
}

// ConfirmInvitation sets the password of an invited account.
func (s *AuthService) ConfirmInvitation(ctx context.Context, invitation, password string) (*jwt.Claims, error) {
	if invitation == "" || password == "" {
		return nil, fmt.Errorf("confirm invitation: %w: invitation and password are required", xerrors.ErrBadRequest)
	}
	req := auth.InvitationRequest{Invitation: invitation, Password: password}
	return s.exchange(ctx, "confirm invitation", "/authentication/invitation", req)
}

// ConfirmEmail moves a PENDING account to ACTIVE. The backend answers with
// a token carrying the new state.
func (s *AuthService) ConfirmEmail(ctx context.Context, code string) (*jwt.Claims, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("confirm email: %w: code is required", xerrors.ErrBadRequest)
	}
	return s.exchange(ctx, "confirm email", "/authentication/confirm", auth.ConfirmEmailRequest{Code: code})
}

// ========== Session ==========

// RefreshToken asks for a new token using the session cookie. It does not
// store the token: the recovery protocol does that before replaying.
func (s *AuthService) RefreshToken(ctx context.Context) (string, error) {
	var resp auth.TokenResponse
	if err := s.api.Put(ctx, "/authentication/token", nil, &resp, client.WithoutBearer()); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("refresh token: %w: empty token", xerrors.ErrInvalidResponse)
	}
	return resp.Token, nil
}

// Logout ends the session on the backend and clears it locally. The local
// credential is cleared even when the backend call fails; that failure is
// still returned.
func (s *AuthService) Logout(ctx context.Context) error {
	remoteErr := s.api.Post(ctx, "/authentication/logout", nil, nil)
	if remoteErr != nil {
		s.logger.Warn("backend logout failed", zap.Error(remoteErr))
	}

	store, ok := client.CredentialsFrom(ctx)
	if !ok {
		return errors.Join(remoteErr, fmt.Errorf("logout: %w", xerrors.ErrNoSession))
	}
	if err := store.Clear(ctx); err != nil {
		return errors.Join(remoteErr, fmt.Errorf("logout: %w", err))
	}
	if remoteErr != nil {
		return fmt.Errorf("logout: %w", remoteErr)
	}
	return nil
}

// exchange posts body to an endpoint answering {token} and establishes the
// returned session.
func (s *AuthService) exchange(ctx context.Context, op, path string, body any) (*jwt.Claims, error) {
	var resp auth.TokenResponse
	if err := s.api.Post(ctx, path, body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%s: %w: empty token", op, xerrors.ErrInvalidResponse)
	}
	claims, err := s.establish(ctx, resp.Token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

// establish decodes a freshly issued token and stores it in place of the
// previous one.
func (s *AuthService) establish(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := jwt.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidResponse, err)
	}
	store, ok := client.CredentialsFrom(ctx)
	if !ok {
		return nil, xerrors.ErrNoSession
	}
	if err := store.ReplaceToken(ctx, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return claims, nil
}
