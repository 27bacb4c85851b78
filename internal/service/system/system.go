// internal/service/system/system.go
package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"admin-console/internal/client"
	"admin-console/internal/domain/system"

	"go.uber.org/zap"
)

// SystemService reads process-wide backend state. Its endpoints are
// unauthenticated, so the client it uses carries no recovery.
type SystemService struct {
	api      *client.Client
	hooksTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	hooks     system.Hooks
	fetchedAt time.Time
}

// NewSystemService creates the service. hooksTTL <= 0 disables hook caching.
func NewSystemService(api *client.Client, hooksTTL time.Duration, logger *zap.Logger) *SystemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemService{api: api, hooksTTL: hooksTTL, logger: logger, now: time.Now}
}

// State returns the initialization state of the backend.
func (s *SystemService) State(ctx context.Context) (system.State, error) {
	var resp system.StateResponse
	if err := s.api.Get(ctx, "/system/state", &resp); err != nil {
		return "", fmt.Errorf("fetch system state: %w", err)
	}
	state, err := system.Parse(resp.State)
	if err != nil {
		return "", fmt.Errorf("fetch system state: %w", err)
	}
	return state, nil
}

// Hooks returns the configured hooks. Successful responses are cached for
// hooksTTL; failures are not.
func (s *SystemService) Hooks(ctx context.Context) (system.Hooks, error) {
	s.mu.Lock()
	if s.hooks != nil && s.now().Sub(s.fetchedAt) < s.hooksTTL {
		hooks := s.hooks
		s.mu.Unlock()
		return hooks, nil
	}
	s.mu.Unlock()

	var hooks system.Hooks
	if err := s.api.Get(ctx, "/system/hooks", &hooks); err != nil {
		return nil, fmt.Errorf("fetch system hooks: %w", err)
	}
	if hooks == nil {
		hooks = system.Hooks{}
	}

	s.mu.Lock()
	s.hooks = hooks
	s.fetchedAt = s.now()
	s.mu.Unlock()

	s.logger.Debug("system hooks refreshed", zap.Int("count", len(hooks)))
	return hooks, nil
}

// AuthenticationHook returns the post-authentication redirect URL, or ""
// when none is configured.
func (s *SystemService) AuthenticationHook(ctx context.Context) (string, error) {
	hooks, err := s.Hooks(ctx)
	if err != nil {
		return "", err
	}
	url, _ := hooks.URL(system.HookAuthentication)
	return url, nil
}

// InvalidateHooks drops the cached hooks.
func (s *SystemService) InvalidateHooks() {
	s.mu.Lock()
	s.hooks = nil
	s.mu.Unlock()
}
