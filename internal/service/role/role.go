// internal/service/role/role.go
package role

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"admin-console/internal/client"
	"admin-console/internal/domain/role"
	"admin-console/internal/domain/scope"
	xerrors "admin-console/internal/pkg/errors"

	"go.uber.org/zap"
)

// RoleService manages role definitions. Its client carries the recovery
// protocol.
type RoleService struct {
	api    *client.Client
	logger *zap.Logger
}

func NewRoleService(api *client.Client, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{api: api, logger: logger}
}

// List returns every role, system roles included.
func (s *RoleService) List(ctx context.Context) ([]role.Definition, error) {
	var roles []role.Definition
	if err := s.api.Get(ctx, "/roles", &roles); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	for i := range roles {
		roles[i].System = roles[i].System || role.IsSystem(roles[i].Name)
	}
	return roles, nil
}

// Get returns a single role.
func (s *RoleService) Get(ctx context.Context, name string) (*role.Definition, error) {
	name, err := validName(name)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	var def role.Definition
	if err := s.api.Get(ctx, rolePath(name), &def); err != nil {
		return nil, fmt.Errorf("get role %s: %w", name, err)
	}
	def.System = def.System || role.IsSystem(def.Name)
	return &def, nil
}

// Create submits a new role. Paired read scopes are added to the requested
// set before submission.
func (s *RoleService) Create(ctx context.Context, name, description string, scopes scope.Set) (*role.Definition, error) {
	name, err := validName(name)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	if role.IsSystem(name) {
		return nil, fmt.Errorf("create role %s: %w: system role", name, xerrors.ErrForbidden)
	}
	req := role.CreateRequest{
		Name:        name,
		Description: strings.TrimSpace(description),
		Scopes:      scope.ExpandForGrant(scopes).Strings(),
	}
	var def role.Definition
	if err := s.api.Post(ctx, "/roles", req, &def); err != nil {
		return nil, fmt.Errorf("create role %s: %w", name, err)
	}
	s.logger.Info("role created", zap.String("role", name), zap.Strings("scopes", req.Scopes))
	return &def, nil
}

// UpdateScopes replaces the scopes of a role with the grant closure of
// scopes.
func (s *RoleService) UpdateScopes(ctx context.Context, name string, scopes scope.Set) (*role.Definition, error) {
	name, err := validName(name)
	if err != nil {
		return nil, fmt.Errorf("update role scopes: %w", err)
	}
	if role.IsSystem(name) {
		return nil, fmt.Errorf("update role %s: %w: system role", name, xerrors.ErrForbidden)
	}
	req := role.UpdateScopesRequest{Scopes: scope.ExpandForGrant(scopes).Strings()}
	var def role.Definition
	if err := s.api.Put(ctx, rolePath(name)+"/scopes", req, &def); err != nil {
		return nil, fmt.Errorf("update role %s: %w", name, err)
	}
	s.logger.Info("role scopes updated", zap.String("role", name), zap.Strings("scopes", req.Scopes))
	return &def, nil
}

// RevokeScopes removes unchecked scopes together with their pairs and
// submits the remainder.
func (s *RoleService) RevokeScopes(ctx context.Context, name string, unchecked scope.Set) (*role.Definition, error) {
	current, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.UpdateScopes(ctx, name, scope.Revoke(current.Scopes, unchecked))
}

// Delete removes a role.
func (s *RoleService) Delete(ctx context.Context, name string) error {
	name, err := validName(name)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if role.IsSystem(name) {
		return fmt.Errorf("delete role %s: %w: system role", name, xerrors.ErrForbidden)
	}
	if err := s.api.Delete(ctx, rolePath(name)); err != nil {
		return fmt.Errorf("delete role %s: %w", name, err)
	}
	s.logger.Info("role deleted", zap.String("role", name))
	return nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: role name is required", xerrors.ErrBadRequest)
	}
	return name, nil
}

func rolePath(name string) string {
	return "/roles/" + url.PathEscape(name)
}
