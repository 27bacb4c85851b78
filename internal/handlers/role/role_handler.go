// internal/handlers/role/role_handler.go
package role

import (
	"errors"
	"net/http"
	"sort"

	"admin-console/internal/domain/role"
	"admin-console/internal/domain/scope"
	"admin-console/internal/pkg/response"
	roleUsecase "admin-console/internal/service/role"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RoleHandler struct {
	roleService *roleUsecase.RoleService
	logger      *zap.Logger
}

func NewRoleHandler(roleService *roleUsecase.RoleService, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
		logger:      logger,
	}
}

// ScopeGroup is one resource section of the role editor.
type ScopeGroup struct {
	Resource scope.Resource    `json:"resource"`
	Scopes   []scope.Scope     `json:"scopes"`
	Pairs    map[string]string `json:"pairs,omitempty"`
}

// ListScopes returns the scope catalog grouped by resource, with the
// write/read pairs the editor must keep in step.
func (h *RoleHandler) ListScopes(c *gin.Context) {
	groups := make([]ScopeGroup, 0)
	for resource, scopes := range scope.ByResource() {
		g := ScopeGroup{Resource: resource, Scopes: scopes}
		for _, sc := range scopes {
			if sc.Access() != scope.Write {
				continue
			}
			if read, ok := scope.Pair(sc); ok {
				if g.Pairs == nil {
					g.Pairs = make(map[string]string)
				}
				g.Pairs[string(sc)] = string(read)
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Resource < groups[j].Resource })

	response.Success(c, http.StatusOK, "scopes retrieved", groups)
}

// ListRoles returns every role
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.List(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to list roles", err)
		return
	}
	response.Success(c, http.StatusOK, "roles retrieved", roles)
}

// CreateRole submits a new role
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req role.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	scopes, err := parseScopes(req.Scopes)
	if err != nil {
		response.ValidationError(c, "invalid scopes", err)
		return
	}

	def, err := h.roleService.Create(c.Request.Context(), req.Name, req.Description, scopes)
	if err != nil {
		h.logger.Warn("role creation failed", zap.String("role", req.Name), zap.Error(err))
		response.FromError(c, "failed to create role", err)
		return
	}
	response.Success(c, http.StatusCreated, "role created", def)
}

// UpdateScopesRequest grants the listed scopes, or revokes them together
// with their pairs.
type UpdateScopesRequest struct {
	Scopes []string `json:"scopes"`
	Revoke []string `json:"revoke"`
}

// UpdateRoleScopes handles PUT /admin/roles/:name/scopes
func (h *RoleHandler) UpdateRoleScopes(c *gin.Context) {
	var req UpdateScopesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	if req.Scopes != nil && req.Revoke != nil {
		response.ValidationError(c, "invalid request", errors.New("send either scopes or revoke"))
		return
	}
	name := c.Param("name")

	var (
		def *role.Definition
		err error
	)
	if req.Revoke != nil {
		var unchecked scope.Set
		if unchecked, err = parseScopes(req.Revoke); err != nil {
			response.ValidationError(c, "invalid scopes", err)
			return
		}
		def, err = h.roleService.RevokeScopes(c.Request.Context(), name, unchecked)
	} else {
		var granted scope.Set
		if granted, err = parseScopes(req.Scopes); err != nil {
			response.ValidationError(c, "invalid scopes", err)
			return
		}
		def, err = h.roleService.UpdateScopes(c.Request.Context(), name, granted)
	}
	if err != nil {
		response.FromError(c, "failed to update role scopes", err)
		return
	}
	response.Success(c, http.StatusOK, "role scopes updated", def)
}

// DeleteRole handles DELETE /admin/roles/:name
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	name := c.Param("name")
	if err := h.roleService.Delete(c.Request.Context(), name); err != nil {
		response.FromError(c, "failed to delete role", err)
		return
	}
	response.Success(c, http.StatusOK, "role deleted", nil)
}

func parseScopes(raw []string) (scope.Set, error) {
	set := scope.NewSet()
	for _, r := range raw {
		sc, err := scope.Parse(r)
		if err != nil {
			return scope.Set{}, err
		}
		set.Add(sc)
	}
	return set, nil
}
