// internal/domain/role/entity.go
package role

import (
	"time"

	"admin-console/internal/domain/scope"
	"admin-console/internal/pkg/jwt"
)

// Definition is a role as stored by the backend
type Definition struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	System      bool      `json:"system"`
	Scopes      scope.Set `json:"scopes"`
}

// IsSystem reports whether the role is built in and therefore immutable.
func IsSystem(name string) bool {
	return name == jwt.RoleAdmin || name == jwt.RoleUser
}

// CreateRequest is the body of POST /roles
type CreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
}

// UpdateScopesRequest is the body of PUT /roles/:name/scopes
type UpdateScopesRequest struct {
	Scopes []string `json:"scopes"`
}
