// internal/domain/scope/scope.go
package scope

import (
	"fmt"
	"strings"
)

// Scope is a permission unit: <resource>.<access>[:<action>].
type Scope string

// Resource groups scopes by the console section they gate.
type Resource string

const (
	ResourceScope      Resource = "scope"
	ResourceUser       Resource = "user"
	ResourceRole       Resource = "role"
	ResourceBlacklist  Resource = "blacklist"
	ResourceSettings   Resource = "settings"
	ResourceStatistics Resource = "statistics"
)

// Access is the read/write half of a scope.
type Access string

const (
	Read  Access = "read"
	Write Access = "write"
)

const (
	separator       = "."
	actionSeparator = ":"
)

// Scope management
const (
	ScopeRead  Scope = "scope.read"
	ScopeWrite Scope = "scope.write"
)

// Users
const (
	UserRead   Scope = "user.read"
	UserWrite  Scope = "user.write"
	UserInvite Scope = "user.write:invite"
	UserRole   Scope = "user.write:role"
)

// Roles
const (
	RoleRead  Scope = "role.read"
	RoleWrite Scope = "role.write"
)

// Blacklist
const (
	BlacklistRead  Scope = "blacklist.read"
	BlacklistWrite Scope = "blacklist.write"
)

// Settings
const (
	SettingsRead  Scope = "settings.read"
	SettingsWrite Scope = "settings.write"
)

// Statistics
const (
	StatisticsRead Scope = "statistics.read"
)

var catalog = []Scope{
	ScopeRead, ScopeWrite,
	UserRead, UserWrite, UserInvite, UserRole,
	RoleRead, RoleWrite,
	BlacklistRead, BlacklistWrite,
	SettingsRead, SettingsWrite,
	StatisticsRead,
}

// New joins a resource and access kind, with an optional action qualifier.
func New(resource Resource, access Access, action string) Scope {
	s := string(resource) + separator + string(access)
	if action != "" {
		s += actionSeparator + action
	}
	return Scope(s)
}

// Parse validates the shape of a scope identifier. It does not check the
// catalog: the backend is the source of truth for valid scopes.
func Parse(raw string) (Scope, error) {
	raw = strings.TrimSpace(raw)
	resource, rest, ok := strings.Cut(raw, separator)
	if !ok || resource == "" {
		return "", fmt.Errorf("invalid scope %q: missing resource", raw)
	}
	access, action, hasAction := strings.Cut(rest, actionSeparator)
	if Access(access) != Read && Access(access) != Write {
		return "", fmt.Errorf("invalid scope %q: access must be read or write", raw)
	}
	if hasAction && action == "" {
		return "", fmt.Errorf("invalid scope %q: empty action", raw)
	}
	return Scope(raw), nil
}

// Resource returns the resource part of the scope.
func (s Scope) Resource() Resource {
	resource, _, _ := strings.Cut(string(s), separator)
	return Resource(resource)
}

// Access returns the access part of the scope.
func (s Scope) Access() Access {
	_, rest, _ := strings.Cut(string(s), separator)
	access, _, _ := strings.Cut(rest, actionSeparator)
	return Access(access)
}

// Action returns the action qualifier, if any.
func (s Scope) Action() string {
	_, action, _ := strings.Cut(string(s), actionSeparator)
	return action
}

// All returns the scopes known to the console, grouped in catalog order.
func All() []Scope {
	out := make([]Scope, len(catalog))
	copy(out, catalog)
	return out
}

// ByResource groups the catalog by resource.
func ByResource() map[Resource][]Scope {
	out := make(map[Resource][]Scope)
	for _, s := range catalog {
		out[s.Resource()] = append(out[s.Resource()], s)
	}
	return out
}
