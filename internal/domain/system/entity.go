// internal/domain/system/entity.go
package system

import "fmt"

// State is the process-wide initialization state reported by the backend.
type State string

const (
	StateNotInitialized State = "NOT_INITIALIZED"
	StateInitialized    State = "INITIALIZED"
)

// Parse validates a state received over the wire.
func Parse(raw string) (State, error) {
	switch State(raw) {
	case StateNotInitialized, StateInitialized:
		return State(raw), nil
	}
	return "", fmt.Errorf("unknown system state %q", raw)
}

// Hook names configured on the backend.
const (
	HookAuthentication = "authentication"
	HookRegistration   = "registration"
)

// Hooks maps hook names to URLs; an empty URL means not configured.
type Hooks map[string]string

// URL returns the configured URL of a hook.
func (h Hooks) URL(name string) (string, bool) {
	url := h[name]
	return url, url != ""
}

// StateResponse is the body of GET /system/state
type StateResponse struct {
	State string `json:"state"`
}
