// Package navigation decides where a console session goes next.
package navigation

import (
	"context"

	"admin-console/internal/domain/system"
	"admin-console/internal/obs"
	"admin-console/internal/pkg/jwt"

	"go.uber.org/zap"
)

// Target is an in-app navigation destination.
type Target string

const (
	TargetAdminRegistration     Target = "admin-registration"
	TargetLogin                 Target = "login"
	TargetConfirmRegistration   Target = "confirm-registration"
	TargetAdminDashboard        Target = "admin-dashboard"
	TargetPostLoginConfirmation Target = "post-login-confirmation"
	TargetServiceUnavailable    Target = "service-unavailable"
	// TargetExternal means a hard redirect to Decision.URL.
	TargetExternal Target = "external"
)

// Decision is the single outcome of a resolution.
type Decision struct {
	Target Target `json:"target"`
	URL    string `json:"url,omitempty"`
}

// External reports whether the decision leaves the console.
func (d Decision) External() bool { return d.Target == TargetExternal }

// paths are front-end pages. The console host serves only the JSON and
// redirect endpoints; the front end is mounted in front of it and owns these.
var paths = map[Target]string{
	TargetAdminRegistration:     "/register-admin",
	TargetLogin:                 "/login",
	TargetConfirmRegistration:   "/confirm-email",
	TargetAdminDashboard:        "/admin",
	TargetPostLoginConfirmation: "/welcome",
	TargetServiceUnavailable:    "/unavailable",
}

// Location is where the browser goes: the hook URL for external decisions,
// the console path otherwise.
func (d Decision) Location() string {
	if d.External() {
		return d.URL
	}
	if p, ok := paths[d.Target]; ok {
		return p
	}
	return "/"
}

// Input is everything Resolve looks at. Claims is nil when the token is
// absent or invalid.
type Input struct {
	State    system.State
	Claims   *jwt.Claims
	AuthHook string
}

// Resolve applies the navigation rules in order; the first match wins.
func Resolve(in Input) Decision {
	switch {
	case in.State == system.StateNotInitialized:
		return Decision{Target: TargetAdminRegistration}
	case !in.Claims.IsValid():
		return Decision{Target: TargetLogin}
	case in.Claims.IsPending():
		return Decision{Target: TargetConfirmRegistration}
	case in.Claims.IsAdmin():
		return Decision{Target: TargetAdminDashboard}
	case in.AuthHook != "":
		return Decision{Target: TargetExternal, URL: in.AuthHook}
	default:
		return Decision{Target: TargetPostLoginConfirmation}
	}
}

// SystemReader is the part of the system service the resolver needs.
type SystemReader interface {
	State(ctx context.Context) (system.State, error)
	AuthenticationHook(ctx context.Context) (string, error)
}

// Resolver fetches what Resolve needs from the backend.
type Resolver struct {
	system  SystemReader
	metrics *obs.Metrics
	logger  *zap.Logger
}

func NewResolver(sys SystemReader, metrics *obs.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{system: sys, metrics: metrics, logger: logger}
}

// Resolve decides the target for a session holding rawToken ("" when
// there is none). Hooks are fetched only when every earlier rule failed to
// match. Fetch failures resolve to service-unavailable; a cancelled ctx
// returns ctx.Err() so the caller drops the stale decision.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) (Decision, error) {
	in := Input{Claims: jwt.Resolve(rawToken)}

	state, err := r.system.State(ctx)
	if err != nil {
		return r.unavailable(ctx, "system state", err)
	}
	in.State = state

	if needsHook(in) {
		if in.Claims.Hook != "" {
			in.AuthHook = in.Claims.Hook
		} else {
			hook, err := r.system.AuthenticationHook(ctx)
			if err != nil {
				return r.unavailable(ctx, "system hooks", err)
			}
			in.AuthHook = hook
		}
	}

	d := Resolve(in)
	r.metrics.ObserveNavigation(string(d.Target))
	return d, nil
}

// needsHook reports whether rules 1 to 4 all failed to match.
func needsHook(in Input) bool {
	return in.State != system.StateNotInitialized &&
		in.Claims.IsValid() &&
		!in.Claims.IsPending() &&
		!in.Claims.IsAdmin()
}

func (r *Resolver) unavailable(ctx context.Context, what string, err error) (Decision, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Decision{}, ctxErr
	}
	r.logger.Warn("navigation fetch failed", zap.String("what", what), zap.Error(err))
	r.metrics.ObserveNavigation(string(TargetServiceUnavailable))
	return Decision{Target: TargetServiceUnavailable}, nil
}
