package client

import (
	"context"
	"errors"
	"strings"

	"admin-console/internal/obs"
	xerrors "admin-console/internal/pkg/errors"

	"go.uber.org/zap"
)

// RecoveryState is the state of one request under the unauthorized-response
// recovery protocol.
type RecoveryState string

const (
	StateSending    RecoveryState = "SENDING"
	StateDone       RecoveryState = "DONE"
	StateFailed     RecoveryState = "FAILED"
	StateRefreshing RecoveryState = "REFRESHING"
	StateRetrying   RecoveryState = "RETRYING"
	StateExpired    RecoveryState = "EXPIRED"
)

// Refresher obtains a new session token. It must not carry a Recovery
// itself, otherwise a 401 from the refresh endpoint would recurse.
type Refresher interface {
	RefreshToken(ctx context.Context) (string, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) RefreshToken(ctx context.Context) (string, error) { return f(ctx) }

// ExpiryNotifier is told when a session cannot be recovered. The console
// answers by asking the user to acknowledge and log out.
type ExpiryNotifier interface {
	SessionExpired(ctx context.Context)
}

// NotifierFunc adapts a function to ExpiryNotifier.
type NotifierFunc func(ctx context.Context)

func (f NotifierFunc) SessionExpired(ctx context.Context) { f(ctx) }

// Recovery refreshes the session once after a 401 and replays the failed
// request. Concurrent failures are not coalesced: every failing request
// performs its own refresh.
type Recovery struct {
	refresher Refresher
	notifier  ExpiryNotifier
	logger    *zap.Logger
	metrics   *obs.Metrics
}

func NewRecovery(refresher Refresher, notifier ExpiryNotifier, logger *zap.Logger, metrics *obs.Metrics) *Recovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recovery{refresher: refresher, notifier: notifier, logger: logger, metrics: metrics}
}

// Recover handles the failure of a request sent by client. Errors other
// than 401 are returned untouched. After a 401 it refreshes exactly once,
// stores the new token, then returns the outcome of replay. When the
// refresh fails the original error is returned.
func (r *Recovery) Recover(ctx context.Context, client string, original error, replay func(context.Context) error) error {
	if !errors.Is(original, xerrors.ErrUnauthorized) {
		return original
	}
	log := r.logger.With(zap.String("client", client))

	log.Debug("request unauthorized, refreshing session", zap.String("state", string(StateRefreshing)))
	token, err := r.refresher.RefreshToken(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			r.expire(ctx, log)
			r.finish(log, client, StateExpired, err)
			return original
		}
		r.finish(log, client, StateFailed, err)
		return original
	}

	store, ok := CredentialsFrom(ctx)
	if !ok {
		r.finish(log, client, StateFailed, errors.New("no credential store in context"))
		return original
	}
	if err := store.ReplaceToken(ctx, token); err != nil {
		// Never replay with a token that was not stored.
		r.finish(log, client, StateFailed, err)
		return original
	}

	log.Debug("session refreshed, replaying request", zap.String("state", string(StateRetrying)))
	if err := replay(ctx); err != nil {
		r.finish(log, client, StateFailed, err)
		return err
	}
	r.finish(log, client, StateDone, nil)
	return nil
}

func (r *Recovery) expire(ctx context.Context, log *zap.Logger) {
	if store, ok := CredentialsFrom(ctx); ok {
		if err := store.MarkExpired(ctx); err != nil {
			log.Warn("failed to mark session expired", zap.Error(err))
		}
	}
	if r.notifier != nil {
		r.notifier.SessionExpired(ctx)
	}
}

func (r *Recovery) finish(log *zap.Logger, client string, state RecoveryState, err error) {
	r.metrics.ObserveRecovery(client, strings.ToLower(string(state)))
	if err != nil {
		log.Info("unauthorized recovery ended", zap.String("state", string(state)), zap.Error(err))
		return
	}
	log.Debug("unauthorized recovery ended", zap.String("state", string(state)))
}
