// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	maxSigninAttempts    = 5
	signinWindow         = 15 * time.Minute
	maxTwoFactorAttempts = 5
	twoFactorWindow      = 10 * time.Minute

	// pruneInterval bounds how often the memory limiter scans for idle keys.
	pruneInterval = time.Minute
)

// AttemptLimiter throttles credential guessing on the console's sign-in
// forms.
type AttemptLimiter interface {
	CheckSigninAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetSigninAttempts(ctx context.Context, ip, email string) error
	CheckTwoFactorAttempt(ctx context.Context, twoFactorAuthID string) (bool, error)
}

var (
	_ AttemptLimiter = (*RateLimiter)(nil)
	_ AttemptLimiter = (*MemoryRateLimiter)(nil)
)

// RateLimiter counts attempts in redis so limits hold across replicas.
type RateLimiter struct {
	client redis.UniversalClient
}

func NewRateLimiter(client redis.UniversalClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckSigninAttempt checks if a sign-in attempt is allowed
func (r *RateLimiter) CheckSigninAttempt(ctx context.Context, ip, email string) (bool, int64, error) {
	key := fmt.Sprintf("ratelimit:signin:%s:%s", ip, email)

	count, err := r.hit(ctx, key, signinWindow)
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment signin attempt: %w", err)
	}

	remaining := int64(maxSigninAttempts) - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= maxSigninAttempts, remaining, nil
}

// ResetSigninAttempts resets the counter after a successful sign-in
func (r *RateLimiter) ResetSigninAttempts(ctx context.Context, ip, email string) error {
	key := fmt.Sprintf("ratelimit:signin:%s:%s", ip, email)
	return r.client.Del(ctx, key).Err()
}

// CheckTwoFactorAttempt checks the code verification rate limit
func (r *RateLimiter) CheckTwoFactorAttempt(ctx context.Context, twoFactorAuthID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:two_factor:%s", twoFactorAuthID)

	count, err := r.hit(ctx, key, twoFactorWindow)
	if err != nil {
		return false, fmt.Errorf("failed to increment two-factor attempt: %w", err)
	}
	return count <= maxTwoFactorAttempts, nil
}

// hit counts one attempt. The window starts with the first attempt: the key
// is created with its expiry and incremented in the same transaction, so a
// counter never outlives its window.
func (r *RateLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type limiterEntry struct {
	lim      *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// MemoryRateLimiter is the single-replica fallback, one token bucket per
// key refilled at the same average rate as the redis windows. A bucket idle
// for a whole window is full again and is dropped.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	now       func() time.Time
	lastPrune time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{limiters: make(map[string]*limiterEntry), now: time.Now}
}

func (r *MemoryRateLimiter) limiter(key string, window time.Duration, burst int) (*rate.Limiter, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastPrune) >= pruneInterval {
		r.prune(now)
	}
	entry, ok := r.limiters[key]
	if !ok {
		entry = &limiterEntry{lim: rate.NewLimiter(rate.Every(window/time.Duration(burst)), burst), window: window}
		r.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.lim, now
}

// prune drops idle buckets. Callers hold r.mu.
func (r *MemoryRateLimiter) prune(now time.Time) {
	for key, entry := range r.limiters {
		if now.Sub(entry.lastSeen) >= entry.window {
			delete(r.limiters, key)
		}
	}
	r.lastPrune = now
}

func (r *MemoryRateLimiter) CheckSigninAttempt(_ context.Context, ip, email string) (bool, int64, error) {
	lim, now := r.limiter("signin:"+ip+":"+email, signinWindow, maxSigninAttempts)
	allowed := lim.AllowN(now, 1)
	remaining := int64(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, nil
}

func (r *MemoryRateLimiter) ResetSigninAttempts(_ context.Context, ip, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, "signin:"+ip+":"+email)
	return nil
}

func (r *MemoryRateLimiter) CheckTwoFactorAttempt(_ context.Context, twoFactorAuthID string) (bool, error) {
	lim, now := r.limiter("two_factor:"+twoFactorAuthID, twoFactorWindow, maxTwoFactorAttempts)
	return lim.AllowN(now, 1), nil
}
