// Package guard holds the process-memory abuse controls: the failed-login
// lockout tracker and the sliding-window submission limiter. State is
// intentionally not durable — a restart clears all counters.
package guard

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultMaxAttempts failed logins lock the identity.
	DefaultMaxAttempts = 3
	// DefaultLockout is how long a locked identity stays rejected.
	DefaultLockout = 30 * time.Minute

	guardEntries = 4096
)

type loginState struct {
	attempts    int
	lockedUntil time.Time
}

// LoginGuard tracks per-identity failed-login counters and time-boxed
// lockouts. All counter access for a given identity is serialized through a
// single mutex so concurrent failures never under-count.
type LoginGuard struct {
	mu          sync.Mutex
	states      *lru.LRU[string, *loginState]
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time
}

// NewLoginGuard creates a guard with the given threshold and lockout
// duration. Non-positive arguments fall back to the defaults.
func NewLoginGuard(maxAttempts int, lockout time.Duration) *LoginGuard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &LoginGuard{
		// Entries idle for twice the lockout are equivalent to Clear,
		// so TTL eviction is safe.
		states:      lru.NewLRU[string, *loginState](guardEntries, nil, 2*lockout),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         time.Now,
	}
}

// NormalizeIdentity folds an identity key: trimmed and lower-cased.
func NormalizeIdentity(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Check reports whether the identity is currently locked and, if so, the
// remaining lockout. An elapsed lockout is lazily reset to Clear here.
func (g *LoginGuard) Check(identity string) (locked bool, retryAfter time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := NormalizeIdentity(identity)
	st, ok := g.states.Get(key)
	if !ok || st.lockedUntil.IsZero() {
		return false, 0
	}

	remaining := st.lockedUntil.Sub(g.now())
	if remaining <= 0 {
		g.states.Remove(key)
		return false, 0
	}
	return true, remaining
}

// Fail records a failed attempt. Reaching the threshold opens a lockout
// window and the call reports it like Check does.
func (g *LoginGuard) Fail(identity string) (locked bool, retryAfter time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := NormalizeIdentity(identity)
	st, ok := g.states.Get(key)
	if !ok {
		st = &loginState{}
	}

	st.attempts++
	if st.attempts >= g.maxAttempts {
		st.lockedUntil = g.now().Add(g.lockout)
		st.attempts = 0
		g.states.Add(key, st)
		return true, g.lockout
	}
	g.states.Add(key, st)
	return false, 0
}

// Reset clears the identity's counter, e.g. after a successful login.
func (g *LoginGuard) Reset(identity string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states.Remove(NormalizeIdentity(identity))
}
