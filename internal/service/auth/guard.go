// Package auth implements the per-session authentication state machine:
// password attempt limiting, lockout, and inactivity expiry.
package auth

import (
	"crypto/subtle"
	"time"
)

const (
	// DefaultMaxAttempts is the login attempt budget before lockout.
	DefaultMaxAttempts = 3

	// DefaultTimeout is the inactivity window before a session expires.
	DefaultTimeout = 3600 * time.Second

	// lockDelay is served on every attempt against a locked guard so that
	// brute forcing stays expensive even after the counter stops moving.
	lockDelay = 2 * time.Second
)

// LoginResult reports the outcome of a single password attempt.
type LoginResult struct {
	Accepted          bool `json:"accepted"`
	RemainingAttempts int  `json:"remainingAttempts"`
	Locked            bool `json:"locked"`
}

// Guard owns the authentication state for one session. It is not safe for
// concurrent use; callers serialize access per session.
type Guard struct {
	secret      string
	maxAttempts int
	timeout     time.Duration

	authenticated bool
	attempts      int
	lastActivity  time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewGuard returns a logged-out guard for the given secret. maxAttempts
// below 1 is raised to 1; a negative timeout expires sessions immediately.
func NewGuard(secret string, maxAttempts int, timeout time.Duration) *Guard {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Guard{
		secret:      secret,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// AttemptLogin consumes one attempt and compares the password against the
// configured secret in constant time. Once the budget is exhausted the guard
// is locked: further attempts are delayed and rejected without touching the
// counter, until Logout resets it.
func (g *Guard) AttemptLogin(passwordAttempt string) LoginResult {
	if g.authenticated {
		return LoginResult{Accepted: true, RemainingAttempts: g.maxAttempts}
	}

	if g.attempts >= g.maxAttempts {
		g.sleep(lockDelay)
		return LoginResult{Accepted: false, RemainingAttempts: 0, Locked: true}
	}

	g.attempts++
	if subtle.ConstantTimeCompare([]byte(passwordAttempt), []byte(g.secret)) == 1 {
		g.authenticated = true
		g.attempts = 0
		g.lastActivity = g.now()
		return LoginResult{Accepted: true, RemainingAttempts: g.maxAttempts}
	}

	remaining := g.maxAttempts - g.attempts
	return LoginResult{Accepted: false, RemainingAttempts: remaining, Locked: remaining == 0}
}

// CheckTimeout reports whether the session sat idle past the configured
// window. An expired session is forced back to logged-out with a fresh
// attempt budget.
func (g *Guard) CheckTimeout() bool {
	if !g.authenticated {
		return false
	}
	if g.now().Sub(g.lastActivity) > g.timeout {
		g.authenticated = false
		g.attempts = 0
		return true
	}
	return false
}

// Touch records activity, pushing the expiry window forward.
func (g *Guard) Touch() {
	g.lastActivity = g.now()
}

// Logout drops authentication and clears the attempt counter. This is also
// the only way out of lockout short of a process restart.
func (g *Guard) Logout() {
	g.authenticated = false
	g.attempts = 0
}

// Authenticated reports whether the guard currently holds a live login.
func (g *Guard) Authenticated() bool {
	return g.authenticated
}

// Locked reports whether the attempt budget is exhausted.
func (g *Guard) Locked() bool {
	return !g.authenticated && g.attempts >= g.maxAttempts
}

// RemainingAttempts returns how many login attempts are left.
func (g *Guard) RemainingAttempts() int {
	if g.authenticated {
		return g.maxAttempts
	}
	return g.maxAttempts - g.attempts
}
