package engine

import (
	"context"
	"sync"
	"time"
)

// TokenTTL is how long an issued token is treated as valid. The token
// endpoint returns only the token text, so the lifetime is fixed here and
// kept below the ten minutes the service grants.
const TokenTTL = 9 * time.Minute

// SubscriptionKey is the long-lived key exchanged for bearer tokens
type SubscriptionKey string

// Value returns the raw key
func (k SubscriptionKey) Value() string {
	return string(k)
}

// String keeps the key out of logs and error messages
func (k SubscriptionKey) String() string {
	if k == "" {
		return ""
	}
	return "[redacted]"
}

// AccessToken is a bearer token and the time it stops being used
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be used at now
func (t AccessToken) ValidAt(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// Decision is the outcome of BeginRenewalOrWait
type Decision int

const (
	// StillValid means another caller renewed the token in the meantime
	StillValid Decision = iota
	// ProceedAsOwner means the caller must perform the renewal and then call CompleteRenewal
	ProceedAsOwner
	// AlreadyInFlight means a renewal is running and the caller should wait for it
	AlreadyInFlight
)

func (d Decision) String() string {
	switch d {
	case StillValid:
		return "still_valid"
	case ProceedAsOwner:
		return "proceed_as_owner"
	case AlreadyInFlight:
		return "already_in_flight"
	default:
		return "unknown"
	}
}

// RenewalDecision is returned by BeginRenewalOrWait
type RenewalDecision struct {
	Decision Decision
	// Token is set for StillValid
	Token AccessToken

	flight *flight
}

// Wait blocks until the renewal this decision refers to has completed and
// returns its outcome. For StillValid it returns Token immediately.
func (d RenewalDecision) Wait(ctx context.Context) (AccessToken, error) {
	if d.flight == nil {
		return d.Token, nil
	}
	return d.flight.wait(ctx)
}

// flight is one renewal attempt shared by every caller that asked for a token
// while it was running. done is closed exactly once, after token and err are set.
type flight struct {
	done  chan struct{}
	token AccessToken
	err   error
}

func (f *flight) wait(ctx context.Context) (AccessToken, error) {
	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return AccessToken{}, ctx.Err()
	}
}

// Credentials holds the subscription key and the cached token.
// It is safe for concurrent use.
type Credentials struct {
	key SubscriptionKey
	now func() time.Time

	mu       sync.RWMutex
	token    *AccessToken
	inflight *flight
	poisoned bool
}

// NewCredentials returns credentials with no token cached yet
func NewCredentials(key SubscriptionKey) *Credentials {
	return &Credentials{
		key: key,
		now: time.Now,
	}
}

// SubscriptionKey returns the key the credentials were created with
func (c *Credentials) SubscriptionKey() SubscriptionKey {
	return c.key
}

// ReadIfValid returns the cached token if it has not expired
func (c *Credentials) ReadIfValid() (AccessToken, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.poisoned {
		return AccessToken{}, false, ErrLockPoisoned
	}
	if c.token == nil || !c.token.ValidAt(c.now()) {
		return AccessToken{}, false, nil
	}
	return *c.token, true, nil
}

// BeginRenewalOrWait re-checks the token under the write lock and decides
// who renews it. At most one ProceedAsOwner decision is outstanding at a time;
// its holder must call CompleteRenewal on every exit path.
func (c *Credentials) BeginRenewalOrWait() (RenewalDecision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return RenewalDecision{}, ErrLockPoisoned
	}
	if c.token != nil && c.token.ValidAt(c.now()) {
		return RenewalDecision{Decision: StillValid, Token: *c.token}, nil
	}
	if c.inflight != nil {
		return RenewalDecision{Decision: AlreadyInFlight, flight: c.inflight}, nil
	}

	c.inflight = &flight{done: make(chan struct{})}
	return RenewalDecision{Decision: ProceedAsOwner, flight: c.inflight}, nil
}

// CompleteRenewal ends the running renewal. On success the cached token is
// replaced. Waiters are released with the same token or error.
func (c *Credentials) CompleteRenewal(token AccessToken, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		c.token = &token
	} else {
		token = AccessToken{}
	}
	c.finish(token, err)
}

// Renewing reports whether a renewal is in flight
func (c *Credentials) Renewing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight != nil
}

// Token returns the cached token regardless of expiry
func (c *Credentials) Token() (AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return AccessToken{}, false
	}
	return *c.token, true
}

// poison marks the store unusable and fails the running renewal
func (c *Credentials) poison() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.poisoned = true
	c.token = nil
	c.finish(AccessToken{}, ErrLockPoisoned)
}

// finish must be called with mu held
func (c *Credentials) finish(token AccessToken, err error) {
	f := c.inflight
	c.inflight = nil
	if f == nil {
		return
	}
	f.token, f.err = token, err
	close(f.done)
}
