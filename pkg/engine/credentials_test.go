package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCredentials(clock *fakeClock) *Credentials {
	creds := NewCredentials(SubscriptionKey("abc123"))
	creds.now = clock.Now
	return creds
}

func TestSubscriptionKey(t *testing.T) {
	key := SubscriptionKey("abc123")

	assert.Equal(t, "abc123", key.Value())
	assert.Equal(t, "[redacted]", key.String())
	assert.Equal(t, "[redacted]", fmt.Sprintf("%v", key))
	assert.Equal(t, "", SubscriptionKey("").String())
}

func TestCredentials_ReadIfValid(t *testing.T) {
	clock := newFakeClock()
	issuedAt := clock.Now()
	creds := newTestCredentials(clock)

	_, ok, err := creds.ReadIfValid()
	require.NoError(t, err)
	assert.False(t, ok, "no token cached yet")

	decision, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	require.Equal(t, ProceedAsOwner, decision.Decision)
	creds.CompleteRenewal(AccessToken{Token: "tok-1", ExpiresAt: issuedAt.Add(TokenTTL)}, nil)

	tests := []struct {
		name   string
		offset time.Duration
		valid  bool
	}{
		{"just issued", 0, true},
		{"eight minutes", 8 * time.Minute, true},
		{"one nanosecond before expiry", TokenTTL - time.Nanosecond, true},
		{"at expiry", TokenTTL, false},
		{"after expiry", 10 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.mu.Lock()
			clock.now = issuedAt.Add(tt.offset)
			clock.mu.Unlock()

			token, ok, err := creds.ReadIfValid()
			require.NoError(t, err)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, "tok-1", token.Token)
			} else {
				assert.Empty(t, token.Token)
			}
		})
	}
}

func TestCredentials_BeginRenewalOrWait(t *testing.T) {
	clock := newFakeClock()
	creds := newTestCredentials(clock)

	owner, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	assert.Equal(t, ProceedAsOwner, owner.Decision)
	assert.True(t, creds.Renewing())

	waiter, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	assert.Equal(t, AlreadyInFlight, waiter.Decision)

	done := make(chan AccessToken, 1)
	go func() {
		token, err := waiter.Wait(context.Background())
		assert.NoError(t, err)
		done <- token
	}()

	issued := AccessToken{Token: "tok-1", ExpiresAt: clock.Now().Add(TokenTTL)}
	creds.CompleteRenewal(issued, nil)
	assert.False(t, creds.Renewing())

	select {
	case token := <-done:
		assert.Equal(t, issued, token)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}

	again, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	assert.Equal(t, StillValid, again.Decision)
	assert.Equal(t, "tok-1", again.Token.Token)

	token, err := again.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.Token)
}

func TestCredentials_CompleteRenewalFailure(t *testing.T) {
	clock := newFakeClock()
	creds := newTestCredentials(clock)
	renewErr := errors.New("boom")

	owner, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	waiter, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)

	creds.CompleteRenewal(AccessToken{Token: "ignored"}, renewErr)

	assert.False(t, creds.Renewing(), "renewing flag must be reset on failure")
	_, cached := creds.Token()
	assert.False(t, cached, "a failed renewal must not cache anything")

	_, err = waiter.Wait(context.Background())
	assert.ErrorIs(t, err, renewErr)
	_, err = owner.Wait(context.Background())
	assert.ErrorIs(t, err, renewErr)

	next, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	assert.Equal(t, ProceedAsOwner, next.Decision, "a new renewal can start after a failure")
}

func TestCredentials_FailureKeepsPreviousToken(t *testing.T) {
	clock := newFakeClock()
	creds := newTestCredentials(clock)

	_, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	creds.CompleteRenewal(AccessToken{Token: "tok-1", ExpiresAt: clock.Now().Add(TokenTTL)}, nil)

	clock.Advance(10 * time.Minute)
	_, err = creds.BeginRenewalOrWait()
	require.NoError(t, err)
	creds.CompleteRenewal(AccessToken{}, errors.New("unreachable"))

	token, cached := creds.Token()
	require.True(t, cached)
	assert.Equal(t, "tok-1", token.Token)

	_, ok, err := creds.ReadIfValid()
	require.NoError(t, err)
	assert.False(t, ok, "expired token is not handed out")
}

func TestCredentials_WaitHonoursContext(t *testing.T) {
	creds := newTestCredentials(newFakeClock())

	_, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	waiter, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = waiter.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, creds.Renewing(), "abandoning a wait leaves the renewal running")
}

func TestCredentials_Poisoned(t *testing.T) {
	creds := newTestCredentials(newFakeClock())

	_, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)
	waiter, err := creds.BeginRenewalOrWait()
	require.NoError(t, err)

	creds.poison()

	_, err = waiter.Wait(context.Background())
	assert.ErrorIs(t, err, ErrLockPoisoned)
	assert.False(t, creds.Renewing())

	_, _, err = creds.ReadIfValid()
	assert.ErrorIs(t, err, ErrLockPoisoned)
	_, err = creds.BeginRenewalOrWait()
	assert.ErrorIs(t, err, ErrLockPoisoned)
}

func TestCredentials_ReplacementIsAtomic(t *testing.T) {
	clock := newFakeClock()
	creds := newTestCredentials(clock)
	base := clock.Now()

	// Each token's expiry encodes its generation so a torn read is detectable.
	expiryOf := func(gen int) time.Time {
		return base.Add(time.Hour + time.Duration(gen)*time.Second)
	}

	const generations = 200
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				token, ok, err := creds.ReadIfValid()
				if err != nil || !ok {
					continue
				}
				var gen int
				_, scanErr := fmt.Sscanf(token.Token, "tok-%d", &gen)
				if !assert.NoError(t, scanErr) {
					return
				}
				if !assert.Equal(t, expiryOf(gen), token.ExpiresAt, "token %s paired with another renewal's expiry", token.Token) {
					return
				}
			}
		}()
	}

	for gen := 1; gen <= generations; gen++ {
		creds.CompleteRenewal(AccessToken{Token: fmt.Sprintf("tok-%d", gen), ExpiresAt: expiryOf(gen)}, nil)
	}

	close(stop)
	wg.Wait()
}
