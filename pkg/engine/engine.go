package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/takutakahashi/cogs/pkg/utils"
)

const (
	// DefaultTokenURL issues bearer tokens for a subscription key
	DefaultTokenURL = "https://api.cognitive.microsoft.com/sts/v1.0/issueToken"

	// SubscriptionKeyHeader carries the subscription key to the token endpoint
	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

	// DefaultRenewalTimeout bounds a single call to the token endpoint
	DefaultRenewalTimeout = 30 * time.Second

	// maxTokenSize caps the token endpoint's response body
	maxTokenSize = 16 << 10
)

// Engine runs Cogs with a valid bearer token attached.
// One Engine is meant to be shared by every caller in the process.
type Engine struct {
	creds          *Credentials
	client         Doer
	tokenURL       string
	renewalTimeout time.Duration
	logger         *slog.Logger
	recorder       Recorder
}

// Option configures an Engine
type Option func(*Engine)

// WithTokenURL overrides the token endpoint
func WithTokenURL(u string) Option {
	return func(e *Engine) {
		if u != "" {
			e.tokenURL = u
		}
	}
}

// WithRenewalTimeout bounds how long one renewal may take
func WithRenewalTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.renewalTimeout = d
		}
	}
}

// WithLogger sets the logger used for token lifecycle events
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder reports token and dispatch events, e.g. to metrics.Collector
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock replaces time.Now for token expiry decisions
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.creds.now = now
		}
	}
}

// New returns an Engine using creds for authorization and client as transport
func New(creds *Credentials, client Doer, opts ...Option) *Engine {
	if client == nil {
		client = utils.NewDefaultHTTPClient()
	}
	e := &Engine{
		creds:          creds,
		client:         client,
		tokenURL:       DefaultTokenURL,
		renewalTimeout: DefaultRenewalTimeout,
		logger:         slog.New(slog.DiscardHandler),
		recorder:       nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Credentials returns the store the engine renews tokens into
func (e *Engine) Credentials() *Credentials {
	return e.creds
}

// EnsureToken returns a token that is valid now, renewing it if needed.
//
// Only one renewal runs at a time. Callers arriving while it runs wait for
// its result instead of starting their own. The renewal is detached from
// ctx: a caller giving up does not stop it, it still updates the store.
// A failed renewal is reported to every caller that waited on it and is
// not retried; the next call starts over.
func (e *Engine) EnsureToken(ctx context.Context) (AccessToken, error) {
	token, ok, err := e.creds.ReadIfValid()
	if err != nil {
		return AccessToken{}, err
	}
	if ok {
		e.recorder.TokenCacheHit()
		return token, nil
	}

	decision, err := e.creds.BeginRenewalOrWait()
	if err != nil {
		return AccessToken{}, err
	}

	switch decision.Decision {
	case StillValid:
		e.recorder.TokenCacheHit()
		return decision.Token, nil
	case ProceedAsOwner:
		go e.renew(context.WithoutCancel(ctx))
	case AlreadyInFlight:
		e.recorder.TokenWait()
	}
	return decision.Wait(ctx)
}

// renew performs the renewal owned by the caller of BeginRenewalOrWait.
// CompleteRenewal or poison runs on every path out of here.
func (e *Engine) renew(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("[TOKEN] renewal panicked, credential store is unusable", "panic", r)
			e.recorder.TokenRenewal(OutcomePoisoned, time.Since(start))
			e.creds.poison()
		}
	}()

	e.logger.Debug("[TOKEN] renewing access token", "url", e.tokenURL)

	token, err := e.issueToken(ctx)
	if err != nil {
		e.logger.Warn("[TOKEN] renewal failed", "error", err, "elapsed", time.Since(start))
		e.recorder.TokenRenewal(OutcomeError, time.Since(start))
	} else {
		e.logger.Info("[TOKEN] access token renewed", "expires_at", token.ExpiresAt, "elapsed", time.Since(start))
		e.recorder.TokenRenewal(OutcomeOK, time.Since(start))
	}
	e.creds.CompleteRenewal(token, err)
}

// issueToken exchanges the subscription key for a token. The whole response
// body is the token.
func (e *Engine) issueToken(ctx context.Context) (AccessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, e.renewalTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, http.NoBody)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set(SubscriptionKeyHeader, e.creds.key.Value())
	req.ContentLength = 0

	resp, err := e.client.Do(req)
	if err != nil {
		return AccessToken{}, &TransportError{Op: "issue token", URL: e.tokenURL, Err: err}
	}
	defer utils.SafeCloseResponse(resp)

	if err := utils.CheckHTTPResponse(resp); err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}

	body, err := readString(resp, maxTokenSize)
	if err != nil {
		return AccessToken{}, err
	}
	if body == "" {
		return AccessToken{}, fmt.Errorf("%w: empty response body", ErrTokenUnavailable)
	}

	return AccessToken{
		Token:     body,
		ExpiresAt: e.creds.now().Add(TokenTTL),
	}, nil
}
