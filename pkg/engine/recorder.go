package engine

import "time"

// Outcome labels passed to a Recorder
const (
	OutcomeOK             = "ok"
	OutcomeError          = "error"
	OutcomeTokenError     = "token_error"
	OutcomeTransportError = "transport_error"
	OutcomePoisoned       = "poisoned"
)

// Recorder observes token and dispatch events
type Recorder interface {
	TokenCacheHit()
	TokenWait()
	TokenRenewal(outcome string, elapsed time.Duration)
	Dispatch(cog string, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) TokenCacheHit() {}

func (nopRecorder) TokenWait() {}

func (nopRecorder) TokenRenewal(string, time.Duration) {}

func (nopRecorder) Dispatch(string, string) {}
