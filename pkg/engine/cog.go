package engine

import (
	"context"
	"net/http"
)

// Cog describes one Cognitive Services endpoint.
//
// Request builds the HTTP request for the call without any authorization;
// the engine attaches the bearer token. Result turns what the engine got back
// into the cog's typed result. Exactly one of resp and err is non-nil: err is
// an engine error (token, transport or request building failure) the cog is
// expected to wrap in its own error type. The engine closes resp.Body after
// Result returns.
type Cog[T any] interface {
	Request(ctx context.Context) (*http.Request, error)
	Result(resp *http.Response, err error) (T, error)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
