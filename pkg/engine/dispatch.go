package engine

import (
	"context"
	"fmt"

	"github.com/takutakahashi/cogs/pkg/utils"
)

// Named is implemented by cogs that want a label in metrics
type Named interface {
	Name() string
}

// Run sends the request built by cog with a valid token attached and
// returns the cog's result.
//
// When no token can be obtained nothing is sent; the token error is handed
// to cog.Result so the caller still gets the cog's own error type.
func Run[T any](ctx context.Context, e *Engine, cog Cog[T]) (T, error) {
	name := cogName(cog)

	req, err := cog.Request(ctx)
	if err != nil {
		e.recorder.Dispatch(name, OutcomeError)
		return cog.Result(nil, fmt.Errorf("failed to create request: %w", err))
	}

	token, err := e.EnsureToken(ctx)
	if err != nil {
		e.recorder.Dispatch(name, OutcomeTokenError)
		return cog.Result(nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := e.client.Do(req)
	if err != nil {
		e.recorder.Dispatch(name, OutcomeTransportError)
		return cog.Result(nil, &TransportError{Op: req.Method, URL: redactURL(req), Err: err})
	}
	defer utils.SafeCloseResponse(resp)

	out, err := cog.Result(resp, nil)
	if err != nil {
		e.recorder.Dispatch(name, OutcomeError)
		return out, err
	}
	e.recorder.Dispatch(name, OutcomeOK)
	return out, nil
}

// Future is the pending result of a cog started with Go
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts Run on its own goroutine
func Go[T any](ctx context.Context, e *Engine, cog Cog[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = Run(ctx, e, cog)
	}()
	return f
}

// Done is closed once the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await waits for the result or for ctx to end. Giving up does not stop the call.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func cogName(cog any) string {
	if n, ok := cog.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", cog)
}
