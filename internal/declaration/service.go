package declaration

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Service is the external analysis/completion service. Implementations add a
// source file under uri so other live files can resolve its symbols.
type Service interface {
	RegisterExtraFile(code, uri string) (Handle, error)
}

// Handle releases one registration.
type Handle interface {
	Dispose() error
}

var ErrServiceUnavailable = errors.New("analysis service unavailable")

// Gate is the one-time "service ready" signal. It resolves exactly once,
// either with a Service or with an error; later calls are ignored.
type Gate struct {
	once sync.Once
	done chan struct{}
	svc  Service
	err  error
}

func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Resolve publishes svc to every waiter. It reports whether this call won.
func (g *Gate) Resolve(svc Service) bool {
	won := false
	g.once.Do(func() {
		won = true
		if svc == nil {
			g.err = fmt.Errorf("resolve with nil service: %w", ErrServiceUnavailable)
		}
		g.svc = svc
		close(g.done)
	})
	return won
}

// Fail resolves the gate with an error.
func (g *Gate) Fail(err error) bool {
	won := false
	g.once.Do(func() {
		won = true
		if err == nil {
			err = ErrServiceUnavailable
		}
		g.err = fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		close(g.done)
	})
	return won
}

// Wait blocks until the gate resolves or ctx ends.
func (g *Gate) Wait(ctx context.Context) (Service, error) {
	select {
	case <-g.done:
		return g.svc, g.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ready reports whether the gate has resolved successfully.
func (g *Gate) Ready() bool {
	select {
	case <-g.done:
		return g.err == nil
	default:
		return false
	}
}

// Done is closed once the gate resolves.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
