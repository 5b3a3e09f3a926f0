// Package guard keeps a submit action from running twice at once.
package guard

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Guard runs at most one action at a time. The zero value is not usable;
// create one with New.
type Guard struct {
	mu     sync.Mutex
	done   chan struct{} // non-nil while an action runs
	logger *zap.Logger
}

// New creates an idle guard
func New(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger.Named("guard")}
}

// Running reports whether an action is in flight
func (g *Guard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done != nil
}

// ExecuteSubmit runs action unless another one is already running.
//
// The running flag is set before action starts. A call that arrives while
// running is dropped: action is not run and no error is returned, but the
// call waits until the in-flight action finishes or ctx ends. The flag is
// cleared when action returns, so after an error the caller may retry; the
// error is returned to the caller that ran the action.
func (g *Guard) ExecuteSubmit(ctx context.Context, action func(context.Context) error) error {
	g.mu.Lock()
	if running := g.done; running != nil {
		g.mu.Unlock()
		g.logger.Warn("submit already in progress, ignoring duplicate call")
		select {
		case <-running:
		case <-ctx.Done():
		}
		return nil
	}
	done := make(chan struct{})
	g.done = done
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.done = nil
		g.mu.Unlock()
		close(done)
	}()

	return action(ctx)
}
