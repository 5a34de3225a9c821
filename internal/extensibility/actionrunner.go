package extensibility

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/comalice/xchart/internal/primitives"
)

// ActionRunner executes application action descriptors. Builtin actions (send,
// cancel, log, start, stop) are handled by the interpreter and never reach a runner.
type ActionRunner interface {
	Run(ctx context.Context, ext any, e primitives.Event, action primitives.Action) error
}

// ActionRunnerFunc adapts a function to ActionRunner.
type ActionRunnerFunc func(ctx context.Context, ext any, e primitives.Event, action primitives.Action) error

func (f ActionRunnerFunc) Run(ctx context.Context, ext any, e primitives.Event, action primitives.Action) error {
	return f(ctx, ext, e, action)
}

// DefaultActionRunner provides the default implementation of ActionRunner.
// Unbound descriptors are skipped unless Strict is set.
type DefaultActionRunner struct {
	Strict bool
}

// Run executes the given action descriptor.
func (r *DefaultActionRunner) Run(ctx context.Context, ext any, e primitives.Event, action primitives.Action) error {
	if action.Exec == nil {
		if r.Strict {
			return fmt.Errorf("action %q not registered", action.Type)
		}
		return nil
	}
	if err := action.Exec(ctx, ext, e, primitives.ActionMeta{Action: action}); err != nil {
		return fmt.Errorf("action %s: %w", action.Type, err)
	}
	return nil
}

// LoggingActionRunner wraps an ActionRunner and adds logging around execution.
type LoggingActionRunner struct {
	inner  ActionRunner
	logger *log.Logger
}

// NewLoggingActionRunner creates a new LoggingActionRunner wrapping the given inner runner.
// A nil logger uses the package default.
func NewLoggingActionRunner(inner ActionRunner, logger *log.Logger) *LoggingActionRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingActionRunner{inner: inner, logger: logger}
}

// Run logs before and after delegating to the inner runner.
func (r *LoggingActionRunner) Run(ctx context.Context, ext any, e primitives.Event, action primitives.Action) error {
	r.logger.Debug("executing action", "action", action.Type, "event", e.Type, "bound", action.Bound())
	start := time.Now()
	err := r.inner.Run(ctx, ext, e, action)
	if err != nil {
		r.logger.Error("action failed", "action", action.Type, "event", e.Type, "elapsed", time.Since(start), "err", err)
		return err
	}
	r.logger.Debug("action completed", "action", action.Type, "elapsed", time.Since(start))
	return nil
}
