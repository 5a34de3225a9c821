package interpreter

import (
	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/comalice/xchart/internal/extensibility"
	"github.com/comalice/xchart/internal/production"
)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithID overrides the interpreter id, which defaults to the machine id.
func WithID(id string) Option {
	return func(i *Interpreter) {
		i.id = id
	}
}

// WithLogger sets the logger. The default writes to stderr at info level.
func WithLogger(logger *log.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithClock sets the clock used for delayed sends.
func WithClock(clock Clock) Option {
	return func(i *Interpreter) {
		i.clock = clock
	}
}

// WithTracerProvider enables a span per macrostep. The default is a no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Interpreter) {
		i.tracerProvider = tp
	}
}

// WithPublisher publishes every completed macrostep.
func WithPublisher(p production.Publisher) Option {
	return func(i *Interpreter) {
		i.publisher = p
	}
}

// WithActionRunner sets the runner for application actions.
func WithActionRunner(r extensibility.ActionRunner) Option {
	return func(i *Interpreter) {
		i.runner = r
	}
}

// WithEventSource feeds events from src into the interpreter once it is started.
func WithEventSource(src extensibility.EventSource) Option {
	return func(i *Interpreter) {
		i.sources = append(i.sources, src)
	}
}

// WithExecute controls whether actions are executed after each macrostep. With
// false, the caller executes them with Execute.
func WithExecute(execute bool) Option {
	return func(i *Interpreter) {
		i.execute = execute
	}
}

func withParent(parent *Interpreter, invokeID string) Option {
	return func(i *Interpreter) {
		i.parent = parent
		i.invokeID = invokeID
	}
}
