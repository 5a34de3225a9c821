package interpreter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comalice/xchart/internal/core"
	"github.com/comalice/xchart/internal/primitives"
)

const tracerName = "github.com/comalice/xchart/interpreter"

func (i *Interpreter) startSpan(ctx context.Context, e primitives.Event) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "xchart.macrostep",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("xchart.machine", i.machine.ID()),
			attribute.String("xchart.interpreter", i.id),
			attribute.String("xchart.session", i.session),
			attribute.String("xchart.event", e.Type),
		))
}

func endSpan(span trace.Span, next *core.State, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if next == nil {
		return
	}
	span.SetAttributes(
		attribute.String("xchart.state", next.String()),
		attribute.Bool("xchart.changed", next.IsChanged()),
		attribute.Int("xchart.actions", len(next.Actions)),
		attribute.Bool("xchart.done", next.Done()),
	)
}
