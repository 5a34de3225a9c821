package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/comalice/xchart"
	"github.com/comalice/xchart/internal/extensibility"
	"github.com/comalice/xchart/internal/production"
	"github.com/comalice/xchart/interpreter"
)

const definition = `
id: traffic-light
initial: red
context:
  cycles: 0
states:
  red:
    entry: count
    on:
      TIMER: green
  green:
    on:
      TIMER: yellow
  yellow:
    after:
      500: red
`

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "demo",
		ReportTimestamp: true,
		Level:           log.DebugLevel,
	})

	count := xchart.Assign(func(ext any, _ xchart.Event) any {
		n, _ := xchart.Get[int](ext, "cycles")
		next, _ := xchart.Set(ext, "cycles", n+1)
		return next
	})
	m, err := xchart.Load([]byte(definition), xchart.WithActions(map[string]xchart.Action{"count": count}))
	if err != nil {
		logger.Fatal("load definition", "err", err)
	}
	if err := m.Validate(); err != nil {
		logger.Fatal("validate definition", "err", err)
	}

	published := make(chan production.PublishedEvent, 100)
	publisher := production.NewChannelPublisher(published)
	defer publisher.Close()

	timer := extensibility.NewTimerEventSource("TIMER", nil, 2*time.Second)
	defer timer.Stop()

	i := xchart.Interpret(m,
		interpreter.WithLogger(logger),
		interpreter.WithPublisher(publisher),
		interpreter.WithEventSource(timer),
	)
	if err := i.Start(context.Background()); err != nil {
		logger.Fatal("start", "err", err)
	}
	defer i.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	codec := production.YAMLCodec{}
	steps := 0
	for {
		select {
		case ev := <-published:
			steps++
			logger.Info("transition", "event", ev.Event.Type, "path", ev.Metadata.Transition)
			if steps%4 == 0 {
				snapshot, err := codec.Encode(ev.State)
				if err != nil {
					logger.Error("encode snapshot", "err", err)
					continue
				}
				fmt.Printf("--- snapshot after %d steps ---\n%s", steps, snapshot)
			}
			if steps >= 12 {
				logger.Info("demo complete", "steps", steps)
				return
			}
		case <-sig:
			logger.Info("shutting down")
			return
		}
	}
}
