// Event is the immutable event primitive delivered to a machine.
//
// Events are value types. Once created an Event should not be mutated; the engine copies
// them into snapshots and action descriptors.
//
// Example:
//
//	event := NewEvent("TIMER", nil)
//	emergency := NewEvent("PED_COUNTDOWN", map[string]any{"duration": 1000})
package primitives

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Reserved event names.
const (
	// InitEvent is the event carried by a machine's initial snapshot.
	InitEvent = "xchart.init"
	// NullEvent is the eventless pseudo-event, selected after every microstep.
	NullEvent = ""
	// AfterEventPrefix prefixes the synthetic events of delayed transitions.
	AfterEventPrefix = "xchart.after"
	// DoneInvokePrefix prefixes the event delivered to a parent when an invoked child completes.
	DoneInvokePrefix = "done.invoke."
)

type Event struct {
	Type string `json:"type" yaml:"type"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewEvent creates and returns a new immutable Event.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
	}
}

// UnmarshalYAML accepts either a bare event name or a {type, data} mapping.
func (e *Event) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.Type = value.Value
		e.Data = nil
		return nil
	}
	type plain Event
	return value.Decode((*plain)(e))
}

// AfterEvent builds the synthetic event name of the index-th delayed transition of stateID.
func AfterEvent(delay, stateID string, index int) string {
	return fmt.Sprintf("%s(%s)#%s[%d]", AfterEventPrefix, delay, stateID, index)
}

// DoneInvokeEvent is the event name a parent receives when invocation id reaches a final state.
func DoneInvokeEvent(id string) string {
	return DoneInvokePrefix + id
}

// parseDelay decodes a delay written as integer milliseconds or a Go duration string.
// Any other string is returned as a reference to a named delay.
func parseDelay(value *yaml.Node) (time.Duration, string, error) {
	if value == nil || value.Kind == 0 || value.Tag == "!!null" {
		return 0, "", nil
	}
	if value.Kind != yaml.ScalarNode {
		return 0, "", fmt.Errorf("line %d: delay must be a scalar", value.Line)
	}
	return parseDelayString(value.Value, value.Tag)
}

func parseDelayString(s, tag string) (time.Duration, string, error) {
	switch tag {
	case "!!int":
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("invalid delay %q: %w", s, err)
		}
		return time.Duration(ms) * time.Millisecond, "", nil
	case "!!float":
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, "", fmt.Errorf("invalid delay %q: %w", s, err)
		}
		return time.Duration(ms * float64(time.Millisecond)), "", nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, "", nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, "", nil
	}
	if s == "" {
		return 0, "", fmt.Errorf("empty delay")
	}
	return 0, s, nil
}

// FormatDelay renders a literal delay the way it appears in synthetic event names.
func FormatDelay(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
