package core

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrStructural   = errors.New("structural error")
	ErrInvalidInput = errors.New("invalid input")
	ErrLifecycle    = errors.New("lifecycle error")
)

// ErrorCode represents specific error conditions of the engine.
type ErrorCode int

const (
	// No error occurred
	CodeNone ErrorCode = iota
	// Definition document failed validation
	CodeInvalidDefinition
	// Transition target reference does not resolve to a state
	CodeUnresolvedTarget
	// Multi-target transition does not target distinct regions of a parallel state
	CodeInvalidMultiTarget
	// Guard referenced by name has no implementation
	CodeUnknownGuard
	// Delay referenced by name has no implementation
	CodeUnknownDelay
	// In-state predicate does not resolve to a state
	CodeUnresolvedIn
	// Eventless transitions did not settle
	CodeMicrostepLimit
	// Property assignment on a non-map context
	CodeInvalidContext
	// State value names a state that does not exist
	CodeUnknownState
	// State value is malformed
	CodeInvalidValue
	// Event missing or empty
	CodeMissingEvent
	// Event not accepted by a strict machine
	CodeUnknownEvent
	// Instance was not started
	CodeNotStarted
	// Instance was stopped
	CodeStopped
	// Invoked service is not registered
	CodeUnknownService
)

var codeNames = map[ErrorCode]string{
	CodeNone:               "none",
	CodeInvalidDefinition:  "invalid definition",
	CodeUnresolvedTarget:   "unresolved target",
	CodeInvalidMultiTarget: "invalid multi-target",
	CodeUnknownGuard:       "unknown guard",
	CodeUnknownDelay:       "unknown delay",
	CodeUnresolvedIn:       "unresolved in-state",
	CodeMicrostepLimit:     "microstep limit",
	CodeInvalidContext:     "invalid context",
	CodeUnknownState:       "unknown state",
	CodeInvalidValue:       "invalid state value",
	CodeMissingEvent:       "missing event",
	CodeUnknownEvent:       "unknown event",
	CodeNotStarted:         "not started",
	CodeStopped:            "stopped",
	CodeUnknownService:     "unknown service",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// StructuralError reports a malformed definition or a reference that cannot be
// resolved against it.
type StructuralError struct {
	Code    ErrorCode
	StateID string
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error [%s] %s: %s", e.StateID, e.Code, e.Message)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

func (e *StructuralError) Unwrap() error { return e.Err }

func newStructuralError(code ErrorCode, stateID, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, StateID: stateID, Message: fmt.Sprintf(format, args...)}
}

// InvalidInputError reports a request that cannot be served: a state value naming
// nonexistent states, or a missing event.
type InvalidInputError struct {
	Code    ErrorCode
	Value   string
	Event   string
	Message string
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Value != "":
		return fmt.Sprintf("invalid input [%s] %s: %s", e.Value, e.Code, e.Message)
	case e.Event != "":
		return fmt.Sprintf("invalid input [event %s] %s: %s", e.Event, e.Code, e.Message)
	}
	return fmt.Sprintf("invalid input %s: %s", e.Code, e.Message)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// LifecycleError reports an event delivered to an instance that is not running.
type LifecycleError struct {
	Code      ErrorCode
	MachineID string
	Event     string
	Message   string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle error [%s] %s: %s", e.MachineID, e.Code, e.Message)
}

func (e *LifecycleError) Is(target error) bool { return target == ErrLifecycle }

// NewLifecycleError creates a lifecycle error for machineID.
func NewLifecycleError(code ErrorCode, machineID, event, message string) *LifecycleError {
	return &LifecycleError{Code: code, MachineID: machineID, Event: event, Message: message}
}
