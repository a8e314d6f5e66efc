package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*InterpNotFoundError)(nil)
	_ BridgeError = (*SpawnError)(nil)
	_ BridgeError = (*ProcessError)(nil)
	_ BridgeError = (*ProtocolParseError)(nil)
	_ BridgeError = (*ValidationError)(nil)
	_ BridgeError = (*RemoteExecutionError)(nil)
	_ BridgeError = (*AbandonedCallError)(nil)
	_ BridgeError = (*UnknownMethodError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSessionClosed indicates the session has been closed and cannot accept calls.
	ErrSessionClosed = errors.New("session closed")

	// ErrBridgeClosed indicates the bridge has been closed and cannot create sessions.
	ErrBridgeClosed = errors.New("bridge closed")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrTransportBound indicates an injected transport already serves a
	// different target. One transport instance carries one subprocess
	// conversation; it cannot be started twice.
	ErrTransportBound = errors.New("injected transport already bound to another target")

	// ErrStdinClosed indicates stdin was closed due to context cancellation.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrDuplicateCallID indicates a correlation id was registered twice.
	// This should never occur given monotonic allocation.
	ErrDuplicateCallID = errors.New("duplicate correlation id")

	// ErrNoResult indicates a unary call completed without producing a value.
	ErrNoResult = errors.New("call completed without a result")

	// ErrStreamMethod indicates Invoke was used on a stream-declared method.
	ErrStreamMethod = errors.New("method is declared stream-returning: use Stream")

	// ErrUnaryMethod indicates Stream was used on a unary-declared method.
	ErrUnaryMethod = errors.New("method is declared unary: use Invoke")
)

// InterpNotFoundError indicates the interpreter binary was not found.
type InterpNotFoundError struct {
	SearchedPaths []string
}

func (e *InterpNotFoundError) Error() string {
	return fmt.Sprintf("interpreter not found in: %v", e.SearchedPaths)
}

// IsBridgeError implements BridgeError.
func (e *InterpNotFoundError) IsBridgeError() bool { return true }

// SpawnError indicates the interpreter subprocess failed to start.
// It is fatal for the session whose creation triggered it.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn interpreter: %v", e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *SpawnError) IsBridgeError() bool { return true }

// ProcessError indicates the interpreter process exited uncleanly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("interpreter process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("interpreter process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProcessError) IsBridgeError() bool { return true }

// ProtocolParseError indicates a protocol line could not be decoded.
// These are recovered locally: the line is dropped and processing continues.
// The original raw line is preserved for diagnostics.
type ProtocolParseError struct {
	RawLine string
	Err     error
}

func (e *ProtocolParseError) Error() string {
	return fmt.Sprintf("failed to decode protocol line: %v", e.Err)
}

func (e *ProtocolParseError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProtocolParseError) IsBridgeError() bool { return true }

// ValidationError indicates a yielded value did not match the declared
// result shape for its call. It is scoped to a single correlation id.
type ValidationError struct {
	Method string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("result of %q failed shape validation: %v", e.Method, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ValidationError) IsBridgeError() bool { return true }

// RemoteExecutionError indicates the interpreter reported a failure for
// a call. Trace carries the remote-formatted exception text verbatim.
type RemoteExecutionError struct {
	Method string
	Trace  string
}

func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("remote call %q failed: %s", e.Method, e.Trace)
}

// IsBridgeError implements BridgeError.
func (e *RemoteExecutionError) IsBridgeError() bool { return true }

// AbandonedCallError indicates the session was closed before the call
// observed a terminal event. It is synthesized on close so callers never
// hang waiting for a response that cannot arrive.
type AbandonedCallError struct {
	ID     int64
	Method string
}

func (e *AbandonedCallError) Error() string {
	return fmt.Sprintf("call %q (id %d) abandoned: session closed before completion", e.Method, e.ID)
}

// IsBridgeError implements BridgeError.
func (e *AbandonedCallError) IsBridgeError() bool { return true }

// UnknownMethodError indicates a method was invoked that the module's
// contract does not declare.
type UnknownMethodError struct {
	Module string
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("method %q is not declared in the contract for module %q", e.Method, e.Module)
}

// IsBridgeError implements BridgeError.
func (e *UnknownMethodError) IsBridgeError() bool { return true }
