package pybridge

import "github.com/hostbridge/pybridge-go/internal/errors"

// Re-export error types from internal package

// InterpNotFoundError indicates the interpreter binary was not found.
type InterpNotFoundError = errors.InterpNotFoundError

// SpawnError indicates the interpreter subprocess failed to start.
type SpawnError = errors.SpawnError

// ProcessError indicates the interpreter process exited uncleanly.
type ProcessError = errors.ProcessError

// ProtocolParseError indicates a protocol line could not be decoded.
type ProtocolParseError = errors.ProtocolParseError

// ValidationError indicates a yielded value did not match its declared shape.
type ValidationError = errors.ValidationError

// RemoteExecutionError indicates the interpreter reported a call failure.
type RemoteExecutionError = errors.RemoteExecutionError

// AbandonedCallError indicates the session closed before the call completed.
type AbandonedCallError = errors.AbandonedCallError

// UnknownMethodError indicates a method outside the module's contract.
type UnknownMethodError = errors.UnknownMethodError

// BridgeError is the base interface for all bridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrSessionClosed indicates the session has been closed and cannot accept calls.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrBridgeClosed indicates the bridge has been closed and cannot create sessions.
	ErrBridgeClosed = errors.ErrBridgeClosed

	// ErrTransportBound indicates an injected transport already serves a
	// different target.
	ErrTransportBound = errors.ErrTransportBound

	// ErrNoResult indicates a unary call completed without producing a value.
	ErrNoResult = errors.ErrNoResult

	// ErrStreamMethod indicates Invoke was used on a stream-declared method.
	ErrStreamMethod = errors.ErrStreamMethod

	// ErrUnaryMethod indicates Stream was used on a unary-declared method.
	ErrUnaryMethod = errors.ErrUnaryMethod
)
