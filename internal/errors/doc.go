// Package errors defines the error taxonomy shared across the bridge.
//
// Decode-level failures (ProtocolParseError) are recovered locally and never
// escalate to a call failure. Call-level failures (ValidationError,
// RemoteExecutionError, AbandonedCallError) are scoped strictly to their
// correlation id; no error in one call may affect another call on the same
// session.
package errors
