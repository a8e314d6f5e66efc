// Package session implements the subprocess session: correlation id
// allocation, pending-call registry, and the dispatch loop that routes
// interpreter events to their callers.
//
// Events for one correlation id arrive in the order the interpreter
// printed them; no ordering holds across ids. There is no per-call
// cancellation protocol on the wire; the only cancellation primitive is
// closing the session, which synthesizes an AbandonedCallError for every
// call still in flight.
package session
