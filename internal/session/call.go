package session

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/wire"
)

// Call is a handle on one in-flight invocation's event stream.
//
// Per-call lifecycle: Pending, zero or more yields, then exactly one
// terminal outcome (completion, remote error, or synthesized abandonment
// if the session closes first).
type Call struct {
	id      int64
	method  string
	session *Session
	sink    <-chan *wire.Event
	shape   *jsonschema.Resolved
}

// ID returns the call's correlation id.
func (c *Call) ID() int64 {
	return c.id
}

// Method returns the invoked method name.
func (c *Call) Method() string {
	return c.method
}

// Events returns the call's yielded values in production order.
//
// Each value is decoded from its wire form and, when the call declares a
// result shape, validated against it; a mismatch yields a ValidationError
// and ends iteration for this call only. A remote failure yields a
// RemoteExecutionError carrying the interpreter's trace text. Iteration
// ends without error on completion.
//
// If the caller stops iterating early, remaining events for this id are
// discarded so the session's dispatch loop never blocks on an unread sink.
func (c *Call) Events(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		defer c.session.registry.discard(c.id)

		for {
			select {
			case ev, ok := <-c.sink:
				if !ok {
					// Sink closed without a terminal event: the session
					// was torn down underneath this call.
					if done(c.session.done) {
						yield(nil, &errors.AbandonedCallError{ID: c.id, Method: c.method})

						return
					}

					return
				}

				switch ev.Kind {
				case wire.KindYield:
					value, err := c.decodeYield(ev.Value)
					if err != nil {
						yield(nil, err)

						return
					}

					if !yield(value, nil) {
						return
					}

				case wire.KindError:
					yield(nil, &errors.RemoteExecutionError{Method: c.method, Trace: ev.Trace})

					return

				case wire.KindCompletion:
					return

				case wire.KindReady:
					// Ready is session-scoped; the dispatch loop never
					// forwards it to a call sink.
					continue
				}

			case <-c.session.done:
				// Drain anything already buffered before declaring the
				// call abandoned.
				select {
				case ev, ok := <-c.sink:
					if ok {
						if c.forwardBuffered(ev, yield) {
							continue
						}

						return
					}
				default:
				}

				yield(nil, &errors.AbandonedCallError{ID: c.id, Method: c.method})

				return

			case <-ctx.Done():
				yield(nil, ctx.Err())

				return
			}
		}
	}
}

// forwardBuffered replays one buffered event during session shutdown.
// Returns true if iteration should continue.
func (c *Call) forwardBuffered(ev *wire.Event, yield func(any, error) bool) bool {
	switch ev.Kind {
	case wire.KindYield:
		value, err := c.decodeYield(ev.Value)
		if err != nil {
			yield(nil, err)

			return false
		}

		return yield(value, nil)

	case wire.KindError:
		yield(nil, &errors.RemoteExecutionError{Method: c.method, Trace: ev.Trace})

		return false

	default:
		return false
	}
}

// decodeYield turns a raw yield payload into a Go value and applies shape
// validation when the call declares one. Decode failures and shape
// mismatches stay distinct error kinds.
func (c *Call) decodeYield(raw json.RawMessage) (any, error) {
	var value any

	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &errors.ProtocolParseError{
			RawLine: string(raw),
			Err:     fmt.Errorf("decode yield value: %w", err),
		}
	}

	if c.shape != nil {
		if err := c.shape.Validate(value); err != nil {
			return nil, &errors.ValidationError{Method: c.method, Err: err}
		}
	}

	return value, nil
}

// done reports whether ch is already closed.
func done(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
