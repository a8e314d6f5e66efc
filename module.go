package pybridge

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/session"
)

// Module is the typed facade over one warm interpreter session.
//
// Every invocation is checked against the module's contract, forwarded to
// the session, and adapted to the declared result form: a single value for
// unary methods, a stream for generator methods.
type Module struct {
	name     string
	contract *Contract
	session  *session.Session
	log      *slog.Logger
}

// Name returns the target module or script name.
func (m *Module) Name() string {
	return m.name
}

// Contract returns the module's declared contract.
func (m *Module) Contract() *Contract {
	return m.contract
}

// SessionID returns the identity of the underlying session, for
// correlation with logs.
func (m *Module) SessionID() string {
	return m.session.ID()
}

// Invoke calls a unary method and blocks until its terminal event.
//
// The result is the method's first-and-only yielded value, validated
// against the declared shape. A remote failure surfaces as a
// RemoteExecutionError carrying the interpreter's trace text; a session
// closed mid-call surfaces as an AbandonedCallError.
func (m *Module) Invoke(ctx context.Context, methodName string, args ...any) (any, error) {
	spec, ok := m.contract.lookup(methodName)
	if !ok {
		return nil, &errors.UnknownMethodError{Module: m.name, Method: methodName}
	}

	if spec.stream {
		return nil, fmt.Errorf("invoke %q: %w", methodName, errors.ErrStreamMethod)
	}

	call, err := m.session.Call(ctx, methodName, args, spec.shape)
	if err != nil {
		return nil, err
	}

	var (
		result   any
		gotValue bool
	)

	for value, err := range call.Events(ctx) {
		if err != nil {
			return nil, err
		}

		if gotValue {
			// A unary method produced a second yield; keep the first.
			m.log.Warn("Unary method yielded more than once",
				"method", methodName, "call_id", call.ID())

			continue
		}

		result = value
		gotValue = true
	}

	if !gotValue {
		return nil, fmt.Errorf("invoke %q: %w", methodName, errors.ErrNoResult)
	}

	return result, nil
}

// Stream calls a generator method and returns its values as they arrive.
//
// The invocation is sent immediately, before the caller starts iterating,
// so the interpreter begins producing without waiting on the consumer.
// Values are validated against the declared shape; errors are yielded
// inline and end the iteration.
func (m *Module) Stream(ctx context.Context, methodName string, args ...any) iter.Seq2[any, error] {
	spec, ok := m.contract.lookup(methodName)
	if !ok {
		return errorSeq(&errors.UnknownMethodError{Module: m.name, Method: methodName})
	}

	if !spec.stream {
		return errorSeq(fmt.Errorf("stream %q: %w", methodName, errors.ErrUnaryMethod))
	}

	call, err := m.session.Call(ctx, methodName, args, spec.shape)
	if err != nil {
		return errorSeq(err)
	}

	return call.Events(ctx)
}

// errorSeq returns an iterator that yields a single error.
func errorSeq(err error) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		yield(nil, err)
	}
}
