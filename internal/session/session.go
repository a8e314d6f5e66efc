package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/oklog/ulid/v2"

	"github.com/hostbridge/pybridge-go/internal/config"
	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/subprocess"
	"github.com/hostbridge/pybridge-go/internal/wire"
)

// callBufferSize is the per-call sink buffer. Generator methods can print
// faster than consumers iterate; the buffer absorbs small bursts before the
// dispatch loop blocks.
const callBufferSize = 16

// Session owns exactly one interpreter subprocess plus the bookkeeping for
// every call currently in flight on it.
//
// One goroutine drains the transport and dispatches events by correlation
// id; calls may be issued from any goroutine. The session kills its own
// subprocess on Close; there is no ambient process-wide cleanup hook.
type Session struct {
	log       *slog.Logger
	id        string
	target    string
	transport config.Transport
	registry  *callRegistry

	// nextID allocates correlation ids: monotonic from 0, never reused
	// for the life of the session.
	nextID atomic.Int64

	errMu    sync.RWMutex
	fatalErr error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Open spawns the interpreter subprocess for target and starts the event
// dispatch loop.
//
// Fails with SpawnError (or InterpNotFoundError) if the subprocess cannot
// be started. No ready handshake is awaited: calls sent before the
// interpreter reaches its read loop are queued by the pipe.
func Open(
	ctx context.Context,
	log *slog.Logger,
	target string,
	options *config.Options,
) (*Session, error) {
	sessionID := ulid.Make().String()

	log = log.With("component", "session", "session_id", sessionID, "target", target)

	transport := options.Transport
	if transport == nil {
		transport = subprocess.NewPipeTransport(log, target, options)
	} else {
		log.Debug("Using injected custom transport")
	}

	if err := transport.Start(ctx); err != nil {
		log.Error("Failed to start transport", "error", err)

		return nil, err
	}

	s := &Session{
		log:       log,
		id:        sessionID,
		target:    target,
		transport: transport,
		registry:  newCallRegistry(),
		done:      make(chan struct{}),
	}

	events, errs := transport.ReadEvents(ctx)

	s.wg.Add(1)

	go s.dispatchLoop(ctx, events, errs)

	log.Info("Session opened")

	return s, nil
}

// ID returns the session's identity used in logs and diagnostics.
func (s *Session) ID() string {
	return s.id
}

// Target returns the module or script this session was opened for.
func (s *Session) Target() string {
	return s.target
}

// Done returns a channel that is closed when the session stops.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// FatalError returns the error that stopped the session, if any.
func (s *Session) FatalError() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()

	return s.fatalErr
}

// setFatalError stores the first fatal error and broadcasts via done.
func (s *Session) setFatalError(err error) {
	s.errMu.Lock()

	if s.fatalErr == nil {
		s.fatalErr = err
	}

	s.errMu.Unlock()

	s.closeDone()
}

// closeDone safely closes the done channel exactly once.
func (s *Session) closeDone() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Pending reports how many calls are currently awaiting a terminal event.
func (s *Session) Pending() int {
	return s.registry.pending()
}

// Call sends one method invocation and returns a handle on its event
// stream.
//
// The correlation id is allocated monotonically, the pending call is
// registered before the request reaches the wire, and the encoded request
// is written as one atomic line. Multiple concurrent calls are legal; the
// interpreter may interleave their output lines and the dispatch loop
// separates them by id.
func (s *Session) Call(
	ctx context.Context,
	method string,
	args []any,
	shape *jsonschema.Resolved,
) (*Call, error) {
	select {
	case <-s.done:
		return nil, fmt.Errorf("call %q: %w", method, errors.ErrSessionClosed)
	default:
	}

	id := s.nextID.Add(1) - 1

	s.log.Debug("Issuing call", "call_id", id, "method", method)

	pending := newPendingCall(id, method, callBufferSize)

	if err := s.registry.register(pending); err != nil {
		return nil, fmt.Errorf("register call %d: %w", id, err)
	}

	data, err := wire.EncodeRequest(&wire.Request{ID: id, Method: method, Args: args})
	if err != nil {
		s.registry.remove(id)

		return nil, err
	}

	if err := s.transport.SendRequest(ctx, data); err != nil {
		// Request never reached the wire; no events will arrive for it.
		s.registry.remove(id)
		s.log.Error("Failed to send call request", "call_id", id, "error", err)

		return nil, fmt.Errorf("send call %q: %w", method, err)
	}

	return &Call{
		id:      id,
		method:  method,
		session: s,
		sink:    pending.sink,
		shape:   shape,
	}, nil
}

// Close terminates the subprocess and stops the dispatch loop.
//
// Pending calls are not left hanging: each receives a synthesized
// AbandonedCallError through its event stream. Safe to call multiple times.
func (s *Session) Close() error {
	s.log.Debug("Closing session")

	s.closeDone()

	err := s.transport.Close()

	s.wg.Wait()

	s.log.Info("Session closed")

	return err
}

// dispatchLoop routes transport events to pending calls by correlation id.
//
// This is the only goroutine that forwards to or closes call sinks, so
// sends and closes never race. Parse errors are dropped with a diagnostic;
// any other transport error is fatal for the session.
func (s *Session) dispatchLoop(
	ctx context.Context,
	events <-chan *wire.Event,
	errs <-chan error,
) {
	defer s.wg.Done()
	defer s.log.Debug("Dispatch loop stopped")

	// Whatever ends the loop, nobody may be left waiting.
	defer func() {
		s.closeDone()

		abandoned := s.registry.abandonAll()
		if len(abandoned) > 0 {
			s.log.Warn("Abandoning pending calls on session stop", "count", len(abandoned))
		}
	}()

	ready := false

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				s.log.Debug("Event channel closed")
				s.drainErrors(errs)

				return
			}

			if ev.Kind == wire.KindReady {
				if ready {
					s.log.Debug("Duplicate ready event ignored")
				} else {
					ready = true

					s.log.Debug("Interpreter bootstrap acknowledged")
				}

				continue
			}

			if !s.registry.dispatch(ev, s.done) {
				// Stale id (terminal already seen) or unknown id: drop.
				s.log.Debug("Dropping event with no pending call",
					"call_id", ev.ID, "kind", ev.Kind.String())
			}

		case err, ok := <-errs:
			if !ok {
				s.log.Debug("Error channel closed")

				return
			}

			if err == nil {
				continue
			}

			var parseErr *errors.ProtocolParseError
			if stderrors.As(err, &parseErr) {
				s.log.Warn("Dropped malformed protocol line", "error", err, "line", parseErr.RawLine)

				continue
			}

			s.log.Error("Fatal transport error", "error", err)
			s.setFatalError(err)

			return

		case <-s.done:
			s.log.Debug("Session stop signal received")

			return

		case <-ctx.Done():
			s.log.Debug("Context cancelled in dispatch loop")
			s.setFatalError(ctx.Err())

			return
		}
	}
}

// drainErrors consumes any errors still buffered after the event channel
// closed, keeping the first fatal one as the session's cause of death.
func (s *Session) drainErrors(errs <-chan error) {
	for err := range errs {
		if err == nil {
			continue
		}

		var parseErr *errors.ProtocolParseError
		if stderrors.As(err, &parseErr) {
			s.log.Warn("Dropped malformed protocol line", "error", err, "line", parseErr.RawLine)

			continue
		}

		s.log.Error("Transport error at shutdown", "error", err)
		s.setFatalError(err)
	}
}
