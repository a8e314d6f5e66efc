package session

import (
	"sync"

	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/wire"
)

// pendingCall is one in-flight call's event sink. It lives in the registry
// from request-send until a terminal event is observed.
type pendingCall struct {
	id        int64
	method    string
	sink      chan *wire.Event
	cancel    chan struct{} // closed by discard; releases a blocked dispatch send
	discarded bool          // consumer stopped reading; drop instead of block
}

func newPendingCall(id int64, method string, buffer int) *pendingCall {
	return &pendingCall{
		id:     id,
		method: method,
		sink:   make(chan *wire.Event, buffer),
		cancel: make(chan struct{}),
	}
}

// callRegistry maps in-flight correlation ids to their event sinks.
//
// register and dispatch run on different goroutines (callers issuing new
// calls vs. the transport read loop), so the map is mutex-guarded.
type callRegistry struct {
	mu    sync.Mutex
	calls map[int64]*pendingCall
}

func newCallRegistry() *callRegistry {
	return &callRegistry{
		calls: make(map[int64]*pendingCall, 8),
	}
}

// register adds a pending call keyed by its correlation id.
// A duplicate id is rejected; monotonic allocation means this should never
// happen, and an overwrite would silently cross two callers' events.
func (r *callRegistry) register(call *pendingCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[call.id]; exists {
		return errors.ErrDuplicateCallID
	}

	r.calls[call.id] = call

	return nil
}

// dispatch forwards an event to the sink registered for its correlation id.
//
// Returns false if no sink is registered (stale or unknown id); such events
// are dropped by the caller without error. A terminal event unregisters the
// sink after forwarding and closes it, exactly once.
//
// The entry stays registered until after the send so that a discard landing
// while the send is blocked on a full sink still finds the call and can
// release it through its cancel channel.
func (r *callRegistry) dispatch(ev *wire.Event, done <-chan struct{}) bool {
	r.mu.Lock()

	call, exists := r.calls[ev.ID]
	discarded := exists && call.discarded

	r.mu.Unlock()

	if !exists {
		return false
	}

	if !discarded {
		select {
		case call.sink <- ev:
		case <-call.cancel:
		case <-done:
		}
	}

	if ev.Terminal() {
		r.mu.Lock()
		delete(r.calls, ev.ID)
		r.mu.Unlock()

		close(call.sink)
	}

	return true
}

// discard marks a call's sink as no longer consumed. Later events for the
// id are dropped rather than blocking the dispatch loop, and a dispatch
// already blocked on the full sink is released; a later terminal event
// still unregisters the id.
func (r *callRegistry) discard(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if call, exists := r.calls[id]; exists && !call.discarded {
		call.discarded = true
		close(call.cancel)
	}
}

// remove unregisters a call outright (request never reached the wire).
func (r *callRegistry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.calls, id)
}

// abandonAll unregisters every pending call and closes its sink without a
// terminal event. Consumers observe the closed sink and synthesize an
// AbandonedCallError so nobody hangs on a closed session.
func (r *callRegistry) abandonAll() []*pendingCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	abandoned := make([]*pendingCall, 0, len(r.calls))

	for id, call := range r.calls {
		delete(r.calls, id)
		close(call.sink)
		abandoned = append(abandoned, call)
	}

	return abandoned
}

// pending reports how many calls are currently in flight.
func (r *callRegistry) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}
