package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/wire"
)

func newPending(id int64) *pendingCall {
	return newPendingCall(id, "m", 4)
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := newCallRegistry()

	require.NoError(t, r.register(newPending(5)))
	require.ErrorIs(t, r.register(newPending(5)), errors.ErrDuplicateCallID)
	require.Equal(t, 1, r.pending())
}

func TestRegistryDispatchForwardsByID(t *testing.T) {
	r := newCallRegistry()
	call := newPending(1)
	require.NoError(t, r.register(call))

	done := make(chan struct{})
	ev := &wire.Event{ID: 1, Kind: wire.KindYield, Value: []byte(`1`)}

	require.True(t, r.dispatch(ev, done))
	require.Same(t, ev, <-call.sink)
	require.Equal(t, 1, r.pending())
}

func TestRegistryDispatchUnknownIDIsDropped(t *testing.T) {
	r := newCallRegistry()

	ok := r.dispatch(&wire.Event{ID: 42, Kind: wire.KindYield}, make(chan struct{}))
	require.False(t, ok)
}

func TestRegistryTerminalEventUnregistersExactlyOnce(t *testing.T) {
	r := newCallRegistry()
	call := newPending(1)
	require.NoError(t, r.register(call))

	done := make(chan struct{})
	terminal := &wire.Event{ID: 1, Kind: wire.KindCompletion}

	require.True(t, r.dispatch(terminal, done))
	require.Zero(t, r.pending())

	// A late event for the same id finds no sink.
	require.False(t, r.dispatch(&wire.Event{ID: 1, Kind: wire.KindYield}, done))

	// Sink was closed after the terminal forward.
	ev, open := <-call.sink
	require.Equal(t, terminal, ev)

	_, open = <-call.sink
	require.False(t, open)
}

func TestRegistryDiscardedCallDropsEventsButStillUnregisters(t *testing.T) {
	r := newCallRegistry()
	call := newPending(3)
	require.NoError(t, r.register(call))

	r.discard(3)

	done := make(chan struct{})

	// Sink stays empty even though dispatch succeeds.
	require.True(t, r.dispatch(&wire.Event{ID: 3, Kind: wire.KindYield}, done))
	require.Empty(t, call.sink)

	require.True(t, r.dispatch(&wire.Event{ID: 3, Kind: wire.KindCompletion}, done))
	require.Zero(t, r.pending())
}

func TestRegistryDiscardReleasesBlockedDispatch(t *testing.T) {
	r := newCallRegistry()
	call := newPendingCall(4, "scan_rows", 1)
	require.NoError(t, r.register(call))

	done := make(chan struct{})

	// Fill the sink so the next dispatch blocks mid-send.
	require.True(t, r.dispatch(&wire.Event{ID: 4, Kind: wire.KindYield, Value: []byte(`1`)}, done))

	dispatched := make(chan bool, 1)

	go func() {
		dispatched <- r.dispatch(&wire.Event{ID: 4, Kind: wire.KindYield, Value: []byte(`2`)}, done)
	}()

	select {
	case <-dispatched:
		t.Fatal("dispatch returned while the sink was full")
	case <-time.After(50 * time.Millisecond):
	}

	r.discard(4)

	select {
	case ok := <-dispatched:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("dispatch stayed blocked after discard")
	}

	// Later events are dropped without blocking, and a terminal event
	// still unregisters the id.
	require.True(t, r.dispatch(&wire.Event{ID: 4, Kind: wire.KindYield, Value: []byte(`3`)}, done))
	require.True(t, r.dispatch(&wire.Event{ID: 4, Kind: wire.KindCompletion}, done))
	require.Zero(t, r.pending())
}

func TestRegistryDiscardReleasesBlockedTerminalDispatch(t *testing.T) {
	r := newCallRegistry()
	call := newPendingCall(6, "scan_rows", 1)
	require.NoError(t, r.register(call))

	done := make(chan struct{})
	require.True(t, r.dispatch(&wire.Event{ID: 6, Kind: wire.KindYield, Value: []byte(`1`)}, done))

	dispatched := make(chan bool, 1)

	go func() {
		dispatched <- r.dispatch(&wire.Event{ID: 6, Kind: wire.KindCompletion}, done)
	}()

	select {
	case <-dispatched:
		t.Fatal("terminal dispatch returned while the sink was full")
	case <-time.After(50 * time.Millisecond):
	}

	r.discard(6)

	select {
	case ok := <-dispatched:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("terminal dispatch stayed blocked after discard")
	}

	require.Zero(t, r.pending())
}

func TestRegistryDiscardIsIdempotent(t *testing.T) {
	r := newCallRegistry()
	require.NoError(t, r.register(newPending(9)))

	r.discard(9)
	r.discard(9)

	require.Equal(t, 1, r.pending())
}

func TestRegistryAbandonAllClosesEverySink(t *testing.T) {
	r := newCallRegistry()

	first := newPending(1)
	second := newPending(2)
	require.NoError(t, r.register(first))
	require.NoError(t, r.register(second))

	abandoned := r.abandonAll()
	require.Len(t, abandoned, 2)
	require.Zero(t, r.pending())

	for _, call := range []*pendingCall{first, second} {
		_, open := <-call.sink
		require.False(t, open)
	}
}
