package pybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostbridge/pybridge-go/internal/wire"
)

// scriptedTransport answers each sent request with a scripted reply,
// standing in for the interpreter subprocess.
type scriptedTransport struct {
	mu      sync.Mutex
	started bool
	closed  bool
	sent    []*wire.Request

	events   chan *wire.Event
	errs     chan error
	startErr error
	respond  func(req *wire.Request, emit func(*wire.Event))
	finished sync.Once
}

var _ Transport = (*scriptedTransport)(nil)

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		events: make(chan *wire.Event, 64),
		errs:   make(chan error, 16),
	}
}

func (m *scriptedTransport) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}

	m.mu.Lock()
	m.started = true
	m.mu.Unlock()

	return nil
}

func (m *scriptedTransport) ReadEvents(context.Context) (<-chan *wire.Event, <-chan error) {
	return m.events, m.errs
}

func (m *scriptedTransport) SendRequest(_ context.Context, data []byte) error {
	var req wire.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	m.mu.Lock()
	m.sent = append(m.sent, &req)
	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		respond(&req, func(ev *wire.Event) { m.events <- ev })
	}

	return nil
}

func (m *scriptedTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.finish()

	return nil
}

func (m *scriptedTransport) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.started && !m.closed
}

func (m *scriptedTransport) finish() {
	m.finished.Do(func() {
		close(m.events)
		close(m.errs)
	})
}

func (m *scriptedTransport) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *scriptedTransport) sentRequests() []*wire.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*wire.Request(nil), m.sent...)
}

// respondWith scripts per-method replies. Each reply value is encoded as
// one yield; stream replies get every value, then completion.
func (m *scriptedTransport) respondWith(replies map[string][]any) {
	m.respond = func(req *wire.Request, emit func(*wire.Event)) {
		values, ok := replies[req.Method]
		if !ok {
			emit(&wire.Event{ID: req.ID, Kind: wire.KindError, Trace: "AttributeError: " + req.Method})

			return
		}

		for _, v := range values {
			data, err := json.Marshal(v)
			if err != nil {
				panic(fmt.Sprintf("marshal scripted reply: %v", err))
			}

			emit(&wire.Event{ID: req.ID, Kind: wire.KindYield, Value: data})
		}

		emit(&wire.Event{ID: req.ID, Kind: wire.KindCompletion})
	}
}

func mustContract(t *testing.T, specs map[string]MethodSpec) *Contract {
	t.Helper()

	contract, err := NewContract(specs)
	require.NoError(t, err)

	return contract
}

func TestBridgeSpawnsSessionOnFirstModule(t *testing.T) {
	transport := newScriptedTransport()
	bridge := New(WithTransport(transport))
	defer bridge.Close()

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})

	mod, err := bridge.Module(context.Background(), "app.worker", contract)
	require.NoError(t, err)
	require.Equal(t, "app.worker", mod.Name())
	require.Equal(t, 1, bridge.Sessions())
	require.True(t, transport.IsReady())
}

func TestBridgeReusesWarmSession(t *testing.T) {
	transport := newScriptedTransport()
	bridge := New(WithTransport(transport))
	defer bridge.Close()

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})
	other := mustContract(t, map[string]MethodSpec{"pong": {}})

	first, err := bridge.Module(context.Background(), "app.worker", contract)
	require.NoError(t, err)

	second, err := bridge.Module(context.Background(), "app.worker", other)
	require.NoError(t, err)

	require.Equal(t, 1, bridge.Sessions())
	require.Equal(t, first.SessionID(), second.SessionID())
}

func TestBridgeInjectedTransportIsSingleTarget(t *testing.T) {
	transport := newScriptedTransport()
	bridge := New(WithTransport(transport))
	defer bridge.Close()

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})

	_, err := bridge.Module(context.Background(), "app.worker", contract)
	require.NoError(t, err)

	// Same target keeps working.
	_, err = bridge.Module(context.Background(), "app.worker", contract)
	require.NoError(t, err)

	// A second distinct target would start two dispatch loops on the
	// same event channel.
	_, err = bridge.Module(context.Background(), "app.other", contract)
	require.ErrorIs(t, err, ErrTransportBound)
	require.Equal(t, 1, bridge.Sessions())
}

func TestBridgeModuleAfterClose(t *testing.T) {
	bridge := New(WithTransport(newScriptedTransport()))
	require.NoError(t, bridge.Close())

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})

	_, err := bridge.Module(context.Background(), "app.worker", contract)
	require.ErrorIs(t, err, ErrBridgeClosed)
}

func TestBridgeCloseTearsDownSessions(t *testing.T) {
	transport := newScriptedTransport()
	bridge := New(WithTransport(transport))

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})

	_, err := bridge.Module(context.Background(), "app.worker", contract)
	require.NoError(t, err)

	require.NoError(t, bridge.Close())
	require.True(t, transport.isClosed())
	require.Equal(t, 0, bridge.Sessions())
}

func TestBridgeCloseIsIdempotent(t *testing.T) {
	transport := newScriptedTransport()
	bridge := New(WithTransport(transport))

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})

	_, err := bridge.Module(context.Background(), "app.worker", contract)
	require.NoError(t, err)

	require.NoError(t, bridge.Close())
	require.NoError(t, bridge.Close())
}

func TestBridgeSpawnFailureSurfaces(t *testing.T) {
	transport := newScriptedTransport()
	transport.startErr = fmt.Errorf("no interpreter here")

	bridge := New(WithTransport(transport))
	defer bridge.Close()

	contract := mustContract(t, map[string]MethodSpec{"ping": {}})

	_, err := bridge.Module(context.Background(), "app.worker", contract)
	require.Error(t, err)
	require.Equal(t, 0, bridge.Sessions())
}
