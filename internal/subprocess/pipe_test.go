package subprocess

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostbridge/pybridge-go/internal/config"
	"github.com/hostbridge/pybridge-go/internal/errors"
)

// mockStdin is a concurrency-safe write sink standing in for the
// subprocess's stdin pipe.
type mockStdin struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (w *mockStdin) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.Write(p)
}

func (w *mockStdin) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true

	return nil
}

func (w *mockStdin) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.String()
}

func newTestTransport(stdin *mockStdin) *PipeTransport {
	return &PipeTransport{
		log:     slog.New(slog.DiscardHandler),
		options: &config.Options{},
		stdin:   stdin,
	}
}

func TestSendRequestAppendsNewline(t *testing.T) {
	stdin := &mockStdin{}
	tr := newTestTransport(stdin)

	err := tr.SendRequest(context.Background(), []byte(`{"id":0,"method":"f","args":[]}`))
	require.NoError(t, err)

	require.Equal(t, "{\"id\":0,\"method\":\"f\",\"args\":[]}\n", stdin.String())
}

func TestSendRequestDoesNotDoubleNewline(t *testing.T) {
	stdin := &mockStdin{}
	tr := newTestTransport(stdin)

	err := tr.SendRequest(context.Background(), []byte("{\"id\":1}\n"))
	require.NoError(t, err)

	require.Equal(t, "{\"id\":1}\n", stdin.String())
}

func TestSendRequestDoesNotMutateCallerSlice(t *testing.T) {
	stdin := &mockStdin{}
	tr := newTestTransport(stdin)

	// Slice with spare capacity: an in-place append would scribble on it.
	data := make([]byte, 0, 64)
	data = append(data, []byte(`{"id":2}`)...)
	spare := data[:cap(data)]
	before := make([]byte, len(spare))
	copy(before, spare)

	err := tr.SendRequest(context.Background(), data)
	require.NoError(t, err)

	require.Equal(t, before[len(data):], spare[len(data):])
}

func TestSendRequestNotConnected(t *testing.T) {
	tr := &PipeTransport{
		log:     slog.New(slog.DiscardHandler),
		options: &config.Options{},
	}

	err := tr.SendRequest(context.Background(), []byte(`{"id":0}`))
	require.ErrorIs(t, err, errors.ErrTransportNotConnected)
}

func TestSendRequestAfterStdinClosed(t *testing.T) {
	stdin := &mockStdin{}
	tr := newTestTransport(stdin)
	tr.stdinClosed = true

	err := tr.SendRequest(context.Background(), []byte(`{"id":0}`))
	require.ErrorIs(t, err, errors.ErrStdinClosed)
}

func TestSendRequestCancelledContext(t *testing.T) {
	stdin := &mockStdin{}
	tr := newTestTransport(stdin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.SendRequest(ctx, []byte(`{"id":0}`))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSendRequestConcurrentWritesDoNotInterleave(t *testing.T) {
	stdin := &mockStdin{}
	tr := newTestTransport(stdin)

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			line := bytes.Repeat([]byte{byte('a' + n%26)}, 40)
			require.NoError(t, tr.SendRequest(context.Background(), line))
		}(i)
	}

	wg.Wait()

	// Every written line must be homogeneous: one writer, no interleaving.
	lines := bytes.Split(bytes.TrimRight([]byte(stdin.String()), "\n"), []byte("\n"))
	require.Len(t, lines, 20)

	for _, line := range lines {
		require.Len(t, line, 40)

		for _, b := range line {
			require.Equal(t, line[0], b)
		}
	}
}

func TestCloseIsIdempotentWithoutProcess(t *testing.T) {
	tr := newTestTransport(&mockStdin{})

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	require.False(t, tr.IsReady())
}
