package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hostbridge/pybridge-go/internal/config"
	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/interp"
	"github.com/hostbridge/pybridge-go/internal/wire"
)

const (
	// readChunkSize is the read size for draining interpreter stdout.
	readChunkSize = 32 * 1024

	// defaultMaxFrameBuffer is the maximum bytes the framer may hold while
	// waiting for a newline. A single protocol record larger than this is
	// a fatal transport error.
	defaultMaxFrameBuffer = 1024 * 1024 // 1MB

	// maxStderrBufferSize caps the stderr buffer kept for error reporting.
	// Stderr forwarding continues past the cap; only the buffer stops growing.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
)

// PipeTransport implements config.Transport by spawning one interpreter
// subprocess with stdin and stdout redirected to pipes.
type PipeTransport struct {
	log            *slog.Logger
	options        *config.Options
	target         string
	interpPath     string
	args           []string
	env            []string
	cwd            string
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string)
	mu             sync.Mutex // Protects stdin writes
	closing        bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed    bool       // Whether stdin was closed (e.g., due to context cancellation)
}

// Compile-time verification that PipeTransport implements the Transport interface.
var _ config.Transport = (*PipeTransport)(nil)

// NewPipeTransport creates a pipe transport for the given target module or
// script. Interpreter discovery is deferred to Start().
func NewPipeTransport(
	log *slog.Logger,
	target string,
	options *config.Options,
) *PipeTransport {
	return &PipeTransport{
		log:            log.With("component", "pipe_transport"),
		options:        options,
		target:         target,
		stderrCallback: options.Stderr,
	}
}

// Start spawns the interpreter subprocess.
//
// The subprocess's stdin and stdout are redirected to pipes; stderr is
// routed to the host's diagnostic stream (or the configured callback) and
// never parsed as protocol traffic.
//
// Returns InterpNotFoundError if no interpreter binary can be located, or
// SpawnError if the process fails to start.
func (t *PipeTransport) Start(ctx context.Context) error {
	t.log.Info("Starting interpreter subprocess", "target", t.target)

	discoverer := interp.NewDiscoverer(&interp.Config{
		InterpPath:       t.options.InterpPath,
		SkipVersionCheck: t.options.SkipVersionCheck,
		Logger:           t.log,
	})

	interpPath, err := discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover interpreter: %w", err)
	}

	t.interpPath = interpPath

	t.args = interp.BuildArgs(t.target, t.options)
	t.log.Debug("Built command arguments", "args", t.args)

	t.env = interp.BuildEnvironment(t.options)

	t.cwd = t.options.Cwd
	if t.cwd == "" {
		t.cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	t.log.Debug("Set working directory", "cwd", t.cwd)

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for interpreter invocation
	cmd := exec.CommandContext(ctx, t.interpPath, t.args...)
	cmd.Dir = t.cwd
	cmd.Env = t.env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	t.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	t.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	t.stderr = stderr

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start interpreter process", "error", err)

		return &errors.SpawnError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.log.Info("Interpreter subprocess started", "pid", cmd.Process.Pid)

	return nil
}

// ReadEvents reads protocol events from the interpreter's stdout.
//
// A goroutine drains stdout in raw chunks, reassembles newline-terminated
// records through the framer, and decodes each record. Decode errors for
// individual lines are sent to the error channel but do not stop event
// delivery. Both channels are closed when the goroutine exits.
func (t *PipeTransport) ReadEvents(
	ctx context.Context,
) (<-chan *wire.Event, <-chan error) {
	events := make(chan *wire.Event)
	errs := make(chan error, 2)

	var stderrWg sync.WaitGroup

	var stderrBuffer strings.Builder

	var stderrMu sync.Mutex

	// Buffer stderr for error reporting; reads must complete before Wait().
	// See: https://pkg.go.dev/os/exec#Cmd.StderrPipe

	stderrWg.Go(func() {
		t.drainStderr(ctx, &stderrMu, &stderrBuffer)
	})

	go func() {
		defer close(events)
		defer close(errs)
		defer t.log.Debug("ReadEvents goroutine stopped")

		t.readLoop(ctx, events, errs)

		// Wait for stderr goroutine before process wait
		stderrWg.Wait()

		t.log.Debug("Waiting for interpreter process to exit")

		if err := t.cmd.Wait(); err != nil {
			t.mu.Lock()
			isClosing := t.closing
			t.mu.Unlock()

			if isClosing {
				t.log.Debug("Interpreter process terminated during shutdown")

				return
			}

			stderrMu.Lock()
			stderrOutput := stderrBuffer.String()
			stderrMu.Unlock()

			exitCode := 0

			if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
				exitCode = exitErr.ExitCode()
			}

			t.log.Error("Interpreter process exited with error", "exit_code", exitCode, "stderr", stderrOutput)
			t.reportError(errs, &errors.ProcessError{
				ExitCode: exitCode,
				Stderr:   stderrOutput,
				Err:      err,
			})
		} else {
			t.log.Info("Interpreter process exited cleanly")
		}
	}()

	return events, errs
}

// readLoop drains stdout through the framer and decodes records until EOF
// or cancellation.
func (t *PipeTransport) readLoop(
	ctx context.Context,
	events chan<- *wire.Event,
	errs chan<- error,
) {
	maxBuffer := defaultMaxFrameBuffer
	if t.options.MaxBufferSize != nil {
		maxBuffer = *t.options.MaxBufferSize
	}

	framer := &wire.Framer{}
	chunk := make([]byte, readChunkSize)

	eventCount := 0

	for {
		n, readErr := t.stdout.Read(chunk)

		if n > 0 {
			for _, record := range framer.Push(chunk[:n]) {
				ev, err := wire.DecodeEvent(record)
				if err != nil {
					// Malformed line: report and keep going.
					t.log.Debug("Dropping undecodable protocol line", "error", err, "line", string(record))
					t.reportError(errs, err)

					continue
				}

				eventCount++
				t.log.Debug("Received event from interpreter",
					"kind", ev.Kind.String(), "call_id", ev.ID, "event_count", eventCount)

				select {
				case events <- ev:
				case <-ctx.Done():
					t.log.Debug("Context cancelled during event send", "error", ctx.Err())
					t.reportError(errs, ctx.Err())

					return
				}
			}

			if framer.Buffered() > maxBuffer {
				t.log.Error("Protocol line exceeds frame buffer limit", "buffered", framer.Buffered(), "max", maxBuffer)
				t.reportError(errs, fmt.Errorf("protocol line exceeds %d bytes", maxBuffer))

				return
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				t.log.Debug("Stdout read ended", "error", readErr)
			}

			return
		}

		select {
		case <-ctx.Done():
			t.log.Debug("Context cancelled during read", "error", ctx.Err())
			t.reportError(errs, ctx.Err())

			return
		default:
		}
	}
}

// reportError delivers an error without blocking. The consumer may have
// stopped reading already (session closed first); the error is dropped
// with a diagnostic rather than wedging the read goroutine.
func (t *PipeTransport) reportError(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		t.log.Debug("Dropping transport error, no listener", "error", err)
	}
}

// drainStderr forwards subprocess stderr line by line and keeps a capped
// copy for error reporting.
func (t *PipeTransport) drainStderr(
	ctx context.Context,
	stderrMu *sync.Mutex,
	stderrBuffer *strings.Builder,
) {
	// Simple scanner loop - relies on process kill to close the pipe and
	// unblock Scan().
	scanner := bufio.NewScanner(t.stderr)
	for scanner.Scan() {
		// Check context between lines for cooperative cancellation
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()

		stderrMu.Lock()

		if stderrBuffer.Len() < maxStderrBufferSize {
			if stderrBuffer.Len() > 0 {
				stderrBuffer.WriteString("\n")
			}

			stderrBuffer.WriteString(line)
		}

		stderrMu.Unlock()

		if t.stderrCallback != nil {
			t.stderrCallback(line)
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	// Log scanner errors (don't fail - process may have exited)
	if err := scanner.Err(); err != nil {
		t.log.Debug("Stderr scanner error", "error", err)
	}
}

// SendRequest writes one encoded call request to the interpreter's stdin.
//
// The full line plus its newline terminator is written as one message under
// the stdin mutex, so concurrent calls never interleave bytes. If the
// context is cancelled during a blocked write, stdin is closed to unblock
// the writer; subsequent calls return ErrStdinClosed.
func (t *PipeTransport) SendRequest(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if t.stdinClosed {
		return errors.ErrStdinClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.log.Debug("Sending request to interpreter", "data_len", len(data))

	// Ensure data ends with newline.
	// Explicit copy avoids mutating the caller's backing array.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		newData := make([]byte, len(data)+1)
		copy(newData, data)
		newData[len(data)] = '\n'
		data = newData
	}

	// Write in goroutine to respect context cancellation
	done := make(chan error, 1)

	go func() {
		_, err := t.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write request to interpreter", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		t.log.Debug("Request sent")

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		if t.stdin != nil {
			_ = t.stdin.Close()
			t.stdinClosed = true
		}

		select {
		case <-done:
		case <-time.After(1 * time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady checks if the transport is ready for communication.
//
// Returns true if the interpreter process is running and stdin is open.
func (t *PipeTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil
}

// Close terminates the interpreter process.
//
// This forcefully kills the process using SIGKILL. It's safe to call Close
// multiple times or on an already-terminated process.
func (t *PipeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closing = true
	t.stdinClosed = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing interpreter process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill interpreter process (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}
