package pybridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hostbridge/pybridge-go/internal/errors"
	"github.com/hostbridge/pybridge-go/internal/session"
)

// Bridge caches one warm interpreter session per target module or script.
//
// Repeated Module calls for the same target reuse the existing subprocess;
// idle subprocesses persist until Close. The bridge is safe for concurrent
// use.
type Bridge struct {
	log     *slog.Logger
	options *BridgeOptions

	mu       sync.Mutex
	sessions map[string]*session.Session
	closed   bool
}

// New creates a bridge with the given options.
func New(opts ...Option) *Bridge {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	return &Bridge{
		log:      log.With("component", "bridge"),
		options:  options,
		sessions: make(map[string]*session.Session, 4),
	}
}

// Module returns a typed facade for the target, spawning its interpreter
// session on first reference and reusing it afterwards.
//
// The contract governs only the returned facade; two facades over the same
// target share one subprocess even with different contracts. On a bridge
// with an injected transport, only one target may be opened; a second
// distinct target fails with ErrTransportBound.
func (b *Bridge) Module(ctx context.Context, target string, contract *Contract) (*Module, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.ErrBridgeClosed
	}

	s, ok := b.sessions[target]
	if !ok {
		// An injected transport holds one subprocess conversation; a
		// second target would start two dispatch loops on one event
		// channel.
		if b.options.Transport != nil && len(b.sessions) > 0 {
			return nil, fmt.Errorf("module %q: %w", target, errors.ErrTransportBound)
		}

		b.log.Debug("Spawning session", "target", target)

		var err error

		s, err = session.Open(ctx, b.log, target, b.options)
		if err != nil {
			return nil, err
		}

		b.sessions[target] = s
	} else {
		b.log.Debug("Reusing warm session", "target", target, "session_id", s.ID())
	}

	return &Module{
		name:     target,
		contract: contract,
		session:  s,
		log:      b.log.With("module", target),
	}, nil
}

// Sessions reports how many interpreter subprocesses the bridge owns.
func (b *Bridge) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.sessions)
}

// Close kills every owned subprocess and marks the bridge closed.
//
// Pending calls on every session receive a synthesized AbandonedCallError.
// It's safe to call Close multiple times.
func (b *Bridge) Close() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return nil
	}

	b.closed = true

	sessions := make([]*session.Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}

	b.sessions = nil

	b.mu.Unlock()

	b.log.Debug("Closing bridge", "sessions", len(sessions))

	var g errgroup.Group

	for _, s := range sessions {
		g.Go(s.Close)
	}

	return g.Wait()
}
