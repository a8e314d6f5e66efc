// Package config provides configuration types shared across the bridge.
package config

import (
	"context"

	"github.com/hostbridge/pybridge-go/internal/wire"
)

// Transport defines the interface for interpreter communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation is the pipe transport in internal/subprocess,
// which spawns one interpreter process. Custom transports can be injected
// via Options.Transport.
type Transport interface {
	// Start initializes the transport and prepares it for communication.
	// This is called before any requests are sent or events received.
	Start(ctx context.Context) error

	// ReadEvents returns channels for receiving decoded protocol events and
	// errors. Decode errors for individual lines are delivered on the error
	// channel without stopping event delivery; fatal transport errors end
	// with both channels closed.
	ReadEvents(ctx context.Context) (<-chan *wire.Event, <-chan error)

	// SendRequest writes one encoded call request. The write is atomic per
	// message: the full line plus its newline terminator reaches the pipe
	// without interleaving. Safe for concurrent use.
	SendRequest(ctx context.Context, data []byte) error

	// Close terminates the transport and releases resources.
	// It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool
}
