package pybridge

import (
	"log/slog"

	"github.com/hostbridge/pybridge-go/internal/config"
)

// BridgeOptions is an alias for the shared configuration struct.
type BridgeOptions = config.Options

// Option configures BridgeOptions using the functional options pattern.
type Option func(*BridgeOptions)

// applyOptions applies functional options to a BridgeOptions struct.
func applyOptions(opts []Option) *BridgeOptions {
	options := &BridgeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *BridgeOptions) {
		o.Logger = logger
	}
}

// WithInterpPath sets the explicit path to the interpreter binary.
// If not set, the binary is searched in PATH and common locations.
func WithInterpPath(path string) Option {
	return func(o *BridgeOptions) {
		o.InterpPath = path
	}
}

// WithBootstrap sets the path to the interpreter-side bootstrap script that
// loads the target module and speaks the line protocol.
func WithBootstrap(path string) Option {
	return func(o *BridgeOptions) {
		o.Bootstrap = path
	}
}

// WithArgs provides additional arguments passed to the interpreter after
// the bootstrap script and target name.
func WithArgs(args ...string) Option {
	return func(o *BridgeOptions) {
		o.Args = args
	}
}

// WithEnv provides additional environment variables for the subprocess.
func WithEnv(env map[string]string) Option {
	return func(o *BridgeOptions) {
		o.Env = env
	}
}

// WithCwd sets the working directory for the subprocess.
func WithCwd(cwd string) Option {
	return func(o *BridgeOptions) {
		o.Cwd = cwd
	}
}

// WithStderr sets a callback invoked per line of subprocess stderr output.
// If not set, stderr is forwarded to the host's own stderr stream.
func WithStderr(callback func(string)) Option {
	return func(o *BridgeOptions) {
		o.Stderr = callback
	}
}

// WithMaxBufferSize caps framer buffering of subprocess stdout in bytes.
func WithMaxBufferSize(size int) Option {
	return func(o *BridgeOptions) {
		o.MaxBufferSize = &size
	}
}

// WithSkipVersionCheck skips the interpreter version probe during discovery.
func WithSkipVersionCheck() Option {
	return func(o *BridgeOptions) {
		o.SkipVersionCheck = true
	}
}

// WithTransport injects a custom transport implementation.
// If not set, a pipe transport is created per session automatically.
//
// An injected transport carries a single subprocess conversation, so a
// bridge configured this way can drive only one target; requesting a
// second distinct target fails with ErrTransportBound.
func WithTransport(transport Transport) Option {
	return func(o *BridgeOptions) {
		o.Transport = transport
	}
}
