package config

import "log/slog"

// Options configures how interpreter sessions are spawned and driven.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// InterpPath is the explicit path to the interpreter binary.
	// If empty, the binary is searched in PATH and common locations.
	InterpPath string

	// Bootstrap is the path to the interpreter-side bootstrap script that
	// loads user code and runs the protocol read loop. The bridge treats
	// it as an opaque input; its contents are not part of the core.
	Bootstrap string

	// Args provides additional arguments passed to the interpreter after
	// the bootstrap script and target name.
	Args []string

	// Env provides additional environment variables for the subprocess.
	Env map[string]string

	// Cwd sets the working directory for the subprocess.
	Cwd string

	// Stderr is a callback invoked per line of subprocess stderr output.
	// If nil, stderr is forwarded to the host's own stderr stream.
	Stderr func(string)

	// MaxBufferSize caps framer buffering of subprocess stdout in bytes.
	// If nil, a default is used.
	MaxBufferSize *int

	// SkipVersionCheck skips the interpreter version probe during discovery.
	SkipVersionCheck bool

	// Transport allows injecting a custom transport implementation.
	// If nil, a pipe transport is created per session automatically.
	Transport Transport
}
