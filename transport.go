package pybridge

import "github.com/hostbridge/pybridge-go/internal/config"

// Transport defines the interface for interpreter communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., remote interpreters).
//
// The default implementation is the pipe transport, which spawns one
// interpreter subprocess per session. Custom transports can be injected
// via WithTransport.
type Transport = config.Transport
