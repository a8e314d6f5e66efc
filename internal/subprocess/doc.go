// Package subprocess implements the pipe transport: one interpreter
// subprocess per transport, stdin/stdout carrying the line protocol and
// stderr forwarded to the host's diagnostic stream.
package subprocess
