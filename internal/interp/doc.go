// Package interp handles locating the interpreter binary and building the
// command line used to launch it.
//
// Discovery order:
//  1. The explicit path in Config.InterpPath (if provided)
//  2. python3, then python, in the system PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// A version probe runs after discovery; interpreters below the supported
// minimum produce a warning only, since the bootstrap script is the real
// compatibility gate.
package interp
