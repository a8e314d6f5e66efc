// Package wire implements the line-oriented protocol shared with the
// interpreter subprocess.
//
// Both directions carry one JSON object per line. Host to interpreter:
//
//	{"id": 3, "method": "search", "args": ["query"]}
//
// Interpreter to host, four shapes distinguished by field presence:
//
//	{"id": 0, "ready": true}
//	{"id": 3, "yield": <value>}
//	{"id": 3, "error": "<formatted trace>"}
//	{"id": 3}
//
// The bare-id record is a completion. The Framer reassembles records from
// arbitrary read chunks; DecodeEvent tags them.
package wire
