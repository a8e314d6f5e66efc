package wire

import (
	"encoding/json"
	"fmt"

	"github.com/hostbridge/pybridge-go/internal/errors"
)

// EventKind identifies one of the four protocol event variants.
type EventKind int

const (
	// KindReady is the session-bootstrap acknowledgment. Emitted at most
	// once per session, before any call-specific events, carries no payload.
	KindReady EventKind = iota

	// KindYield carries one produced value for a call. A non-generator
	// method yields exactly once with its entire return value; a generator
	// yields once per item, in production order.
	KindYield

	// KindError is terminal: the remote method raised. At most one per call.
	KindError

	// KindCompletion is terminal: the call finished. Exactly one per call
	// unless preempted by KindError.
	KindCompletion
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindYield:
		return "yield"
	case KindError:
		return "error"
	case KindCompletion:
		return "completion"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one decoded protocol record from the interpreter.
//
// Value is kept opaque at this layer; shape validation against the
// declared contract happens separately so that decode failures and
// shape-mismatch failures stay distinguishable error kinds.
type Event struct {
	ID    int64
	Kind  EventKind
	Value json.RawMessage // yield payload, present only for KindYield
	Trace string          // remote trace text, present only for KindError
}

// Terminal reports whether the event ends its call's lifecycle.
func (e *Event) Terminal() bool {
	return e.Kind == KindError || e.Kind == KindCompletion
}

// Request is one outgoing call request. Correlation ids are monotonic
// integers, unique per session and never reused.
type Request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// rawEvent mirrors the four wire shapes. Pointer and RawMessage fields
// distinguish an absent key from an explicit null.
type rawEvent struct {
	ID    int64           `json:"id"`
	Ready *bool           `json:"ready"`
	Yield json.RawMessage `json:"yield"`
	Error *string         `json:"error"`
}

// DecodeEvent parses one framed record into a tagged event.
//
// The variant is chosen by field presence, in priority order:
// ready, then yield, then error; a record carrying none of the three is a
// completion. A record that is not valid JSON yields a ProtocolParseError;
// callers drop the line and keep the session alive.
func DecodeEvent(line []byte) (*Event, error) {
	var raw rawEvent

	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, &errors.ProtocolParseError{
			RawLine: string(line),
			Err:     err,
		}
	}

	ev := &Event{ID: raw.ID}

	switch {
	case raw.Ready != nil:
		ev.Kind = KindReady
	case raw.Yield != nil:
		ev.Kind = KindYield
		ev.Value = raw.Yield
	case raw.Error != nil:
		ev.Kind = KindError
		ev.Trace = *raw.Error
	default:
		ev.Kind = KindCompletion
	}

	return ev, nil
}

// EncodeRequest serializes a call request as a single JSON object with no
// trailing newline; the transport appends exactly one when writing.
func EncodeRequest(req *Request) ([]byte, error) {
	if req.Args == nil {
		// The interpreter expects "args" to always be an array.
		req.Args = []any{}
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return data, nil
}
