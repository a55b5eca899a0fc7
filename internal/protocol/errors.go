package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised by the protocol engine. The kind drives
// how the circuit reacts: codec, framing, schema, catalog and state errors on a
// single inbound datagram are logged and the datagram dropped, transport errors
// end the session.
type ErrorKind uint8

const (
	KindCodec ErrorKind = iota + 1
	KindFraming
	KindSchema
	KindCatalog
	KindTransport
	KindProtocolState
)

var errorKindStrings = map[ErrorKind]string{
	KindCodec:         "codec",
	KindFraming:       "framing",
	KindSchema:        "schema",
	KindCatalog:       "catalog",
	KindTransport:     "transport",
	KindProtocolState: "protocol_state",
}

// String returns the lowercase name of the kind, used as a log and metric label.
func (k ErrorKind) String() string {
	if s, ok := errorKindStrings[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the only error type returned by the protocol layer.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinels declared
// with NewError work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg && t.Err == nil
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error of the given kind around a cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// IsKind reports whether err carries a protocol error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ErrUnsupportedRepeatingBlock is returned when a schema containing a repeating
// block is applied. The block grammar is known but has no codec.
var ErrUnsupportedRepeatingBlock = NewError(KindSchema, "unsupported repeating block")
