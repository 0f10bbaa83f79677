package wire

import "errors"

var (
	ErrMalformedFrame = errors.New("wire: malformed frame")
	ErrUnknownKind    = errors.New("wire: unknown message kind")
)
