package protocol

import "errors"

var (
	ErrMalformedHandshake = errors.New("protocol: malformed handshake")
	ErrMalformedCommand   = errors.New("protocol: malformed command")
	ErrUnknownDirection   = errors.New("protocol: unknown direction")
	ErrInvalidIdentifier  = errors.New("protocol: invalid identifier")
)
