package channel

import "errors"

var (
	// Address and kind errors
	ErrInvalidAddress  = errors.New("invalid address")
	ErrUnsupportedKind = errors.New("unsupported channel kind")

	// Connection errors
	ErrAddressInUse      = errors.New("address already in use")
	ErrConnectionRefused = errors.New("connection refused")
	ErrAlreadyConnected  = errors.New("pair already connected")
	ErrContextClosed     = errors.New("channel context closed")

	// Endpoint errors
	ErrClosed   = errors.New("endpoint closed")
	ErrPeerGone = errors.New("peer endpoint closed")
)
