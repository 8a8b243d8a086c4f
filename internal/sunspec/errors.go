package sunspec

import "errors"

var (
	// ErrTransport covers failures below the Modbus application layer:
	// refused connections, timeouts, short or malformed frames.
	ErrTransport = errors.New("transport error")
	// ErrProtocol is a Modbus exception response from the device.
	ErrProtocol = errors.New("modbus exception")
	// ErrDecode means a word slice could not be unpacked into its type.
	ErrDecode = errors.New("decode error")
)
