package loader

import "errors"

// Loader error kinds. Wrapped with fmt.Errorf("...: %w", ...)
// at the call site so callers can still errors.Is/errors.As against these.
var (
	// ErrBadLocation is returned for an unknown protocol or serialization.
	ErrBadLocation = errors.New("loader: bad location")
	// ErrDecode is returned when a serializer fails to decode fetched bytes.
	ErrDecode = errors.New("loader: decode error")
	// ErrIO is returned when a protocol implementation fails to fetch data.
	ErrIO = errors.New("loader: io error")
	// ErrUnauthorized is returned when a protocol denies access to a path.
	ErrUnauthorized = errors.New("loader: unauthorized")
)
