package reactor

import "errors"

// Standard errors returned by reactor operations. These are argument and
// bounds errors the host is expected to handle; they never panic.
var (
	// ErrFDOutOfRange is returned by RegisterFile when fd >= the reactor's
	// setsize.
	ErrFDOutOfRange = errors.New("reactor: fd out of range")

	// ErrFDInUse is returned by Resize when shrinking below an fd that is
	// still registered.
	ErrFDInUse = errors.New("reactor: fd still registered above new setsize")

	// ErrAlreadyRunning is returned by RunMain when called on a reactor
	// whose loop is already executing.
	ErrAlreadyRunning = errors.New("reactor: already running")

	// ErrUnknownTimer is returned by DeleteTimeEvent for an id that was
	// never created, or was already swept.
	ErrUnknownTimer = errors.New("reactor: unknown time event id")
)
