package reactor

// FileEvent is a bitmask of the conditions the reactor can multiplex a file
// descriptor on.
type FileEvent uint8

const (
	// Readable means the fd has data (or a new connection, or EOF) waiting.
	Readable FileEvent = 1 << iota
	// Writable means the fd can accept a write without blocking.
	Writable
	// Barrier inverts the usual read-before-write dispatch order for this
	// fd: when both Readable and Writable fire in the same tick, Barrier
	// makes the reactor run the write callback first. This lets a
	// before-sleep hook flush buffered output to disk before any
	// read-triggered handler has a chance to queue more writes.
	Barrier
)

// polledFD is one fd reported ready by a poller, with the subset of its
// registered mask that is currently ready.
type polledFD struct {
	fd     int
	events FileEvent
}

// poller is the backend abstraction multiplexing readiness for a bounded
// set of file descriptors. Implementations: epoll (Linux), kqueue
// (Darwin), select (portable fallback). None of them are safe for
// concurrent use; the reactor owns the only goroutine that touches one.
type poller interface {
	// name identifies the backend, surfaced for diagnostics/logging.
	name() string
	// add starts monitoring fd for the given mask (Readable/Writable only;
	// Barrier is a dispatch-order hint, not something pollers monitor).
	add(fd int, mask FileEvent) error
	// del stops monitoring fd for the given mask bits. Removing a bit that
	// was never added is a no-op.
	del(fd int, mask FileEvent) error
	// poll blocks until at least one monitored fd is ready, timeoutMs
	// elapses, or an EINTR-equivalent spurious wake occurs. timeoutMs < 0
	// means block indefinitely; timeoutMs == 0 means return immediately.
	// Errors from the backend are swallowed into a zero-length result,
	// per the reactor's "no events this tick, retry next iteration" policy.
	poll(timeoutMs int, out []polledFD) ([]polledFD, error)
	// resize grows or shrinks backend-side storage to accommodate setsize
	// file descriptors. Never called while any fd >= the new size is
	// registered.
	resize(setsize int) error
	// close releases backend resources. The poller is unusable afterward.
	close() error
}
