package reactor

import (
	"time"
)

// ProcessFlags selects which half of an iteration Process should run.
type ProcessFlags int

const (
	// ProcessFileEvents dispatches ready file descriptors.
	ProcessFileEvents ProcessFlags = 1 << iota
	// ProcessTimeEvents fires expired timers.
	ProcessTimeEvents
	// DontWait makes poll return immediately instead of blocking on the
	// nearest timer (or forever, if there are none).
	DontWait
	// CallBeforeSleep invokes the before-sleep hook ahead of poll.
	CallBeforeSleep
	// CallAfterSleep invokes the after-sleep hook after poll returns.
	CallAfterSleep

	// ProcessAll runs a complete iteration: both event classes plus both
	// hooks.
	ProcessAll = ProcessFileEvents | ProcessTimeEvents | CallBeforeSleep | CallAfterSleep
)

// NoMore is returned by a TimerFunc to mark its time event for deletion
// instead of rescheduling it.
const NoMore = -1

// ReadCallback and WriteCallback are invoked when a registered fd becomes
// ready. handle is whatever opaque value was passed to RegisterFile.
type ReadCallback func(r *Reactor, fd int, handle any)
type WriteCallback func(r *Reactor, fd int, handle any)

// TimerFunc runs when a time event fires. Returning a positive millisecond
// delay reschedules the event that many milliseconds from now; returning
// NoMore deletes it.
type TimerFunc func(r *Reactor, id int64, handle any) int64

// Finalizer runs exactly once, when a time event is actually freed (either
// because it returned NoMore, was deleted, or the reactor itself is
// destroyed).
type Finalizer func(handle any)

type fileSlot struct {
	mask     FileEvent
	readCB   ReadCallback
	writeCB  WriteCallback
	handle   any
}

func (s *fileSlot) active() bool { return s.mask != 0 }

type timeEvent struct {
	id        int64
	when      time.Time
	fn        TimerFunc
	handle    any
	finalizer Finalizer
	refcount  int
	deleted   bool // soft-delete: id kept, but pending sweep
	next      *timeEvent
	prev      *timeEvent
}

// Reactor is the single-threaded event loop multiplexing file descriptor
// readiness and timers. Every exported method must be called from the
// goroutine running Process/RunMain, except where documented otherwise;
// there is no internal synchronization.
type Reactor struct {
	setsize int
	files   []fileSlot
	maxfd   int
	p       poller

	timeHead    *timeEvent
	nextTimerID int64
	lastWallTime time.Time

	stopped bool
	running bool

	beforeSleep func(*Reactor)
	afterSleep  func(*Reactor)

	logger Logger

	pollBuf []polledFD
}

// New creates a Reactor able to register file descriptors 0..setsize-1,
// choosing the best available poll backend for the host platform.
func New(setsize int) (*Reactor, error) {
	p, err := newPoller(setsize)
	if err != nil {
		return nil, err
	}
	return &Reactor{
		setsize:      setsize,
		files:        make([]fileSlot, setsize),
		maxfd:        -1,
		p:            p,
		nextTimerID:  1,
		lastWallTime: time.Now(),
		logger:       NewNoOpLogger(),
	}, nil
}

// SetLogger installs the structured logger used for diagnostics. Passing
// nil installs a no-op logger.
func (r *Reactor) SetLogger(l Logger) {
	if l == nil {
		l = NewNoOpLogger()
	}
	r.logger = l
}

// SetBeforeSleep installs the hook run immediately before the reactor
// blocks in poll. Applications use this to flush buffered writes (e.g. to
// an append-only log) before new read-triggered work can run.
func (r *Reactor) SetBeforeSleep(fn func(*Reactor)) { r.beforeSleep = fn }

// SetAfterSleep installs the hook run immediately after poll returns,
// before any ready fd is dispatched.
func (r *Reactor) SetAfterSleep(fn func(*Reactor)) { r.afterSleep = fn }

// PollerName reports which backend (epoll/kqueue/select) is in use.
func (r *Reactor) PollerName() string { return r.p.name() }

// Destroy releases backend resources. The Reactor is unusable afterward.
func (r *Reactor) Destroy() error {
	for e := r.timeHead; e != nil; {
		next := e.next
		if e.finalizer != nil {
			e.finalizer(e.handle)
		}
		e = next
	}
	r.timeHead = nil
	return r.p.close()
}

// Stop requests that RunMain return after the current iteration
// completes. Safe to call from within a handler.
func (r *Reactor) Stop() { r.stopped = true }

// Resize changes the reactor's fd capacity. It fails if any fd >= newsize
// is currently registered.
func (r *Reactor) Resize(newsize int) error {
	if newsize < len(r.files) {
		for fd := newsize; fd < len(r.files); fd++ {
			if r.files[fd].active() {
				return ErrFDInUse
			}
		}
	}
	if err := r.p.resize(newsize); err != nil {
		return err
	}
	grown := make([]fileSlot, newsize)
	copy(grown, r.files)
	r.files = grown
	r.setsize = newsize
	if r.maxfd >= newsize {
		r.maxfd = -1
		for fd := newsize - 1; fd >= 0; fd-- {
			if r.files[fd].active() {
				r.maxfd = fd
				break
			}
		}
	}
	return nil
}

// RegisterFile adds mask (additive with any previously-registered bits)
// to fd's interest set, installing callbacks for any newly-added bits.
// handle is stashed and passed back to every callback invocation for fd.
func (r *Reactor) RegisterFile(fd int, mask FileEvent, read ReadCallback, write WriteCallback, handle any) error {
	if fd < 0 || fd >= len(r.files) {
		return ErrFDOutOfRange
	}
	slot := &r.files[fd]
	wasActive := slot.active()
	slot.mask |= mask
	if mask&Readable != 0 && read != nil {
		slot.readCB = read
	}
	if mask&Writable != 0 && write != nil {
		slot.writeCB = write
	}
	slot.handle = handle
	if !wasActive {
		if err := r.p.add(fd, slot.mask); err != nil {
			slot.mask = 0
			return err
		}
	} else if mask&^Barrier != 0 {
		if err := r.p.add(fd, slot.mask); err != nil {
			return err
		}
	}
	if fd > r.maxfd {
		r.maxfd = fd
	}
	return nil
}

// UnregisterFile removes mask from fd's interest set. Unregistering
// Writable implicitly unregisters Barrier too, since a barrier only makes
// sense paired with a pending write.
func (r *Reactor) UnregisterFile(fd int, mask FileEvent) error {
	if fd < 0 || fd >= len(r.files) {
		return ErrFDOutOfRange
	}
	slot := &r.files[fd]
	if !slot.active() {
		return nil
	}
	if mask&Writable != 0 {
		mask |= Barrier
	}
	if mask&^Barrier != 0 {
		if err := r.p.del(fd, mask); err != nil {
			return err
		}
	}
	slot.mask &^= mask
	if slot.mask == 0 {
		slot.readCB = nil
		slot.writeCB = nil
		slot.handle = nil
		if fd == r.maxfd {
			r.maxfd = -1
			for i := fd - 1; i >= 0; i-- {
				if r.files[i].active() {
					r.maxfd = i
					break
				}
			}
		}
	}
	return nil
}

// GetFileMask reports the currently-registered interest mask for fd.
func (r *Reactor) GetFileMask(fd int) FileEvent {
	if fd < 0 || fd >= len(r.files) {
		return 0
	}
	return r.files[fd].mask
}

// CreateTimeEvent schedules fn to run after delayMs milliseconds,
// returning an id usable with DeleteTimeEvent. New events are head-inserted
// into the time event list.
func (r *Reactor) CreateTimeEvent(delayMs int64, fn TimerFunc, handle any, finalizer Finalizer) int64 {
	id := r.nextTimerID
	r.nextTimerID++
	e := &timeEvent{
		id:        id,
		when:      time.Now().Add(time.Duration(delayMs) * time.Millisecond),
		fn:        fn,
		handle:    handle,
		finalizer: finalizer,
		next:      r.timeHead,
	}
	if r.timeHead != nil {
		r.timeHead.prev = e
	}
	r.timeHead = e
	return id
}

// DeleteTimeEvent soft-deletes a time event: if the event is not currently
// executing (refcount == 0) it is removed and finalized on the next sweep
// within this call; if it is mid-execution (a recursive delete from within
// its own TimerFunc), it is flagged deleted (its id is kept) and the sweep
// at the end of the current firing pass removes it.
func (r *Reactor) DeleteTimeEvent(id int64) error {
	for e := r.timeHead; e != nil; e = e.next {
		if e.id != id {
			continue
		}
		e.deleted = true
		if e.refcount == 0 {
			r.unlinkTimeEvent(e)
			if e.finalizer != nil {
				e.finalizer(e.handle)
			}
		}
		return nil
	}
	return ErrUnknownTimer
}

func (r *Reactor) unlinkTimeEvent(e *timeEvent) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		r.timeHead = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	e.next, e.prev = nil, nil
}

// nearestTimer finds the soonest-firing, non-deleted time event. Finding
// it is O(N) over the list by design: in practice a process has a handful
// of live timers, and the simplicity of a flat list avoids a second
// invariant to keep consistent with the soft-delete/refcount scheme.
func (r *Reactor) nearestTimer() (*time.Time, bool) {
	var nearest *time.Time
	for e := r.timeHead; e != nil; e = e.next {
		if e.deleted {
			continue
		}
		if nearest == nil || e.when.Before(*nearest) {
			w := e.when
			nearest = &w
		}
	}
	if nearest == nil {
		return nil, false
	}
	return nearest, true
}

// Process runs exactly one iteration of the reactor per the ordering in
// §4.4 of the design: compute the poll timeout, run before-sleep, poll,
// run after-sleep, dispatch ready file descriptors, then fire expired
// timers. It returns the number of file and timer events processed.
func (r *Reactor) Process(flags ProcessFlags) (int, error) {
	processed := 0

	// Step 1: compute timeout.
	timeoutMs := -1
	if flags&ProcessTimeEvents != 0 && flags&DontWait == 0 {
		if when, ok := r.nearestTimer(); ok {
			d := time.Until(*when)
			if d < 0 {
				d = 0
			}
			timeoutMs = int((d + time.Millisecond - 1) / time.Millisecond)
		}
	} else if flags&DontWait != 0 {
		timeoutMs = 0
	}
	if flags&ProcessFileEvents == 0 && flags&ProcessTimeEvents == 0 {
		return 0, nil
	}

	// Step 2: before-sleep.
	if flags&CallBeforeSleep != 0 && r.beforeSleep != nil {
		r.beforeSleep(r)
	}

	// Step 3: poll. Skipped only when file events were not requested and
	// there is no timeout to wait for (no pending timer, DontWait unset);
	// whenever file events are requested, poll is called even if no fd is
	// registered.
	if flags&ProcessFileEvents != 0 || timeoutMs >= 0 {
		var err error
		r.pollBuf, err = r.p.poll(timeoutMs, r.pollBuf)
		if err != nil {
			r.logger.Log(Entry{Level: LevelWarn, Category: "poll", Message: "backend poll error, treated as zero events", Err: err})
			r.pollBuf = r.pollBuf[:0]
		}
	} else {
		r.pollBuf = r.pollBuf[:0]
	}

	// Step 4: after-sleep.
	if flags&CallAfterSleep != 0 && r.afterSleep != nil {
		r.afterSleep(r)
	}

	// Step 5: dispatch ready fds.
	if flags&ProcessFileEvents != 0 {
		for _, pf := range r.pollBuf {
			if pf.fd < 0 || pf.fd >= len(r.files) {
				continue
			}
			slot := &r.files[pf.fd]
			if !slot.active() {
				continue
			}
			ready := pf.events & slot.mask
			if ready == 0 {
				continue
			}
			readCB, writeCB, handle := slot.readCB, slot.writeCB, slot.handle
			barrier := slot.mask&Barrier != 0
			if barrier {
				if ready&Writable != 0 && writeCB != nil {
					writeCB(r, pf.fd, handle)
					processed++
				}
				if ready&Readable != 0 && readCB != nil && r.files[pf.fd].active() {
					readCB(r, pf.fd, handle)
					processed++
				}
			} else {
				if ready&Readable != 0 && readCB != nil {
					readCB(r, pf.fd, handle)
					processed++
				}
				if ready&Writable != 0 && writeCB != nil && r.files[pf.fd].active() {
					writeCB(r, pf.fd, handle)
					processed++
				}
			}
		}
	}

	// Step 6: timers.
	if flags&ProcessTimeEvents != 0 {
		processed += r.processTimeEvents()
	}

	return processed, nil
}

// processTimeEvents implements the clock-skew recovery and firing/sweep
// pass described in §4.4 step 6. Events created by a firing TimerFunc
// during this very pass are identified by id > maxID (ids are assigned
// monotonically) and are guaranteed not to fire until the next iteration.
func (r *Reactor) processTimeEvents() int {
	now := time.Now()
	if now.Before(r.lastWallTime) {
		r.logger.Log(Entry{Level: LevelWarn, Category: "timer", Message: "wall clock moved backward, firing all pending timers"})
		for e := r.timeHead; e != nil; e = e.next {
			e.when = time.Time{}
		}
	}
	r.lastWallTime = now

	maxID := r.nextTimerID - 1
	fired := 0

	e := r.timeHead
	for e != nil {
		next := e.next
		if e.id > maxID || e.deleted {
			e = next
			continue
		}
		if e.when.After(now) {
			e = next
			continue
		}
		e.refcount++
		delay := e.fn(r, e.id, e.handle)
		e.refcount--
		fired++
		if delay == NoMore {
			e.deleted = true
		} else if !e.deleted {
			e.when = time.Now().Add(time.Duration(delay) * time.Millisecond)
		}
		e = next
	}

	// Sweep: remove and finalize every non-executing, deleted event.
	e = r.timeHead
	for e != nil {
		next := e.next
		if e.deleted && e.refcount == 0 {
			r.unlinkTimeEvent(e)
			if e.finalizer != nil {
				e.finalizer(e.handle)
			}
		}
		e = next
	}

	return fired
}

// RunMain drives Process(ProcessAll) until Stop is called.
func (r *Reactor) RunMain() error {
	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	defer func() { r.running = false }()

	r.stopped = false
	for !r.stopped {
		if _, err := r.Process(ProcessAll); err != nil {
			return err
		}
	}
	return nil
}

// WaitFD performs a single synchronous poll for mask on fd, independent of
// the reactor's main registration table, blocking up to timeoutMs
// milliseconds. It is a convenience for callers that need a one-shot
// readiness check (e.g. during startup) without registering a persistent
// handler.
func (r *Reactor) WaitFD(fd int, mask FileEvent, timeoutMs int) (FileEvent, error) {
	tmp, err := newPoller(fd + 1)
	if err != nil {
		return 0, err
	}
	defer tmp.close()
	if err := tmp.add(fd, mask); err != nil {
		return 0, err
	}
	results, err := tmp.poll(timeoutMs, nil)
	if err != nil {
		return 0, err
	}
	for _, pf := range results {
		if pf.fd == fd {
			return pf.events, nil
		}
	}
	return 0, nil
}
