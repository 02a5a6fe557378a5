//go:build darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

// kqueuePoller is the backend on Darwin.
type kqueuePoller struct {
	kq     int
	events []unix.Kevent_t
	masks  map[int]FileEvent
}

func newPoller(setsize int) (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{
		kq:     kq,
		events: make([]unix.Kevent_t, setsize),
		masks:  make(map[int]FileEvent, setsize),
	}, nil
}

func (p *kqueuePoller) name() string { return "kqueue" }

func (p *kqueuePoller) apply(fd int, filter int16, flags uint16) error {
	ch := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}}
	_, err := unix.Kevent(p.kq, ch, nil, nil)
	return err
}

func (p *kqueuePoller) add(fd int, mask FileEvent) error {
	prev := p.masks[fd]
	want := prev | (mask &^ Barrier)
	if want&Readable != 0 && prev&Readable == 0 {
		if err := p.apply(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE); err != nil {
			return err
		}
	}
	if want&Writable != 0 && prev&Writable == 0 {
		if err := p.apply(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE); err != nil {
			return err
		}
	}
	p.masks[fd] = want
	return nil
}

func (p *kqueuePoller) del(fd int, mask FileEvent) error {
	prev := p.masks[fd]
	clear := mask &^ Barrier
	if clear&Readable != 0 && prev&Readable != 0 {
		_ = p.apply(fd, unix.EVFILT_READ, unix.EV_DELETE)
	}
	if clear&Writable != 0 && prev&Writable != 0 {
		_ = p.apply(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	}
	remaining := prev &^ clear
	if remaining == 0 {
		delete(p.masks, fd)
	} else {
		p.masks[fd] = remaining
	}
	return nil
}

func (p *kqueuePoller) poll(timeoutMs int, out []polledFD) ([]polledFD, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.events, ts)
	if err != nil {
		return out[:0], nil
	}
	// Coalesce: EVFILT_READ and EVFILT_WRITE for the same fd arrive as
	// separate kevents in one batch.
	byFD := make(map[int]FileEvent, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Ident)
		var mask FileEvent
		switch ev.Filter {
		case unix.EVFILT_READ:
			mask = Readable
		case unix.EVFILT_WRITE:
			mask = Writable
		}
		if ev.Flags&unix.EV_EOF != 0 {
			mask |= Readable
		}
		if mask == 0 {
			continue
		}
		if _, ok := byFD[fd]; !ok {
			order = append(order, fd)
		}
		byFD[fd] |= mask
	}
	out = out[:0]
	for _, fd := range order {
		out = append(out, polledFD{fd: fd, events: byFD[fd]})
	}
	return out, nil
}

func (p *kqueuePoller) resize(setsize int) error {
	if setsize > len(p.events) {
		grown := make([]unix.Kevent_t, setsize)
		copy(grown, p.events)
		p.events = grown
	}
	return nil
}

func (p *kqueuePoller) close() error {
	return unix.Close(p.kq)
}
