//go:build !linux && !darwin

package reactor

import (
	"golang.org/x/sys/unix"
)

// selectPoller is the fallback backend used on platforms without a native
// readiness-notification facility. unix.Select caps the number of
// descriptors it can watch at FD_SETSIZE (historically 1024); that ceiling
// is an artifact of this backend, not of the reactor itself.
type selectPoller struct {
	masks map[int]FileEvent
}

func newPoller(setsize int) (poller, error) {
	return &selectPoller{masks: make(map[int]FileEvent, setsize)}, nil
}

func (p *selectPoller) name() string { return "select" }

func (p *selectPoller) add(fd int, mask FileEvent) error {
	if fd >= len(unix.FdSet{}.Bits)*64 {
		return ErrFDOutOfRange
	}
	p.masks[fd] |= mask &^ Barrier
	return nil
}

func (p *selectPoller) del(fd int, mask FileEvent) error {
	remaining := p.masks[fd] &^ (mask &^ Barrier)
	if remaining == 0 {
		delete(p.masks, fd)
	} else {
		p.masks[fd] = remaining
	}
	return nil
}

// fdSetBit and fdSetIsSet manipulate unix.FdSet directly: the x/sys/unix
// struct exposes only a raw Bits array, with no Set/IsSet helpers.
func fdSetBit(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdSetIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}

func (p *selectPoller) poll(timeoutMs int, out []polledFD) ([]polledFD, error) {
	var rfds, wfds unix.FdSet
	maxfd := -1
	for fd, mask := range p.masks {
		if mask&Readable != 0 {
			fdSetBit(&rfds, fd)
		}
		if mask&Writable != 0 {
			fdSetBit(&wfds, fd)
		}
		if fd > maxfd {
			maxfd = fd
		}
	}
	out = out[:0]
	if maxfd < 0 {
		return out, nil
	}
	var tv *unix.Timeval
	if timeoutMs >= 0 {
		t := unix.NsecToTimeval(int64(timeoutMs) * 1e6)
		tv = &t
	}
	_, err := unix.Select(maxfd+1, &rfds, &wfds, nil, tv)
	if err != nil {
		return out[:0], nil
	}
	for fd, mask := range p.masks {
		var ready FileEvent
		if mask&Readable != 0 && fdSetIsSet(&rfds, fd) {
			ready |= Readable
		}
		if mask&Writable != 0 && fdSetIsSet(&wfds, fd) {
			ready |= Writable
		}
		if ready != 0 {
			out = append(out, polledFD{fd: fd, events: ready})
		}
	}
	return out, nil
}

func (p *selectPoller) resize(setsize int) error { return nil }

func (p *selectPoller) close() error { return nil }
