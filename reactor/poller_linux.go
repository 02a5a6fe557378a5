//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// epollPoller is the preferred backend on Linux.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
	masks  map[int]FileEvent // fd -> currently-registered mask, for incremental add/del
}

func newPoller(setsize int) (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{
		epfd:   fd,
		events: make([]unix.EpollEvent, setsize),
		masks:  make(map[int]FileEvent, setsize),
	}, nil
}

func (p *epollPoller) name() string { return "epoll" }

func epollEventsFor(mask FileEvent) uint32 {
	var ev uint32
	if mask&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) add(fd int, mask FileEvent) error {
	prev, exists := p.masks[fd]
	combined := prev | (mask &^ Barrier)
	ev := &unix.EpollEvent{Events: epollEventsFor(combined), Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if exists {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(p.epfd, op, fd, ev); err != nil {
		return err
	}
	p.masks[fd] = combined
	return nil
}

func (p *epollPoller) del(fd int, mask FileEvent) error {
	prev := p.masks[fd]
	remaining := prev &^ (mask &^ Barrier)
	if remaining == 0 {
		delete(p.masks, fd)
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		if err == unix.ENOENT {
			return nil
		}
		return err
	}
	p.masks[fd] = remaining
	ev := &unix.EpollEvent{Events: epollEventsFor(remaining), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (p *epollPoller) poll(timeoutMs int, out []polledFD) ([]polledFD, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return out[:0], nil
		}
		return out[:0], nil
	}
	out = out[:0]
	for i := 0; i < n; i++ {
		ev := p.events[i]
		var mask FileEvent
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			mask |= Readable
		}
		if ev.Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0 {
			mask |= Writable
		}
		if mask != 0 {
			out = append(out, polledFD{fd: int(ev.Fd), events: mask})
		}
	}
	return out, nil
}

func (p *epollPoller) resize(setsize int) error {
	if setsize > len(p.events) {
		grown := make([]unix.EpollEvent, setsize)
		copy(grown, p.events)
		p.events = grown
	}
	return nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
