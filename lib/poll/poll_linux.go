//go:build linux

package poll

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("poll")

const defaultCapacity = 128

// epollPoller is an epoll(7) based IPoller. Readiness is reported
// edge-triggered, wake-ups are delivered through an eventfd that is never
// visible to callers.
type epollPoller struct {
	epfd int
	raw  []unix.EpollEvent

	// registration table, kept in both directions
	tokens map[Token]int
	fds    map[int]Token

	// wakeMu guards wakefd against a concurrent Close
	wakeMu sync.Mutex
	wakefd int
	closed bool
}

// NewPoller creates an epoll instance that reports up to capacity events per
// call to Poll. A capacity <= 0 selects the default of 128.
func NewPoller(capacity int) (IPoller, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}

	// level-triggered on purpose: the counter is drained on every wake-up
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}

	return &epollPoller{
		epfd:   epfd,
		raw:    make([]unix.EpollEvent, capacity),
		tokens: make(map[Token]int),
		fds:    make(map[int]Token),
		wakefd: wakefd,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IPoller)
// --------------------------------------------------------------------------

func (p *epollPoller) Register(fd int, token Token, interest Interest) error {
	if p.closed {
		return ErrClosed
	}
	if fd < 0 {
		return registrationError(token, "invalid descriptor %d", fd)
	}
	if bound, ok := p.tokens[token]; ok {
		return registrationError(token, "already bound to descriptor %d", bound)
	}
	if owner, ok := p.fds[fd]; ok {
		return registrationError(token, "descriptor %d already bound to token %d", fd, owner)
	}

	ev := unix.EpollEvent{
		Events: toEpollEvents(interest) | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return registrationError(token, "epoll ctl add: %v", err)
	}

	p.tokens[token] = fd
	p.fds[fd] = token
	Logger.Debugf("registered descriptor %d as token %d (%s)", fd, token, interest)
	return nil
}

func (p *epollPoller) Deregister(token Token) error {
	if p.closed {
		return ErrClosed
	}
	fd, ok := p.tokens[token]
	if !ok {
		return fmt.Errorf("%w: token %d", ErrNotRegistered, token)
	}

	// the kernel forgets closed descriptors on its own, so the table entry is
	// dropped no matter what epoll_ctl reports
	delete(p.tokens, token)
	delete(p.fds, fd)

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del (token %d, descriptor %d): %w", token, fd, err)
	}
	Logger.Debugf("deregistered descriptor %d (token %d)", fd, token)
	return nil
}

func (p *epollPoller) Poll(events []Event, timeout time.Duration) ([]Event, error) {
	events = events[:0]
	if p.closed {
		return events, ErrClosed
	}

	n, err := unix.EpollWait(p.epfd, p.raw, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return events, nil
		}
		return events, fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		raw := p.raw[i]
		fd := int(raw.Fd)

		if fd == p.wakefd {
			p.drainWake()
			continue
		}

		token, ok := p.fds[fd]
		if !ok {
			continue
		}

		events = append(events, Event{
			Token:    token,
			Readable: raw.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Hangup:   raw.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0,
		})
	}
	return events, nil
}

func (p *epollPoller) Wake() error {
	p.wakeMu.Lock()
	defer p.wakeMu.Unlock()
	if p.closed {
		return ErrClosed
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakefd, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, a wake-up is pending anyway
		return nil
	}
	return err
}

func (p *epollPoller) Close() error {
	p.wakeMu.Lock()
	defer p.wakeMu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true

	if len(p.tokens) > 0 {
		Logger.Warningf("closing poller with %d registered descriptors", len(p.tokens))
	}

	errW := unix.Close(p.wakefd)
	errE := unix.Close(p.epfd)
	if errE != nil {
		return fmt.Errorf("close epoll: %w", errE)
	}
	if errW != nil {
		return fmt.Errorf("close eventfd: %w", errW)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func toEpollEvents(interest Interest) uint32 {
	var events uint32
	if interest&Readable != 0 {
		events |= unix.EPOLLIN
	}
	if interest&Writable != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}
