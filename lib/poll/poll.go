package poll

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Tokens, Interest and Events
// --------------------------------------------------------------------------

// Token is an opaque identifier bound to one registered descriptor.
type Token uint64

// ListenerToken is permanently bound to the listening socket and is never
// handed out to a client connection.
const ListenerToken Token = 0

// Forever makes Poll block until at least one event is available.
const Forever time.Duration = -1

// Interest is the set of readiness kinds a registration asks for.
type Interest uint8

const (
	Readable Interest = 1 << iota // notify when the descriptor can be read
	Writable                      // notify when the descriptor can be written
)

func (i Interest) String() string {
	var parts []string
	if i&Readable != 0 {
		parts = append(parts, "readable")
	}
	if i&Writable != 0 {
		parts = append(parts, "writable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Event is a single readiness notification produced by Poll.
type Event struct {
	Token    Token
	Readable bool
	Writable bool
	// Hangup is set when the peer closed its side or the descriptor is in an
	// error state. A read is needed to find out which.
	Hangup bool
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrRegistration is returned when a descriptor cannot be bound to a token.
	ErrRegistration = errors.New("poll: registration failed")
	// ErrNotRegistered is returned when a token is not bound to any descriptor.
	ErrNotRegistered = errors.New("poll: token not registered")
	// ErrClosed is returned by all operations after Close.
	ErrClosed = errors.New("poll: poller closed")
	// ErrUnsupported is returned by NewPoller on platforms without a backend.
	ErrUnsupported = errors.New("poll: platform not supported")
)

func registrationError(token Token, format string, args ...interface{}) error {
	return fmt.Errorf("%w: token %d: %s", ErrRegistration, token, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IPoller is the readiness multiplexer.
type IPoller interface {
	// Register binds fd to token with the given interest set.
	// It fails with ErrRegistration if the token or the descriptor is already
	// bound, or if the descriptor is invalid.
	Register(fd int, token Token, interest Interest) error

	// Deregister unbinds the descriptor bound to token. It fails with
	// ErrNotRegistered if the token is unknown. It must be the last operation
	// on the descriptor before the descriptor is closed.
	Deregister(token Token) error

	// Poll appends ready events to events[:0] and returns the result.
	// It blocks until at least one event is ready, the timeout elapses or Wake
	// is called. A negative timeout (Forever) blocks indefinitely.
	// The returned slice is empty on timeout or wake-up.
	Poll(events []Event, timeout time.Duration) ([]Event, error)

	// Wake interrupts a blocked Poll. It is safe to call from any goroutine.
	Wake() error

	// Close releases all resources of the poller.
	Close() error
}

// timeoutMillis converts a timeout to the millisecond value expected by the
// kernel, rounding up so that short timeouts do not turn into busy loops.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
