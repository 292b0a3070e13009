//go:build linux

package poll

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// socketPair creates a connected pair of non-blocking unix stream sockets
func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func newTestPoller(t *testing.T) IPoller {
	t.Helper()
	p, err := NewPoller(16)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	return p
}

// TestPollReadable tests that data written to the peer is reported for the right token
func TestPollReadable(t *testing.T) {
	p := newTestPoller(t)
	defer p.Close()

	local, remote := socketPair(t)
	if err := p.Register(local, 7, Readable); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := unix.Write(remote, []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := p.Poll(nil, time.Second)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Token != 7 || !events[0].Readable {
		t.Errorf("unexpected event %+v", events[0])
	}

	if err := p.Deregister(7); err != nil {
		t.Errorf("Deregister: %v", err)
	}
}

// TestPollTimeout tests that Poll returns an empty batch when nothing is ready
func TestPollTimeout(t *testing.T) {
	p := newTestPoller(t)
	defer p.Close()

	local, _ := socketPair(t)
	if err := p.Register(local, 1, Readable); err != nil {
		t.Fatalf("Register: %v", err)
	}

	start := time.Now()
	events, err := p.Poll(make([]Event, 0, 4), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Errorf("Poll returned before the timeout elapsed")
	}
	_ = p.Deregister(1)
}

// TestPollWritable tests that a fresh socket is reported writable
func TestPollWritable(t *testing.T) {
	p := newTestPoller(t)
	defer p.Close()

	local, _ := socketPair(t)
	if err := p.Register(local, 3, Readable|Writable); err != nil {
		t.Fatalf("Register: %v", err)
	}

	events, err := p.Poll(nil, time.Second)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 1 || !events[0].Writable || events[0].Readable {
		t.Errorf("expected a single writable event, got %+v", events)
	}
	_ = p.Deregister(3)
}

// TestPollHangup tests that closing the peer is reported
func TestPollHangup(t *testing.T) {
	p := newTestPoller(t)
	defer p.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])

	if err := p.Register(fds[0], 5, Readable); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_ = unix.Close(fds[1])

	events, err := p.Poll(nil, time.Second)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(events) != 1 || !events[0].Hangup {
		t.Errorf("expected a hangup event, got %+v", events)
	}
	_ = p.Deregister(5)
}

// TestRegisterErrors tests the registration table invariants
func TestRegisterErrors(t *testing.T) {
	p := newTestPoller(t)
	defer p.Close()

	a, b := socketPair(t)

	if err := p.Register(a, 1, Readable); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// same token, other descriptor
	if err := p.Register(b, 1, Readable); !errors.Is(err, ErrRegistration) {
		t.Errorf("expected ErrRegistration for a bound token, got %v", err)
	}

	// same descriptor, other token
	if err := p.Register(a, 2, Readable); !errors.Is(err, ErrRegistration) {
		t.Errorf("expected ErrRegistration for a bound descriptor, got %v", err)
	}

	// invalid descriptor
	if err := p.Register(-1, 3, Readable); !errors.Is(err, ErrRegistration) {
		t.Errorf("expected ErrRegistration for an invalid descriptor, got %v", err)
	}

	// unknown token
	if err := p.Deregister(42); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}

	// token becomes free again after deregistration
	if err := p.Deregister(1); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	if err := p.Register(b, 1, Readable); err != nil {
		t.Errorf("token should be bindable after deregistration: %v", err)
	}
	if err := p.Deregister(1); err != nil {
		t.Errorf("Deregister: %v", err)
	}
}

// TestWake tests that Wake interrupts a blocked Poll from another goroutine
func TestWake(t *testing.T) {
	p := newTestPoller(t)
	defer p.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		if err := p.Wake(); err != nil {
			t.Errorf("Wake: %v", err)
		}
	}()

	done := make(chan error, 1)
	go func() {
		events, err := p.Poll(nil, Forever)
		if err == nil && len(events) != 0 {
			err = errors.New("wake-up produced events")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Poll was not woken up")
	}
}

// TestClosed tests that a closed poller rejects all operations
func TestClosed(t *testing.T) {
	p := newTestPoller(t)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := p.Register(0, 1, Readable); !errors.Is(err, ErrClosed) {
		t.Errorf("Register after Close: expected ErrClosed, got %v", err)
	}
	if _, err := p.Poll(nil, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Poll after Close: expected ErrClosed, got %v", err)
	}
	if err := p.Wake(); !errors.Is(err, ErrClosed) {
		t.Errorf("Wake after Close: expected ErrClosed, got %v", err)
	}
	if err := p.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: expected ErrClosed, got %v", err)
	}
}

// TestTimeoutMillis tests the rounding of poll timeouts
func TestTimeoutMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{Forever, -1},
		{0, 0},
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{time.Second, 1000},
	}
	for _, tc := range tests {
		if got := timeoutMillis(tc.in); got != tc.want {
			t.Errorf("timeoutMillis(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
