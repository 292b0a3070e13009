package base

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/eKV/lib/poll"
)

// fakePoller records registrations without touching the kernel
type fakePoller struct {
	bound   map[poll.Token]int
	failFd  int
	removed []poll.Token
}

func newFakePoller() *fakePoller {
	return &fakePoller{bound: make(map[poll.Token]int), failFd: -1}
}

func (p *fakePoller) Register(fd int, token poll.Token, _ poll.Interest) error {
	if fd == p.failFd {
		return poll.ErrRegistration
	}
	if _, ok := p.bound[token]; ok {
		return poll.ErrRegistration
	}
	p.bound[token] = fd
	return nil
}

func (p *fakePoller) Deregister(token poll.Token) error {
	if _, ok := p.bound[token]; !ok {
		return poll.ErrNotRegistered
	}
	delete(p.bound, token)
	p.removed = append(p.removed, token)
	return nil
}

func (p *fakePoller) Poll(events []poll.Event, _ time.Duration) ([]poll.Event, error) {
	return events[:0], nil
}
func (p *fakePoller) Wake() error  { return nil }
func (p *fakePoller) Close() error { return nil }

// assertInSync checks that the registry and the poller know the same tokens
func assertInSync(t *testing.T, r *registry, p *fakePoller) {
	t.Helper()
	if r.len() != len(p.bound) {
		t.Fatalf("registry has %d entries, poller has %d", r.len(), len(p.bound))
	}
	for _, token := range r.tokens() {
		fd, ok := p.bound[token]
		if !ok {
			t.Fatalf("token %d in registry but not in poller", token)
		}
		if fd != r.lookup(token).descriptor() {
			t.Fatalf("token %d bound to fd %d in poller, %d in registry", token, fd, r.lookup(token).descriptor())
		}
	}
}

// TestRegistryNextToken tests that tokens are fresh and never the listener token
func TestRegistryNextToken(t *testing.T) {
	p := newFakePoller()
	r := newRegistry(p)

	if err := r.insert(poll.ListenerToken, &listener{fd: 3}, poll.Readable); err != nil {
		t.Fatalf("insert listener: %v", err)
	}

	seen := make(map[poll.Token]bool)
	var last poll.Token
	for i := 0; i < 100; i++ {
		token := r.nextToken()
		if token == poll.ListenerToken {
			t.Fatal("nextToken returned the listener token")
		}
		if seen[token] {
			t.Fatalf("token %d handed out twice", token)
		}
		if token <= last {
			t.Fatalf("token %d not greater than %d", token, last)
		}
		seen[token] = true
		last = token

		if err := r.insert(token, &connection{token: token, fd: 100 + i}, poll.Readable); err != nil {
			t.Fatalf("insert: %v", err)
		}
		// remove every second connection, its token must not come back
		if i%2 == 0 {
			if _, err := r.remove(token); err != nil {
				t.Fatalf("remove: %v", err)
			}
		}
	}
	assertInSync(t, r, p)
}

// TestRegistryInsertFailure tests that nothing is recorded if the poller rejects a descriptor
func TestRegistryInsertFailure(t *testing.T) {
	p := newFakePoller()
	p.failFd = 42
	r := newRegistry(p)

	token := r.nextToken()
	err := r.insert(token, &connection{token: token, fd: 42}, poll.Readable)
	if !errors.Is(err, poll.ErrRegistration) {
		t.Fatalf("expected ErrRegistration, got %v", err)
	}
	if r.lookup(token) != nil {
		t.Error("failed insert left an entry behind")
	}
	assertInSync(t, r, p)

	// inserting a bound token is rejected as well
	if err := r.insert(poll.ListenerToken, &listener{fd: 3}, poll.Readable); err != nil {
		t.Fatalf("insert listener: %v", err)
	}
	if err := r.insert(poll.ListenerToken, &listener{fd: 4}, poll.Readable); !errors.Is(err, poll.ErrRegistration) {
		t.Errorf("expected ErrRegistration for duplicate token, got %v", err)
	}
	assertInSync(t, r, p)
}

// TestRegistryRemove tests that remove hands back the endpoint and deregisters it
func TestRegistryRemove(t *testing.T) {
	p := newFakePoller()
	r := newRegistry(p)

	token := r.nextToken()
	conn := &connection{token: token, fd: 9}
	if err := r.insert(token, conn, poll.Readable|poll.Writable); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ep, err := r.remove(token)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ep != conn {
		t.Errorf("remove returned %v, want %v", ep, conn)
	}
	if len(p.removed) != 1 || p.removed[0] != token {
		t.Errorf("poller deregistrations = %v", p.removed)
	}
	if r.lookup(token) != nil {
		t.Error("lookup after remove returned an endpoint")
	}

	if _, err := r.remove(token); !errors.Is(err, poll.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered for second remove, got %v", err)
	}
	assertInSync(t, r, p)
}

// TestRegistryTokensSorted tests that tokens are returned in ascending order
func TestRegistryTokensSorted(t *testing.T) {
	p := newFakePoller()
	r := newRegistry(p)
	if err := r.insert(poll.ListenerToken, &listener{fd: 3}, poll.Readable); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		token := r.nextToken()
		if err := r.insert(token, &connection{token: token, fd: 10 + i}, poll.Readable); err != nil {
			t.Fatal(err)
		}
	}

	tokens := r.tokens()
	if len(tokens) != 6 {
		t.Fatalf("expected 6 tokens, got %d", len(tokens))
	}
	if tokens[0] != poll.ListenerToken {
		t.Errorf("first token = %d, want listener token", tokens[0])
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i] <= tokens[i-1] {
			t.Errorf("tokens not sorted: %v", tokens)
		}
	}
}
