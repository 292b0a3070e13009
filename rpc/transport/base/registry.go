package base

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/eKV/lib/poll"
)

// endpoint is the closed set of resources that can be registered with the
// poller: the listening socket (*listener) and client connections (*connection).
type endpoint interface {
	descriptor() int
}

// registry maps tokens to live endpoints and owns their registration with the
// poller. Every token in the registry is registered with the poller and vice
// versa.
//
// Thread-safety: The registry is confined to the dispatch goroutine.
type registry struct {
	poller  poll.IPoller
	entries map[poll.Token]endpoint
	next    poll.Token
}

func newRegistry(poller poll.IPoller) *registry {
	return &registry{
		poller:  poller,
		entries: make(map[poll.Token]endpoint),
		next:    poll.ListenerToken + 1,
	}
}

// nextToken allocates a token that is not bound to any endpoint.
// Tokens are handed out in increasing order and the listener token is never
// returned.
func (r *registry) nextToken() poll.Token {
	for {
		token := r.next
		r.next++
		if token == poll.ListenerToken {
			continue
		}
		if _, bound := r.entries[token]; bound {
			continue
		}
		return token
	}
}

// insert registers ep with the poller under token and records it.
// Nothing is recorded if the registration fails.
func (r *registry) insert(token poll.Token, ep endpoint, interest poll.Interest) error {
	if _, bound := r.entries[token]; bound {
		return fmt.Errorf("%w: token %d already in registry", poll.ErrRegistration, token)
	}
	if err := r.poller.Register(ep.descriptor(), token, interest); err != nil {
		return err
	}
	r.entries[token] = ep
	return nil
}

// remove deregisters the endpoint bound to token and hands it back to the
// caller, who is responsible for closing its descriptor afterwards.
// The endpoint is removed from the registry even if the poller reports an
// error, the error is returned together with the endpoint.
func (r *registry) remove(token poll.Token) (endpoint, error) {
	ep, ok := r.entries[token]
	if !ok {
		return nil, fmt.Errorf("%w: token %d not in registry", poll.ErrNotRegistered, token)
	}
	delete(r.entries, token)
	return ep, r.poller.Deregister(token)
}

// lookup returns the endpoint bound to token or nil
func (r *registry) lookup(token poll.Token) endpoint {
	return r.entries[token]
}

func (r *registry) len() int {
	return len(r.entries)
}

// tokens returns all bound tokens in ascending order
func (r *registry) tokens() []poll.Token {
	tokens := make([]poll.Token, 0, len(r.entries))
	for token := range r.entries {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}
