// Package poll implements the readiness multiplexer used by the eKV server.
// It binds file descriptors to opaque tokens and reports, in batches, which of
// them can be read from or written to without blocking.
//
// The package focuses on:
//   - A small, token based registration table (Register / Deregister)
//   - Batched, edge-triggered readiness notifications (Poll)
//   - A goroutine-safe wake-up path so a blocked Poll can be interrupted (Wake)
//
// Key Components:
//
//   - IPoller: Interface of the multiplexer. Exactly one goroutine may call Poll,
//     Register and Deregister; only Wake may be called from other goroutines.
//
//   - Token: Opaque identifier correlating a readiness event with its owner.
//     ListenerToken is reserved for the listening socket.
//
//   - Event: One readiness notification (token plus readable, writable and
//     hangup flags), valid until the next call to Poll.
//
// Registration is edge-triggered: a descriptor is reported once whenever it
// becomes ready, so consumers must read (or write) until the kernel reports
// "would block" before polling again.
//
// Usage Example:
//
//	p, err := poll.NewPoller(128)
//	if err != nil {
//	  return err
//	}
//	defer p.Close()
//
//	if err := p.Register(fd, poll.ListenerToken, poll.Readable); err != nil {
//	  return err
//	}
//
//	events := make([]poll.Event, 0, 128)
//	for {
//	  events, err = p.Poll(events, poll.Forever)
//	  if err != nil {
//	    return err
//	  }
//	  for _, ev := range events {
//	    // dispatch ev.Token
//	  }
//	}
//
// Platform Support:
//
//	The multiplexer is backed by epoll(7) and eventfd(2) on Linux. On other
//	platforms NewPoller returns ErrUnsupported.
package poll
