package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/ValentinKolb/eKV/lib/poll"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a bound listener. The base transport takes over its descriptor.
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific socket options to an accepted descriptor
	UpgradeConnection(fd int, config common.ServerConfig) error

	// Cleanup removes resources left behind by the listener after shutdown
	Cleanup(config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the single threaded event loop shared by all
// stream transports. Everything except Serve's wake-up runs on the goroutine
// that called Serve.
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	metrics   *common.ServerMetrics

	poller   poll.IPoller
	registry *registry
	addr     string

	readBuf []byte
	events  []poll.Event

	// ready holds connections that used up their read budget with input left
	// in the socket. Edge triggered registration reports them only once.
	ready []*connection

	stopping atomic.Bool
	serving  atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new event loop server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig, metrics *common.ServerMetrics) error {
	if t.poller != nil {
		return fmt.Errorf("transport is already listening on %s", t.addr)
	}
	t.config = config.WithDefaults()
	if metrics == nil {
		metrics = common.NewServerMetrics()
	}
	t.metrics = metrics

	// Create listener using the connector
	ln, err := t.connector.Listen(t.config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	fd, err := detachListener(ln)
	if err != nil {
		return fmt.Errorf("failed to prepare listener: %w", err)
	}

	poller, err := poll.NewPoller(t.config.EventsCapacity)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to create poller: %w", err)
	}

	reg := newRegistry(poller)
	if err := reg.insert(poll.ListenerToken, &listener{fd: fd}, poll.Readable); err != nil {
		poller.Close()
		unix.Close(fd)
		return fmt.Errorf("failed to register listener: %w", err)
	}

	t.poller = poller
	t.registry = reg
	t.addr = listenerAddr(fd)
	t.readBuf = make([]byte, t.config.ReadChunkSize)
	t.events = make([]poll.Event, 0, t.config.EventsCapacity)

	Logger.Infof("Listening for %s connections on %s", t.connector.GetName(), t.addr)
	return nil
}

func (t *serverTransport) Addr() string {
	return t.addr
}

func (t *serverTransport) Serve(ctx context.Context) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	if t.poller == nil {
		return fmt.Errorf("transport is not listening")
	}
	if !t.serving.CompareAndSwap(false, true) {
		return fmt.Errorf("transport is already serving")
	}

	stop := context.AfterFunc(ctx, func() {
		t.stopping.Store(true)
		if err := t.poller.Wake(); err != nil && !errors.Is(err, poll.ErrClosed) {
			Logger.Errorf("Failed to wake event loop: %v", err)
		}
	})
	defer stop()

	Logger.Infof("Serving %s connections on %s", t.connector.GetName(), t.addr)

	for !t.stopping.Load() {
		timeout := poll.Forever
		if len(t.ready) > 0 {
			timeout = 0
		}
		events, err := t.poller.Poll(t.events[:0], timeout)
		if err != nil {
			t.shutdown()
			return fmt.Errorf("poll failed: %w", err)
		}

		for _, ev := range events {
			if err := t.dispatch(ev); err != nil {
				t.shutdown()
				return err
			}
		}
		t.serviceReady()
	}

	t.shutdown()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch routes one readiness event to the endpoint bound to its token.
// Only errors that end the loop are returned.
func (t *serverTransport) dispatch(ev poll.Event) error {
	switch ep := t.registry.lookup(ev.Token).(type) {
	case nil:
		// removed earlier in this batch
		Logger.Debugf("Ignoring event for stale token %d", ev.Token)
		return nil
	case *listener:
		return t.acceptAll(ep)
	case *connection:
		t.service(ep, ev)
		return nil
	default:
		return fmt.Errorf("unknown endpoint type %T for token %d", ep, ev.Token)
	}
}

// acceptAll accepts pending connections until the listener would block
func (t *serverTransport) acceptAll(l *listener) error {
	for {
		fd, sa, err := unix.Accept(l.fd)
		if err != nil {
			switch {
			case isWouldBlock(err):
				return nil
			case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
				continue
			default:
				return fmt.Errorf("accept failed: %w", err)
			}
		}
		t.open(fd, sa)
	}
}

// open prepares an accepted descriptor and adds it to the registry
func (t *serverTransport) open(fd int, sa unix.Sockaddr) {
	peer := peerName(sa)

	if err := prepareDescriptor(fd); err != nil {
		Logger.Errorf("Dropping connection from %s: %v", peer, err)
		unix.Close(fd)
		return
	}
	if err := t.connector.UpgradeConnection(fd, t.config); err != nil {
		Logger.Warningf("Failed to apply socket options for %s: %v", peer, err)
	}

	token := t.registry.nextToken()
	conn := newConnection(token, fd, peer, t.config.MaxLineSize)
	if err := t.registry.insert(token, conn, poll.Readable|poll.Writable); err != nil {
		Logger.Errorf("Dropping connection from %s: %v", peer, err)
		unix.Close(fd)
		return
	}

	t.metrics.ConnectionOpened()
	Logger.Debugf("Accepted connection %d from %s", token, peer)
}

// service handles a readiness event of a client connection
func (t *serverTransport) service(conn *connection, ev poll.Event) {
	// a hangup of a throttled connection only surfaces as a write error
	if (ev.Writable || ev.Hangup) && conn.pending() {
		n, err := conn.flush()
		t.metrics.BytesWritten.Add(n)
		if err != nil {
			Logger.Debugf("Write to %s failed: %v", conn.peer, err)
			t.close(conn)
			return
		}
	}
	if conn.closing {
		if !conn.pending() {
			t.close(conn)
		}
		return
	}
	// a drained queue resumes a throttled connection
	if ev.Readable || ev.Hangup || conn.backlog {
		t.readAll(conn)
	}
}

// serviceReady gives every connection on the ready list another read budget
func (t *serverTransport) serviceReady() {
	if len(t.ready) == 0 {
		return
	}
	batch := t.ready
	t.ready = nil
	for _, conn := range batch {
		conn.scheduled = false
		if t.registry.lookup(conn.token) != endpoint(conn) {
			continue
		}
		t.readAll(conn)
	}
}

// schedule puts the connection on the ready list
func (t *serverTransport) schedule(conn *connection) {
	if !conn.scheduled {
		conn.scheduled = true
		t.ready = append(t.ready, conn)
	}
}

// readAll reads at most ReadsPerEvent chunks and handles every complete
// command. Reading stops while the connection has more than MaxPendingBytes
// of unsent responses and resumes once a writable event drained the queue.
func (t *serverTransport) readAll(conn *connection) {
	var writeErr error

	handle := func(line []byte) bool {
		resp, closeConn := t.handler(line)
		n, err := conn.send(resp)
		t.metrics.BytesWritten.Add(n)
		if err != nil {
			writeErr = err
			return false
		}
		if closeConn {
			conn.closing = true
			return false
		}
		return !conn.throttled(t.config.MaxPendingBytes)
	}

	// settle reports whether reading may go on after a feed
	settle := func(err error) bool {
		switch {
		case writeErr != nil:
			Logger.Debugf("Write to %s failed: %v", conn.peer, writeErr)
			t.close(conn)
			return false
		case err != nil:
			Logger.Warningf("Closing connection from %s: %v", conn.peer, err)
			t.close(conn)
			return false
		case conn.closing:
			if !conn.pending() {
				t.close(conn)
			}
			return false
		}
		return true
	}

	// commands left over from a throttled round come first
	if conn.lines.held {
		if !settle(conn.lines.feed(nil, handle)) {
			return
		}
	}

	for i := 0; i < t.config.ReadsPerEvent; i++ {
		if conn.throttled(t.config.MaxPendingBytes) || conn.lines.held {
			conn.backlog = true
			return
		}

		n, err := unix.Read(conn.fd, t.readBuf)
		if err != nil {
			switch {
			case errors.Is(err, unix.EINTR):
				continue
			case isWouldBlock(err):
				conn.backlog = false
				return
			default:
				Logger.Warningf("Read from %s failed: %v", conn.peer, err)
				t.close(conn)
				return
			}
		}

		// peer closed its side
		if n == 0 {
			if rest := conn.lines.rest(); len(rest) > 0 {
				handle(rest)
			}
			if writeErr == nil && conn.pending() {
				// best effort, the peer may still read after a half close
				n, _ := conn.flush()
				t.metrics.BytesWritten.Add(n)
			}
			t.close(conn)
			return
		}

		t.metrics.BytesRead.Add(n)
		if !settle(conn.lines.feed(t.readBuf[:n], handle)) {
			return
		}
	}

	// budget used up, the socket may still hold input
	conn.backlog = true
	t.schedule(conn)
}

// close removes the connection from the registry and releases its descriptor
func (t *serverTransport) close(conn *connection) {
	if _, err := t.registry.remove(conn.token); err != nil {
		Logger.Warningf("Failed to deregister connection %d: %v", conn.token, err)
	}
	if err := unix.Close(conn.fd); err != nil {
		Logger.Warningf("Failed to close connection %d: %v", conn.token, err)
	}
	t.metrics.ConnectionClosed()
	Logger.Debugf("Closed connection %d from %s", conn.token, conn.peer)
}

// shutdown closes all connections, the listener and the poller
func (t *serverTransport) shutdown() {
	for _, token := range t.registry.tokens() {
		switch ep := t.registry.lookup(token).(type) {
		case *connection:
			t.close(ep)
		case *listener:
			if _, err := t.registry.remove(token); err != nil {
				Logger.Warningf("Failed to deregister listener: %v", err)
			}
			unix.Close(ep.fd)
		}
	}
	if err := t.poller.Close(); err != nil {
		Logger.Warningf("Failed to close poller: %v", err)
	}
	if err := t.connector.Cleanup(t.config); err != nil {
		Logger.Warningf("Failed to clean up %s listener: %v", t.connector.GetName(), err)
	}
	Logger.Infof("Stopped %s server on %s", t.connector.GetName(), t.addr)
}
