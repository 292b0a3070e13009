package base

import (
	"bytes"
	"errors"

	"github.com/ValentinKolb/eKV/lib/poll"
	"github.com/eapache/queue"
)

// errLineTooLong is returned by lineBuffer.feed when a command exceeds the
// configured maximum without a delimiter
var errLineTooLong = errors.New("command line exceeds maximum size")

// -----------------------------------------------------------
// Listener
// -----------------------------------------------------------

// listener is the registry entry of the listening socket
type listener struct {
	fd int
}

func (l *listener) descriptor() int { return l.fd }

// -----------------------------------------------------------
// Connection
// -----------------------------------------------------------

// connection is the registry entry of one accepted client socket.
// It carries the per-connection framing state and the outbound queue.
type connection struct {
	token poll.Token
	fd    int
	peer  string

	lines lineBuffer

	// outq holds response chunks that could not be written yet, headOff is the
	// number of bytes of the head chunk that were already written
	outq    *queue.Queue
	headOff int
	queued  int

	// closing is set once the handler asked to close the connection, the
	// connection is closed as soon as the queue is flushed
	closing bool

	// backlog is set while the socket may still hold unread input, scheduled
	// while the connection is on the loop's ready list
	backlog   bool
	scheduled bool
}

func newConnection(token poll.Token, fd int, peer string, maxLine int) *connection {
	return &connection{
		token: token,
		fd:    fd,
		peer:  peer,
		lines: lineBuffer{max: maxLine},
		outq:  queue.New(),
	}
}

func (c *connection) descriptor() int { return c.fd }

// pending reports whether there are queued bytes to write
func (c *connection) pending() bool {
	return c.outq.Length() > 0
}

// throttled reports whether the peer left more than limit bytes unread
func (c *connection) throttled(limit int) bool {
	return limit > 0 && c.queued > limit
}

// send writes data directly if nothing is queued and queues what could not be
// written. It returns the number of bytes written to the socket.
func (c *connection) send(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if c.pending() {
		c.enqueue(data)
		return 0, nil
	}
	n, err := writeSome(c.fd, data)
	if err != nil {
		return n, err
	}
	if n < len(data) {
		c.enqueue(data[n:])
	}
	return n, nil
}

// flush writes queued chunks until the queue is empty or the socket would block
func (c *connection) flush() (int, error) {
	total := 0
	for c.outq.Length() > 0 {
		head := c.outq.Peek().([]byte)
		n, err := writeSome(c.fd, head[c.headOff:])
		total += n
		c.queued -= n
		if err != nil {
			return total, err
		}
		c.headOff += n
		if c.headOff < len(head) {
			return total, nil
		}
		c.outq.Remove()
		c.headOff = 0
	}
	return total, nil
}

func (c *connection) enqueue(data []byte) {
	chunk := make([]byte, len(data))
	copy(chunk, data)
	c.outq.Add(chunk)
	c.queued += len(chunk)
}

// -----------------------------------------------------------
// Line framing
// -----------------------------------------------------------

// lineBuffer splits a byte stream into '\n' terminated lines. Partial lines
// are kept across reads.
type lineBuffer struct {
	buf []byte
	max int

	// held is set when the last feed stopped before all complete lines were
	// handed out
	held bool
}

// feed appends data and calls fn for every complete line, with the delimiter
// and a trailing '\r' removed. The line slice is only valid during the call.
// If fn returns false the remaining input is kept and a later feed, with or
// without new data, continues at the next line.
func (b *lineBuffer) feed(data []byte, fn func(line []byte) bool) error {
	b.buf = append(b.buf, data...)
	b.held = false
	start := 0
	defer func() {
		// keep the unprocessed tail at the front of the buffer
		n := copy(b.buf, b.buf[start:])
		b.buf = b.buf[:n]
	}()

	for {
		idx := bytes.IndexByte(b.buf[start:], '\n')
		if idx < 0 {
			break
		}
		line := trimCR(b.buf[start : start+idx])
		start += idx + 1
		if !fn(line) {
			b.held = true
			return nil
		}
	}

	if b.max > 0 && len(b.buf)-start > b.max {
		return errLineTooLong
	}
	return nil
}

// rest returns and clears the unterminated remainder
func (b *lineBuffer) rest() []byte {
	if len(b.buf) == 0 {
		return nil
	}
	line := trimCR(b.buf)
	b.buf = b.buf[:0]
	b.held = false
	return line
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
