//go:build linux

package base

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
)

// testConnector binds a loopback TCP listener on a random port
type testConnector struct{}

func (c *testConnector) GetName() string { return "test" }

func (c *testConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Endpoint)
}

func (c *testConnector) UpgradeConnection(int, common.ServerConfig) error { return nil }

func (c *testConnector) Cleanup(common.ServerConfig) error { return nil }

// echoHandler answers every line with "ACK <line>" and closes on QUIT
func echoHandler(req []byte) ([]byte, bool) {
	if string(req) == "QUIT" {
		return []byte("BYE\n"), true
	}
	return []byte("ACK " + string(req) + "\n"), false
}

// startServer runs a transport with the echo handler until the test ends
func startServer(t *testing.T, config common.ServerConfig, handler transport.ServerHandleFunc) (*serverTransport, *common.ServerMetrics) {
	t.Helper()

	tr := NewBaseServerTransport(&testConnector{}).(*serverTransport)
	tr.RegisterHandler(handler)

	if config.Endpoint == "" {
		config.Endpoint = "127.0.0.1:0"
	}
	metrics := common.NewServerMetrics()
	if err := tr.Listen(config, metrics); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return tr, metrics
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// TestServeFragmentedCommand tests a command written byte by byte
func TestServeFragmentedCommand(t *testing.T) {
	tr, _ := startServer(t, common.ServerConfig{}, echoHandler)
	conn := dial(t, tr.Addr())

	for _, b := range []byte("hello\r\n") {
		if _, err := conn.Write([]byte{b}); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "ACK hello\n" {
		t.Errorf("response = %q", line)
	}
}

// TestServePipelined tests several commands in a single write with a small read chunk
func TestServePipelined(t *testing.T) {
	tr, _ := startServer(t, common.ServerConfig{ReadChunkSize: 3}, echoHandler)
	conn := dial(t, tr.Addr())

	if _, err := conn.Write([]byte("one\ntwo\nthree\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	reader := bufio.NewReader(conn)
	for _, want := range []string{"ACK one\n", "ACK two\n", "ACK three\n"} {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line != want {
			t.Errorf("response = %q, want %q", line, want)
		}
	}
}

// TestServeCloseFlag tests that commands after a closing command are discarded
func TestServeCloseFlag(t *testing.T) {
	tr, metrics := startServer(t, common.ServerConfig{}, echoHandler)
	conn := dial(t, tr.Addr())

	if _, err := conn.Write([]byte("QUIT\nignored\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "BYE\n" {
		t.Errorf("received %q, want only the farewell", data)
	}

	waitFor(t, func() bool { return metrics.ActiveConnections() == 0 })
}

// TestServeUnterminatedAtEOF tests that a command without a newline is handled when the peer closes
func TestServeUnterminatedAtEOF(t *testing.T) {
	tr, _ := startServer(t, common.ServerConfig{}, echoHandler)
	conn := dial(t, tr.Addr())

	if _, err := conn.Write([]byte("legacy")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatalf("close write: %v", err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "ACK legacy\n" {
		t.Errorf("received %q", data)
	}
}

// TestServeLineTooLong tests that a connection sending an endless line is dropped
func TestServeLineTooLong(t *testing.T) {
	tr, metrics := startServer(t, common.ServerConfig{MaxLineSize: 16}, echoHandler)
	conn := dial(t, tr.Addr())

	if _, err := conn.Write([]byte(strings.Repeat("x", 64))); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 16)
	if _, err := conn.Read(buf); err == nil {
		t.Error("expected the connection to be closed")
	}
	waitFor(t, func() bool { return metrics.ActiveConnections() == 0 })
}

// TestServeLargeResponse tests that responses larger than the socket buffer are queued and flushed
func TestServeLargeResponse(t *testing.T) {
	payload := strings.Repeat("z", 4<<20)
	handler := func(req []byte) ([]byte, bool) {
		return []byte(payload + "\n"), false
	}
	tr, _ := startServer(t, common.ServerConfig{}, handler)
	conn := dial(t, tr.Addr())

	if _, err := conn.Write([]byte("big\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// a second client must be served while the first response is pending
	other := dial(t, tr.Addr())
	if _, err := other.Write([]byte("small\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := bufio.NewReader(other).ReadString('\n'); err != nil {
		t.Fatalf("second client: %v", err)
	}

	line, err := bufio.NewReaderSize(conn, 1<<16).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(line) != len(payload)+1 {
		t.Errorf("received %d bytes, want %d", len(line), len(payload)+1)
	}
}

// TestServeShutdown tests that cancelling the context releases every registration
func TestServeShutdown(t *testing.T) {
	tr := NewBaseServerTransport(&testConnector{}).(*serverTransport)
	tr.RegisterHandler(echoHandler)
	if err := tr.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}, nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx) }()

	conns := make([]net.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, tr.Addr())
		if _, err := conns[i].Write([]byte("ping\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := bufio.NewReader(conns[i]).ReadString('\n'); err != nil {
			t.Fatalf("read: %v", err)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	if n := tr.registry.len(); n != 0 {
		t.Errorf("registry still holds %d entries", n)
	}
	for _, conn := range conns {
		if _, err := conn.Read(make([]byte, 1)); err == nil {
			t.Error("connection still open after shutdown")
		}
	}
	if err := tr.Serve(context.Background()); err == nil {
		t.Error("second Serve should fail")
	}
}

// TestServeWithoutListen tests the usage errors of Serve
func TestServeWithoutListen(t *testing.T) {
	tr := NewBaseServerTransport(&testConnector{})
	if err := tr.Serve(context.Background()); err == nil {
		t.Error("Serve without handler should fail")
	}
	tr.RegisterHandler(echoHandler)
	if err := tr.Serve(context.Background()); err == nil {
		t.Error("Serve without Listen should fail")
	}
}

// TestClientTransport tests the synchronous client against the event loop
func TestClientTransport(t *testing.T) {
	tr, _ := startServer(t, common.ServerConfig{}, echoHandler)

	client := NewBaseClientTransport(&testClientConnector{})
	if _, err := client.Send([]byte("x\n"), nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := client.Connect(common.ClientConfig{Endpoint: tr.Addr(), TimeoutSecond: 2, ReadBufferSize: 2}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	lineComplete := func(resp []byte) bool {
		return strings.HasSuffix(string(resp), "\n")
	}
	resp, err := client.Send([]byte("hello\n"), lineComplete)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(resp) != "ACK hello\n" {
		t.Errorf("response = %q", resp)
	}

	resp, err = client.Send([]byte("QUIT\n"), lineComplete)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(resp) != "BYE\n" {
		t.Errorf("response = %q", resp)
	}
}

type testClientConnector struct{}

func (c *testClientConnector) GetName() string { return "test" }

func (c *testClientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", endpoint, timeout)
}

func (c *testClientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// waitFor polls cond until it holds or the test times out
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
