//go:build linux

package base

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/eKV/rpc/common"
)

// TestServeFloodDoesNotStarveOthers tests that a client which keeps writing
// and never reads does not keep the loop from serving other clients
func TestServeFloodDoesNotStarveOthers(t *testing.T) {
	tr, _ := startServer(t, common.ServerConfig{}, echoHandler)

	flooder := dial(t, tr.Addr())
	stop := make(chan struct{})
	flooded := make(chan struct{})
	go func() {
		defer close(flooded)
		chunk := bytes.Repeat([]byte("x\n"), 32*1024)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := flooder.Write(chunk); err != nil {
				return
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		flooder.Close()
		<-flooded
	})

	time.Sleep(300 * time.Millisecond)

	other := dial(t, tr.Addr())
	_ = other.SetDeadline(time.Now().Add(3 * time.Second))
	if _, err := other.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(other).ReadString('\n')
	if err != nil {
		t.Fatalf("second client starved: %v", err)
	}
	if line != "ACK hello\n" {
		t.Errorf("response = %q", line)
	}
}

// TestServeThrottledConnectionResumes tests that a connection paused for
// unread responses answers every command in order once the peer reads again
func TestServeThrottledConnectionResumes(t *testing.T) {
	pad := strings.Repeat("p", 1024)
	handler := func(req []byte) ([]byte, bool) {
		return []byte(string(req) + " " + pad + "\n"), false
	}
	tr, _ := startServer(t, common.ServerConfig{ReadsPerEvent: 2, MaxPendingBytes: 4096}, handler)
	conn := dial(t, tr.Addr())
	_ = conn.SetDeadline(time.Now().Add(20 * time.Second))

	const commands = 20000
	var req bytes.Buffer
	for i := 0; i < commands; i++ {
		fmt.Fprintf(&req, "c%d\n", i)
	}
	written := make(chan error, 1)
	go func() {
		_, err := conn.Write(req.Bytes())
		written <- err
	}()

	// let the responses pile up before reading
	time.Sleep(200 * time.Millisecond)

	reader := bufio.NewReaderSize(conn, 1<<16)
	for i := 0; i < commands; i++ {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("response %d: %v", i, err)
		}
		if want := fmt.Sprintf("c%d %s\n", i, pad); line != want {
			t.Fatalf("response %d = %.20q..., want %.20q...", i, line, want)
		}
	}
	if err := <-written; err != nil {
		t.Fatalf("write: %v", err)
	}
}

// TestServeResetDuringLargeResponse tests that a peer resetting its socket
// while responses are queued only closes that connection
func TestServeResetDuringLargeResponse(t *testing.T) {
	payload := strings.Repeat("z", 4<<20)
	handler := func(req []byte) ([]byte, bool) {
		if string(req) == "big" {
			return []byte(payload + "\n"), false
		}
		return echoHandler(req)
	}
	tr, metrics := startServer(t, common.ServerConfig{}, handler)

	other := dial(t, tr.Addr())
	if _, err := other.Write([]byte("before\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	otherReader := bufio.NewReader(other)
	if _, err := otherReader.ReadString('\n'); err != nil {
		t.Fatalf("read: %v", err)
	}

	resetter := dial(t, tr.Addr())
	if _, err := resetter.Write([]byte("big\nbig\nbig\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return metrics.ActiveConnections() == 2 })

	// read a little so the server is known to be sending
	if _, err := resetter.Read(make([]byte, 1024)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := resetter.(*net.TCPConn).SetLinger(0); err != nil {
		t.Fatalf("SetLinger: %v", err)
	}
	resetter.Close()

	waitFor(t, func() bool { return metrics.ActiveConnections() == 1 })

	if _, err := other.Write([]byte("after\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := otherReader.ReadString('\n')
	if err != nil {
		t.Fatalf("read after reset: %v", err)
	}
	if line != "ACK after\n" {
		t.Errorf("response = %q", line)
	}
}
