package server

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/lib/store/lstore"
	"github.com/ValentinKolb/eKV/rpc/codec"
	"github.com/ValentinKolb/eKV/rpc/common"
)

func newTestAdapter(t *testing.T, strict bool) (IRPCServerAdapter, *common.ServerMetrics) {
	t.Helper()
	m := common.NewServerMetrics()
	adapter, err := NewIStoreServerAdapter(codec.NewZlibCodec(), strict, m)
	if err != nil {
		t.Fatalf("NewIStoreServerAdapter: %v", err)
	}
	return adapter, m
}

func handle(adapter IRPCServerAdapter, s store.IStore, line string) ([]byte, bool) {
	return adapter.Handle(common.ParseCommand([]byte(line)), s)
}

func decompress(t *testing.T, data []byte) string {
	t.Helper()
	plain, err := codec.NewZlibCodec().Decompress(data)
	if err != nil {
		t.Fatalf("response is not zlib compressed: %v", err)
	}
	return string(plain)
}

// TestAdapterSetGet tests that GET returns the bytes stored by SET verbatim
func TestAdapterSetGet(t *testing.T) {
	adapter, m := newTestAdapter(t, false)
	s := lstore.NewLocalStore()

	payload, _ := codec.NewZlibCodec().Compress([]byte("red"))
	resp, closeConn := handle(adapter, s, "SET color "+hex.EncodeToString(payload))
	if closeConn {
		t.Error("SET must not close the connection")
	}
	if got := decompress(t, resp); got != common.ResponseOK {
		t.Errorf("SET response = %q", got)
	}

	resp, _ = handle(adapter, s, "GET color")
	if !bytes.Equal(resp, payload) {
		t.Errorf("GET returned %x, want %x", resp, payload)
	}

	if m.RequestsSet.Get() != 1 || m.RequestsGet.Get() != 1 {
		t.Errorf("request counters set=%d get=%d", m.RequestsSet.Get(), m.RequestsGet.Get())
	}
}

// TestAdapterNotFound tests that misses answer the same compressed bytes every time
func TestAdapterNotFound(t *testing.T) {
	adapter, m := newTestAdapter(t, false)
	s := lstore.NewLocalStore()

	first, _ := handle(adapter, s, "GET nokey")
	second, _ := handle(adapter, s, "GET other")
	if !bytes.Equal(first, second) {
		t.Error("NOT FOUND responses differ between calls")
	}
	if got := decompress(t, first); got != common.ResponseNotFound {
		t.Errorf("response = %q", got)
	}
	if m.GetMisses.Get() != 2 {
		t.Errorf("misses = %d", m.GetMisses.Get())
	}
}

// TestAdapterBye tests the farewell and the close flag
func TestAdapterBye(t *testing.T) {
	adapter, _ := newTestAdapter(t, false)

	resp, closeConn := handle(adapter, lstore.NewLocalStore(), "BYE")
	if !closeConn {
		t.Error("BYE must close the connection")
	}
	if got := decompress(t, resp); got != common.ResponseFarewell {
		t.Errorf("response = %q", got)
	}
}

// TestAdapterInvalid tests that unknown or malformed commands answer ERROR
func TestAdapterInvalid(t *testing.T) {
	adapter, m := newTestAdapter(t, false)
	s := lstore.NewLocalStore()

	for _, line := range []string{"FOO BAR", "", "get color", "SET color", "GET", "BYE now", "DEL color"} {
		resp, closeConn := handle(adapter, s, line)
		if closeConn {
			t.Errorf("%q closed the connection", line)
		}
		if got := decompress(t, resp); got != common.ResponseError {
			t.Errorf("%q answered %q", line, got)
		}
	}
	if n, _ := s.Size(); n != 0 {
		t.Errorf("invalid commands stored %d keys", n)
	}
	if m.RequestsInvalid.Get() != 7 {
		t.Errorf("invalid counter = %d", m.RequestsInvalid.Get())
	}
}

// TestAdapterMalformedHex tests lenient and strict handling of values that are not hex
func TestAdapterMalformedHex(t *testing.T) {
	t.Run("Lenient", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, false)
		s := lstore.NewLocalStore()

		resp, _ := handle(adapter, s, "SET k zz")
		if got := decompress(t, resp); got != common.ResponseOK {
			t.Errorf("response = %q", got)
		}
		value, ok, err := s.Get("k")
		if err != nil || !ok {
			t.Fatalf("key not stored: ok=%v err=%v", ok, err)
		}
		if len(value) != 0 {
			t.Errorf("stored %x, want empty value", value)
		}
	})

	t.Run("Strict", func(t *testing.T) {
		adapter, m := newTestAdapter(t, true)
		s := lstore.NewLocalStore()

		resp, _ := handle(adapter, s, "SET k abc")
		if got := decompress(t, resp); got != common.ResponseError {
			t.Errorf("response = %q", got)
		}
		if ok, _ := s.Has("k"); ok {
			t.Error("strict mode stored a malformed value")
		}
		if m.RequestErrors.Get() != 1 {
			t.Errorf("error counter = %d", m.RequestErrors.Get())
		}
	})
}

// TestAdapterNilStore tests that a missing store is reported in-band
func TestAdapterNilStore(t *testing.T) {
	adapter, _ := newTestAdapter(t, false)
	resp, closeConn := handle(adapter, nil, "GET k")
	if closeConn {
		t.Error("nil store closed the connection")
	}
	if got := decompress(t, resp); got != common.ResponseError {
		t.Errorf("response = %q", got)
	}
}

// TestAdapterCodecs tests that the constant responses follow the configured codec
func TestAdapterCodecs(t *testing.T) {
	zstdCodec, err := codec.NewZstdCodec()
	if err != nil {
		t.Fatalf("NewZstdCodec: %v", err)
	}
	for _, c := range []codec.ICodec{codec.NewNoneCodec(), codec.NewS2Codec(), zstdCodec} {
		t.Run(c.Name(), func(t *testing.T) {
			adapter, err := NewIStoreServerAdapter(c, false, nil)
			if err != nil {
				t.Fatalf("NewIStoreServerAdapter: %v", err)
			}
			resp, _ := handle(adapter, lstore.NewLocalStore(), "GET k")
			plain, err := c.Decompress(resp)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if string(plain) != common.ResponseNotFound {
				t.Errorf("response = %q", plain)
			}
		})
	}
}
