package common

import (
	"io"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// ServerMetrics bundles the counters exported by one eKV server.
// Every server owns its own metrics.Set, so several servers can live in one
// process (e.g. in tests) without name collisions.
type ServerMetrics struct {
	set *metrics.Set

	ConnectionsAccepted *metrics.Counter
	ConnectionsClosed   *metrics.Counter
	BytesRead           *metrics.Counter
	BytesWritten        *metrics.Counter

	RequestsSet     *metrics.Counter
	RequestsGet     *metrics.Counter
	RequestsBye     *metrics.Counter
	RequestsInvalid *metrics.Counter
	GetMisses       *metrics.Counter
	RequestErrors   *metrics.Counter

	active atomic.Int64
}

// NewServerMetrics creates the metric set of a server
func NewServerMetrics() *ServerMetrics {
	set := metrics.NewSet()
	m := &ServerMetrics{
		set:                 set,
		ConnectionsAccepted: set.NewCounter("ekv_connections_accepted_total"),
		ConnectionsClosed:   set.NewCounter("ekv_connections_closed_total"),
		BytesRead:           set.NewCounter("ekv_bytes_read_total"),
		BytesWritten:        set.NewCounter("ekv_bytes_written_total"),
		RequestsSet:         set.NewCounter(`ekv_requests_total{command="set"}`),
		RequestsGet:         set.NewCounter(`ekv_requests_total{command="get"}`),
		RequestsBye:         set.NewCounter(`ekv_requests_total{command="bye"}`),
		RequestsInvalid:     set.NewCounter(`ekv_requests_total{command="invalid"}`),
		GetMisses:           set.NewCounter("ekv_get_misses_total"),
		RequestErrors:       set.NewCounter("ekv_request_errors_total"),
	}
	set.NewGauge("ekv_connections_active", func() float64 {
		return float64(m.active.Load())
	})
	return m
}

// ConnectionOpened records an accepted connection
func (m *ServerMetrics) ConnectionOpened() {
	m.ConnectionsAccepted.Inc()
	m.active.Add(1)
}

// ConnectionClosed records a closed connection
func (m *ServerMetrics) ConnectionClosed() {
	m.ConnectionsClosed.Inc()
	m.active.Add(-1)
}

// ActiveConnections returns the number of currently open connections
func (m *ServerMetrics) ActiveConnections() int64 {
	return m.active.Load()
}

// RegisterGauge adds a gauge computed by f to the set
func (m *ServerMetrics) RegisterGauge(name string, f func() float64) {
	m.set.NewGauge(name, f)
}

// WritePrometheus writes all metrics of the set in prometheus text format
func (m *ServerMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
