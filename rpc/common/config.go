package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultEndpoint       = "127.0.0.1:8080"
	DefaultReadChunkSize  = 512
	DefaultMaxLineSize    = 64 * 1024
	DefaultEventsCapacity = 128
	DefaultReadsPerEvent  = 16
	DefaultMaxPending     = 1024 * 1024
	DefaultTimeoutSecond  = 10
)

// --------------------------------------------------------------------------
// Socket configuration structs (shared by server and client)
// --------------------------------------------------------------------------

// SocketConf holds kernel socket buffer sizes. Zero keeps the kernel default.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options. They are ignored for unix sockets.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// TransportConfig groups the socket options applied to every connection
type TransportConfig struct {
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the eKV server.
type ServerConfig struct {
	// Endpoint is the address the server listens on (host:port or socket path)
	Endpoint string

	// Socket options for accepted connections
	Transport TransportConfig

	// ReadChunkSize is the capacity of the buffer used for a single read call
	ReadChunkSize int
	// MaxLineSize is the longest command accepted before the connection is dropped
	MaxLineSize int
	// EventsCapacity is the maximum number of readiness events handled per poll
	EventsCapacity int
	// ReadsPerEvent bounds the read calls for one connection before the loop
	// moves on to the other ready connections
	ReadsPerEvent int
	// MaxPendingBytes is the amount of unsent response data after which the
	// server stops reading requests from that connection
	MaxPendingBytes int

	// StrictHex rejects SET requests whose value is not valid hex instead of
	// storing an empty value
	StrictHex bool

	// MetricsEndpoint is the address of the prometheus endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a configuration with all defaults applied
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint: DefaultEndpoint,
		Transport: TransportConfig{
			TCPConf: TCPConf{TCPNoDelay: true},
		},
		ReadChunkSize:   DefaultReadChunkSize,
		MaxLineSize:     DefaultMaxLineSize,
		EventsCapacity:  DefaultEventsCapacity,
		ReadsPerEvent:   DefaultReadsPerEvent,
		MaxPendingBytes: DefaultMaxPending,
		LogLevel:        "info",
	}
}

// WithDefaults returns a copy of the configuration where unset sizes are
// replaced by their defaults
func (c ServerConfig) WithDefaults() ServerConfig {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ReadChunkSize <= 0 {
		c.ReadChunkSize = DefaultReadChunkSize
	}
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = DefaultMaxLineSize
	}
	if c.EventsCapacity <= 0 {
		c.EventsCapacity = DefaultEventsCapacity
	}
	if c.ReadsPerEvent <= 0 {
		c.ReadsPerEvent = DefaultReadsPerEvent
	}
	if c.MaxPendingBytes <= 0 {
		c.MaxPendingBytes = DefaultMaxPending
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Read Chunk Size", fmt.Sprintf("%d bytes", c.ReadChunkSize))
	addField("Max Line Size", fmt.Sprintf("%d bytes", c.MaxLineSize))
	addField("Events Per Poll", strconv.Itoa(c.EventsCapacity))
	addField("Reads Per Event", strconv.Itoa(c.ReadsPerEvent))
	addField("Max Pending", fmt.Sprintf("%d bytes", c.MaxPendingBytes))
	addField("Strict Hex", strconv.FormatBool(c.StrictHex))

	// Socket options
	addSection("Socket Options")
	addField("Write Buffer", formatBufferSize(c.Transport.WriteBufferSize))
	addField("Read Buffer", formatBufferSize(c.Transport.ReadBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", formatSeconds(c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", formatSeconds(c.Transport.TCPLingerSec))

	// Metrics
	addSection("Metrics")
	if c.MetricsEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of an eKV client.
type ClientConfig struct {
	// Endpoint is the address of the server
	Endpoint string
	// TimeoutSecond bounds dialing and waiting for a response
	TimeoutSecond int
	// ReadBufferSize is the size of a single read while waiting for a response
	ReadBufferSize int
	// Socket options
	Transport TransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func formatBufferSize(size int) string {
	if size <= 0 {
		return "kernel default"
	}
	return fmt.Sprintf("%d bytes", size)
}

func formatSeconds(sec int) string {
	if sec <= 0 {
		return "off"
	}
	return fmt.Sprintf("%d sec", sec)
}
