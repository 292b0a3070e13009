package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/lib/store/lstore"
	"github.com/ValentinKolb/eKV/rpc/codec"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

const metricsShutdownTimeout = 2 * time.Second

// NewRPCServer creates a new RPC server
// It takes a config, transport and codec as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		codec.NewZlibCodec(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	codec codec.ICodec,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:    config.WithDefaults(),
		transport: transport,
		codec:     codec,
		store:     lstore.NewLocalStore(),
		metrics:   common.NewServerMetrics(),
	}
}

// RPCServer binds the request adapter, the store and the metrics to a transport
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	codec     codec.ICodec
	store     store.IStore
	adapter   IRPCServerAdapter
	metrics   *common.ServerMetrics

	metricsSrv  *http.Server
	metricsAddr string
	listening   bool
	gaugeOnce   sync.Once
}

// Listen initializes the server and binds the transport and the metrics endpoint.
// It does not block.
func (s *RPCServer) Listen() error {
	if s.listening {
		return nil
	}

	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	adapter, err := NewIStoreServerAdapter(s.codec, s.config.StrictHex, s.metrics)
	if err != nil {
		return err
	}
	s.adapter = adapter

	// Listen may be retried after a failed bind, the set panics on duplicates
	s.gaugeOnce.Do(func() {
		s.metrics.RegisterGauge("ekv_store_keys", func() float64 {
			n, err := s.store.Size()
			if err != nil {
				return 0
			}
			return float64(n)
		})
	})

	// Configure the transport layer
	s.registerTransportHandler()
	if err := s.transport.Listen(s.config, s.metrics); err != nil {
		return err
	}

	if s.config.MetricsEndpoint != "" {
		if err := s.startMetrics(); err != nil {
			return err
		}
	}

	s.listening = true
	Logger.Infof("eKV setup completed successfully, using %s responses", s.codec.Name())
	return nil
}

// Serve starts the RPC server and blocks until ctx is cancelled or the
// transport fails. Listen is called first if it was not called before.
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	defer s.stopMetrics()

	return s.transport.Serve(ctx)
}

// Addr returns the address of the transport
func (s *RPCServer) Addr() string {
	return s.transport.Addr()
}

// MetricsAddr returns the address of the metrics endpoint (empty if disabled)
func (s *RPCServer) MetricsAddr() string {
	return s.metricsAddr
}

// Store returns the store served by s
func (s *RPCServer) Store() store.IStore {
	return s.store
}

// Metrics returns the metric set of s
func (s *RPCServer) Metrics() *common.ServerMetrics {
	return s.metrics
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) ([]byte, bool) {
		return s.adapter.Handle(common.ParseCommand(req), s.store)
	})
}

// startMetrics serves the prometheus endpoint on its own goroutine
func (s *RPCServer) startMetrics() error {
	ln, err := net.Listen("tcp", s.config.MetricsEndpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.metrics.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})
	s.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.metricsAddr = ln.Addr().String()

	go func() {
		Logger.Infof("Serving metrics on http://%s/metrics", ln.Addr())
		if err := s.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint failed: %v", err)
		}
	}()
	return nil
}

func (s *RPCServer) stopMetrics() {
	if s.metricsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := s.metricsSrv.Shutdown(ctx); err != nil {
		Logger.Warningf("failed to stop metrics endpoint: %v", err)
	}
}
