package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewDebugMux returns a mux serving Go runtime metrics in the Prometheus
// format on /metrics and live runtime charts on /debug/statsviz/.
func NewDebugMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := statsviz.Register(mux); err != nil {
		return nil, fmt.Errorf("failed to register statsviz: %w", err)
	}
	return mux, nil
}

// DebugServer serves NewDebugMux for the lifetime of a run.
type DebugServer struct {
	srv *http.Server
	ln  net.Listener
}

// StartDebugServer listens on addr and serves the debug mux in the
// background. Use Addr to learn the bound address when addr has port 0.
func StartDebugServer(addr string) (*DebugServer, error) {
	mux, err := NewDebugMux()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &DebugServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = ln.Close()
		}
	}()
	return s, nil
}

// Addr returns the address the server is bound to.
func (s *DebugServer) Addr() string { return s.ln.Addr().String() }

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *DebugServer) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
