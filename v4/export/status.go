package export

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	tcontext "github.com/oradump/oradump/v4/context"
)

// StatusServer exposes the run metrics over HTTP.
type StatusServer struct {
	server   *http.Server
	listener net.Listener
}

// NewStatusServer listens on addr and serves the metrics of gatherer on /metrics.
func NewStatusServer(addr string, gatherer prometheus.Gatherer) (*StatusServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on status address %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &StatusServer{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: l,
	}, nil
}

// Addr returns the address the server listens on.
func (s *StatusServer) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until the server is shut down.
func (s *StatusServer) Serve(tctx *tcontext.Context) error {
	tctx.L().Info("status server started", zap.String("addr", s.Addr()))
	err := s.server.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.WithStack(err)
}

// Shutdown stops the server.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
