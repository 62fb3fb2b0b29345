package httpserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imposter-project/contract-shim/internal/adapter"
	"github.com/imposter-project/contract-shim/internal/config"
	"github.com/imposter-project/contract-shim/internal/system"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const shutdownTimeout = 10 * time.Second

// HTTPAdapter serves the handler from a long-running HTTP server
type HTTPAdapter struct {
	serverConfig *config.ServerConfig
	handler      http.Handler
}

// NewAdapter creates a new HTTP server adapter instance
func NewAdapter(serverConfig *config.ServerConfig, handler http.Handler) adapter.Adapter {
	return &HTTPAdapter{serverConfig: serverConfig, handler: handler}
}

// Start listens until the process receives SIGINT or SIGTERM, then drains in-flight requests
func (a *HTTPAdapter) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

func (a *HTTPAdapter) serve(ctx context.Context) error {
	srv := newServer(a.serverConfig, a.handler)

	errs := make(chan error, 1)
	go func() {
		logger.Infof("instance %s listening on %s (h2c: %t)", system.InstanceID(), srv.Addr, a.serverConfig.H2C)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Infoln("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newServer creates the server, accepting HTTP/2 without TLS when configured to.
func newServer(serverConfig *config.ServerConfig, handler http.Handler) *http.Server {
	if serverConfig.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	return &http.Server{
		Addr:              ":" + serverConfig.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
