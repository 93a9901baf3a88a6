package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/seqbase/seqsearch/config"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives the listener error when serving stops unexpectedly.
	ErrCh chan<- error
}

// StartHTTPServer creates the listener and starts serving in the background.
// The returned server is used for graceful shutdown.
func StartHTTPServer(cfg HTTPServerConfig) (*http.Server, error) {
	if cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("config and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if maxConns := cfg.Config.HTTP.MaxConns; maxConns > 0 {
		listener = netutil.LimitListener(listener, maxConns)
		logger.Info("HTTP connection limit enabled", "max_conns", maxConns)
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     routerForContainer(cfg.Config, cfg.Services, logger),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// No WriteTimeout: result long-polls hold the response open up to
		// their wait window.
	}

	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			if cfg.ErrCh != nil {
				cfg.ErrCh <- fmt.Errorf("http server: %w", serveErr)
			} else {
				logger.Error("HTTP server failed", "error", serveErr)
			}
		}
	}()

	return server, nil
}
