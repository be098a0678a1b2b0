// Package shutdown provides graceful HTTP server shutdown with connection
// draining, and a cooperative-teardown wait helper for the two non-HTTP
// processes (data-center, tool).
package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// GracefulServe starts srv and blocks until SIGTERM/SIGINT. On signal it
// stops accepting new connections, drains active ones up to drainTimeout,
// then returns. This is the backend process's only HTTP listener.
func GracefulServe(srv *http.Server, drainTimeout time.Duration, log logrus.FieldLogger) error {
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	log.WithField("timeout", drainTimeout.String()).Info("draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return err
	}

	log.Info("server stopped cleanly")
	return nil
}

// WaitForSignal blocks until SIGTERM/SIGINT, logs it, then returns. Used by
// the data-center and tool processes, which have no listener to drain but do
// need to stop their background goroutines cooperatively.
func WaitForSignal(log logrus.FieldLogger) os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.WithField("signal", sig.String()).Info("shutdown signal received")
	return sig
}
