package signalbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"
)

// Handler processes one decoded message. A returned error is logged and
// isolated to that connection — it never tears down the listener.
type Handler[M any] func(ctx context.Context, msg M) error

// Server listens on a Unix-domain socket, decrypting and decoding one
// message per inbound connection before invoking Handler. Connections are
// accepted and handled concurrently; a failure on one connection (bad
// frame, decrypt failure, handler error) is logged and does not affect
// others, matching the source's try_for_each_concurrent accept loop.
type Server[M any] struct {
	socketPath string
	password   string
	log        logrus.FieldLogger
}

func NewServer[M any](socketPath, password string, log logrus.FieldLogger) *Server[M] {
	return &Server[M]{socketPath: socketPath, password: password, log: log}
}

// Listen removes any stale socket file, binds, and accepts connections
// until ctx is cancelled or the listener errors. Each connection is
// handled in its own goroutine via handle.
func (s *Server[M]) Listen(ctx context.Context, handle Handler[M]) error {
	if err := removeStaleSocket(s.socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("signalbus: bind %s: %w", s.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("signalbus: accept on %s: %w", s.socketPath, err)
		}

		go func() {
			defer conn.Close()
			if err := s.handleOne(ctx, conn, handle); err != nil {
				s.log.WithFields(logrus.Fields{
					"socket": s.socketPath,
					"error":  err,
				}).Warn("signal bus connection failed")
			}
		}()
	}
}

func (s *Server[M]) handleOne(ctx context.Context, conn net.Conn, handle Handler[M]) error {
	payload, err := readFrame(conn, s.password)
	if err != nil {
		return err
	}

	var msg M
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("signalbus: decode message: %w", err)
	}

	return handle(ctx, msg)
}

func removeStaleSocket(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("signalbus: remove stale socket %s: %w", path, err)
	}
	return nil
}
