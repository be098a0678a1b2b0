package signalbus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func socketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bus.sock")
}

func TestClientServerRoundTrip(t *testing.T) {
	path := socketPath(t)
	server := NewServer[BackendMessage](path, "pw", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan BackendMessage, 1)
	go func() {
		_ = server.Listen(ctx, func(_ context.Context, msg BackendMessage) error {
			received <- msg
			return nil
		})
	}()
	waitForSocket(t, path)

	client := NewClient(path, "pw")
	want := BackendMessage{Kind: BackendAddLiver, UID: 42}
	if err := client.Send(context.Background(), want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestWrongPasswordIsIsolatedFailure(t *testing.T) {
	path := socketPath(t)
	server := NewServer[BackendMessage](path, "right-pw", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var calls int
	go func() {
		_ = server.Listen(ctx, func(_ context.Context, _ BackendMessage) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		})
	}()
	waitForSocket(t, path)

	badClient := NewClient(path, "wrong-pw")
	if err := badClient.Send(context.Background(), BackendMessage{Kind: BackendAddLiver, UID: 1}); err != nil {
		t.Fatalf("Send with wrong password should succeed at the transport layer: %v", err)
	}

	// The server should still be alive and serve a subsequent, correctly
	// encrypted message after the bad one failed and was logged.
	goodClient := NewClient(path, "right-pw")
	if err := goodClient.Send(context.Background(), BackendMessage{Kind: BackendDeleteLiver, UID: 2}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not recover after a bad frame")
}

func TestStaleSocketFileRemovedBeforeBind(t *testing.T) {
	path := socketPath(t)
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	server := NewServer[DataCenterMessage](path, "pw", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(ctx, func(_ context.Context, _ DataCenterMessage) error {
			return nil
		})
	}()
	waitForSocket(t, path)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Listen returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}
