// main.go — dmcap roster tool.
//
// A short-lived CLI that adds or removes streamers from the opt-in
// roster by sending signed messages to both the data-center and
// backend signal-bus sockets, then listens on its own socket for their
// acknowledgements.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/cmdutil"
	"github.com/liveforge/dmcap/internal/obslog"
	"github.com/liveforge/dmcap/internal/signalbus"
)

// ackWait bounds how long the tool waits for data-center/backend
// acknowledgements before warning that some went missing.
const ackWait = 10 * time.Second

// uidList is a flag.Value that accumulates every uid passed to repeated
// -a/-d flags (e.g. "-a 1 -a 2" or a single "-a 1,2,3").
type uidList struct {
	values []uint64
}

func (u *uidList) String() string {
	if u == nil {
		return ""
	}
	parts := make([]string, len(u.values))
	for i, v := range u.values {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func (u *uidList) Set(raw string) error {
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		uid, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid uid %q: %w", part, err)
		}
		if uid == 0 {
			return fmt.Errorf("uid must be positive, got %q", part)
		}
		u.values = append(u.values, uid)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tool:", err)
		os.Exit(1)
	}
}

func run() error {
	var add, del uidList
	flag.Var(&add, "a", "uid(s) to add, repeatable or comma-separated")
	flag.Var(&del, "d", "uid(s) to delete, repeatable or comma-separated")
	flag.Parse()

	if len(add.values) == 0 && len(del.values) == 0 {
		return fmt.Errorf("at least one of -a or -d must be given")
	}

	log := obslog.New("tool")

	dataCenterPassword, err := cmdutil.PromptPassword("data-center password: ")
	if err != nil {
		return err
	}
	if dataCenterPassword == "" {
		return fmt.Errorf("data-center password must not be empty")
	}
	backendPassword, err := cmdutil.PromptPassword("backend password: ")
	if err != nil {
		return err
	}
	if backendPassword == "" {
		return fmt.Errorf("backend password must not be empty")
	}

	toolPassword := cmdutil.Getenv("DMCAP_TOOL_PASSWORD", signalbus.DefaultToolPassword)
	dataCenterClient := signalbus.NewClient(cmdutil.Getenv("DMCAP_DATACENTER_SOCKET", signalbus.DefaultDataCenterSocket), dataCenterPassword)
	backendClient := signalbus.NewClient(cmdutil.Getenv("DMCAP_BACKEND_SOCKET", signalbus.DefaultBackendSocket), backendPassword)

	expectedReplies := 2 * (len(add.values) + len(del.values))

	ctx, cancel := context.WithTimeout(context.Background(), ackWait)
	defer cancel()

	var mu sync.Mutex
	received := 0

	server := signalbus.NewServer[signalbus.ToolMessage](
		cmdutil.Getenv("DMCAP_TOOL_SOCKET", signalbus.DefaultToolSocket),
		toolPassword,
		log,
	)
	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		_ = server.Listen(ctx, func(ctx context.Context, msg signalbus.ToolMessage) error {
			mu.Lock()
			received++
			mu.Unlock()
			printOutcome(msg)
			return nil
		})
	}()

	for _, uid := range add.values {
		sendAdd(ctx, dataCenterClient, backendClient, uid, log)
	}
	for _, uid := range del.values {
		sendDelete(ctx, dataCenterClient, backendClient, uid, log)
	}

	<-ctx.Done()
	<-listenDone

	mu.Lock()
	got := received
	mu.Unlock()

	if got != expectedReplies {
		fmt.Fprintf(os.Stderr, "warning: expected %d replies, received %d within %s\n", expectedReplies, got, ackWait)
	}
	return nil
}

// sendAdd fires both the data-center opt-in message and the backend
// token-issuance message for uid. Send failures are logged, not fatal —
// the 10s ack-count warning at the end is how the operator learns a
// message never landed.
func sendAdd(ctx context.Context, dataCenterClient, backendClient *signalbus.Client, uid uint64, log logrus.FieldLogger) {
	if err := dataCenterClient.Send(ctx, signalbus.DataCenterMessage{Kind: signalbus.DataCenterAddLiver, UID: uid, FromTool: true}); err != nil {
		log.WithError(err).WithField("uid", uid).Warn("failed to send add to data-center")
	}
	if err := backendClient.Send(ctx, signalbus.BackendMessage{Kind: signalbus.BackendAddLiver, UID: uid}); err != nil {
		log.WithError(err).WithField("uid", uid).Warn("failed to send add to backend")
	}
}

// sendDelete is sendAdd's mirror for the -d flag.
func sendDelete(ctx context.Context, dataCenterClient, backendClient *signalbus.Client, uid uint64, log logrus.FieldLogger) {
	if err := dataCenterClient.Send(ctx, signalbus.DataCenterMessage{Kind: signalbus.DataCenterDeleteLiver, UID: uid, FromTool: true}); err != nil {
		log.WithError(err).WithField("uid", uid).Warn("failed to send delete to data-center")
	}
	if err := backendClient.Send(ctx, signalbus.BackendMessage{Kind: signalbus.BackendDeleteLiver, UID: uid}); err != nil {
		log.WithError(err).WithField("uid", uid).Warn("failed to send delete to backend")
	}
}

func printOutcome(msg signalbus.ToolMessage) {
	switch msg.Kind {
	case signalbus.ToolDataCenterAddLiver:
		fmt.Printf("data-center: add liver %d (preexisting=%v)\n", msg.UID, msg.Preexisting)
	case signalbus.ToolDataCenterDeleteLiver:
		fmt.Printf("data-center: delete liver %d (preexisting=%v)\n", msg.UID, msg.Preexisting)
	case signalbus.ToolBackendAddLiver:
		fmt.Printf("backend: add liver %d (preexisting=%v) token=%s\n", msg.UID, msg.Preexisting, msg.Token)
	case signalbus.ToolBackendDeleteLiver:
		fmt.Printf("backend: delete liver %d (preexisting=%v)\n", msg.UID, msg.Preexisting)
	default:
		fmt.Printf("unknown reply kind %q for uid %d\n", msg.Kind, msg.UID)
	}
}
