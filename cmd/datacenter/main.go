// main.go — dmcap data-center process.
//
// Runs the live-stream discovery loop, per-stream chat/signal capture,
// and the global catalog/gift writers. Listens on the DATA_CENTER
// signal-bus socket for capture-set mutations from the tool, and
// reports outcomes back to the tool's socket.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/cmdutil"
	"github.com/liveforge/dmcap/internal/ingest"
	"github.com/liveforge/dmcap/internal/ingest/upstream/liveapi"
	"github.com/liveforge/dmcap/internal/obslog"
	"github.com/liveforge/dmcap/internal/shutdown"
	"github.com/liveforge/dmcap/internal/signalbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "data-center:", err)
		os.Exit(1)
	}
}

func run() error {
	log := obslog.New("datacenter")

	dataCenterPassword, err := cmdutil.PromptPassword("data-center password: ")
	if err != nil {
		return err
	}
	if dataCenterPassword == "" {
		return fmt.Errorf("data-center password must not be empty")
	}
	// The second prompt mirrors the source's two-password CLI surface;
	// this process only persists one encrypted document, so the
	// secondary password is accepted but otherwise unused.
	if _, err := cmdutil.PromptPassword("secondary password (unused): "); err != nil {
		return err
	}

	configPath := cmdutil.Getenv("DMCAP_DATACENTER_CONFIG", "acfunlivedata.json")
	dataDir := cmdutil.Getenv("DMCAP_DATA_DIR", "database")

	configStore, err := catalog.NewStore(configPath, dataCenterPassword)
	if err != nil {
		return fmt.Errorf("open capture-set store: %w", err)
	}
	capture, err := catalog.NewCaptureSet(configStore)
	if err != nil {
		return fmt.Errorf("load capture set (wrong password?): %w", err)
	}

	toolClient := signalbus.NewClient(
		cmdutil.Getenv("DMCAP_TOOL_SOCKET", signalbus.DefaultToolSocket),
		cmdutil.Getenv("DMCAP_TOOL_PASSWORD", signalbus.DefaultToolPassword),
	)

	factory := liveapi.NewFactory(liveapi.Config{BaseURL: cmdutil.Getenv("DMCAP_UPSTREAM_BASE_URL", "")})

	pipeline, err := ingest.NewPipeline(dataDir, factory, capture, log)
	if err != nil {
		return fmt.Errorf("construct ingest pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busServer := signalbus.NewServer[signalbus.DataCenterMessage](
		cmdutil.Getenv("DMCAP_DATACENTER_SOCKET", signalbus.DefaultDataCenterSocket),
		dataCenterPassword,
		log,
	)

	busErr := make(chan error, 1)
	go func() {
		busErr <- busServer.Listen(ctx, func(ctx context.Context, msg signalbus.DataCenterMessage) error {
			return handleDataCenterMessage(ctx, pipeline, toolClient, log, msg)
		})
	}()

	go pipeline.Run(ctx)

	log.WithField("data_dir", dataDir).Info("data-center started")

	signalCh := make(chan os.Signal, 1)
	go func() { signalCh <- shutdown.WaitForSignal(log) }()

	select {
	case err := <-busErr:
		if err != nil {
			return fmt.Errorf("signal bus listener: %w", err)
		}
	case <-signalCh:
	}
	cancel()
	return nil
}

func handleDataCenterMessage(ctx context.Context, pipeline *ingest.Pipeline, toolClient *signalbus.Client, log logrus.FieldLogger, msg signalbus.DataCenterMessage) error {
	var (
		kind        signalbus.ToolMessageKind
		add         bool
		preexisting bool
	)

	switch msg.Kind {
	case signalbus.DataCenterAddLiver:
		add = true
		kind = signalbus.ToolDataCenterAddLiver
		preexisting = pipeline.Capture.Enabled(msg.UID)
	case signalbus.DataCenterDeleteLiver:
		add = false
		kind = signalbus.ToolDataCenterDeleteLiver
		preexisting = pipeline.Capture.Enabled(msg.UID)
	default:
		return fmt.Errorf("datacenter: unknown message kind %q", msg.Kind)
	}

	select {
	case pipeline.Commands <- ingest.Command{Add: add, UID: msg.UID}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if !msg.FromTool {
		return nil
	}

	reply := signalbus.ToolMessage{Kind: kind, UID: msg.UID, Preexisting: preexisting}
	if err := toolClient.Send(ctx, reply); err != nil {
		log.WithError(err).WithField("uid", msg.UID).Warn("failed to report capture-set change to tool")
	}
	return nil
}
