// main.go — dmcap backend process.
//
// Serves the gated query gateway over HTTP and listens on the BACKEND
// signal-bus socket for roster mutations
// forwarded by the tool. On first boot it auto-creates an Admin token
// and prints it to stdout, since there is no other way to bootstrap
// access to a brand-new roster.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/cmdutil"
	"github.com/liveforge/dmcap/internal/gateway"
	"github.com/liveforge/dmcap/internal/obslog"
	"github.com/liveforge/dmcap/internal/shutdown"
	"github.com/liveforge/dmcap/internal/signalbus"
)

const listenAddr = ":3456"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "backend:", err)
		os.Exit(1)
	}
}

func run() error {
	log := obslog.New("backend")

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

	configPath := cmdutil.Getenv("DMCAP_BACKEND_CONFIG", "acfunlivedata_backend.json")
	dataDir := cmdutil.Getenv("DMCAP_DATA_DIR", "database")

	rosterStore, err := catalog.NewStore(configPath, backendPassword)
	if err != nil {
		return fmt.Errorf("open roster store: %w", err)
	}
	roster, err := catalog.New(rosterStore)
	if err != nil {
		return fmt.Errorf("load roster (wrong password?): %w", err)
	}

	adminToken, err := roster.EnsureAdmin()
	if err != nil {
		return fmt.Errorf("ensure admin token: %w", err)
	}
	fmt.Printf("admin token: %s\n", adminToken)

	catalogDB, err := openReadOnly(dataDir + "/acfunlive.db")
	if err != nil {
		return fmt.Errorf("open global catalog: %w", err)
	}
	defer catalogDB.Close()

	giftDB, err := openReadOnly(dataDir + "/gift.db")
	if err != nil {
		return fmt.Errorf("open gift catalog: %w", err)
	}
	defer giftDB.Close()

	dataCenterClient := signalbus.NewClient(
		cmdutil.Getenv("DMCAP_DATACENTER_SOCKET", signalbus.DefaultDataCenterSocket),
		dataCenterPassword,
	)
	toolClient := signalbus.NewClient(
		cmdutil.Getenv("DMCAP_TOOL_SOCKET", signalbus.DefaultToolSocket),
		cmdutil.Getenv("DMCAP_TOOL_PASSWORD", signalbus.DefaultToolPassword),
	)

	pool := gateway.NewPool(dataDir)
	defer pool.Close()

	giftCache := gateway.NewGiftCache(giftDB)
	isLiveCache := gateway.NewIsLiveCache(catalogDB)

	gw := &gateway.Gateway{
		Roster: roster,
		Pool:   pool,
		Query: &gateway.Query{
			Pool:      pool,
			CatalogDB: catalogDB,
			Gifts:     giftCache,
			IsLive:    isLiveCache,
		},
		Gifts:   giftCache,
		IsLive:  isLiveCache,
		Mutator: &gateway.Mutator{Roster: roster, DataCenterClient: dataCenterClient, Log: log},
		DataDir: dataDir,
		Log:     log,
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           gw.NewMux(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       20 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busServer := signalbus.NewServer[signalbus.BackendMessage](
		cmdutil.Getenv("DMCAP_BACKEND_SOCKET", signalbus.DefaultBackendSocket),
		backendPassword,
		log,
	)
	busErr := make(chan error, 1)
	go func() {
		busErr <- busServer.Listen(ctx, func(ctx context.Context, msg signalbus.BackendMessage) error {
			return handleBackendMessage(ctx, gw.Mutator, toolClient, log, msg)
		})
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- shutdown.GracefulServe(srv, 10*time.Second, log)
	}()

	select {
	case err := <-serveErr:
		cancel()
		return err
	case err := <-busErr:
		cancel()
		return err
	}
}

// handleBackendMessage applies a roster mutation forwarded by the tool
// and reports the outcome (plus a freshly issued token, for adds) back
// to the tool's socket.
func handleBackendMessage(ctx context.Context, mutator *gateway.Mutator, toolClient *signalbus.Client, log logrus.FieldLogger, msg signalbus.BackendMessage) error {
	var reply signalbus.ToolMessage

	switch msg.Kind {
	case signalbus.BackendAddLiver:
		result, err := mutator.AddLiver(ctx, msg.UID)
		if err != nil {
			return fmt.Errorf("backend: add liver %d: %w", msg.UID, err)
		}
		reply = signalbus.ToolMessage{Kind: signalbus.ToolBackendAddLiver, UID: msg.UID, Preexisting: result.Preexisting, Token: result.Token}
	case signalbus.BackendDeleteLiver:
		result, err := mutator.DeleteLiver(ctx, msg.UID)
		if err != nil {
			return fmt.Errorf("backend: delete liver %d: %w", msg.UID, err)
		}
		reply = signalbus.ToolMessage{Kind: signalbus.ToolBackendDeleteLiver, UID: msg.UID, Preexisting: result.Preexisting}
	default:
		return fmt.Errorf("backend: unknown message kind %q", msg.Kind)
	}

	if err := toolClient.Send(ctx, reply); err != nil {
		log.WithError(err).WithField("uid", msg.UID).Warn("failed to report roster change to tool")
	}
	return nil
}

func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro&_query_only=true")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
