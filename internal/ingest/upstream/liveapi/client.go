// Package liveapi is the production seam for the upstream streaming
// site's own HTTP/WebSocket API — the anonymous-session chat and live
// endpoints this module never reimplements. It wires the
// upstream.Factory interface to a concrete site client without
// specifying that client's implementation. internal/ingest/upstream/stub
// backs every test in this module; NewFactory here is the production
// entry point cmd/datacenter/main.go constructs at startup.
package liveapi

import (
	"context"
	"fmt"

	"github.com/liveforge/dmcap/internal/ingest/upstream"
)

// Config carries whatever the real site client needs to authenticate
// anonymous sessions. It is intentionally thin since the concrete
// HTTP/chat wire protocol lives outside this module entirely.
type Config struct {
	BaseURL string
}

type factory struct {
	cfg Config
}

// NewFactory returns an upstream.Factory that builds real site clients
// from cfg. Build fails until a concrete site client is wired in; the
// discovery loop and per-stream tasks already treat a failed Build as a
// transient error, so a data-center process started against this
// factory logs and retries rather than crashing.
func NewFactory(cfg Config) upstream.Factory {
	return &factory{cfg: cfg}
}

func (f *factory) Build(ctx context.Context) (upstream.Client, error) {
	return nil, fmt.Errorf("liveapi: no site client wired for %s", f.cfg.BaseURL)
}
