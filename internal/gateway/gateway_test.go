package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/signalbus"
)

func newTestGateway(t *testing.T, dataDir string) (*Gateway, *catalog.Roster) {
	t.Helper()
	roster := newTestRoster(t)
	pool := NewPool(dataDir)
	t.Cleanup(pool.Close)

	log := testLogger()
	return &Gateway{
		Roster:  roster,
		Pool:    pool,
		Query:   &Query{Pool: pool},
		DataDir: dataDir,
		Log:     log,
		Mutator: &Mutator{
			Roster:           roster,
			DataCenterClient: signalbus.NewClient(signalbus.DefaultDataCenterSocket, "unused"),
			Log:              log,
		},
	}, roster
}

func postQuery(t *testing.T, g *Gateway, token string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest("POST", "/", bytes.NewReader(buf))
	if token != "" {
		req.Header.Set("token", token)
	}
	rec := httptest.NewRecorder()
	g.serveQuery(rec, req)
	return rec
}

func TestServeQueryRejectsUnknownToken(t *testing.T) {
	g, _ := newTestGateway(t, t.TempDir())
	rec := postQuery(t, g, strings.Repeat("z", catalog.TokenLength), map[string]any{"operation": "comment"})
	if rec.Code != 401 {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServeQueryRejectsNonAdminForLiveOperation(t *testing.T) {
	dataDir := t.TempDir()
	g, roster := newTestGateway(t, dataDir)
	res, err := roster.AddStreamer(7)
	if err != nil {
		t.Fatalf("AddStreamer: %v", err)
	}

	rec := postQuery(t, g, res.Token, map[string]any{"operation": "live"})
	if rec.Code != 403 {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestServeQueryRangeGuardRejectsBeforeOpeningPool(t *testing.T) {
	dataDir := t.TempDir()
	g, roster := newTestGateway(t, dataDir)
	res, err := roster.AddStreamer(7)
	if err != nil {
		t.Fatalf("AddStreamer: %v", err)
	}

	rec := postQuery(t, g, res.Token, map[string]any{
		"operation": "comment",
		"start":     100,
		"end":       10,
	})
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if _, ok := g.Pool.cache.Get(uint64(7)); ok {
		t.Fatalf("range-guard failure still opened a pool entry")
	}
}

func TestServeQueryStreamerMustNotSupplyLiverUID(t *testing.T) {
	dataDir := t.TempDir()
	g, roster := newTestGateway(t, dataDir)
	res, err := roster.AddStreamer(7)
	if err != nil {
		t.Fatalf("AddStreamer: %v", err)
	}

	rec := postQuery(t, g, res.Token, map[string]any{
		"operation": "comment",
		"liver_uid": 99,
	})
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWithTimeoutRewrites503To408(t *testing.T) {
	blocked := make(chan struct{})
	t.Cleanup(func() { close(blocked) })

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	})
	handler := withTimeout(10*time.Millisecond, slow)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestTimeout)
	}
}
