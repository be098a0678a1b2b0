package gateway

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liveforge/dmcap/internal/catalog"
)

func newTestRoster(t *testing.T) *catalog.Roster {
	t.Helper()
	store, err := catalog.NewStore(filepath.Join(t.TempDir(), "roster.json"), "test-password")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	r, err := catalog.New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func requestWithToken(tokens ...string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, tok := range tokens {
		r.Header.Add("token", tok)
	}
	return r
}

func TestResolvePrincipalMissingToken(t *testing.T) {
	roster := newTestRoster(t)
	if _, err := ResolvePrincipal(roster, requestWithToken()); err != ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestResolvePrincipalMultipleHeaders(t *testing.T) {
	roster := newTestRoster(t)
	tok, err := roster.EnsureAdmin()
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if _, err := ResolvePrincipal(roster, requestWithToken(tok, tok)); err != ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized for duplicate headers", err)
	}
}

func TestResolvePrincipalWrongLength(t *testing.T) {
	roster := newTestRoster(t)
	if _, err := ResolvePrincipal(roster, requestWithToken("short")); err != ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestResolvePrincipalUnknownToken(t *testing.T) {
	roster := newTestRoster(t)
	unknown := strings.Repeat("0", catalog.TokenLength)
	if _, err := ResolvePrincipal(roster, requestWithToken(unknown)); err != ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestResolvePrincipalAdmin(t *testing.T) {
	roster := newTestRoster(t)
	tok, err := roster.EnsureAdmin()
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	p, err := ResolvePrincipal(roster, requestWithToken(tok))
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.Kind != catalog.Admin {
		t.Fatalf("Kind = %v, want Admin", p.Kind)
	}
}

func TestResolveTargetUIDAdminRequiresLiverUID(t *testing.T) {
	if _, err := ResolveTargetUID(catalog.AdminPrincipal(), nil); err != ErrAdminNeedsLiverUID {
		t.Fatalf("err = %v, want ErrAdminNeedsLiverUID", err)
	}
}

func TestResolveTargetUIDAdminWithLiverUID(t *testing.T) {
	uid := uint64(42)
	got, err := ResolveTargetUID(catalog.AdminPrincipal(), &uid)
	if err != nil {
		t.Fatalf("ResolveTargetUID: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestResolveTargetUIDStreamerMustNotSupplyLiverUID(t *testing.T) {
	uid := uint64(42)
	if _, err := ResolveTargetUID(catalog.StreamerPrincipal(7), &uid); err != ErrStreamerMustNotSupplyLiverUID {
		t.Fatalf("err = %v, want ErrStreamerMustNotSupplyLiverUID", err)
	}
}

func TestResolveTargetUIDStreamerScopedToOwnUID(t *testing.T) {
	got, err := ResolveTargetUID(catalog.StreamerPrincipal(7), nil)
	if err != nil {
		t.Fatalf("ResolveTargetUID: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestRequireAdminRejectsStreamer(t *testing.T) {
	if err := RequireAdmin(catalog.StreamerPrincipal(7)); err == nil {
		t.Fatalf("RequireAdmin(Streamer) succeeded, want error")
	}
}

func TestRequireAdminAcceptsAdmin(t *testing.T) {
	if err := RequireAdmin(catalog.AdminPrincipal()); err != nil {
		t.Fatalf("RequireAdmin(Admin): %v", err)
	}
}
