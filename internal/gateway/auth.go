// Package gateway implements the query gateway: token authorization, a
// per-database read-only connection pool cache, a parameterized
// filter-query combinator, and the gift-info/is-live result caches,
// composed behind a plain net/http handler.
package gateway

import (
	"errors"
	"net/http"

	"github.com/liveforge/dmcap/internal/catalog"
)

// ErrUnauthorized is returned by ResolvePrincipal for every failure
// mode: missing token, wrong length, multiple headers, or a token absent
// from the roster. The caller always responds 401 without distinguishing
// which.
var ErrUnauthorized = errors.New("gateway: unauthorized")

// ErrAdminNeedsLiverUID and ErrStreamerMustNotSupplyLiverUID are the two
// target-resolution failures, surfaced as plain error messages to the
// caller (not HTTP status changes — both are still request-level
// failures handled by the query dispatcher).
var (
	ErrAdminNeedsLiverUID             = errors.New("admin needs liver_uid")
	ErrStreamerMustNotSupplyLiverUID  = errors.New("streamer must not supply liver_uid")
)

const tokenHeader = "token"

// ResolvePrincipal resolves the request's token header to a principal.
// A missing header, more than one token header, a wrong-length token, or
// a token absent from the roster are all ErrUnauthorized — the caller
// never learns which, so an unauthorized request never opens a database.
func ResolvePrincipal(roster *catalog.Roster, r *http.Request) (catalog.Principal, error) {
	values := r.Header.Values(tokenHeader)
	if len(values) != 1 {
		return catalog.Principal{}, ErrUnauthorized
	}
	token := values[0]
	if len(token) != catalog.TokenLength {
		return catalog.Principal{}, ErrUnauthorized
	}
	principal, err := roster.Lookup(token)
	if err != nil {
		return catalog.Principal{}, ErrUnauthorized
	}
	return principal, nil
}

// ResolveTargetUID applies the admin/streamer liver_uid rules: an Admin
// principal must supply liverUID; a Streamer principal must not,
// and is always scoped to its own uid.
func ResolveTargetUID(p catalog.Principal, liverUID *uint64) (uint64, error) {
	if p.Kind == catalog.Admin {
		if liverUID == nil {
			return 0, ErrAdminNeedsLiverUID
		}
		return *liverUID, nil
	}
	if liverUID != nil {
		return 0, ErrStreamerMustNotSupplyLiverUID
	}
	return p.UID, nil
}

// RequireAdmin returns an error unless p is the Admin principal, for the
// admin-only operations: add_liver, delete_liver, and live.
func RequireAdmin(p catalog.Principal) error {
	if p.Kind != catalog.Admin {
		return errors.New("gateway: operation requires admin")
	}
	return nil
}
