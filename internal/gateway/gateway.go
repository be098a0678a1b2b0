package gateway

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
)

// Gateway bundles every collaborator the backend HTTP listener needs:
// token resolution against the roster, the per-streamer pool, the two
// result caches, the filter-backed query dispatcher, and the mutator
// that issues/revokes tokens and tells the data-center about it.
// Constructed once at backend startup and shared by every request.
type Gateway struct {
	Roster    *catalog.Roster
	Pool      *Pool
	Query     *Query
	Gifts     *GiftCache
	IsLive    *IsLiveCache
	Mutator   *Mutator
	DataDir   string
	Log       logrus.FieldLogger
}

// queryRequest is the POST / body: a single named operation plus its
// optional filter inputs.
type queryRequest struct {
	Operation string    `json:"operation"`
	LiveID    []string  `json:"live_id,omitempty"`
	UserID    []int64   `json:"user_id,omitempty"`
	GiftID    []int64   `json:"gift_id,omitempty"`
	Start     *int64    `json:"start,omitempty"`
	End       *int64    `json:"end,omitempty"`
	LiverUID  *uint64   `json:"liver_uid,omitempty"`
	AllHistory bool     `json:"all_history,omitempty"`
}

// mutationResult reports whether a roster mutation was a no-op against
// an existing entry ("preexisting") and, for a fresh add, the newly
// issued token.
type mutationResult struct {
	Preexisting bool   `json:"preexisting"`
	Token       string `json:"token,omitempty"`
}

// NewMux assembles the backend's routes behind a policy stack:
// compression, concurrency limit, load shed, request timeout, then
// auth/dispatch.
func (g *Gateway) NewMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.serveRoot)
	mux.HandleFunc("/download", g.ServeDownload)

	return withCompression(withConcurrencyLimit(50, withTimeout(20*time.Second, mux)))
}

func (g *Gateway) serveRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.servePlayground(w, r)
	case http.MethodPost:
		g.serveQuery(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "only GET and POST are supported")
	}
}

// servePlayground serves a minimal static HTML page describing the
// query shape for interactive use in a browser.
func (g *Gateway) servePlayground(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(playgroundHTML))
}

// serveQuery handles POST /: resolve the principal, parse the body,
// dispatch to either a read operation (internal/gateway/query.go) or an
// admin mutation (add_liver/delete_liver), and write the JSON result.
func (g *Gateway) serveQuery(w http.ResponseWriter, r *http.Request) {
	principal, err := ResolvePrincipal(g.Roster, r)
	if err != nil {
		logAuthFailure(g.Log, r)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateQueryRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Operation {
	case "add_liver", "delete_liver":
		g.serveMutation(w, r.Context(), principal, req)
		return
	case "live":
		if err := RequireAdmin(principal); err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
	}

	uid, err := ResolveTargetUID(principal, req.LiverUID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := g.Query.Run(principal, uid, Args{
		Operation:  req.Operation,
		LiveIDs:    req.LiveID,
		UserIDs:    req.UserID,
		Start:      req.Start,
		End:        req.End,
		GiftIDs:    req.GiftID,
		AllHistory: req.AllHistory,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (g *Gateway) serveMutation(w http.ResponseWriter, ctx context.Context, principal catalog.Principal, req queryRequest) {
	if err := RequireAdmin(principal); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	if req.LiverUID == nil || *req.LiverUID == 0 {
		writeError(w, http.StatusBadRequest, "liver_uid is required")
		return
	}

	switch req.Operation {
	case "add_liver":
		result, err := g.Mutator.AddLiver(ctx, *req.LiverUID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, mutationResult{Preexisting: result.Preexisting, Token: result.Token})
	case "delete_liver":
		result, err := g.Mutator.DeleteLiver(ctx, *req.LiverUID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, mutationResult{Preexisting: result.Preexisting})
	}
}

// validateQueryRequest checks field-level invariants: live_id entries
// length >= 1, user_id/gift_id/liver_uid > 0, start/end >= 0.
func validateQueryRequest(req queryRequest) error {
	if req.Operation == "" {
		return fmt.Errorf("operation is required")
	}
	for _, id := range req.LiveID {
		if len(id) < 1 {
			return fmt.Errorf("live_id entries must be non-empty")
		}
	}
	for _, id := range req.UserID {
		if id <= 0 {
			return fmt.Errorf("user_id must be positive")
		}
	}
	for _, id := range req.GiftID {
		if id <= 0 {
			return fmt.Errorf("gift_id must be positive")
		}
	}
	if req.LiverUID != nil && *req.LiverUID == 0 && req.Operation != "add_liver" && req.Operation != "delete_liver" {
		return fmt.Errorf("liver_uid must be positive")
	}
	if req.Start != nil && *req.Start < 0 {
		return fmt.Errorf("start must be >= 0")
	}
	if req.End != nil && *req.End < 0 {
		return fmt.Errorf("end must be >= 0")
	}
	if req.Start != nil && req.End != nil && *req.Start > *req.End {
		return fmt.Errorf("start must not be after end")
	}
	return nil
}

func logAuthFailure(log logrus.FieldLogger, r *http.Request) {
	log.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
	}).Warn("rejected unauthorized request")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- policy layers, outer to inner: compression, concurrency limit, timeout ---

type gzipResponseWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.gz.Write(b)
}

// withCompression gzip-encodes the response body when the client
// advertises support.
func withCompression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, gz: gz}, r)
	})
}

// withConcurrencyLimit admits at most n requests into next at once;
// requests beyond that receive 429 immediately rather than queueing.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
		default:
			writeError(w, http.StatusTooManyRequests, "server is at capacity")
			return
		}
		defer func() { <-sem }()
		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds request handling to d, responding 408 if the handler
// hasn't written a response by the deadline. http.TimeoutHandler does the
// waiting but always answers 503; rewrite that one status before it
// reaches the client.
func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return statusRewriter{http.TimeoutHandler(next, d, `{"error":"request timed out"}`), http.StatusServiceUnavailable, http.StatusRequestTimeout}
}

// statusRewriter maps a single WriteHeader status code to another on the
// way out, leaving every other status untouched.
type statusRewriter struct {
	http.Handler
	from, to int
}

func (s statusRewriter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler.ServeHTTP(&statusRewriteWriter{ResponseWriter: w, from: s.from, to: s.to}, r)
}

type statusRewriteWriter struct {
	http.ResponseWriter
	from, to int
}

func (w *statusRewriteWriter) WriteHeader(status int) {
	if status == w.from {
		status = w.to
	}
	w.ResponseWriter.WriteHeader(status)
}

const playgroundHTML = `<!DOCTYPE html>
<html>
<head><title>dmcap query</title></head>
<body>
<h1>dmcap backend query endpoint</h1>
<p>POST a JSON body to this path with a <code>token</code> header set to your bearer token.</p>
<pre>{"operation": "comment", "live_id": ["abc123"], "start": 0, "end": 1700000000000}</pre>
<p>Admin-only operations: <code>add_liver</code>, <code>delete_liver</code>, <code>live</code>.</p>
</body>
</html>`
