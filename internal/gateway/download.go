package gateway

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/store"
)

// ErrDownloadWhileLive is returned when a streamer requests their own
// database while still live — the writer goroutine holds the only
// connection and a concurrent copy would race an in-progress write.
var ErrDownloadWhileLive = fmt.Errorf("gateway: cannot download database while live")

// ServeDownload handles GET /download for a Streamer principal: it copies
// the requester's own database to a temp file (so the response body
// doesn't hold the original file open under a long transfer) and streams
// it back with a Content-Disposition attachment name.
func (g *Gateway) ServeDownload(w http.ResponseWriter, r *http.Request) {
	principal, err := ResolvePrincipal(g.Roster, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if principal.Kind != catalog.Streamer {
		http.Error(w, "download is streamer-only", http.StatusForbidden)
		return
	}

	live, err := g.IsLive.IsLive(principal.UID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if live {
		http.Error(w, ErrDownloadWhileLive.Error(), http.StatusConflict)
		return
	}

	srcPath := store.LiverDBPath(g.DataDir, principal.UID)
	tmpPath, cleanup, err := copyToTemp(srcPath)
	if err != nil {
		http.Error(w, "database not found", http.StatusNotFound)
		return
	}
	defer cleanup()

	f, err := os.Open(tmpPath)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%d-%s.db", principal.UID, time.Now().Format("2006-01-02-15-04-05"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

func copyToTemp(srcPath string) (path string, cleanup func(), err error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "dmcap-download-*.db")
	if err != nil {
		return "", nil, err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}

	name := tmp.Name()
	return name, func() { os.Remove(name) }, nil
}
