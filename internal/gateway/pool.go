package gateway

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	_ "github.com/mattn/go-sqlite3"

	"github.com/liveforge/dmcap/internal/store"
)

// poolTTL bounds how long an idle read-only handle is kept open before the
// cache evicts and closes it.
const poolTTL = time.Hour

// poolCapacity is the maximum number of distinct per-streamer databases
// held open at once.
const poolCapacity = 128

// ErrDatabaseNotFound is returned when the requested streamer has no
// database file on disk yet.
var ErrDatabaseNotFound = fmt.Errorf("gateway: database not found")

// Pool caches read-only *sql.DB handles for per-streamer databases, keyed
// by uid, so a burst of queries against the same streamer reuses one
// connection pool instead of re-opening the file every request.
type Pool struct {
	dataDir string
	cache   *lru.LRU[uint64, *sql.DB]
}

// NewPool builds a Pool rooted at dataDir, evicting (and closing) entries
// after poolTTL of disuse.
func NewPool(dataDir string) *Pool {
	p := &Pool{dataDir: dataDir}
	p.cache = lru.NewLRU[uint64, *sql.DB](poolCapacity, func(_ uint64, db *sql.DB) {
		db.Close()
	}, poolTTL)
	return p
}

// Get returns the cached read-only handle for uid, opening it if absent.
// It errors if the backing file does not exist, so a never-captured
// streamer fails fast instead of silently creating an empty database.
func (p *Pool) Get(uid uint64) (*sql.DB, error) {
	if db, ok := p.cache.Get(uid); ok {
		return db, nil
	}

	path := store.LiverDBPath(p.dataDir, uid)
	if _, err := os.Stat(path); err != nil {
		return nil, ErrDatabaseNotFound
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro&_query_only=true")
	if err != nil {
		return nil, fmt.Errorf("gateway: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(30)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("gateway: ping %s: %w", path, err)
	}

	p.cache.Add(uid, db)
	return db, nil
}

// Close closes every cached handle. Used at shutdown.
func (p *Pool) Close() {
	for _, uid := range p.cache.Keys() {
		if db, ok := p.cache.Peek(uid); ok {
			db.Close()
		}
	}
	p.cache.Purge()
}
