package gateway

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/liveforge/dmcap/internal/catalog"
)

// ErrUnknownOperation is returned for an operation name not in the
// registry below.
var ErrUnknownOperation = errors.New("gateway: unknown operation")

// entityColumns maps every per-streamer query operation to its backing
// table and the columns a time-range filter applies to. liveInfo and
// liverInfo have no time column of their own (one row per live_id) so
// range filtering on them is a no-op.
var entityTables = map[string]struct {
	table     string
	timeCol   string
	hasRange  bool
	hasUserID bool
}{
	"liveInfo":      {"live_info", "", false, false},
	"title":         {"title", "save_time", true, false},
	"liverInfo":     {"liver_info", "", false, false},
	"summary":       {"summary", "save_time", true, false},
	"comment":       {"comment", "send_time", true, true},
	"follow":        {"follow", "send_time", true, false},
	"gift":          {"gift", "send_time", true, true},
	"joinClub":      {"join_club", "join_time", true, false},
	"watchingCount": {"watching_count", "save_time", true, false},
}

// Args is the decoded request body of a single query operation.
type Args struct {
	Operation  string
	LiveIDs    []string
	UserIDs    []int64
	Start, End *int64
	GiftIDs    []int64
	AllHistory bool
}

// Query executes one named operation against the streamer database pool
// (or the global catalog/gift databases for admin-scoped operations) and
// returns its rows as generic maps ready for JSON encoding.
type Query struct {
	Pool      *Pool
	CatalogDB *sql.DB
	Gifts     *GiftCache
	IsLive    *IsLiveCache
}

// Run dispatches args.Operation for the resolved target uid.
func (q *Query) Run(principal catalog.Principal, uid uint64, args Args) ([]map[string]any, error) {
	if args.Operation == "giftInfo" {
		return q.Gifts.Lookup(args.GiftIDs, args.AllHistory)
	}
	if args.Operation == "live" {
		if err := RequireAdmin(principal); err != nil {
			return nil, err
		}
		return q.queryLive(args)
	}

	spec, ok := entityTables[args.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, args.Operation)
	}

	db, err := q.Pool.Get(uid)
	if err != nil {
		return nil, err
	}

	f := NewFilter()
	if len(args.LiveIDs) > 0 {
		f.In("live_id", args.LiveIDs)
	}
	if spec.hasUserID && len(args.UserIDs) > 0 {
		f.InInt64("user_id", args.UserIDs)
	}
	if spec.hasRange && (args.Start != nil || args.End != nil) {
		f.Range(spec.timeCol, args.Start, args.End)
	}
	where, params, err := f.Build()
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + spec.table
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("gateway: query %s: %w", spec.table, err)
	}
	defer rows.Close()
	return scanRowsToMaps(rows)
}

func (q *Query) queryLive(args Args) ([]map[string]any, error) {
	f := NewFilter()
	if len(args.LiveIDs) > 0 {
		f.In("live_id", args.LiveIDs)
	}
	if args.Start != nil || args.End != nil {
		f.Range("start_time", args.Start, args.End)
	}
	where, params, err := f.Build()
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM live"
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := q.CatalogDB.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("gateway: query live: %w", err)
	}
	defer rows.Close()
	return scanRowsToMaps(rows)
}
