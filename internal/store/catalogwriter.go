package store

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// AllLiveEvent is the sum type flowing into the global catalog writer:
// either a freshly discovered stream (Live) or a finalized duration/like/
// watch update for one that has ended (Summary).
type AllLiveEvent struct {
	Live    *CatalogLive
	Summary *CatalogSummary
}

type CatalogLive struct {
	LiveID             string
	LiverUID           uint64
	Nickname           string
	StreamName         string
	StartTime          int64
	Title              string
	LiveType           *LiveType
	Portrait           bool
	Panoramic          bool
	DisableDanmakuShow bool

	// Duration, LikeCount, and WatchCount are left nil at discovery time
	// and stay NULL in the live table until the summary finalizer reports
	// them, so a NULL duration is how the gateway tells a still-live
	// stream from a finished one.
	Duration   *int64
	LikeCount  *int64
	WatchCount *int64
}

type CatalogSummary struct {
	LiveID     string
	Duration   int64
	LikeCount  int64
	WatchCount int64
}

const insertCatalogLiveSQL = `INSERT OR IGNORE INTO live (
	live_id, liver_uid, nickname, stream_name, start_time, title,
	live_type_id, live_type_name, live_type_category_id, live_type_category_name,
	portrait, panoramic, disable_danmaku_show, duration, like_count, watch_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateCatalogLiveSQL = `UPDATE live SET duration = ?, like_count = ?, watch_count = ? WHERE live_id = ?`

// CatalogWriter is the single writer goroutine for the global catalog.db,
// consuming AllLiveEvent from the ingest pipeline's catalog channel.
type CatalogWriter struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
	log   logrus.FieldLogger
}

func NewCatalogWriter(path string, log logrus.FieldLogger) (*CatalogWriter, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open catalog db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaCatalogDB); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: bootstrap catalog schema: %w", err)
	}
	return &CatalogWriter{db: db, stmts: make(map[string]*sql.Stmt), log: log}, nil
}

func (w *CatalogWriter) Close() error {
	for _, s := range w.stmts {
		s.Close()
	}
	return w.db.Close()
}

func (w *CatalogWriter) prepared(sqlText string) (*sql.Stmt, error) {
	if stmt, ok := w.stmts[sqlText]; ok {
		return stmt, nil
	}
	stmt, err := w.db.Prepare(sqlText)
	if err != nil {
		return nil, fmt.Errorf("store: prepare catalog statement: %w", err)
	}
	w.stmts[sqlText] = stmt
	return stmt, nil
}

// Run consumes events until the channel closes.
func (w *CatalogWriter) Run(events <-chan AllLiveEvent) error {
	w.log.Info("catalog writer started")
	for ev := range events {
		if err := w.dispatch(ev); err != nil {
			return err
		}
	}
	w.log.Warn("catalog writer channel closed")
	return nil
}

func (w *CatalogWriter) dispatch(ev AllLiveEvent) error {
	switch {
	case ev.Live != nil:
		stmt, err := w.prepared(insertCatalogLiveSQL)
		if err != nil {
			return err
		}
		l := ev.Live
		var typeID, typeCatID any
		var typeName, typeCatName any
		if l.LiveType != nil {
			typeID, typeName = l.LiveType.ID, l.LiveType.Name
			typeCatID, typeCatName = l.LiveType.CategoryID, l.LiveType.CategoryName
		}
		if _, err := stmt.Exec(
			l.LiveID, l.LiverUID, l.Nickname, l.StreamName, l.StartTime, l.Title,
			typeID, typeName, typeCatID, typeCatName,
			l.Portrait, l.Panoramic, l.DisableDanmakuShow, l.Duration, l.LikeCount, l.WatchCount,
		); err != nil {
			w.log.WithError(err).WithField("live_id", l.LiveID).Error("failed to insert live")
		}
	case ev.Summary != nil:
		stmt, err := w.prepared(updateCatalogLiveSQL)
		if err != nil {
			return err
		}
		s := ev.Summary
		if _, err := stmt.Exec(s.Duration, s.LikeCount, s.WatchCount, s.LiveID); err != nil {
			w.log.WithError(err).WithField("live_id", s.LiveID).Error("failed to update live")
		}
	}
	return nil
}
