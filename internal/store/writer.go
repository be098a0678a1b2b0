package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

// LiverDBPath returns the per-streamer database path under dir.
func LiverDBPath(dir string, uid uint64) string {
	return filepath.Join(dir, "livers", fmt.Sprintf("%d.db", uid))
}

// Writer is the synchronous, single-connection writer for one streamer's
// database. It owns the *sql.DB exclusively — callers must not share it
// across goroutines — and caches prepared statements by SQL text.
type Writer struct {
	liveID   string
	liverUID uint64
	db       *sql.DB
	stmts    map[string]*sql.Stmt
	log      logrus.FieldLogger

	maxWatch     *int32
	banana       string
	seenRedpacks map[string]struct{}
	ticks        <-chan struct{}
}

// NewWriter opens (creating if needed) the database at path, bootstraps
// its schema, and returns a Writer ready to consume events for liveID.
func NewWriter(path string, liveID string, liverUID uint64, log logrus.FieldLogger) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory for %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaLiverDB); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: bootstrap schema for %s: %w", path, err)
	}

	return &Writer{
		liveID:       liveID,
		liverUID:     liverUID,
		db:           db,
		stmts:        make(map[string]*sql.Stmt),
		log:          log.WithField("live_id", liveID),
		seenRedpacks: make(map[string]struct{}),
	}, nil
}

func (w *Writer) Close() error {
	for _, stmt := range w.stmts {
		stmt.Close()
	}
	return w.db.Close()
}

// prepared returns a cached prepared statement for sqlText, preparing and
// caching it on first use. A preparation failure is schema drift and is
// fatal to the writer, per spec.
func (w *Writer) prepared(sqlText string) (*sql.Stmt, error) {
	if stmt, ok := w.stmts[sqlText]; ok {
		return stmt, nil
	}
	stmt, err := w.db.Prepare(sqlText)
	if err != nil {
		return nil, fmt.Errorf("store: prepare statement: %w", err)
	}
	w.stmts[sqlText] = stmt
	return stmt, nil
}

// Run consumes events until the channel closes or a Stop event arrives,
// dispatching each to its table. A single statement
// execution failure is logged and swallowed; a preparation failure
// returns an error and stops the writer (the supervisor re-activates the
// stream on the next LiveList entry).
func (w *Writer) Run(events <-chan Event, ticks <-chan struct{}) error {
	w.log.Info("writer started")
	w.ticks = ticks
	for ev := range events {
		if ev.Stop != nil {
			w.log.Info("writer stopped")
			return nil
		}
		if err := w.dispatch(ev); err != nil {
			return err
		}
	}
	w.log.Warn("writer channel closed without Stop")
	return nil
}

func (w *Writer) dispatch(ev Event) error {
	switch {
	case ev.LiveInfo != nil:
		return w.execLogged(insertLiveInfoSQL, "live_info", liveInfoArgs(ev.LiveInfo))
	case ev.Title != nil:
		return w.handleTitle(ev.Title)
	case ev.LiverInfo != nil:
		return w.execLogged(insertLiverInfoSQL, "liver_info", liverInfoArgs(ev.LiverInfo))
	case ev.UpdateCount != nil:
		return w.execLogged(updateLiverInfoSQL, "updating liver_info", updateCountArgs(ev.UpdateCount))
	case ev.Summary != nil:
		return w.handleSummary(ev.Summary)
	case ev.Comment != nil:
		return w.execLogged(insertCommentSQL, "comment", commentArgs(ev.Comment))
	case ev.Follow != nil:
		return w.execLogged(insertFollowSQL, "follow", followArgs(ev.Follow))
	case ev.Gift != nil:
		return w.execLogged(insertGiftSQL, "gift", giftArgs(ev.Gift))
	case ev.JoinClub != nil:
		return w.execLogged(insertJoinClubSQL, "join_club", joinClubArgs(ev.JoinClub))
	case ev.Banana != nil:
		w.banana = ev.Banana.Count
		return nil
	case ev.WatchingCount != nil:
		return w.handleWatchingCount(ev.WatchingCount)
	case ev.Redpack != nil:
		return w.handleRedpack(ev.Redpack)
	case ev.ChatCall != nil:
		return w.execLogged(insertChatCallSQL, "chat_call", chatCallArgs(ev.ChatCall))
	case ev.ChatReady != nil:
		return w.execLogged(insertChatReadySQL, "chat_ready", chatReadyArgs(ev.ChatReady))
	case ev.ChatEnd != nil:
		return w.execLogged(insertChatEndSQL, "chat_end", chatEndArgs(ev.ChatEnd))
	case ev.AuthorChatCall != nil:
		return w.execLogged(insertAuthorChatCallSQL, "author_chat_call", authorChatCallArgs(ev.AuthorChatCall))
	case ev.AuthorChatReady != nil:
		return w.execLogged(insertAuthorChatReadySQL, "author_chat_ready", authorChatReadyArgs(ev.AuthorChatReady))
	case ev.AuthorChatEnd != nil:
		return w.execLogged(insertAuthorChatEndSQL, "author_chat_end", authorChatEndArgs(ev.AuthorChatEnd))
	case ev.AuthorSoundCfg != nil:
		return w.execLogged(insertAuthorChatSoundCfgSQL, "author_chat_change_sound_config", authorSoundCfgArgs(ev.AuthorSoundCfg))
	case ev.ViolationAlert != nil:
		return w.execLogged(insertViolationAlertSQL, "violation_alert", violationAlertArgs(ev.ViolationAlert))
	}
	return nil
}

// execLogged runs sqlText with args, logging and swallowing execution
// failures. A preparation failure is returned (fatal).
func (w *Writer) execLogged(sqlText, label string, args []any) error {
	stmt, err := w.prepared(sqlText)
	if err != nil {
		return fmt.Errorf("store: %s: %w", label, err)
	}
	if _, err := stmt.Exec(args...); err != nil {
		w.log.WithError(err).Errorf("failed to insert %s", label)
	}
	return nil
}

func (w *Writer) handleTitle(t *Title) error {
	selectStmt, err := w.prepared(selectTitleSQL)
	if err != nil {
		return fmt.Errorf("store: select title: %w", err)
	}
	var existing sql.NullString
	err = selectStmt.QueryRow(t.LiveID).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		w.log.WithError(err).Error("failed to select title")
		return nil
	}
	if err == nil && existing.Valid && existing.String == t.Title {
		return nil
	}
	return w.execLogged(insertTitleSQL, "title", []any{t.LiveID, t.SaveTime, t.Title})
}

func (w *Writer) handleSummary(s *Summary) error {
	var banana any
	if w.banana != "" {
		banana = w.banana
	}
	var maxWatch any
	if w.maxWatch != nil {
		maxWatch = *w.maxWatch
	}
	return w.execLogged(replaceSummarySQL, "summary", []any{
		s.LiveID, s.SaveTime, s.Duration, s.LikeCount, s.WatchTotalCount, maxWatch, banana,
	})
}

func (w *Writer) handleWatchingCount(wc *WatchingCount) error {
	count, ok := parseWatchingCount(wc.Raw)
	if ok {
		if w.maxWatch == nil || count > *w.maxWatch {
			w.maxWatch = &count
		}
	}

	fired := false
	select {
	case <-w.ticks:
		fired = true
	default:
	}
	if !fired {
		return nil
	}

	var persisted any
	if ok {
		persisted = count
	}
	return w.execLogged(insertWatchingCountSQL, "watching_count", []any{wc.LiveID, nowMillis(), persisted})
}

func (w *Writer) handleRedpack(r *Redpack) error {
	if _, seen := w.seenRedpacks[r.RedpackID]; seen {
		return nil
	}
	w.seenRedpacks[r.RedpackID] = struct{}{}
	return w.execLogged(insertRedpackSQL, "redpack", redpackArgs(r))
}
