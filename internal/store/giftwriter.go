package store

import (
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/sirupsen/logrus"
)

// GiftInfo describes one entry in the upstream gift catalog. ID is a
// deterministic hash of the content fields, so re-fetching an unchanged
// catalog entry is an idempotent insert.
type GiftInfo struct {
	SaveTime                int64
	GiftID                  int64
	GiftName                string
	ArLiveName              string
	PayWalletType           int32
	GiftPrice               int64
	WebpPic                 string
	PngPic                  string
	SmallPngPic             string
	AllowBatchSendSizeList  string
	CanCombo                bool
	CanDraw                 bool
	MagicFaceID             int64
	VupArID                 int64
	Description             string
	RedpackPrice            int64
	CornerMarkerText        string
}

// ContentHash computes the deterministic 64-bit id from every field but
// SaveTime, so identical catalog entries observed at different times hash
// to the same id.
func (g GiftInfo) ContentHash() int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s|%d|%d|%s|%s|%s|%s|%t|%t|%d|%d|%s|%d|%s",
		g.GiftID, g.GiftName, g.ArLiveName, g.PayWalletType, g.GiftPrice,
		g.WebpPic, g.PngPic, g.SmallPngPic, g.AllowBatchSendSizeList,
		g.CanCombo, g.CanDraw, g.MagicFaceID, g.VupArID, g.Description,
		g.RedpackPrice, g.CornerMarkerText,
	)
	return int64(h.Sum64())
}

const insertGiftInfoSQL = `INSERT OR IGNORE INTO gift_info (
	id, save_time, gift_id, gift_name, ar_live_name, pay_wallet_type, gift_price,
	webp_pic, png_pic, small_png_pic, allow_batch_send_size_list, can_combo, can_draw,
	magic_face_id, vup_ar_id, description, redpack_price, corner_marker_text
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// GiftWriter is the single writer goroutine for the global gifts.db.
type GiftWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
	log  logrus.FieldLogger
}

func NewGiftWriter(path string, log logrus.FieldLogger) (*GiftWriter, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open gift db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaGiftDB); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: bootstrap gift schema: %w", err)
	}
	stmt, err := db.Prepare(insertGiftInfoSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare gift_info statement: %w", err)
	}
	return &GiftWriter{db: db, stmt: stmt, log: log}, nil
}

func (w *GiftWriter) Close() error {
	w.stmt.Close()
	return w.db.Close()
}

// Run consumes batches of gift catalog entries until the channel closes.
func (w *GiftWriter) Run(batches <-chan []GiftInfo) error {
	w.log.Info("gift writer started")
	for batch := range batches {
		for _, g := range batch {
			if _, err := w.stmt.Exec(
				g.ContentHash(), g.SaveTime, g.GiftID, g.GiftName, g.ArLiveName,
				g.PayWalletType, g.GiftPrice, g.WebpPic, g.PngPic, g.SmallPngPic,
				g.AllowBatchSendSizeList, g.CanCombo, g.CanDraw, g.MagicFaceID,
				g.VupArID, g.Description, g.RedpackPrice, g.CornerMarkerText,
			); err != nil {
				w.log.WithError(err).Error("failed to insert gift_info")
			}
		}
	}
	w.log.Warn("gift writer channel closed")
	return nil
}
