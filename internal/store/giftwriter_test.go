package store

import (
	"path/filepath"
	"testing"
)

func newTestGiftWriter(t *testing.T) *GiftWriter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gifts.db")
	w, err := NewGiftWriter(path, testLogger())
	if err != nil {
		t.Fatalf("NewGiftWriter: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func sampleGift(name string) GiftInfo {
	return GiftInfo{
		SaveTime:      1,
		GiftID:        42,
		GiftName:      name,
		ArLiveName:    "ar-name",
		PayWalletType: 1,
		GiftPrice:     100,
		WebpPic:       "pic.webp",
		PngPic:        "pic.png",
		SmallPngPic:   "small.png",
		CanCombo:      true,
		CanDraw:       false,
		MagicFaceID:   0,
		VupArID:       0,
		Description:   "a gift",
		RedpackPrice:  0,
	}
}

func TestGiftWriterContentHashDedup(t *testing.T) {
	w := newTestGiftWriter(t)

	batches := make(chan []GiftInfo, 2)
	g := sampleGift("rose")
	batches <- []GiftInfo{g}
	g2 := g
	g2.SaveTime = 999 // different save time, same content, same hash
	batches <- []GiftInfo{g2}
	close(batches)

	if err := w.Run(batches); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var n int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM gift_info").Scan(&n); err != nil {
		t.Fatalf("count gift_info: %v", err)
	}
	if n != 1 {
		t.Fatalf("gift_info rows = %d, want 1 (content-hash dedup)", n)
	}
}

func TestGiftWriterDistinctContentProducesDistinctRows(t *testing.T) {
	w := newTestGiftWriter(t)

	batches := make(chan []GiftInfo, 1)
	batches <- []GiftInfo{sampleGift("rose"), sampleGift("rocket")}
	close(batches)

	if err := w.Run(batches); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var n int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM gift_info").Scan(&n); err != nil {
		t.Fatalf("count gift_info: %v", err)
	}
	if n != 2 {
		t.Fatalf("gift_info rows = %d, want 2", n)
	}
}

func TestGiftInfoContentHashStableAcrossSaveTime(t *testing.T) {
	a := sampleGift("rose")
	b := a
	b.SaveTime = 12345
	if a.ContentHash() != b.ContentHash() {
		t.Fatalf("ContentHash differs when only SaveTime changes")
	}

	c := sampleGift("rocket")
	if a.ContentHash() == c.ContentHash() {
		t.Fatalf("ContentHash collided for distinct gift names")
	}
}
