package ingest

import (
	"context"
	"testing"

	"github.com/liveforge/dmcap/internal/ingest/upstream"
	"github.com/liveforge/dmcap/internal/ingest/upstream/stub"
)

func TestFetchFinalUpdateCountIncludesFanCountAndMedal(t *testing.T) {
	script := stub.NewScript()
	script.UserLiveInfos[42] = upstream.UserLiveInfo{FanCount: 9001}
	script.MedalRanks[42] = upstream.MedalRank{HasFansClub: true, ClubName: "guardians", FansTotalCount: 50}

	update := fetchFinalUpdateCount(context.Background(), stub.NewFactory(script), upstream.LiveEntry{LiverUID: 42, LiveID: "L1"}, testLogger())
	if update == nil {
		t.Fatalf("fetchFinalUpdateCount returned nil")
	}
	if update.LiveID != "L1" {
		t.Fatalf("LiveID = %q, want L1", update.LiveID)
	}
	if update.FansCount == nil || *update.FansCount != 9001 {
		t.Fatalf("FansCount = %v, want 9001", update.FansCount)
	}
	if update.MedalName == nil || *update.MedalName != "guardians" {
		t.Fatalf("MedalName = %v, want guardians", update.MedalName)
	}
	if update.MedalCount == nil || *update.MedalCount != 50 {
		t.Fatalf("MedalCount = %v, want 50", update.MedalCount)
	}
}

func TestFetchFinalUpdateCountOmitsMedalWithoutFansClub(t *testing.T) {
	script := stub.NewScript()
	script.UserLiveInfos[7] = upstream.UserLiveInfo{FanCount: 3}

	update := fetchFinalUpdateCount(context.Background(), stub.NewFactory(script), upstream.LiveEntry{LiverUID: 7, LiveID: "L2"}, testLogger())
	if update == nil {
		t.Fatalf("fetchFinalUpdateCount returned nil")
	}
	if update.FansCount == nil || *update.FansCount != 3 {
		t.Fatalf("FansCount = %v, want 3", update.FansCount)
	}
	if update.MedalName != nil || update.MedalCount != nil {
		t.Fatalf("MedalName/MedalCount = %v/%v, want both nil (no fan club)", update.MedalName, update.MedalCount)
	}
}
