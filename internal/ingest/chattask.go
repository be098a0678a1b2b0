package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/ingest/upstream"
	"github.com/liveforge/dmcap/internal/store"
)

// signalTimeout is how long the chat loop waits for the next demultiplexed
// signal before treating the session as ended.
const signalTimeout = 10 * time.Second

// summaryWait separates a stream's two confirming summary fetches.
const summaryWait = 10 * time.Second

// summaryBackoff is the sleep before retrying a summary fetch pair that
// disagreed (upstream's "stream still on" hidden-live artifact).
const summaryBackoff = 30 * time.Minute

// RunChatTask is the per-stream chat/signal task. It builds an upstream
// chat client, fetches initial metadata, demultiplexes
// signals onto dataTx until the session ends or times out, then runs the
// finalizing summary sequence and reports StopDanmaku. It never panics
// the caller: a panic anywhere in the task is recovered and logged, since
// this runs detached in its own goroutine.
func RunChatTask(
	ctx context.Context,
	factory upstream.Factory,
	entry upstream.LiveEntry,
	dataTx chan<- store.Event,
	stopDanmaku chan<- string,
	recovered chan<- []upstream.LiveEntry,
	log logrus.FieldLogger,
) {
	log = log.WithFields(logrus.Fields{"component": "chat_task", "live_id": entry.LiveID, "uid": entry.LiverUID})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("chat task panicked")
		}
		stopDanmaku <- entry.LiveID
	}()

	client, err := factory.Build(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to build upstream client")
		return
	}

	session, err := client.OpenChat(ctx, entry.LiverUID)
	if err != nil {
		log.WithError(err).Warn("failed to open chat session")
		return
	}

	if session.LiveID() != entry.LiveID {
		log.WithField("session_live_id", session.LiveID()).Warn("chat session attached to a different live_id, aborting")
		return
	}

	go fetchInitialMeta(ctx, client, entry, dataTx, log)

	for {
		sigCtx, cancel := context.WithTimeout(ctx, signalTimeout)
		ev, err := session.Next(sigCtx)
		cancel()
		if err != nil {
			break
		}
		demux(entry.LiveID, ev, dataTx)
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := session.Close(closeCtx); err != nil {
		log.WithError(err).Warn("chat session close failed")
	}
	closeCancel()

	finalizeStreamSummary(ctx, factory, entry, dataTx, recovered, log)
}

// fetchInitialMeta fetches stream metadata and fan-club stats (retried
// 3 times) and emits LiveInfo/LiverInfo/Title.
func fetchInitialMeta(ctx context.Context, client upstream.Client, entry upstream.LiveEntry, dataTx chan<- store.Event, log logrus.FieldLogger) {
	retryThrice(ctx, log, "fetch stream meta", func(ctx context.Context) error {
		meta, err := client.StreamMeta(ctx, entry)
		if err != nil {
			return err
		}
		dataTx <- store.Event{LiveInfo: &store.LiveInfo{
			LiveID:                meta.LiveID,
			LiverUID:              meta.LiverUID,
			StreamName:            meta.StreamName,
			StartTime:             meta.StartTime,
			Cover:                 meta.Cover,
			LiveType:              metaLiveType(meta),
			HasFansClub:           meta.HasFansClub,
			Portrait:              meta.Portrait,
			Panoramic:             meta.Panoramic,
			DisableDanmakuShow:    meta.DisableDanmakuShow,
			PaidShowUserBuyStatus: meta.PaidShowUserBuyStatus,
		}}
		dataTx <- store.Event{LiverInfo: &store.LiverInfo{
			LiveID:              meta.LiveID,
			SaveTime:            meta.SaveTime,
			LiverUID:            meta.LiverUID,
			Nickname:            meta.Nickname,
			Avatar:              meta.Avatar,
			AvatarFrame:         meta.AvatarFrame,
			FollowingCount:      meta.FollowingCount,
			ContributeCount:     meta.ContributeCount,
			LiveBeginFansCount:  meta.LiveBeginFansCount,
			Signature:           meta.Signature,
			VerifiedText:        meta.VerifiedText,
			IsJoinUpCollege:     meta.IsJoinUpCollege,
			MedalName:           meta.MedalName,
			LiveBeginMedalCount: meta.LiveBeginMedalCount,
		}}
		dataTx <- store.Event{Title: &store.Title{LiveID: meta.LiveID, SaveTime: meta.SaveTime, Title: meta.Title}}
		return nil
	})

	retryThrice(ctx, log, "fetch medal rank", func(ctx context.Context) error {
		rank, err := client.MedalRank(ctx, entry.LiverUID)
		if err != nil {
			return err
		}
		if !rank.HasFansClub {
			return nil
		}
		name := rank.ClubName
		count := rank.FansTotalCount
		dataTx <- store.Event{UpdateCount: &store.UpdateCount{LiveID: entry.LiveID, MedalName: &name, MedalCount: &count}}
		return nil
	})
}

func metaLiveType(meta upstream.StreamMeta) *store.LiveType {
	if meta.LiveType == nil {
		return nil
	}
	return &store.LiveType{
		ID:           meta.LiveType.ID,
		Name:         meta.LiveType.Name,
		CategoryID:   meta.LiveType.CategoryID,
		CategoryName: meta.LiveType.CategoryName,
	}
}

// demux translates one upstream signal into a store.Event wrapped with
// liveID and sends it to dataTx. Unknown/empty signals are silently
// dropped.
func demux(liveID string, ev upstream.Event, dataTx chan<- store.Event) {
	switch {
	case ev.Comment != nil:
		dataTx <- store.Event{Comment: &store.Comment{LiveID: liveID, SendTime: ev.Comment.SendTime, Actor: toStoreActor(ev.Comment.Actor), Content: ev.Comment.Content}}
	case ev.Follow != nil:
		dataTx <- store.Event{Follow: &store.Follow{LiveID: liveID, SendTime: ev.Follow.SendTime, Actor: toStoreActor(ev.Follow.Actor)}}
	case ev.Gift != nil:
		g := ev.Gift
		dataTx <- store.Event{Gift: &store.Gift{
			LiveID: liveID, SendTime: g.SendTime, Actor: toStoreActor(g.Actor),
			GiftID: g.GiftID, Count: g.Count, Combo: g.Combo, Value: g.Value, ComboID: g.ComboID,
			SlotDisplayDuration: g.SlotDisplayDuration, ExpireDuration: g.ExpireDuration, DrawGiftInfo: g.DrawGiftInfo,
		}}
	case ev.JoinClub != nil:
		j := ev.JoinClub
		dataTx <- store.Event{JoinClub: &store.JoinClub{LiveID: liveID, JoinTime: j.JoinTime, FansUID: j.FansUID, FansNickname: j.FansNickname, UperUID: j.UperUID, UperNickname: j.UperNickname}}
	case ev.Banana != nil:
		dataTx <- store.Event{Banana: &store.Banana{Count: *ev.Banana}}
	case ev.WatchingCount != nil:
		dataTx <- store.Event{WatchingCount: &store.WatchingCount{LiveID: liveID, Raw: *ev.WatchingCount}}
	case ev.Redpack != nil:
		r := ev.Redpack
		dataTx <- store.Event{Redpack: &store.Redpack{
			RedpackID: r.RedpackID, LiveID: liveID, SaveTime: r.SaveTime, Sender: toStoreActor(r.Sender),
			Amount: r.Amount, RedpackBizUnit: r.RedpackBizUnit, GetTokenLatestTime: r.GetTokenLatestTime,
			GrabBeginTime: r.GrabBeginTime, SettleBeginTime: r.SettleBeginTime,
		}}
	case ev.ChatCall != nil:
		dataTx <- store.Event{ChatCall: &store.ChatCall{ChatID: ev.ChatCall.ChatID, LiveID: liveID, CallTime: ev.ChatCall.CallTime}}
	case ev.ChatReady != nil:
		c := ev.ChatReady
		dataTx <- store.Event{ChatReady: &store.ChatReady{ChatID: c.ChatID, LiveID: liveID, SaveTime: c.SaveTime, Guest: toStoreActor(c.Guest), MediaType: c.MediaType}}
	case ev.ChatEnd != nil:
		dataTx <- store.Event{ChatEnd: &store.ChatEnd{ChatID: ev.ChatEnd.ChatID, LiveID: liveID, SaveTime: ev.ChatEnd.SaveTime, EndType: ev.ChatEnd.EndType}}
	case ev.AuthorChatCall != nil:
		a := ev.AuthorChatCall
		dataTx <- store.Event{AuthorChatCall: &store.AuthorChatCall{AuthorChatID: a.AuthorChatID, LiveID: liveID, Inviter: toStoreActor(a.Inviter), InviterLiveID: a.InviterLiveID, CallTime: a.CallTime}}
	case ev.AuthorChatReady != nil:
		a := ev.AuthorChatReady
		dataTx <- store.Event{AuthorChatReady: &store.AuthorChatReady{
			AuthorChatID: a.AuthorChatID, LiveID: liveID, SaveTime: a.SaveTime,
			Inviter: toStoreActor(a.Inviter), InviterLiveID: a.InviterLiveID,
			Invitee: toStoreActor(a.Invitee), InviteeLiveID: a.InviteeLiveID,
		}}
	case ev.AuthorChatEnd != nil:
		a := ev.AuthorChatEnd
		dataTx <- store.Event{AuthorChatEnd: &store.AuthorChatEnd{AuthorChatID: a.AuthorChatID, LiveID: liveID, SaveTime: a.SaveTime, EndType: a.EndType, EndLiveID: a.EndLiveID}}
	case ev.AuthorSoundCfg != nil:
		a := ev.AuthorSoundCfg
		dataTx <- store.Event{AuthorSoundCfg: &store.AuthorChatChangeSoundConfig{AuthorChatID: a.AuthorChatID, LiveID: liveID, SaveTime: a.SaveTime, SoundConfigChangeType: a.SoundConfigChangeType}}
	case ev.ViolationAlert != nil:
		dataTx <- store.Event{ViolationAlert: &store.ViolationAlert{LiveID: liveID, SaveTime: ev.ViolationAlert.SaveTime, Reason: ev.ViolationAlert.Reason}}
	}
}

func toStoreActor(a *upstream.Actor) *store.Actor {
	if a == nil {
		return nil
	}
	return &store.Actor{
		UserID: a.UserID, Nickname: a.Nickname, Avatar: a.Avatar,
		MedalUperUID: a.MedalUperUID, MedalName: a.MedalName, MedalLevel: a.MedalLevel, Manager: a.Manager,
	}
}

// finalizeStreamSummary fetches the end-of-stream summary, waits 10s,
// then fetches again to detect the upstream's
// spurious "stream still on" artifact; on agreement, persist Summary and
// UpdateCount then Stop the writer; on disagreement, back off 30 minutes
// and retry from the first fetch. If UserLiveInfo still reports the
// stream live afterward, a synthetic LiveList entry is re-injected into
// the supervisor to recover from an accidental disconnect.
func finalizeStreamSummary(
	ctx context.Context,
	factory upstream.Factory,
	entry upstream.LiveEntry,
	dataTx chan<- store.Event,
	recovered chan<- []upstream.LiveEntry,
	log logrus.FieldLogger,
) {
	for {
		first, ok := fetchSummaryOnce(ctx, factory, entry.LiveID, log)
		if !ok {
			return
		}
		if !sleepCtx(ctx, summaryWait) {
			return
		}
		second, ok := fetchSummaryOnce(ctx, factory, entry.LiveID, log)
		if !ok {
			return
		}
		if first == second {
			dataTx <- store.Event{Summary: &store.Summary{
				LiveID: entry.LiveID, SaveTime: nowMillis(),
				Duration: second.Duration, LikeCount: second.LikeCount, WatchTotalCount: second.WatchTotalCount,
			}}
			if update := fetchFinalUpdateCount(ctx, factory, entry, log); update != nil {
				dataTx <- store.Event{UpdateCount: update}
			}
			dataTx <- store.Event{Stop: &store.Stop{}}
			break
		}
		log.Warn("summary fetches disagree, backing off")
		if !sleepCtx(ctx, summaryBackoff) {
			return
		}
	}

	client, err := factory.Build(ctx)
	if err != nil {
		return
	}
	info, err := client.UserLiveInfo(ctx, entry.LiverUID)
	if err != nil || info.Live == nil {
		return
	}
	if info.Live.LiveID != entry.LiveID {
		return
	}
	select {
	case recovered <- []upstream.LiveEntry{*info.Live}:
	case <-ctx.Done():
	}
}

// fetchFinalUpdateCount gathers the end-of-stream fan count and (if the
// streamer still has a fan club) its guardian-medal standing, for the
// UpdateCount event that must precede Stop. Returns nil if the fan count
// couldn't be fetched, since an UpdateCount with nothing to report isn't
// worth emitting.
func fetchFinalUpdateCount(ctx context.Context, factory upstream.Factory, entry upstream.LiveEntry, log logrus.FieldLogger) *store.UpdateCount {
	client, err := factory.Build(ctx)
	if err != nil {
		return nil
	}
	info, err := client.UserLiveInfo(ctx, entry.LiverUID)
	if err != nil {
		log.WithError(err).Warn("fetch end-of-stream fan count failed")
		return nil
	}
	fans := info.FanCount
	update := &store.UpdateCount{LiveID: entry.LiveID, FansCount: &fans}

	rank, err := client.MedalRank(ctx, entry.LiverUID)
	if err != nil {
		log.WithError(err).Warn("fetch end-of-stream medal rank failed")
		return update
	}
	if rank.HasFansClub {
		name := rank.ClubName
		count := rank.FansTotalCount
		update.MedalName = &name
		update.MedalCount = &count
	}
	return update
}

func fetchSummaryOnce(ctx context.Context, factory upstream.Factory, liveID string, log logrus.FieldLogger) (upstream.Summary, bool) {
	var result upstream.Summary
	ok := false
	retryThrice(ctx, log, "fetch summary", func(ctx context.Context) error {
		client, err := factory.Build(ctx)
		if err != nil {
			return err
		}
		s, err := client.Summary(ctx, liveID)
		if err != nil {
			return err
		}
		result, ok = s, true
		return nil
	})
	return result, ok
}
