package store

import "time"

// nowMillis returns the current time as epoch milliseconds, the timestamp
// unit used throughout every entity's save_time/send_time column.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

const insertLiveInfoSQL = `INSERT OR IGNORE INTO live_info (
	live_id, liver_uid, stream_name, start_time, cover,
	live_type_id, live_type_name, live_type_category_id, live_type_category_name,
	has_fans_club, portrait, panoramic, disable_danmaku_show, paid_show_user_buy_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func liveInfoArgs(i *LiveInfo) []any {
	var typeID, typeCatID any
	var typeName, typeCatName any
	if i.LiveType != nil {
		typeID, typeName = i.LiveType.ID, i.LiveType.Name
		typeCatID, typeCatName = i.LiveType.CategoryID, i.LiveType.CategoryName
	}
	return []any{
		i.LiveID, i.LiverUID, i.StreamName, i.StartTime, i.Cover,
		typeID, typeName, typeCatID, typeCatName,
		i.HasFansClub, i.Portrait, i.Panoramic, i.DisableDanmakuShow, i.PaidShowUserBuyStatus,
	}
}

const selectTitleSQL = `SELECT title FROM title WHERE live_id = ? ORDER BY save_time DESC LIMIT 1`
const insertTitleSQL = `INSERT INTO title (live_id, save_time, title) VALUES (?, ?, ?)`

const insertLiverInfoSQL = `INSERT OR IGNORE INTO liver_info (
	live_id, save_time, liver_uid, nickname, avatar, avatar_frame,
	following_count, contribute_count, live_begin_fans_count, live_end_fans_count,
	signature, verified_text, is_join_up_college, medal_name,
	live_begin_medal_count, live_end_medal_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func liverInfoArgs(i *LiverInfo) []any {
	return []any{
		i.LiveID, i.SaveTime, i.LiverUID, i.Nickname, i.Avatar, i.AvatarFrame,
		i.FollowingCount, i.ContributeCount, i.LiveBeginFansCount, i.LiveEndFansCount,
		i.Signature, i.VerifiedText, i.IsJoinUpCollege, i.MedalName,
		i.LiveBeginMedalCount, i.LiveEndMedalCount,
	}
}

const updateLiverInfoSQL = `UPDATE liver_info SET fans_count = ?, medal_name = ?, medal_count = ? WHERE live_id = ?`

func updateCountArgs(u *UpdateCount) []any {
	var fans, medalCount any
	if u.FansCount != nil {
		fans = *u.FansCount
	}
	if u.MedalCount != nil {
		medalCount = *u.MedalCount
	}
	var medalName any
	if u.MedalName != nil {
		medalName = *u.MedalName
	}
	return []any{fans, medalName, medalCount, u.LiveID}
}

const replaceSummarySQL = `INSERT OR REPLACE INTO summary (
	live_id, save_time, duration, like_count, watch_total_count, watch_online_max_count, banana_count
) VALUES (?, ?, ?, ?, ?, ?, ?)`

const insertCommentSQL = `INSERT INTO comment (
	live_id, send_time, user_id, nickname, avatar, medal_uper_uid, medal_name, medal_level, manager, content
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func actorArgs(a *Actor) []any {
	if a == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil}
	}
	return []any{a.UserID, a.Nickname, a.Avatar, a.MedalUperUID, a.MedalName, a.MedalLevel, a.Manager}
}

func commentArgs(c *Comment) []any {
	return append([]any{c.LiveID, c.SendTime}, append(actorArgs(c.Actor), c.Content)...)
}

const insertFollowSQL = `INSERT INTO follow (
	live_id, send_time, user_id, nickname, avatar, medal_uper_uid, medal_name, medal_level, manager
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func followArgs(f *Follow) []any {
	return append([]any{f.LiveID, f.SendTime}, actorArgs(f.Actor)...)
}

const insertGiftSQL = `INSERT INTO gift (
	live_id, send_time, user_id, nickname, avatar, medal_uper_uid, medal_name, medal_level, manager,
	gift_id, count, combo, value, combo_id, slot_display_duration, expire_duration, draw_gift_info
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func giftArgs(g *Gift) []any {
	base := append([]any{g.LiveID, g.SendTime}, actorArgs(g.Actor)...)
	return append(base, g.GiftID, g.Count, g.Combo, g.Value, g.ComboID,
		g.SlotDisplayDuration, g.ExpireDuration, g.DrawGiftInfo)
}

const insertJoinClubSQL = `INSERT INTO join_club (
	live_id, join_time, fans_uid, fans_nickname, uper_uid, uper_nickname
) VALUES (?, ?, ?, ?, ?, ?)`

func joinClubArgs(j *JoinClub) []any {
	return []any{j.LiveID, j.JoinTime, j.FansUID, j.FansNickname, j.UperUID, j.UperNickname}
}

const insertWatchingCountSQL = `INSERT INTO watching_count (live_id, save_time, watching_count) VALUES (?, ?, ?)`

const insertRedpackSQL = `INSERT OR IGNORE INTO redpack (
	redpack_id, live_id, save_time, sender_user_id, sender_nickname, sender_avatar,
	sender_medal_uper_uid, sender_medal_name, sender_medal_level, sender_manager,
	amount, redpack_biz_unit, get_token_latest_time, grab_begin_time, settle_begin_time
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func redpackArgs(r *Redpack) []any {
	base := []any{r.RedpackID, r.LiveID, r.SaveTime}
	base = append(base, actorArgs(r.Sender)...)
	return append(base, r.Amount, r.RedpackBizUnit, r.GetTokenLatestTime, r.GrabBeginTime, r.SettleBeginTime)
}

const insertChatCallSQL = `INSERT INTO chat_call (chat_id, live_id, call_time) VALUES (?, ?, ?)`

func chatCallArgs(c *ChatCall) []any { return []any{c.ChatID, c.LiveID, c.CallTime} }

const insertChatReadySQL = `INSERT INTO chat_ready (
	chat_id, live_id, save_time, guest_user_id, guest_nickname, guest_avatar,
	guest_medal_uper_uid, guest_medal_name, guest_medal_level, guest_manager, media_type
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func chatReadyArgs(c *ChatReady) []any {
	base := []any{c.ChatID, c.LiveID, c.SaveTime}
	base = append(base, actorArgs(c.Guest)...)
	return append(base, c.MediaType)
}

const insertChatEndSQL = `INSERT INTO chat_end (chat_id, live_id, save_time, end_type) VALUES (?, ?, ?, ?)`

func chatEndArgs(c *ChatEnd) []any { return []any{c.ChatID, c.LiveID, c.SaveTime, c.EndType} }

const insertAuthorChatCallSQL = `INSERT INTO author_chat_call (
	author_chat_id, live_id, inviter_user_id, inviter_nickname, inviter_avatar,
	inviter_medal_uper_uid, inviter_medal_name, inviter_medal_level, inviter_manager,
	inviter_live_id, call_time
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func authorChatCallArgs(c *AuthorChatCall) []any {
	base := []any{c.AuthorChatID, c.LiveID}
	base = append(base, actorArgs(c.Inviter)...)
	return append(base, c.InviterLiveID, c.CallTime)
}

const insertAuthorChatReadySQL = `INSERT INTO author_chat_ready (
	author_chat_id, live_id, save_time,
	inviter_user_id, inviter_nickname, inviter_avatar, inviter_medal_uper_uid, inviter_medal_name, inviter_medal_level, inviter_manager, inviter_live_id,
	invitee_user_id, invitee_nickname, invitee_avatar, invitee_medal_uper_uid, invitee_medal_name, invitee_medal_level, invitee_manager, invitee_live_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func authorChatReadyArgs(c *AuthorChatReady) []any {
	base := []any{c.AuthorChatID, c.LiveID, c.SaveTime}
	base = append(base, actorArgs(c.Inviter)...)
	base = append(base, c.InviterLiveID)
	base = append(base, actorArgs(c.Invitee)...)
	return append(base, c.InviteeLiveID)
}

const insertAuthorChatEndSQL = `INSERT INTO author_chat_end (
	author_chat_id, live_id, save_time, end_type, end_live_id
) VALUES (?, ?, ?, ?, ?)`

func authorChatEndArgs(c *AuthorChatEnd) []any {
	return []any{c.AuthorChatID, c.LiveID, c.SaveTime, c.EndType, c.EndLiveID}
}

const insertAuthorChatSoundCfgSQL = `INSERT INTO author_chat_change_sound_config (
	author_chat_id, live_id, save_time, sound_config_change_type
) VALUES (?, ?, ?, ?)`

func authorSoundCfgArgs(c *AuthorChatChangeSoundConfig) []any {
	return []any{c.AuthorChatID, c.LiveID, c.SaveTime, c.SoundConfigChangeType}
}

const insertViolationAlertSQL = `INSERT INTO violation_alert (live_id, save_time, reason) VALUES (?, ?, ?)`

func violationAlertArgs(v *ViolationAlert) []any {
	return []any{v.LiveID, v.SaveTime, v.Reason}
}
