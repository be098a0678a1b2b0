package store

// Per-streamer schema. One table per entity, bootstrapped with
// CREATE TABLE/INDEX IF NOT EXISTS so re-opening an existing store is a
// no-op.
const schemaLiverDB = `
CREATE TABLE IF NOT EXISTS live_info (
	live_id TEXT NOT NULL,
	liver_uid INTEGER NOT NULL,
	stream_name TEXT,
	start_time INTEGER,
	cover TEXT,
	live_type_id INTEGER,
	live_type_name TEXT,
	live_type_category_id INTEGER,
	live_type_category_name TEXT,
	has_fans_club INTEGER,
	portrait INTEGER,
	panoramic INTEGER,
	disable_danmaku_show INTEGER,
	paid_show_user_buy_status INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS live_info_live_id ON live_info(live_id);

CREATE TABLE IF NOT EXISTS title (
	live_id TEXT NOT NULL,
	save_time INTEGER NOT NULL,
	title TEXT
);
CREATE INDEX IF NOT EXISTS title_live_id ON title(live_id);
CREATE INDEX IF NOT EXISTS title_save_time ON title(save_time);

CREATE TABLE IF NOT EXISTS liver_info (
	live_id TEXT NOT NULL,
	save_time INTEGER,
	liver_uid INTEGER,
	nickname TEXT,
	avatar TEXT,
	avatar_frame TEXT,
	following_count INTEGER,
	contribute_count INTEGER,
	live_begin_fans_count INTEGER,
	live_end_fans_count INTEGER,
	signature TEXT,
	verified_text TEXT,
	is_join_up_college INTEGER,
	medal_name TEXT,
	live_begin_medal_count INTEGER,
	live_end_medal_count INTEGER,
	fans_count INTEGER,
	medal_count INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS liver_info_live_id ON liver_info(live_id);

CREATE TABLE IF NOT EXISTS summary (
	live_id TEXT NOT NULL,
	save_time INTEGER,
	duration INTEGER,
	like_count INTEGER,
	watch_total_count INTEGER,
	watch_online_max_count INTEGER,
	banana_count TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS summary_live_id ON summary(live_id);

CREATE TABLE IF NOT EXISTS comment (
	live_id TEXT NOT NULL,
	send_time INTEGER,
	user_id INTEGER,
	nickname TEXT,
	avatar TEXT,
	medal_uper_uid INTEGER,
	medal_name TEXT,
	medal_level INTEGER,
	manager INTEGER,
	content TEXT
);
CREATE INDEX IF NOT EXISTS comment_live_id ON comment(live_id);
CREATE INDEX IF NOT EXISTS comment_send_time ON comment(send_time);

CREATE TABLE IF NOT EXISTS follow (
	live_id TEXT NOT NULL,
	send_time INTEGER,
	user_id INTEGER,
	nickname TEXT,
	avatar TEXT,
	medal_uper_uid INTEGER,
	medal_name TEXT,
	medal_level INTEGER,
	manager INTEGER
);
CREATE INDEX IF NOT EXISTS follow_live_id ON follow(live_id);
CREATE INDEX IF NOT EXISTS follow_send_time ON follow(send_time);

CREATE TABLE IF NOT EXISTS gift (
	live_id TEXT NOT NULL,
	send_time INTEGER,
	user_id INTEGER,
	nickname TEXT,
	avatar TEXT,
	medal_uper_uid INTEGER,
	medal_name TEXT,
	medal_level INTEGER,
	manager INTEGER,
	gift_id INTEGER,
	count INTEGER,
	combo INTEGER,
	value INTEGER,
	combo_id TEXT,
	slot_display_duration INTEGER,
	expire_duration INTEGER,
	draw_gift_info INTEGER
);
CREATE INDEX IF NOT EXISTS gift_live_id ON gift(live_id);
CREATE INDEX IF NOT EXISTS gift_send_time ON gift(send_time);

CREATE TABLE IF NOT EXISTS join_club (
	live_id TEXT NOT NULL,
	join_time INTEGER,
	fans_uid INTEGER,
	fans_nickname TEXT,
	uper_uid INTEGER,
	uper_nickname TEXT
);
CREATE INDEX IF NOT EXISTS join_club_live_id ON join_club(live_id);

CREATE TABLE IF NOT EXISTS watching_count (
	live_id TEXT NOT NULL,
	save_time INTEGER,
	watching_count INTEGER
);
CREATE INDEX IF NOT EXISTS watching_count_live_id ON watching_count(live_id);
CREATE INDEX IF NOT EXISTS watching_count_save_time ON watching_count(save_time);

CREATE TABLE IF NOT EXISTS redpack (
	redpack_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	save_time INTEGER,
	sender_user_id INTEGER,
	sender_nickname TEXT,
	sender_avatar TEXT,
	sender_medal_uper_uid INTEGER,
	sender_medal_name TEXT,
	sender_medal_level INTEGER,
	sender_manager INTEGER,
	amount INTEGER,
	redpack_biz_unit TEXT,
	get_token_latest_time INTEGER,
	grab_begin_time INTEGER,
	settle_begin_time INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS redpack_redpack_id ON redpack(redpack_id);
CREATE INDEX IF NOT EXISTS redpack_live_id ON redpack(live_id);

CREATE TABLE IF NOT EXISTS chat_call (
	chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	call_time INTEGER
);
CREATE INDEX IF NOT EXISTS chat_call_live_id ON chat_call(live_id);

CREATE TABLE IF NOT EXISTS chat_ready (
	chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	save_time INTEGER,
	guest_user_id INTEGER,
	guest_nickname TEXT,
	guest_avatar TEXT,
	guest_medal_uper_uid INTEGER,
	guest_medal_name TEXT,
	guest_medal_level INTEGER,
	guest_manager INTEGER,
	media_type INTEGER
);
CREATE INDEX IF NOT EXISTS chat_ready_live_id ON chat_ready(live_id);

CREATE TABLE IF NOT EXISTS chat_end (
	chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	save_time INTEGER,
	end_type INTEGER
);
CREATE INDEX IF NOT EXISTS chat_end_live_id ON chat_end(live_id);

CREATE TABLE IF NOT EXISTS author_chat_call (
	author_chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	inviter_user_id INTEGER,
	inviter_nickname TEXT,
	inviter_avatar TEXT,
	inviter_medal_uper_uid INTEGER,
	inviter_medal_name TEXT,
	inviter_medal_level INTEGER,
	inviter_manager INTEGER,
	inviter_live_id TEXT,
	call_time INTEGER
);
CREATE INDEX IF NOT EXISTS author_chat_call_live_id ON author_chat_call(live_id);

CREATE TABLE IF NOT EXISTS author_chat_ready (
	author_chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	save_time INTEGER,
	inviter_user_id INTEGER,
	inviter_nickname TEXT,
	inviter_avatar TEXT,
	inviter_medal_uper_uid INTEGER,
	inviter_medal_name TEXT,
	inviter_medal_level INTEGER,
	inviter_manager INTEGER,
	inviter_live_id TEXT,
	invitee_user_id INTEGER,
	invitee_nickname TEXT,
	invitee_avatar TEXT,
	invitee_medal_uper_uid INTEGER,
	invitee_medal_name TEXT,
	invitee_medal_level INTEGER,
	invitee_manager INTEGER,
	invitee_live_id TEXT
);
CREATE INDEX IF NOT EXISTS author_chat_ready_live_id ON author_chat_ready(live_id);

CREATE TABLE IF NOT EXISTS author_chat_end (
	author_chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	save_time INTEGER,
	end_type INTEGER,
	end_live_id TEXT
);
CREATE INDEX IF NOT EXISTS author_chat_end_live_id ON author_chat_end(live_id);

CREATE TABLE IF NOT EXISTS author_chat_change_sound_config (
	author_chat_id TEXT NOT NULL,
	live_id TEXT NOT NULL,
	save_time INTEGER,
	sound_config_change_type INTEGER
);
CREATE INDEX IF NOT EXISTS author_chat_change_sound_config_live_id ON author_chat_change_sound_config(live_id);

CREATE TABLE IF NOT EXISTS violation_alert (
	live_id TEXT NOT NULL,
	save_time INTEGER,
	reason TEXT
);
CREATE INDEX IF NOT EXISTS violation_alert_live_id ON violation_alert(live_id);
`

// Global catalog.db schema: one row per discovered stream, updated with
// final duration/like/watch by the summary finalizer.
const schemaCatalogDB = `
CREATE TABLE IF NOT EXISTS live (
	live_id TEXT NOT NULL,
	liver_uid INTEGER,
	nickname TEXT,
	stream_name TEXT,
	start_time INTEGER,
	title TEXT,
	live_type_id INTEGER,
	live_type_name TEXT,
	live_type_category_id INTEGER,
	live_type_category_name TEXT,
	portrait INTEGER,
	panoramic INTEGER,
	disable_danmaku_show INTEGER,
	duration INTEGER,
	like_count INTEGER,
	watch_count INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS live_live_id ON live(live_id);
CREATE INDEX IF NOT EXISTS live_liver_uid ON live(liver_uid);
`

// Global gifts.db schema: content-hash keyed so re-fetching an unchanged
// catalog entry is a no-op insert.
const schemaGiftDB = `
CREATE TABLE IF NOT EXISTS gift_info (
	id INTEGER NOT NULL,
	save_time INTEGER,
	gift_id INTEGER,
	gift_name TEXT,
	ar_live_name TEXT,
	pay_wallet_type INTEGER,
	gift_price INTEGER,
	webp_pic TEXT,
	png_pic TEXT,
	small_png_pic TEXT,
	allow_batch_send_size_list TEXT,
	can_combo INTEGER,
	can_draw INTEGER,
	magic_face_id INTEGER,
	vup_ar_id INTEGER,
	description TEXT,
	redpack_price INTEGER,
	corner_marker_text TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS gift_info_id ON gift_info(id);
`
