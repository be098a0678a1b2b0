// Package upstream declares the out-of-scope external collaborator the
// ingest pipeline depends on: the live-streaming platform's HTTP/chat API.
// No concrete implementation ships here; internal/ingest/upstream/stub
// backs the pipeline's tests.
package upstream

import (
	"context"
	"errors"
)

// ErrSessionDone is returned by ChatSession.Next when the upstream stream
// has ended and no further signals will arrive.
var ErrSessionDone = errors.New("upstream: chat session ended")

// LiveEntry is one row of the discovery loop's live list, or the "this
// streamer is (still) live" result from UserLiveInfo.
type LiveEntry struct {
	LiverUID               uint64
	LiveID                 string
	Title                  string
	Nickname               string
	StreamName             string
	StartTime              int64
	Cover                  string
	LiveTypeID             int32
	LiveTypeName           string
	LiveTypeCategoryID     int32
	LiveTypeCategoryName   string
	HasFansClub            bool
	Portrait               bool
	Panoramic              bool
	DisableDanmakuShow     bool
	PaidShowUserBuyStatus  int32
}

// StreamMeta is the metadata fetched once at the start of a capture task,
// combining the stream's own info with the streamer's profile and
// (conditionally) fan-club medal stats.
type StreamMeta struct {
	LiveID              string
	LiverUID            uint64
	SaveTime            int64
	Title               string
	StartTime           int64
	Cover               string
	LiveType            *LiveTypeInfo
	HasFansClub         bool
	Portrait            bool
	Panoramic           bool
	DisableDanmakuShow  bool
	PaidShowUserBuyStatus int32
	StreamName          string
	Nickname            string
	Avatar              string
	AvatarFrame         string
	FollowingCount      int32
	ContributeCount     int32
	LiveBeginFansCount  int32
	Signature           string
	VerifiedText        string
	IsJoinUpCollege     bool
	MedalName           string
	LiveBeginMedalCount int32
}

type LiveTypeInfo struct {
	ID           int32
	Name         string
	CategoryID   int32
	CategoryName string
}

// Summary is the end-of-stream summary. It is compared by value (all
// fields) to detect the "stream still on" spurious-disconnect condition.
type Summary struct {
	Duration        int64
	LikeCount       int64
	WatchTotalCount int64
}

// UserLiveInfo is the result of polling a streamer's current live status,
// used both for the fan-count reading and for accidental-disconnect
// recovery.
type UserLiveInfo struct {
	FanCount int32
	Live     *LiveEntry
}

// MedalRank is the streamer's fan-club guardian-medal standing.
type MedalRank struct {
	HasFansClub    bool
	ClubName       string
	FansTotalCount int32
}

// ChatSession is one open chat/danmaku connection for a single streamer.
type ChatSession interface {
	// LiveID reports the live_id this session actually attached to, which
	// the caller must compare against the expected live_id.
	LiveID() string
	// Next blocks for the next demultiplexed event, or returns an error
	// (including context.DeadlineExceeded / context.Canceled) when the
	// session has nothing more to offer. Unknown upstream signal kinds are
	// silently skipped by the implementation, never surfaced here.
	Next(ctx context.Context) (Event, error)
	Close(ctx context.Context) error
}

// Event is one demultiplexed chat signal, wrapped with its live_id by the
// session implementation.
type Event struct {
	Comment         *CommentEvent
	Follow          *FollowEvent
	Gift            *GiftEvent
	JoinClub        *JoinClubEvent
	Banana          *string
	WatchingCount   *string
	Redpack         *RedpackEvent
	ChatCall        *ChatCallEvent
	ChatReady       *ChatReadyEvent
	ChatEnd         *ChatEndEvent
	AuthorChatCall  *AuthorChatCallEvent
	AuthorChatReady *AuthorChatReadyEvent
	AuthorChatEnd   *AuthorChatEndEvent
	AuthorSoundCfg  *AuthorSoundConfigEvent
	ViolationAlert  *ViolationAlertEvent
}

type Actor struct {
	UserID       int64
	Nickname     string
	Avatar       string
	MedalUperUID int64
	MedalName    string
	MedalLevel   int32
	Manager      bool
}

type CommentEvent struct {
	SendTime int64
	Actor    *Actor
	Content  string
}

type FollowEvent struct {
	SendTime int64
	Actor    *Actor
}

type GiftEvent struct {
	SendTime            int64
	Actor               *Actor
	GiftID              int64
	Count               int32
	Combo               int32
	Value               int64
	ComboID             string
	SlotDisplayDuration int32
	ExpireDuration      int32
	DrawGiftInfo        bool
}

type JoinClubEvent struct {
	JoinTime     int64
	FansUID      int64
	FansNickname string
	UperUID      int64
	UperNickname string
}

type RedpackEvent struct {
	RedpackID          string
	SaveTime           int64
	Sender             *Actor
	Amount             int64
	RedpackBizUnit     string
	GetTokenLatestTime int64
	GrabBeginTime      int64
	SettleBeginTime    int64
}

type ChatCallEvent struct {
	ChatID   string
	CallTime int64
}

type ChatReadyEvent struct {
	ChatID    string
	SaveTime  int64
	Guest     *Actor
	MediaType int32
}

type ChatEndEvent struct {
	ChatID   string
	SaveTime int64
	EndType  int32
}

type AuthorChatCallEvent struct {
	AuthorChatID  string
	Inviter       *Actor
	InviterLiveID string
	CallTime      int64
}

type AuthorChatReadyEvent struct {
	AuthorChatID  string
	SaveTime      int64
	Inviter       *Actor
	InviterLiveID string
	Invitee       *Actor
	InviteeLiveID string
}

type AuthorChatEndEvent struct {
	AuthorChatID string
	SaveTime     int64
	EndType      int32
	EndLiveID    string
}

type AuthorSoundConfigEvent struct {
	AuthorChatID          string
	SaveTime              int64
	SoundConfigChangeType int32
}

type ViolationAlertEvent struct {
	SaveTime int64
	Reason   string
}

// GiftCatalogEntry is one entry of a stream's gift catalog, carrying the
// same fields as store.GiftInfo so the supervisor can forward it without
// a field-by-field remap performed by the caller.
type GiftCatalogEntry struct {
	SaveTime               int64
	GiftID                 int64
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

// Client is the upstream API surface the ingest pipeline needs. A
// concrete HTTP/WebSocket implementation is out of scope; see
// internal/ingest/upstream/stub for the test double.
type Client interface {
	ListLive(ctx context.Context, limit, offset int) ([]LiveEntry, error)
	OpenChat(ctx context.Context, liverUID uint64) (ChatSession, error)
	StreamMeta(ctx context.Context, entry LiveEntry) (StreamMeta, error)
	Summary(ctx context.Context, liveID string) (Summary, error)
	UserLiveInfo(ctx context.Context, liverUID uint64) (UserLiveInfo, error)
	MedalRank(ctx context.Context, liverUID uint64) (MedalRank, error)
	GiftCatalog(ctx context.Context, liveID string) ([]GiftCatalogEntry, error)
}

// Factory constructs a Client. Every task that needs upstream access
// builds its own client through a Factory rather than sharing one, the
// same way the upstream API's anonymous-login path is keyed per client
// instance.
type Factory interface {
	Build(ctx context.Context) (Client, error)
}
