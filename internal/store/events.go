// Package store implements the per-streamer embedded-SQL writer and the
// two global stores (the discovered-stream catalog and the gift catalog).
package store

// Actor is the flattened shape shared by every event carrying an
// optional commenting/sending user, covering both UserInfo and its
// medal fields.
type Actor struct {
	UserID        int64
	Nickname      string
	Avatar        string
	MedalUperUID  int64
	MedalName     string
	MedalLevel    int32
	Manager       bool
}

type LiveType struct {
	ID           int32
	Name         string
	CategoryID   int32
	CategoryName string
}

// LiveInfo is the metadata captured once at the start of a capture task.
type LiveInfo struct {
	LiveID                string
	LiverUID               uint64
	StreamName             string
	StartTime              int64
	Cover                  string
	LiveType               *LiveType
	HasFansClub            bool
	Portrait               bool
	Panoramic              bool
	DisableDanmakuShow     bool
	PaidShowUserBuyStatus  int32
}

// Title is a single observed title value at SaveTime; consecutive equal
// titles are suppressed by the writer, not by the caller.
type Title struct {
	LiveID   string
	SaveTime int64
	Title    string
}

type LiverInfo struct {
	LiveID              string
	SaveTime            int64
	LiverUID            uint64
	Nickname            string
	Avatar              string
	AvatarFrame         string
	FollowingCount      int32
	ContributeCount     int32
	LiveBeginFansCount  int32
	LiveEndFansCount    int32
	Signature           string
	VerifiedText        string
	IsJoinUpCollege     bool
	MedalName           string
	LiveBeginMedalCount int32
	LiveEndMedalCount   int32
}

// UpdateCount carries a partial update to the liver_info row for LiveID;
// nil fields are left untouched.
type UpdateCount struct {
	LiveID     string
	FansCount  *int32
	MedalName  *string
	MedalCount *int32
}

// Summary is upserted by LiveID; MaxWatch/Banana are filled in by the
// writer from its local running state, not supplied by the caller.
type Summary struct {
	LiveID          string
	SaveTime        int64
	Duration        int64
	LikeCount       int64
	WatchTotalCount int64
}

type Comment struct {
	LiveID   string
	SendTime int64
	Actor    *Actor
	Content  string
}

type Follow struct {
	LiveID   string
	SendTime int64
	Actor    *Actor
}

type Gift struct {
	LiveID              string
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

type JoinClub struct {
	LiveID       string
	JoinTime     int64
	FansUID      int64
	FansNickname string
	UperUID      int64
	UperNickname string
}

// WatchingCount carries the raw upstream string (which may use a
// ten-thousand suffix); the writer parses it before deciding whether to
// persist a sample.
type WatchingCount struct {
	LiveID  string
	Raw     string
}

type Redpack struct {
	RedpackID           string
	LiveID              string
	SaveTime            int64
	Sender              *Actor
	Amount              int64
	RedpackBizUnit      string
	GetTokenLatestTime  int64
	GrabBeginTime       int64
	SettleBeginTime     int64
}

type ChatCall struct {
	ChatID   string
	LiveID   string
	CallTime int64
}

type ChatReady struct {
	ChatID    string
	LiveID    string
	SaveTime  int64
	Guest     *Actor
	MediaType int32
}

type ChatEnd struct {
	ChatID   string
	LiveID   string
	SaveTime int64
	EndType  int32
}

type AuthorChatCall struct {
	AuthorChatID string
	LiveID       string
	Inviter      *Actor
	InviterLiveID string
	CallTime     int64
}

type AuthorChatReady struct {
	AuthorChatID  string
	LiveID        string
	SaveTime      int64
	Inviter       *Actor
	InviterLiveID string
	Invitee       *Actor
	InviteeLiveID string
}

type AuthorChatEnd struct {
	AuthorChatID string
	LiveID       string
	SaveTime     int64
	EndType      int32
	EndLiveID    string
}

type AuthorChatChangeSoundConfig struct {
	AuthorChatID          string
	LiveID                string
	SaveTime              int64
	SoundConfigChangeType int32
}

type ViolationAlert struct {
	LiveID   string
	SaveTime int64
	Reason   string
}

// Stop signals the writer to flush and exit cleanly; it carries no data.
type Stop struct{}

// Banana stashes the latest banana count in the writer's local state; it
// is not persisted until the next Summary event.
type Banana struct {
	Count string
}

// Event is the sum type flowing over a stream's data channel. Exactly one
// field is non-nil.
type Event struct {
	LiveInfo        *LiveInfo
	Title           *Title
	LiverInfo       *LiverInfo
	UpdateCount     *UpdateCount
	Summary         *Summary
	Comment         *Comment
	Follow          *Follow
	Gift            *Gift
	JoinClub        *JoinClub
	Banana          *Banana
	WatchingCount   *WatchingCount
	Redpack         *Redpack
	ChatCall        *ChatCall
	ChatReady       *ChatReady
	ChatEnd         *ChatEnd
	AuthorChatCall  *AuthorChatCall
	AuthorChatReady *AuthorChatReady
	AuthorChatEnd   *AuthorChatEnd
	AuthorSoundCfg  *AuthorChatChangeSoundConfig
	ViolationAlert  *ViolationAlert
	Stop            *Stop
}
