package events

import "time"

// 事件种类
const (
	KindMessageInserted     = "message.inserted"
	KindReactionChanged     = "reaction.changed"
	KindMemberJoined        = "member.joined"
	KindMemberLeft          = "member.left"
	KindAnnouncementCreated = "announcement.created"
)

// ReactionChanged 动作
const (
	ReactionAdded   = "added"
	ReactionRemoved = "removed"
)

// 成员变动原因
const (
	MemberReasonJoined  = "joined"
	MemberReasonLeft    = "left"
	MemberReasonRemoved = "removed"
)

// Envelope 变更事件信封，按 Kind 恰有一个 payload 字段非空
// 写路径发布，消费端原样广播给订阅了对应 Hive 的客户端
type Envelope struct {
	Kind       string    `json:"kind"`
	HiveID     uint      `json:"hive_id"`
	OccurredAt time.Time `json:"occurred_at"`

	Message      *MessagePayload      `json:"message,omitempty"`
	Reaction     *ReactionPayload     `json:"reaction,omitempty"`
	Member       *MemberPayload       `json:"member,omitempty"`
	Announcement *AnnouncementPayload `json:"announcement,omitempty"`
}

type MessagePayload struct {
	ID           int64     `json:"id"`
	SenderID     uint      `json:"sender_id"`
	SenderHandle string    `json:"sender_handle"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReactionPayload struct {
	MessageID  int64  `json:"message_id"`
	UserID     uint   `json:"user_id"`
	UserHandle string `json:"user_handle"`
	Emoji      string `json:"emoji"`
	Action     string `json:"action"` // added, removed
}

type MemberPayload struct {
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"` // joined, left, removed
}

type AnnouncementPayload struct {
	ID        uint  `json:"id"`
	MessageID int64 `json:"message_id"`
	CreatedBy uint  `json:"created_by"`
}

func NewMessageInserted(hiveID uint, p MessagePayload) Envelope {
	return Envelope{Kind: KindMessageInserted, HiveID: hiveID, OccurredAt: time.Now(), Message: &p}
}

func NewReactionChanged(hiveID uint, p ReactionPayload) Envelope {
	return Envelope{Kind: KindReactionChanged, HiveID: hiveID, OccurredAt: time.Now(), Reaction: &p}
}

func NewMemberJoined(hiveID uint, p MemberPayload) Envelope {
	return Envelope{Kind: KindMemberJoined, HiveID: hiveID, OccurredAt: time.Now(), Member: &p}
}

func NewMemberLeft(hiveID uint, p MemberPayload) Envelope {
	return Envelope{Kind: KindMemberLeft, HiveID: hiveID, OccurredAt: time.Now(), Member: &p}
}

func NewAnnouncementCreated(hiveID uint, p AnnouncementPayload) Envelope {
	return Envelope{Kind: KindAnnouncementCreated, HiveID: hiveID, OccurredAt: time.Now(), Announcement: &p}
}
