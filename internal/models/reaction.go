package models

import "time"

// MessageReaction 表情回应
// (message, user, emoji) 三元组唯一，重复提交走 toggle 删除路径
type MessageReaction struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	MessageID int64  `gorm:"not null;uniqueIndex:idx_msg_user_emoji" json:"message_id"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_msg_user_emoji" json:"user_id"`
	Emoji     string `gorm:"size:16;not null;uniqueIndex:idx_msg_user_emoji" json:"emoji"`

	CreatedAt time.Time `json:"created_at"`

	Message *Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"foreignKey:UserID" json:"-"`
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}

// ReactionGroup 单条消息上同一 emoji 的聚合视图（API 返回用）
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	Users   []string `json:"users"`
	Reacted bool     `json:"reacted"` // 当前用户是否在其中
}
