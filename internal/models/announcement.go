package models

import "time"

// Announcement 公告：由创建者从某条消息提升而来，一条消息最多提升一次
// 创建成功后向其他成员推送通知（尽力而为）
type Announcement struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	HiveID    uint  `gorm:"not null;index" json:"hive_id"`
	MessageID int64 `gorm:"not null;uniqueIndex" json:"message_id"`
	CreatedBy uint  `gorm:"not null" json:"created_by"`

	CreatedAt time.Time `json:"created_at"`

	Hive    *Hive    `gorm:"foreignKey:HiveID;constraint:OnDelete:CASCADE" json:"-"`
	Message *Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Announcement) TableName() string {
	return "announcements"
}
