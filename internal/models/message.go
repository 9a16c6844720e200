package models

import "time"

// Message 消息模型
// ID 为 snowflake，创建后不可变更（无编辑/删除语义）
type Message struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	HiveID   uint   `gorm:"not null;index" json:"hive_id"`
	SenderID uint   `gorm:"not null;index" json:"sender_id"`
	Content  string `gorm:"not null;size:1000" json:"content"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Hive   *Hive `gorm:"foreignKey:HiveID;constraint:OnDelete:CASCADE" json:"-"`
	Sender *User `gorm:"foreignKey:SenderID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}
