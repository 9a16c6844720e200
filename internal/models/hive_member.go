package models

import "time"

// HiveMember 成员中间表，联合唯一索引保证 (hive, user) 只有一条记录
// 创建者恒为成员，不能退出也不能被移除（只能删除整个 Hive）
type HiveMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	HiveID   uint      `gorm:"not null;uniqueIndex:idx_hive_user" json:"hive_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_hive_user" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Hive *Hive `gorm:"foreignKey:HiveID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (HiveMember) TableName() string {
	return "hive_members"
}
