package models

import "time"

// JoinRequest 状态常量
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// JoinRequest 入群申请
// (hive, user) 唯一，被拒绝后不允许重复申请
// 批准必须与成员创建处于同一事务（见 membership service）
type JoinRequest struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	HiveID uint   `gorm:"not null;uniqueIndex:idx_request_hive_user" json:"hive_id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_request_hive_user" json:"user_id"`
	Status string `gorm:"default:pending;index" json:"status"` // pending, approved, rejected

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Hive *Hive `gorm:"foreignKey:HiveID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (JoinRequest) TableName() string {
	return "join_requests"
}
