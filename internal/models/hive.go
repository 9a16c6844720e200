package models

import (
	"time"

	"gorm.io/gorm"
)

// Hive 群组模型
// ContractAddress 非空表示该 Hive 为 NFT 门控群组
// 级联规则显式声明在各子表上，删除 Hive 会连带删除成员、申请、消息、公告
type Hive struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name             string `gorm:"not null" json:"name"`
	AvatarURL        string `json:"avatar_url"`
	ContractAddress  string `json:"contract_address,omitempty"`
	RequiresApproval bool   `gorm:"default:false" json:"requires_approval"`
	CreatorID        uint   `gorm:"not null;index" json:"creator_id"`
	MemberCount      int    `gorm:"default:1" json:"member_count"`

	Creator  *User        `gorm:"foreignKey:CreatorID" json:"-"`
	Members  []HiveMember `gorm:"foreignKey:HiveID" json:"-"`
	Messages []Message    `gorm:"foreignKey:HiveID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Hive) TableName() string {
	return "hives"
}
