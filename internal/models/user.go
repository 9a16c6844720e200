package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 首次通过身份提供方登录时创建，之后每次登录刷新昵称/头像，不做硬删除
type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Subject       string `gorm:"uniqueIndex;not null" json:"-"` // 身份提供方 subject
	Handle        string `gorm:"uniqueIndex;not null" json:"handle"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Bio           string `json:"bio,omitempty"`
	PasswordHash  string `json:"-"` // 仅本地登录 fallback 使用

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
