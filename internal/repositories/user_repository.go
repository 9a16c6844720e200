package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) GetByHandle(handle string) (*models.User, error) {
	var user models.User
	err := r.db.Where("handle = ?", handle).First(&user).Error
	return &user, err
}

// UpsertBySubject 按身份提供方 subject 查找用户
// 不存在则创建，存在则刷新昵称/头像（每次登录都会调用）
func (r *UserRepository) UpsertBySubject(subject, handle, displayName, avatarURL string) (*models.User, error) {
	var user models.User
	err := r.db.Where("subject = ?", subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Subject:     subject,
			Handle:      handle,
			DisplayName: displayName,
			AvatarURL:   avatarURL,
		}
		if err := r.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if displayName != "" && displayName != user.DisplayName {
		updates["display_name"] = displayName
	}
	if avatarURL != "" && avatarURL != user.AvatarURL {
		updates["avatar_url"] = avatarURL
	}
	if len(updates) > 0 {
		if err := r.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// UpdateProfile 更新用户可编辑字段
func (r *UserRepository) UpdateProfile(userID uint, updates map[string]any) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}
