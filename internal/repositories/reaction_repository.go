package repositories

import (
	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/models"
)

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Find 查找 (message, user, emoji) 对应的回应记录
func (r *ReactionRepository) Find(messageID int64, userID uint, emoji string) (*models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&reaction).Error
	return &reaction, err
}

func (r *ReactionRepository) Create(reaction *models.MessageReaction) error {
	return r.db.Create(reaction).Error
}

func (r *ReactionRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.MessageReaction{}, id).Error
}

// ListByMessage 某条消息的全部回应，含回应人信息
func (r *ReactionRepository) ListByMessage(messageID int64) ([]models.MessageReaction, error) {
	var reactions []models.MessageReaction
	err := r.db.Where("message_id = ?", messageID).
		Order("created_at asc").
		Preload("User").
		Find(&reactions).Error
	return reactions, err
}
