package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/models"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

func (r *MessageRepository) GetByID(id int64) (*models.Message, error) {
	var msg models.Message
	err := r.db.First(&msg, id).Error
	return &msg, err
}

// ListRecent 取最近 limit 条消息
// 先按时间倒序取窗口，调用方负责翻转为升序展示
func (r *MessageRepository) ListRecent(hiveID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("hive_id = ?", hiveID).
		Order("created_at desc").
		Limit(limit).
		Preload("Sender").
		Find(&messages).Error
	return messages, err
}

// ListSince 取某时间点之后的消息（摘要窗口用），升序
func (r *MessageRepository) ListSince(hiveID uint, since time.Time) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("hive_id = ? AND created_at >= ?", hiveID, since).
		Order("created_at asc").
		Preload("Sender").
		Find(&messages).Error
	return messages, err
}
