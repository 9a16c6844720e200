package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/models"
)

type HiveRepository struct {
	db *gorm.DB
}

func NewHiveRepository(db *gorm.DB) *HiveRepository {
	return &HiveRepository{db: db}
}

// CreateHive 创建 Hive 并将创建者写入成员表
// 两次写入在同一事务内，保证创建者恒为成员的不变量
func (r *HiveRepository) CreateHive(hive *models.Hive) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(hive).Error; err != nil {
			return err
		}
		member := models.HiveMember{
			HiveID:   hive.ID,
			UserID:   hive.CreatorID,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return nil
	})
}

func (r *HiveRepository) GetByID(id uint) (*models.Hive, error) {
	var hive models.Hive
	err := r.db.Preload("Creator").First(&hive, id).Error
	return &hive, err
}

// ListByUser 用户已加入（含自建）的 Hive
func (r *HiveRepository) ListByUser(userID uint) ([]models.Hive, error) {
	var hives []models.Hive
	err := r.db.
		Joins("JOIN hive_members ON hive_members.hive_id = hives.id").
		Where("hive_members.user_id = ?", userID).
		Preload("Creator").
		Find(&hives).Error
	return hives, err
}

// ListBrowsable 用户尚未加入的 Hive（加入页用）
func (r *HiveRepository) ListBrowsable(userID uint) ([]models.Hive, error) {
	var hives []models.Hive
	err := r.db.
		Where("hives.id NOT IN (?)",
			r.db.Model(&models.HiveMember{}).Select("hive_id").Where("user_id = ?", userID)).
		Preload("Creator").
		Find(&hives).Error
	return hives, err
}

// Update 仅创建者可调用（服务层已校验）
func (r *HiveRepository) Update(hiveID uint, updates map[string]any) error {
	return r.db.Model(&models.Hive{}).Where("id = ?", hiveID).Updates(updates).Error
}

// DeleteCascade 删除 Hive 及其全部附属数据
// 级联顺序显式写在应用层，不依赖 ORM 推断：
// 回应 -> 公告 -> 消息 -> 成员 -> 申请 -> Hive 本体
func (r *HiveRepository) DeleteCascade(hiveID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		msgIDs := tx.Model(&models.Message{}).Select("id").Where("hive_id = ?", hiveID)
		if err := tx.Unscoped().Where("message_id IN (?)", msgIDs).Delete(&models.MessageReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("hive_id = ?", hiveID).Delete(&models.Announcement{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("hive_id = ?", hiveID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("hive_id = ?", hiveID).Delete(&models.HiveMember{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("hive_id = ?", hiveID).Delete(&models.JoinRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Hive{}, hiveID).Error
	})
}

// LastMessages 批量取各 Hive 的最近一条消息（列表预览用），一次查询搞定
// 消息 ID 是雪花 ID，随时间单调递增，每个 Hive 的 max(id) 即最新一条
func (r *HiveRepository) LastMessages(hiveIDs []uint) (map[uint]models.Message, error) {
	latest := make(map[uint]models.Message, len(hiveIDs))
	if len(hiveIDs) == 0 {
		return latest, nil
	}

	sub := r.db.Model(&models.Message{}).
		Select("max(id)").
		Where("hive_id IN ?", hiveIDs).
		Group("hive_id")

	var msgs []models.Message
	err := r.db.Where("id IN (?)", sub).
		Preload("Sender").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		latest[m.HiveID] = m
	}
	return latest, nil
}
