package repositories

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/models"
)

// ErrDuplicateMember 唯一索引冲突（并发加入/批准时败者会触发）
var ErrDuplicateMember = errors.New("成员记录已存在")

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// IsMember 检查用户是否是 Hive 成员
func (r *MembershipRepository) IsMember(hiveID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.HiveMember{}).
		Where("hive_id = ? AND user_id = ?", hiveID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddMember 直接加入（无需审批的 Hive），同事务内维护 member_count
func (r *MembershipRepository) AddMember(hiveID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		member := models.HiveMember{
			HiveID:   hiveID,
			UserID:   userID,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return translateDuplicate(err)
		}
		return tx.Model(&models.Hive{}).Where("id = ?", hiveID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
}

// RemoveMember 删除成员记录（退出或被移除），同事务内维护 member_count
// 返回 gorm.ErrRecordNotFound 表示本来就不是成员
func (r *MembershipRepository) RemoveMember(hiveID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("hive_id = ? AND user_id = ?", hiveID, userID).
			Delete(&models.HiveMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Hive{}).Where("id = ?", hiveID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error
	})
}

// ListMembers 成员名册（含用户信息），按加入时间升序
func (r *MembershipRepository) ListMembers(hiveID uint) ([]models.HiveMember, error) {
	var members []models.HiveMember
	err := r.db.Where("hive_id = ?", hiveID).
		Order("joined_at asc").
		Preload("User").
		Find(&members).Error
	return members, err
}

// GetRequest 取 (hive, user) 的申请记录
func (r *MembershipRepository) GetRequest(hiveID, userID uint) (*models.JoinRequest, error) {
	var req models.JoinRequest
	err := r.db.Where("hive_id = ? AND user_id = ?", hiveID, userID).First(&req).Error
	return &req, err
}

// GetRequestByID 按申请 ID 查找
func (r *MembershipRepository) GetRequestByID(requestID uint) (*models.JoinRequest, error) {
	var req models.JoinRequest
	err := r.db.First(&req, requestID).Error
	return &req, err
}

// CreateRequest 创建 pending 申请
func (r *MembershipRepository) CreateRequest(hiveID, userID uint) (*models.JoinRequest, error) {
	req := models.JoinRequest{
		HiveID: hiveID,
		UserID: userID,
		Status: models.JoinRequestPending,
	}
	if err := r.db.Create(&req).Error; err != nil {
		return nil, translateDuplicate(err)
	}
	return &req, nil
}

// ListPendingRequests 待处理申请（管理页用），含申请人信息
func (r *MembershipRepository) ListPendingRequests(hiveID uint) ([]models.JoinRequest, error) {
	var reqs []models.JoinRequest
	err := r.db.Where("hive_id = ? AND status = ?", hiveID, models.JoinRequestPending).
		Order("created_at asc").
		Preload("User").
		Find(&reqs).Error
	return reqs, err
}

// ApproveRequest 批准申请：状态流转与成员插入必须同事务提交
// 任何一步失败整体回滚，绝不出现"已批准但无成员"或反之
func (r *MembershipRepository) ApproveRequest(req *models.JoinRequest) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.JoinRequest{}).
			Where("id = ? AND status = ?", req.ID, models.JoinRequestPending).
			Update("status", models.JoinRequestApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 已被并发处理
			return gorm.ErrRecordNotFound
		}
		member := models.HiveMember{
			HiveID:   req.HiveID,
			UserID:   req.UserID,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return translateDuplicate(err)
		}
		return tx.Model(&models.Hive{}).Where("id = ?", req.HiveID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
}

// RejectRequest 驳回 pending 申请
func (r *MembershipRepository) RejectRequest(req *models.JoinRequest) error {
	res := r.db.Model(&models.JoinRequest{}).
		Where("id = ? AND status = ?", req.ID, models.JoinRequestPending).
		Update("status", models.JoinRequestRejected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsDuplicate 判断是否唯一约束冲突（gorm 哨兵、pg 与 sqlite 的驱动文案）
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint")
}

// translateDuplicate 将唯一约束冲突翻译为业务可识别错误，其余错误原样返回
func translateDuplicate(err error) error {
	if IsDuplicate(err) {
		return ErrDuplicateMember
	}
	return err
}
