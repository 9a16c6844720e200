package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/push"
	"github.com/hivechat/hive/internal/repositories"
)

var (
	ErrAlreadyAnnounced = errors.New("该消息已经是公告")
	ErrMessageNotInHive = errors.New("消息不属于该 Hive")
)

type AnnouncementService struct {
	db          *gorm.DB
	MessageRepo *repositories.MessageRepository
	MemberRepo  *repositories.MembershipRepository
	Membership  *MembershipService
	Notifier    push.Notifier
	Publisher   events.Publisher
	logger      *zap.Logger
}

func NewAnnouncementService(
	db *gorm.DB,
	messageRepo *repositories.MessageRepository,
	memberRepo *repositories.MembershipRepository,
	membership *MembershipService,
	notifier push.Notifier,
	publisher events.Publisher,
	logger *zap.Logger,
) *AnnouncementService {
	return &AnnouncementService{
		db:          db,
		MessageRepo: messageRepo,
		MemberRepo:  memberRepo,
		Membership:  membership,
		Notifier:    notifier,
		Publisher:   publisher,
		logger:      logger,
	}
}

// Promote 创建者将消息提升为公告
// 公告创建成功即返回成功；推送通知尽力而为，失败只记日志
func (s *AnnouncementService) Promote(ctx context.Context, callerID, hiveID uint, messageID int64) (*models.Announcement, error) {
	hive, err := s.Membership.loadHiveAsCreator(hiveID, callerID)
	if err != nil {
		return nil, err
	}

	msg, err := s.MessageRepo.GetByID(messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.HiveID != hiveID {
		return nil, ErrMessageNotInHive
	}

	announcement := &models.Announcement{
		HiveID:    hiveID,
		MessageID: messageID,
		CreatedBy: callerID,
	}
	// message_id 唯一索引冲突说明已是公告；存储故障原样上抛，不吞成业务冲突
	if err := s.db.Create(announcement).Error; err != nil {
		if repositories.IsDuplicate(err) {
			return nil, ErrAlreadyAnnounced
		}
		return nil, err
	}

	if s.Publisher != nil {
		_ = s.Publisher.Publish(events.NewAnnouncementCreated(hiveID, events.AnnouncementPayload{
			ID:        announcement.ID,
			MessageID: messageID,
			CreatedBy: callerID,
		}))
	}

	s.notifyMembers(ctx, hive, msg)
	return announcement, nil
}

// notifyMembers 向创建者以外的全部成员推送公告通知
func (s *AnnouncementService) notifyMembers(ctx context.Context, hive *models.Hive, msg *models.Message) {
	if s.Notifier == nil {
		return
	}

	members, err := s.MemberRepo.ListMembers(hive.ID)
	if err != nil {
		s.logger.Warn("公告推送：读取成员失败", zap.Uint("hive", hive.ID), zap.Error(err))
		return
	}

	body := msg.Content
	if len([]rune(body)) > 80 {
		body = string([]rune(body)[:80]) + "…"
	}

	for _, m := range members {
		if m.UserID == hive.CreatorID {
			continue
		}
		n := push.Notification{
			RecipientID: m.UserID,
			Title:       fmt.Sprintf("%s 有新公告", hive.Name),
			Body:        body,
			Metadata: map[string]string{
				"hive_id":    strconv.FormatUint(uint64(hive.ID), 10),
				"message_id": strconv.FormatInt(msg.ID, 10),
			},
		}
		if err := s.Notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("公告推送失败",
				zap.Uint("recipient", m.UserID),
				zap.Error(err))
		}
	}
}

// List 成员查看公告列表（含原消息）
func (s *AnnouncementService) List(userID, hiveID uint) ([]models.Announcement, error) {
	hive, err := s.Membership.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHiveNotFound
	}
	if err != nil {
		return nil, err
	}

	state, err := s.Membership.StateOf(hive, userID)
	if err != nil {
		return nil, err
	}
	if state != StateMember && state != StateCreator {
		return nil, ErrNotMember
	}

	var list []models.Announcement
	err = s.db.Where("hive_id = ?", hiveID).
		Order("created_at desc").
		Preload("Message").
		Find(&list).Error
	return list, err
}
