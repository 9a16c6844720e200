package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
	"github.com/hivechat/hive/utils/snowflake"
)

const (
	maxMessageLen   = 1000
	messagePageSize = 100
)

var (
	ErrEmptyMessage   = errors.New("消息内容不能为空")
	ErrMessageTooLong = errors.New("消息内容超过 1000 字符")
)

type MessageService struct {
	MessageRepo *repositories.MessageRepository
	HiveRepo    *repositories.HiveRepository
	UserRepo    *repositories.UserRepository
	Membership  *MembershipService
	IDGen       *snowflake.Generator
	Publisher   events.Publisher
}

func NewMessageService(
	messageRepo *repositories.MessageRepository,
	hiveRepo *repositories.HiveRepository,
	userRepo *repositories.UserRepository,
	membership *MembershipService,
	idGen *snowflake.Generator,
	publisher events.Publisher,
) *MessageService {
	return &MessageService{
		MessageRepo: messageRepo,
		HiveRepo:    hiveRepo,
		UserRepo:    userRepo,
		Membership:  membership,
		IDGen:       idGen,
		Publisher:   publisher,
	}
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID           int64  `json:"id"`
	HiveID       uint   `json:"hive_id"`
	SenderID     uint   `json:"sender_id"`
	SenderHandle string `json:"sender_handle,omitempty"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
}

// SendMessage 发送消息
// 校验成员资格与内容长度，持久化后发布 MessageInserted 事件
func (s *MessageService) SendMessage(userID, hiveID uint, req *SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(content)) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	hive, err := s.HiveRepo.GetByID(hiveID)
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

	id, err := s.IDGen.NextID()
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:       id,
		HiveID:   hiveID,
		SenderID: userID,
		Content:  content,
	}
	if err := s.MessageRepo.Create(msg); err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		handle := ""
		if user, err := s.UserRepo.GetByID(userID); err == nil {
			handle = user.Handle
		}
		_ = s.Publisher.Publish(events.NewMessageInserted(hiveID, events.MessagePayload{
			ID:           msg.ID,
			SenderID:     userID,
			SenderHandle: handle,
			Content:      content,
			CreatedAt:    msg.CreatedAt,
		}))
	}
	return msg, nil
}

// GetMessages 最近 100 条，按 created_at 升序返回
func (s *MessageService) GetMessages(userID, hiveID uint) ([]models.Message, error) {
	hive, err := s.HiveRepo.GetByID(hiveID)
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
	// 门控 Hive 的持仓校验特意不在读路径上做，只拦加入

	msgs, err := s.MessageRepo.ListRecent(hiveID, messagePageSize)
	if err != nil {
		return nil, err
	}

	// 查询按时间倒序取窗口，翻转为升序展示
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
