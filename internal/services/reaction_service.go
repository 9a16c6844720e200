package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
)

var (
	ErrMessageNotFound = errors.New("消息不存在")
	ErrInvalidEmoji    = errors.New("emoji 无效")
)

type ReactionService struct {
	ReactionRepo *repositories.ReactionRepository
	MessageRepo  *repositories.MessageRepository
	HiveRepo     *repositories.HiveRepository
	UserRepo     *repositories.UserRepository
	Membership   *MembershipService
	Publisher    events.Publisher
}

func NewReactionService(
	reactionRepo *repositories.ReactionRepository,
	messageRepo *repositories.MessageRepository,
	hiveRepo *repositories.HiveRepository,
	userRepo *repositories.UserRepository,
	membership *MembershipService,
	publisher events.Publisher,
) *ReactionService {
	return &ReactionService{
		ReactionRepo: reactionRepo,
		MessageRepo:  messageRepo,
		HiveRepo:     hiveRepo,
		UserRepo:     userRepo,
		Membership:   membership,
		Publisher:    publisher,
	}
}

// Toggle 回应开关语义
// 同一 (user, message, emoji) 再次提交删除已有记录，否则新增
// 返回动作 "added" 或 "removed"
func (s *ReactionService) Toggle(userID uint, messageID int64, emoji string) (string, error) {
	if emoji == "" || len([]rune(emoji)) > 4 {
		return "", ErrInvalidEmoji
	}

	msg, err := s.MessageRepo.GetByID(messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrMessageNotFound
	}
	if err != nil {
		return "", err
	}

	if err := s.requireMember(userID, msg.HiveID); err != nil {
		return "", err
	}

	existing, err := s.ReactionRepo.Find(messageID, userID, emoji)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var action string
	if err == nil {
		if err := s.ReactionRepo.Delete(existing.ID); err != nil {
			return "", err
		}
		action = events.ReactionRemoved
	} else {
		reaction := &models.MessageReaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		}
		if err := s.ReactionRepo.Create(reaction); err != nil {
			return "", err
		}
		action = events.ReactionAdded
	}

	if s.Publisher != nil {
		handle := ""
		if user, uerr := s.UserRepo.GetByID(userID); uerr == nil {
			handle = user.Handle
		}
		_ = s.Publisher.Publish(events.NewReactionChanged(msg.HiveID, events.ReactionPayload{
			MessageID:  messageID,
			UserID:     userID,
			UserHandle: handle,
			Emoji:      emoji,
			Action:     action,
		}))
	}
	return action, nil
}

// Aggregate 按 emoji 聚合某条消息的回应
func (s *ReactionService) Aggregate(viewerID uint, messageID int64) ([]models.ReactionGroup, error) {
	msg, err := s.MessageRepo.GetByID(messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.requireMember(viewerID, msg.HiveID); err != nil {
		return nil, err
	}

	reactions, err := s.ReactionRepo.ListByMessage(messageID)
	if err != nil {
		return nil, err
	}

	order := []string{}
	grouped := map[string]*models.ReactionGroup{}
	for _, r := range reactions {
		g, ok := grouped[r.Emoji]
		if !ok {
			g = &models.ReactionGroup{Emoji: r.Emoji}
			grouped[r.Emoji] = g
			order = append(order, r.Emoji)
		}
		g.Count++
		if r.User != nil {
			g.Users = append(g.Users, r.User.Handle)
		}
		if r.UserID == viewerID {
			g.Reacted = true
		}
	}

	result := make([]models.ReactionGroup, 0, len(order))
	for _, emoji := range order {
		result = append(result, *grouped[emoji])
	}
	return result, nil
}

func (s *ReactionService) requireMember(userID, hiveID uint) error {
	hive, err := s.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrHiveNotFound
	}
	if err != nil {
		return err
	}
	state, err := s.Membership.StateOf(hive, userID)
	if err != nil {
		return err
	}
	if state != StateMember && state != StateCreator {
		return ErrNotMember
	}
	return nil
}
