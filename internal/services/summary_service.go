package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
	"github.com/hivechat/hive/internal/summarizer"
)

// SummaryService 聊天摘要
// LLM 可用则用它，不可用或失败则降级为本地统计摘要（fail-open）
type SummaryService struct {
	MessageRepo *repositories.MessageRepository
	Membership  *MembershipService
	Summarizer  summarizer.Summarizer
	logger      *zap.Logger
}

func NewSummaryService(
	messageRepo *repositories.MessageRepository,
	membership *MembershipService,
	sm summarizer.Summarizer,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		MessageRepo: messageRepo,
		Membership:  membership,
		Summarizer:  sm,
		logger:      logger,
	}
}

type SummaryResult struct {
	HiveID       uint   `json:"hive_id"`
	Window       string `json:"window"`
	Summary      string `json:"summary"`
	MessageCount int    `json:"message_count"`
	AIGenerated  bool   `json:"ai_generated"`
}

// Summarize 汇总最近一段时间（默认 24h）的聊天内容
func (s *SummaryService) Summarize(ctx context.Context, userID, hiveID uint, window time.Duration) (*SummaryResult, error) {
	hive, err := s.Membership.HiveRepo.GetByID(hiveID)
	if err != nil {
		return nil, ErrHiveNotFound
	}
	state, err := s.Membership.StateOf(hive, userID)
	if err != nil {
		return nil, err
	}
	if state != StateMember && state != StateCreator {
		return nil, ErrNotMember
	}

	if window <= 0 {
		window = 24 * time.Hour
	}
	since := time.Now().Add(-window)
	label := fmt.Sprintf("最近 %s", window)

	msgs, err := s.MessageRepo.ListSince(hiveID, since)
	if err != nil {
		return nil, err
	}

	result := &SummaryResult{
		HiveID:       hiveID,
		Window:       label,
		MessageCount: len(msgs),
	}
	if len(msgs) == 0 {
		result.Summary = "这段时间没有新消息。"
		return result, nil
	}

	if s.Summarizer != nil {
		text, err := s.Summarizer.Summarize(ctx, formatTranscript(msgs), label)
		if err == nil {
			result.Summary = text
			result.AIGenerated = true
			return result, nil
		}
		if err != summarizer.ErrNotConfigured {
			s.logger.Warn("LLM 摘要失败，降级为统计摘要", zap.Uint("hive", hiveID), zap.Error(err))
		}
	}

	result.Summary = statisticalSummary(msgs)
	return result, nil
}

// formatTranscript 把消息窗口格式化为提交给 LLM 的纯文本
func formatTranscript(msgs []models.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		handle := fmt.Sprintf("用户%d", m.SenderID)
		if m.Sender != nil {
			handle = m.Sender.Handle
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), handle, m.Content)
	}
	return b.String()
}

// statisticalSummary 本地降级摘要：条数、参与人数、首条摘录
func statisticalSummary(msgs []models.Message) string {
	participants := map[uint]struct{}{}
	for _, m := range msgs {
		participants[m.SenderID] = struct{}{}
	}

	excerpt := []rune(msgs[0].Content)
	if len(excerpt) > 50 {
		excerpt = append(excerpt[:50], '…')
	}
	return fmt.Sprintf("共 %d 条消息，%d 人参与。开头：“%s”",
		len(msgs), len(participants), string(excerpt))
}
