package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/summarizer"
)

type stubSummarizer struct {
	text string
	err  error
	// 捕获最近一次提交的内容
	transcript string
	label      string
}

func (s *stubSummarizer) Summarize(_ context.Context, transcript, label string) (string, error) {
	s.transcript = transcript
	s.label = label
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func newSummaryService(f *fixture, sm summarizer.Summarizer) *SummaryService {
	return NewSummaryService(f.Messages, f.Membership, sm, zap.NewNop())
}

func TestSummarize_MemberOnly(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	outsider := f.createUser(t, "outsider")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	svc := newSummaryService(f, nil)

	_, err := svc.Summarize(context.Background(), outsider.ID, hive.ID, 0)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = svc.Summarize(context.Background(), creator.ID, 9999, 0)
	assert.ErrorIs(t, err, ErrHiveNotFound)
}

func TestSummarize_EmptyWindow(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	svc := newSummaryService(f, nil)

	result, err := svc.Summarize(context.Background(), creator.ID, hive.ID, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, result.MessageCount)
	assert.False(t, result.AIGenerated)
	assert.Equal(t, "这段时间没有新消息。", result.Summary)
}

func TestSummarize_WithLLM(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	f.seedMessage(t, creator.ID, hive.ID, "we shipped it")

	sm := &stubSummarizer{text: "大家讨论了上线。"}
	svc := newSummaryService(f, sm)

	result, err := svc.Summarize(context.Background(), creator.ID, hive.ID, time.Hour)
	require.NoError(t, err)
	assert.True(t, result.AIGenerated)
	assert.Equal(t, "大家讨论了上线。", result.Summary)
	assert.Equal(t, 1, result.MessageCount)
	assert.Contains(t, sm.transcript, "we shipped it")
	assert.Contains(t, sm.transcript, "creator")
}

// LLM 失败降级为统计摘要，不对调用方报错
func TestSummarize_FallsBackOnLLMError(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	f.seedMessage(t, creator.ID, hive.ID, "fallback please")

	sm := &stubSummarizer{err: errors.New("上游超时")}
	svc := newSummaryService(f, sm)

	result, err := svc.Summarize(context.Background(), creator.ID, hive.ID, time.Hour)
	require.NoError(t, err)
	assert.False(t, result.AIGenerated)
	assert.Contains(t, result.Summary, "共 1 条消息")
	assert.Contains(t, result.Summary, "fallback please")
}

func TestSummarize_NotConfiguredUsesFallback(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	f.seedMessage(t, creator.ID, hive.ID, "hello")

	sm := &stubSummarizer{err: summarizer.ErrNotConfigured}
	svc := newSummaryService(f, sm)

	result, err := svc.Summarize(context.Background(), creator.ID, hive.ID, time.Hour)
	require.NoError(t, err)
	assert.False(t, result.AIGenerated)
}

func TestStatisticalSummary(t *testing.T) {
	now := time.Now()
	msgs := []models.Message{
		{SenderID: 1, Content: "first", CreatedAt: now},
		{SenderID: 2, Content: "second", CreatedAt: now},
		{SenderID: 1, Content: "third", CreatedAt: now},
	}

	s := statisticalSummary(msgs)
	assert.Contains(t, s, "共 3 条消息")
	assert.Contains(t, s, "2 人参与")
	assert.Contains(t, s, "first")

	// 摘录截断到 50 个 rune
	long := []models.Message{{SenderID: 1, Content: strings.Repeat("话", 60), CreatedAt: now}}
	s = statisticalSummary(long)
	assert.Contains(t, s, strings.Repeat("话", 50)+"…")
	assert.NotContains(t, s, strings.Repeat("话", 51))
}

func TestFormatTranscript(t *testing.T) {
	at := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	msgs := []models.Message{
		{SenderID: 7, Content: "no handle", CreatedAt: at},
		{SenderID: 8, Content: "with handle", CreatedAt: at, Sender: &models.User{Handle: "alice"}},
	}

	got := formatTranscript(msgs)
	assert.Contains(t, got, "[09:30] 用户7: no handle")
	assert.Contains(t, got, "[09:30] alice: with handle")
}
