package clientstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivechat/hive/internal/events"
)

func TestTrackAndDropHive(t *testing.T) {
	s := NewState(1)

	s = TrackHive(s, 7)
	s = TrackHive(s, 7) // 幂等
	assert.Len(t, s.Hives, 1)

	s = OpenHive(s, 7)
	s = DropHive(s, 7)
	assert.Empty(t, s.Hives)
	// 丢弃正在浏览的 Hive 时清掉 ActiveHive
	assert.Zero(t, s.ActiveHive)

	// 丢弃未知 Hive 是 no-op
	s = DropHive(s, 42)
	assert.Empty(t, s.Hives)
}

func TestOptimisticSend_Confirm(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	s = Apply(s, msgEvent(7, 10, 2, "earlier", base))

	s = AppendPending(s, 7, "tmp-1", "optimistic", base.Add(2*time.Second))
	view := s.Hives[7]
	require.Len(t, view.Messages, 2)
	assert.Equal(t, SendPending, view.Messages[1].Status)
	assert.Equal(t, "tmp-1", view.Messages[1].TempID)
	assert.Zero(t, view.Messages[1].ID)

	// 服务端确认：换正式 ID 并按服务端时间归位
	s = ConfirmPending(s, 7, "tmp-1", 20, base.Add(time.Second))
	view = s.Hives[7]
	require.Len(t, view.Messages, 2)
	confirmed := view.Messages[1]
	assert.Equal(t, int64(20), confirmed.ID)
	assert.Empty(t, confirmed.TempID)
	assert.Equal(t, SendConfirmed, confirmed.Status)

	// 确认后的广播回声被去重
	s = Apply(s, msgEvent(7, 20, 1, "optimistic", base.Add(time.Second)))
	assert.Len(t, s.Hives[7].Messages, 2)
	assert.Zero(t, s.Hives[7].Unread)
}

func TestOptimisticSend_FailAndRetract(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	s = AppendPending(s, 7, "tmp-1", "doomed", base)

	// 失败前不能撤回
	s = RetractFailed(s, 7, "tmp-1")
	require.Len(t, s.Hives[7].Messages, 1)

	s = FailPending(s, 7, "tmp-1", "不是该 Hive 成员")
	msg := s.Hives[7].Messages[0]
	assert.Equal(t, SendFailed, msg.Status)
	assert.Equal(t, "不是该 Hive 成员", msg.FailReason)

	s = RetractFailed(s, 7, "tmp-1")
	assert.Empty(t, s.Hives[7].Messages)
}

func TestOptimisticSend_UnknownTempIDIgnored(t *testing.T) {
	s := TrackHive(NewState(1), 7)

	s = ConfirmPending(s, 7, "ghost", 20, base)
	s = FailPending(s, 7, "ghost", "x")
	assert.Empty(t, s.Hives[7].Messages)

	// 未跟踪的 Hive 同样 no-op
	s = AppendPending(s, 99, "tmp", "x", base)
	assert.NotContains(t, s.Hives, uint(99))
}

func TestOptimisticSend_ConfirmReordersAroundConcurrentMessages(t *testing.T) {
	s := TrackHive(NewState(1), 7)

	// 乐观消息本地时间偏晚，别人的消息先被广播确认
	s = AppendPending(s, 7, "tmp-1", "mine", base.Add(5*time.Second))
	s = Apply(s, msgEvent(7, 30, 2, "theirs", base.Add(2*time.Second)))

	// 服务端给出的实际时间更早，确认后要排到前面
	s = ConfirmPending(s, 7, "tmp-1", 10, base.Add(time.Second))

	msgs := s.Hives[7].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(10), msgs[0].ID)
	assert.Equal(t, int64(30), msgs[1].ID)
}

func TestOptimisticState_Transitions(t *testing.T) {
	// 状态只能沿 pending -> confirmed / pending -> failed -> 撤回 推进
	s := TrackHive(NewState(1), 7)
	s = AppendPending(s, 7, "tmp-1", "m", base)
	s = ConfirmPending(s, 7, "tmp-1", 10, base)

	// 确认后的消息不再响应失败/撤回
	s = FailPending(s, 7, "tmp-1", "late error")
	s = RetractFailed(s, 7, "tmp-1")
	require.Len(t, s.Hives[7].Messages, 1)
	assert.Equal(t, SendConfirmed, s.Hives[7].Messages[0].Status)
}

func TestEjectedHiveStillAppliesUntilDropped(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	s = Apply(s, events.Envelope{
		Kind: events.KindMemberLeft, HiveID: 7,
		Member: &events.MemberPayload{UserID: 1, Reason: events.MemberReasonRemoved},
	})
	require.True(t, s.Hives[7].Ejected)

	// 界面收到 Ejected 后调用 DropHive 收尾
	s = DropHive(s, 7)
	assert.Empty(t, s.Hives)
}
