package clientstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivechat/hive/internal/events"
)

var base = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func msgEvent(hiveID uint, id int64, senderID uint, content string, at time.Time) events.Envelope {
	return events.Envelope{
		Kind:       events.KindMessageInserted,
		HiveID:     hiveID,
		OccurredAt: at,
		Message: &events.MessagePayload{
			ID: id, SenderID: senderID, Content: content, CreatedAt: at,
		},
	}
}

func reactionEvent(hiveID uint, messageID int64, userID uint, emoji, action string) events.Envelope {
	return events.Envelope{
		Kind:   events.KindReactionChanged,
		HiveID: hiveID,
		Reaction: &events.ReactionPayload{
			MessageID: messageID, UserID: userID, Emoji: emoji, Action: action,
		},
	}
}

func TestApply_UnknownHiveIgnored(t *testing.T) {
	s := NewState(1)
	next := Apply(s, msgEvent(99, 10, 2, "hi", base))
	assert.Empty(t, next.Hives)
}

func TestApply_MessageInserted(t *testing.T) {
	s := TrackHive(NewState(1), 7)

	s = Apply(s, msgEvent(7, 10, 2, "hello", base))
	view := s.Hives[7]
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "hello", view.Messages[0].Content)
	assert.Equal(t, SendConfirmed, view.Messages[0].Status)
	assert.Equal(t, 1, view.Unread)
	assert.Equal(t, base, view.LastActivity)
}

func TestApply_UnreadRules(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	s = TrackHive(s, 8)
	s = OpenHive(s, 7)

	// 正在浏览的 Hive 不累计未读
	s = Apply(s, msgEvent(7, 10, 2, "visible", base))
	assert.Zero(t, s.Hives[7].Unread)

	// 其他 Hive 累计
	s = Apply(s, msgEvent(8, 11, 2, "hidden", base))
	assert.Equal(t, 1, s.Hives[8].Unread)

	// 自己发的不计
	s = Apply(s, msgEvent(8, 12, 1, "mine", base.Add(time.Second)))
	assert.Equal(t, 1, s.Hives[8].Unread)

	// 打开后清零
	s = OpenHive(s, 8)
	assert.Zero(t, s.Hives[8].Unread)
	assert.Equal(t, uint(8), s.ActiveHive)
}

func TestApply_DuplicateMessageIgnored(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	env := msgEvent(7, 10, 2, "once", base)

	s = Apply(s, env)
	s = Apply(s, env)

	assert.Len(t, s.Hives[7].Messages, 1)
	assert.Equal(t, 1, s.Hives[7].Unread)
}

func TestApply_OutOfOrderMessagesSorted(t *testing.T) {
	s := TrackHive(NewState(1), 7)

	s = Apply(s, msgEvent(7, 30, 2, "third", base.Add(2*time.Second)))
	s = Apply(s, msgEvent(7, 10, 2, "first", base))
	s = Apply(s, msgEvent(7, 20, 2, "second", base.Add(time.Second)))

	msgs := s.Hives[7].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	// LastActivity 不被迟到的旧消息拉回
	assert.Equal(t, base.Add(2*time.Second), s.Hives[7].LastActivity)
}

func TestApply_ReactionLifecycle(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	s = Apply(s, msgEvent(7, 10, 2, "react", base))

	s = Apply(s, reactionEvent(7, 10, 2, "👍", events.ReactionAdded))
	s = Apply(s, reactionEvent(7, 10, 3, "👍", events.ReactionAdded))
	// 重复推送幂等
	s = Apply(s, reactionEvent(7, 10, 3, "👍", events.ReactionAdded))
	s = Apply(s, reactionEvent(7, 10, 2, "❤️", events.ReactionAdded))

	msg := s.Hives[7].Messages[0]
	require.Len(t, msg.Reactions, 2)
	assert.Equal(t, "👍", msg.Reactions[0].Emoji)
	assert.Equal(t, 2, msg.Reactions[0].Count)
	assert.ElementsMatch(t, []uint{2, 3}, msg.Reactions[0].UserIDs)

	// 逐个移除，归零后空组消失
	s = Apply(s, reactionEvent(7, 10, 2, "👍", events.ReactionRemoved))
	s = Apply(s, reactionEvent(7, 10, 3, "👍", events.ReactionRemoved))
	msg = s.Hives[7].Messages[0]
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, "❤️", msg.Reactions[0].Emoji)

	// 未知消息/未知 emoji 的移除是 no-op
	s = Apply(s, reactionEvent(7, 999, 2, "👍", events.ReactionRemoved))
	s = Apply(s, reactionEvent(7, 10, 2, "😀", events.ReactionRemoved))
	assert.Len(t, s.Hives[7].Messages[0].Reactions, 1)
}

func TestApply_MemberLeft(t *testing.T) {
	s := TrackHive(NewState(1), 7)

	// 别人退出不影响视图
	s = Apply(s, events.Envelope{
		Kind: events.KindMemberLeft, HiveID: 7,
		Member: &events.MemberPayload{UserID: 2, Reason: events.MemberReasonLeft},
	})
	assert.False(t, s.Hives[7].Ejected)

	// 本人被移出：置 Ejected，界面据此导航离开
	s = Apply(s, events.Envelope{
		Kind: events.KindMemberLeft, HiveID: 7,
		Member: &events.MemberPayload{UserID: 1, Reason: events.MemberReasonRemoved},
	})
	assert.True(t, s.Hives[7].Ejected)
}

func TestApply_AnnouncementDedup(t *testing.T) {
	s := TrackHive(NewState(1), 7)

	env := events.Envelope{
		Kind: events.KindAnnouncementCreated, HiveID: 7, OccurredAt: base,
		Announcement: &events.AnnouncementPayload{ID: 1, MessageID: 10, CreatedBy: 2},
	}
	s = Apply(s, env)
	s = Apply(s, env)

	assert.Equal(t, []int64{10}, s.Hives[7].Announcements)
	assert.Equal(t, base, s.Hives[7].LastActivity)
}

// Apply 是纯函数：输入状态绝不被修改
func TestApply_InputStateUntouched(t *testing.T) {
	s := TrackHive(NewState(1), 7)
	s = Apply(s, msgEvent(7, 10, 2, "original", base))
	s = Apply(s, reactionEvent(7, 10, 2, "👍", events.ReactionAdded))

	before := s.Hives[7]
	beforeMsgs := len(before.Messages)
	beforeReactions := before.Messages[0].Reactions[0].Count

	_ = Apply(s, msgEvent(7, 11, 2, "new", base.Add(time.Second)))
	_ = Apply(s, reactionEvent(7, 10, 3, "👍", events.ReactionAdded))

	after := s.Hives[7]
	assert.Len(t, after.Messages, beforeMsgs)
	assert.Equal(t, beforeReactions, after.Messages[0].Reactions[0].Count)
	assert.Equal(t, before.Unread, after.Unread)
}
