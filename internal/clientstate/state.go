package clientstate

import (
	"sort"
	"time"

	"github.com/hivechat/hive/internal/events"
)

// 本包是客户端视图状态的归并内核：一个纯函数 reducer。
// 输入当前状态与一条事件，输出新状态，不做任何 IO，不依赖全局变量。
// 服务端的 ws 推送、HTTP 拉取补偿、乐观发送三条路径都汇入同一个 Apply，
// 保证无论事件以何种顺序到达，最终视图一致。

// SendStatus 乐观发送消息的状态
type SendStatus string

const (
	SendPending   SendStatus = "pending"   // 已本地插入，等待服务端确认
	SendConfirmed SendStatus = "confirmed" // 服务端已落库，持有正式 ID
	SendFailed    SendStatus = "failed"    // 服务端拒绝，待用户重试或撤回
)

// ReactionView 单个 emoji 的聚合视图
type ReactionView struct {
	Emoji   string
	Count   int
	UserIDs []uint
}

// MessageView 单条消息的视图
// 乐观发送的消息先以 TempID 占位，确认后换上服务端 ID
type MessageView struct {
	ID           int64 // 服务端 ID，pending 阶段为 0
	TempID       string
	SenderID     uint
	SenderHandle string
	Content      string
	CreatedAt    time.Time
	Status       SendStatus
	FailReason   string
	Reactions    []ReactionView
}

// HiveView 单个 Hive 的视图
type HiveView struct {
	HiveID        uint
	Messages      []MessageView // 按 CreatedAt 升序，同时刻按 ID 升序
	Unread        int
	LastActivity  time.Time
	Ejected       bool    // 本人被移出或 Hive 删除，界面应导航离开
	Announcements []int64 // 被置顶的消息 ID，按公告时间排列
}

// State 一个已登录客户端的全量视图状态
type State struct {
	UserID     uint
	ActiveHive uint // 正在浏览的 Hive，其事件不累计未读
	Hives      map[uint]HiveView
}

// NewState 构造空状态
func NewState(userID uint) State {
	return State{UserID: userID, Hives: map[uint]HiveView{}}
}

// cloneHive 写时复制：返回可安全修改的 HiveView 副本
func cloneHive(v HiveView) HiveView {
	msgs := make([]MessageView, len(v.Messages))
	copy(msgs, v.Messages)
	for i := range msgs {
		if len(msgs[i].Reactions) > 0 {
			rs := make([]ReactionView, len(msgs[i].Reactions))
			copy(rs, msgs[i].Reactions)
			for j := range rs {
				ids := make([]uint, len(rs[j].UserIDs))
				copy(ids, rs[j].UserIDs)
				rs[j].UserIDs = ids
			}
			msgs[i].Reactions = rs
		}
	}
	v.Messages = msgs
	if len(v.Announcements) > 0 {
		anns := make([]int64, len(v.Announcements))
		copy(anns, v.Announcements)
		v.Announcements = anns
	}
	return v
}

// cloneState 复制状态外壳与 Hive map（HiveView 按需再复制）
func cloneState(s State) State {
	hives := make(map[uint]HiveView, len(s.Hives))
	for id, v := range s.Hives {
		hives[id] = v
	}
	s.Hives = hives
	return s
}

func (v HiveView) findMessage(id int64) int {
	for i := range v.Messages {
		if v.Messages[i].ID == id && id != 0 {
			return i
		}
	}
	return -1
}

func (v HiveView) findTemp(tempID string) int {
	for i := range v.Messages {
		if v.Messages[i].TempID == tempID && tempID != "" {
			return i
		}
	}
	return -1
}

// messageLess 消息排序：时间优先，同时刻比较服务端 ID，占位消息排在最后
func messageLess(a, b MessageView) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// insertSorted 将消息插入有序位置并返回新切片
func insertSorted(msgs []MessageView, m MessageView) []MessageView {
	idx := sort.Search(len(msgs), func(i int) bool { return messageLess(m, msgs[i]) })
	msgs = append(msgs, MessageView{})
	copy(msgs[idx+1:], msgs[idx:])
	msgs[idx] = m
	return msgs
}

// Apply 归并一条服务端事件，返回新状态
// 对未知 Hive 或未知 Kind 的事件原样返回，容忍乱序与冗余推送
func Apply(s State, env events.Envelope) State {
	view, ok := s.Hives[env.HiveID]
	if !ok {
		return s
	}

	s = cloneState(s)
	view = cloneHive(view)

	switch env.Kind {
	case events.KindMessageInserted:
		if env.Message == nil {
			return s
		}
		view = applyMessageInserted(view, s.UserID, s.ActiveHive, *env.Message)

	case events.KindReactionChanged:
		if env.Reaction == nil {
			return s
		}
		view = applyReactionChanged(view, *env.Reaction)

	case events.KindMemberLeft:
		if env.Member == nil {
			return s
		}
		// 只有本人被移出才影响视图：导航离开并停止渲染
		if env.Member.UserID == s.UserID {
			view.Ejected = true
		}

	case events.KindAnnouncementCreated:
		if env.Announcement == nil {
			return s
		}
		view = applyAnnouncement(view, *env.Announcement, env.OccurredAt)
	}

	s.Hives[env.HiveID] = view
	return s
}

func applyMessageInserted(v HiveView, selfID, activeHive uint, p events.MessagePayload) HiveView {
	// 已有同 ID 消息说明是本人乐观发送已确认后的回声，跳过避免重复
	if v.findMessage(p.ID) >= 0 {
		return v
	}

	v.Messages = insertSorted(v.Messages, MessageView{
		ID:           p.ID,
		SenderID:     p.SenderID,
		SenderHandle: p.SenderHandle,
		Content:      p.Content,
		CreatedAt:    p.CreatedAt,
		Status:       SendConfirmed,
	})

	if p.CreatedAt.After(v.LastActivity) {
		v.LastActivity = p.CreatedAt
	}
	// 自己发的消息和正在浏览的 Hive 不计未读
	if p.SenderID != selfID && v.HiveID != activeHive {
		v.Unread++
	}
	return v
}

func applyReactionChanged(v HiveView, p events.ReactionPayload) HiveView {
	idx := v.findMessage(p.MessageID)
	if idx < 0 {
		return v
	}
	msg := &v.Messages[idx]

	gi := -1
	for i := range msg.Reactions {
		if msg.Reactions[i].Emoji == p.Emoji {
			gi = i
			break
		}
	}

	switch p.Action {
	case events.ReactionAdded:
		if gi < 0 {
			msg.Reactions = append(msg.Reactions, ReactionView{
				Emoji:   p.Emoji,
				Count:   1,
				UserIDs: []uint{p.UserID},
			})
			return v
		}
		g := &msg.Reactions[gi]
		for _, id := range g.UserIDs {
			if id == p.UserID {
				return v // 重复推送，幂等
			}
		}
		g.UserIDs = append(g.UserIDs, p.UserID)
		g.Count++

	case events.ReactionRemoved:
		if gi < 0 {
			return v
		}
		g := &msg.Reactions[gi]
		for i, id := range g.UserIDs {
			if id == p.UserID {
				g.UserIDs = append(g.UserIDs[:i], g.UserIDs[i+1:]...)
				g.Count--
				break
			}
		}
		// 计数归零的 emoji 组整个移除，不渲染空组
		if g.Count <= 0 {
			msg.Reactions = append(msg.Reactions[:gi], msg.Reactions[gi+1:]...)
		}
	}
	return v
}

func applyAnnouncement(v HiveView, p events.AnnouncementPayload, at time.Time) HiveView {
	for _, id := range v.Announcements {
		if id == p.MessageID {
			return v
		}
	}
	v.Announcements = append(v.Announcements, p.MessageID)
	if at.After(v.LastActivity) {
		v.LastActivity = at
	}
	return v
}
