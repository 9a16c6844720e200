package clientstate

import "time"

// 本地动作：由客户端自身行为触发，而不是服务端事件。
// 与 Apply 一样都是纯函数。

// OpenHive 切换正在浏览的 Hive 并清零其未读
func OpenHive(s State, hiveID uint) State {
	s = cloneState(s)
	s.ActiveHive = hiveID
	if view, ok := s.Hives[hiveID]; ok {
		view = cloneHive(view)
		view.Unread = 0
		s.Hives[hiveID] = view
	}
	return s
}

// TrackHive 开始跟踪一个 Hive（加入成功或列表加载后调用）
func TrackHive(s State, hiveID uint) State {
	if _, ok := s.Hives[hiveID]; ok {
		return s
	}
	s = cloneState(s)
	s.Hives[hiveID] = HiveView{HiveID: hiveID}
	return s
}

// DropHive 停止跟踪（主动退出或导航离开后调用）
func DropHive(s State, hiveID uint) State {
	if _, ok := s.Hives[hiveID]; !ok {
		return s
	}
	s = cloneState(s)
	delete(s.Hives, hiveID)
	if s.ActiveHive == hiveID {
		s.ActiveHive = 0
	}
	return s
}

// AppendPending 乐观发送：立即插入占位消息，等待服务端确认
func AppendPending(s State, hiveID uint, tempID, content string, at time.Time) State {
	view, ok := s.Hives[hiveID]
	if !ok {
		return s
	}
	s = cloneState(s)
	view = cloneHive(view)

	view.Messages = append(view.Messages, MessageView{
		TempID:    tempID,
		SenderID:  s.UserID,
		Content:   content,
		CreatedAt: at,
		Status:    SendPending,
	})
	if at.After(view.LastActivity) {
		view.LastActivity = at
	}
	s.Hives[hiveID] = view
	return s
}

// ConfirmPending 服务端确认：用正式 ID 与时间戳替换占位消息并归位排序
// 后续同 ID 的广播事件会被 Apply 去重，不会出现双份
func ConfirmPending(s State, hiveID uint, tempID string, serverID int64, createdAt time.Time) State {
	view, ok := s.Hives[hiveID]
	if !ok {
		return s
	}
	idx := view.findTemp(tempID)
	if idx < 0 {
		return s
	}
	s = cloneState(s)
	view = cloneHive(view)

	msg := view.Messages[idx]
	msg.ID = serverID
	msg.TempID = ""
	msg.CreatedAt = createdAt
	msg.Status = SendConfirmed

	view.Messages = append(view.Messages[:idx], view.Messages[idx+1:]...)
	view.Messages = insertSorted(view.Messages, msg)
	if createdAt.After(view.LastActivity) {
		view.LastActivity = createdAt
	}
	s.Hives[hiveID] = view
	return s
}

// FailPending 服务端拒绝：占位消息标记失败，保留在原位供重试或撤回
func FailPending(s State, hiveID uint, tempID, reason string) State {
	view, ok := s.Hives[hiveID]
	if !ok {
		return s
	}
	idx := view.findTemp(tempID)
	if idx < 0 {
		return s
	}
	s = cloneState(s)
	view = cloneHive(view)

	view.Messages[idx].Status = SendFailed
	view.Messages[idx].FailReason = reason
	s.Hives[hiveID] = view
	return s
}

// RetractFailed 撤回一条失败的占位消息
func RetractFailed(s State, hiveID uint, tempID string) State {
	view, ok := s.Hives[hiveID]
	if !ok {
		return s
	}
	idx := view.findTemp(tempID)
	if idx < 0 || view.Messages[idx].Status != SendFailed {
		return s
	}
	s = cloneState(s)
	view = cloneHive(view)

	view.Messages = append(view.Messages[:idx], view.Messages[idx+1:]...)
	s.Hives[hiveID] = view
	return s
}
