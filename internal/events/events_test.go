package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 信封不变式：每种事件恰有一个 payload 字段非空
func TestEnvelope_ExactlyOnePayload(t *testing.T) {
	envelopes := []Envelope{
		NewMessageInserted(7, MessagePayload{ID: 1}),
		NewReactionChanged(7, ReactionPayload{MessageID: 1}),
		NewMemberJoined(7, MemberPayload{UserID: 2}),
		NewMemberLeft(7, MemberPayload{UserID: 2}),
		NewAnnouncementCreated(7, AnnouncementPayload{MessageID: 1}),
	}
	kinds := []string{KindMessageInserted, KindReactionChanged, KindMemberJoined, KindMemberLeft, KindAnnouncementCreated}

	for i, env := range envelopes {
		assert.Equal(t, kinds[i], env.Kind)
		assert.Equal(t, uint(7), env.HiveID)
		assert.WithinDuration(t, time.Now(), env.OccurredAt, time.Second)

		set := 0
		for _, p := range []bool{
			env.Message != nil, env.Reaction != nil, env.Member != nil, env.Announcement != nil,
		} {
			if p {
				set++
			}
		}
		assert.Equal(t, 1, set, "kind %s", env.Kind)
	}
}
