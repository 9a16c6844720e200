package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivechat/hive/internal/events"
)

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"空内容", "", ErrEmptyMessage},
		{"全空白", "   \n\t ", ErrEmptyMessage},
		{"超长", strings.Repeat("字", 1001), ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.MessageSvc.SendMessage(creator.ID, hive.ID, &SendMessageRequest{Content: tt.content})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// 恰好 1000 个字符放行
	_, err := f.MessageSvc.SendMessage(creator.ID, hive.ID, &SendMessageRequest{Content: strings.Repeat("字", 1000)})
	assert.NoError(t, err)
}

func TestSendMessage_MembershipRequired(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	outsider := f.createUser(t, "outsider")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	_, err := f.MessageSvc.SendMessage(outsider.ID, hive.ID, &SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = f.MessageSvc.SendMessage(creator.ID, 9999, &SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrHiveNotFound)
}

func TestSendMessage_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	msg, err := f.MessageSvc.SendMessage(creator.ID, hive.ID, &SendMessageRequest{Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Positive(t, msg.ID)

	inserted := f.pub.byKind(events.KindMessageInserted)
	require.Len(t, inserted, 1)
	assert.Equal(t, hive.ID, inserted[0].HiveID)
	assert.Equal(t, msg.ID, inserted[0].Message.ID)
	assert.Equal(t, "creator", inserted[0].Message.SenderHandle)
	assert.Equal(t, "hello", inserted[0].Message.Content)
}

func TestSendMessage_IDsIncrease(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	var last int64
	for i := 0; i < 20; i++ {
		msg, err := f.MessageSvc.SendMessage(creator.ID, hive.ID, &SendMessageRequest{Content: "n"})
		require.NoError(t, err)
		assert.Greater(t, msg.ID, last)
		last = msg.ID
	}
}

func TestGetMessages_AscendingOrder(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	member := f.createUser(t, "member")
	outsider := f.createUser(t, "outsider")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	_, err := f.Membership.Join(context.Background(), member.ID, hive.ID)
	require.NoError(t, err)

	contents := []string{"one", "two", "three"}
	for _, c := range contents {
		_, err := f.MessageSvc.SendMessage(member.ID, hive.ID, &SendMessageRequest{Content: c})
		require.NoError(t, err)
	}

	msgs, err := f.MessageSvc.GetMessages(creator.ID, hive.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, c := range contents {
		assert.Equal(t, c, msgs[i].Content)
	}
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}

	// 非成员看不到历史
	_, err = f.MessageSvc.GetMessages(outsider.ID, hive.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

// 门控 Hive 的读路径不做持仓校验：资产转走的老成员仍能读
func TestGetMessages_NoGateOnRead(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	member := f.createUser(t, "member")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{
		Name:            "nft hive",
		ContractAddress: "0x1111111111111111111111111111111111111111",
	})

	f.oracle.owns = true
	_, err := f.Membership.Join(context.Background(), member.ID, hive.ID)
	require.NoError(t, err)

	f.oracle.owns = false
	_, err = f.MessageSvc.GetMessages(member.ID, hive.ID)
	assert.NoError(t, err)
}
