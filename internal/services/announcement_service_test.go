package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/models"
)

func TestPromote_CreatorOnly(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	member := f.createUser(t, "member")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	_, err := f.Membership.Join(context.Background(), member.ID, hive.ID)
	require.NoError(t, err)
	msg := f.seedMessage(t, member.ID, hive.ID, "important")

	_, err = f.Announcements.Promote(context.Background(), member.ID, hive.ID, msg.ID)
	assert.ErrorIs(t, err, ErrNotCreator)

	ann, err := f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, ann.MessageID)
	assert.Equal(t, creator.ID, ann.CreatedBy)

	created := f.pub.byKind(events.KindAnnouncementCreated)
	require.Len(t, created, 1)
	assert.Equal(t, msg.ID, created[0].Announcement.MessageID)

	// 同一消息只能提升一次
	_, err = f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	assert.ErrorIs(t, err, ErrAlreadyAnnounced)
}

// 存储故障不能伪装成"已是公告"，要原样上抛
func TestPromote_StoreFailureSurfaced(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	msg := f.seedMessage(t, creator.ID, hive.ID, "important")

	require.NoError(t, f.db.Migrator().DropTable(&models.Announcement{}))

	_, err := f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyAnnounced)
}

func TestPromote_MessageChecks(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})
	other := f.createHive(t, creator.ID, CreateHiveRequest{Name: "other"})
	msg := f.seedMessage(t, creator.ID, other.ID, "elsewhere")

	_, err := f.Announcements.Promote(context.Background(), creator.ID, hive.ID, 9999)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	// 消息属于别的 Hive
	_, err = f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotInHive)
}

func TestPromote_NotifiesMembersExceptCreator(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	for _, u := range []uint{alice.ID, bob.ID} {
		_, err := f.Membership.Join(context.Background(), u, hive.ID)
		require.NoError(t, err)
	}
	msg := f.seedMessage(t, creator.ID, hive.ID, "announcement body")

	_, err := f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 2)
	recipients := []uint{f.notifier.sent[0].RecipientID, f.notifier.sent[1].RecipientID}
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, recipients)
	assert.Contains(t, f.notifier.sent[0].Title, "hive")
	assert.Equal(t, "announcement body", f.notifier.sent[0].Body)
}

func TestPromote_TruncatesLongBody(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	member := f.createUser(t, "member")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	_, err := f.Membership.Join(context.Background(), member.ID, hive.ID)
	require.NoError(t, err)
	msg := f.seedMessage(t, creator.ID, hive.ID, strings.Repeat("长", 120))

	_, err = f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, strings.Repeat("长", 80)+"…", f.notifier.sent[0].Body)
}

// 推送失败不阻塞公告创建（尽力而为）
func TestPromote_PushFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	member := f.createUser(t, "member")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	_, err := f.Membership.Join(context.Background(), member.ID, hive.ID)
	require.NoError(t, err)
	msg := f.seedMessage(t, creator.ID, hive.ID, "still succeeds")

	f.notifier.fail = true
	ann, err := f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	require.NoError(t, err)
	assert.NotZero(t, ann.ID)
}

func TestAnnouncementList_MemberOnly(t *testing.T) {
	f := newFixture(t)
	creator := f.createUser(t, "creator")
	member := f.createUser(t, "member")
	outsider := f.createUser(t, "outsider")
	hive := f.createHive(t, creator.ID, CreateHiveRequest{Name: "hive"})

	_, err := f.Membership.Join(context.Background(), member.ID, hive.ID)
	require.NoError(t, err)
	msg := f.seedMessage(t, creator.ID, hive.ID, "pinned")
	_, err = f.Announcements.Promote(context.Background(), creator.ID, hive.ID, msg.ID)
	require.NoError(t, err)

	list, err := f.Announcements.List(member.ID, hive.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Message)
	assert.Equal(t, "pinned", list[0].Message.Content)

	_, err = f.Announcements.List(outsider.ID, hive.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}
