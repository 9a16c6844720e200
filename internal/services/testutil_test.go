package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/push"
	"github.com/hivechat/hive/internal/repositories"
	"github.com/hivechat/hive/utils/snowflake"
)

// newTestDB 每个测试一个独立的内存库（shared cache 保证连接池内同库）
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Hive{},
		&models.HiveMember{},
		&models.JoinRequest{},
		&models.Message{},
		&models.MessageReaction{},
		&models.Announcement{},
	))
	return db
}

// stubOracle 可编程的持仓校验桩
type stubOracle struct {
	owns bool
	err  error
}

func (o *stubOracle) Owns(_ context.Context, _, _ string) (bool, error) {
	return o.owns, o.err
}

// capturePublisher 记录发布的事件，供断言
type capturePublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (p *capturePublisher) Publish(env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *capturePublisher) byKind(kind string) []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Envelope
	for _, e := range p.envs {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// captureNotifier 记录推送通知
type captureNotifier struct {
	mu    sync.Mutex
	sent  []push.Notification
	fail  bool
}

func (n *captureNotifier) Notify(_ context.Context, notification push.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("推送网关不可用")
	}
	n.sent = append(n.sent, notification)
	return nil
}

// fixture 服务层测试的完整装配
type fixture struct {
	db       *gorm.DB
	oracle   *stubOracle
	pub      *capturePublisher
	notifier *captureNotifier

	Users     *repositories.UserRepository
	Hives     *repositories.HiveRepository
	Members   *repositories.MembershipRepository
	Messages  *repositories.MessageRepository
	Reactions *repositories.ReactionRepository

	Membership    *MembershipService
	HiveSvc       *HiveService
	MessageSvc    *MessageService
	ReactionSvc   *ReactionService
	Announcements *AnnouncementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:       db,
		oracle:   &stubOracle{owns: true},
		pub:      &capturePublisher{},
		notifier: &captureNotifier{},
	}

	f.Users = repositories.NewUserRepository(db)
	f.Hives = repositories.NewHiveRepository(db)
	f.Members = repositories.NewMembershipRepository(db)
	f.Messages = repositories.NewMessageRepository(db)
	f.Reactions = repositories.NewReactionRepository(db)

	idGen, err := snowflake.NewGenerator(snowflake.Config{WorkerID: 1})
	require.NoError(t, err)

	f.Membership = NewMembershipService(f.Hives, f.Members, f.Users, f.oracle, f.pub)
	f.HiveSvc = NewHiveService(f.Hives, f.Members, f.Membership)
	f.MessageSvc = NewMessageService(f.Messages, f.Hives, f.Users, f.Membership, idGen, f.pub)
	f.ReactionSvc = NewReactionService(f.Reactions, f.Messages, f.Hives, f.Users, f.Membership, f.pub)
	f.Announcements = NewAnnouncementService(db, f.Messages, f.Members, f.Membership, f.notifier, f.pub, zap.NewNop())
	return f
}

func (f *fixture) createUser(t *testing.T, handle string) *models.User {
	t.Helper()
	user := &models.User{
		Subject:       "test:" + handle,
		Handle:        handle,
		DisplayName:   handle,
		WalletAddress: "0x00000000000000000000000000000000000000aa",
	}
	require.NoError(t, f.Users.Create(user))
	return user
}

func (f *fixture) createHive(t *testing.T, creatorID uint, req CreateHiveRequest) *models.Hive {
	t.Helper()
	hive, err := f.HiveSvc.CreateHive(creatorID, &req)
	require.NoError(t, err)
	return hive
}
