package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
	jwtmw "github.com/hivechat/hive/middleware/jwt"
)

type stubVerifier struct {
	identity *Identity
	err      error
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	return v.identity, v.err
}

func newTestService(t *testing.T, verifier IdentityVerifier, allowLocal bool) *Service {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	return NewService(
		repositories.NewUserRepository(db),
		verifier,
		jwtmw.NewTokenManager("test-secret", 1, 2),
		allowLocal,
	)
}

func TestLoginWithIDToken_UpsertsUser(t *testing.T) {
	verifier := &stubVerifier{identity: &Identity{
		Subject:     "idp:abc",
		Handle:      "alice",
		DisplayName: "Alice",
		AvatarURL:   "https://cdn/avatar.png",
	}}
	svc := newTestService(t, verifier, false)

	session, err := svc.LoginWithIDToken(context.Background(), "raw-token")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "idp:abc", session.User.Subject)
	assert.Equal(t, "alice", session.User.Handle)

	// 再次登录刷新画像而不是新建用户
	verifier.identity.DisplayName = "Alice 2.0"
	again, err := svc.LoginWithIDToken(context.Background(), "raw-token")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)
	assert.Equal(t, "Alice 2.0", again.User.DisplayName)
}

func TestLoginWithIDToken_VerifierError(t *testing.T) {
	wantErr := errors.New("签名无效")
	svc := newTestService(t, &stubVerifier{err: wantErr}, false)

	_, err := svc.LoginWithIDToken(context.Background(), "bad-token")
	assert.ErrorIs(t, err, wantErr)
}

func TestLoginWithIDToken_NotConfigured(t *testing.T) {
	svc := newTestService(t, nil, true)

	_, err := svc.LoginWithIDToken(context.Background(), "token")
	assert.ErrorIs(t, err, ErrOIDCNotConfigured)
}

func TestRegisterLocal(t *testing.T) {
	svc := newTestService(t, nil, true)

	session, err := svc.RegisterLocal("alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "local:alice", session.User.Subject)
	assert.NotEmpty(t, session.User.PasswordHash)
	assert.NotEqual(t, "password123", session.User.PasswordHash)

	// 占用的用户名
	_, err = svc.RegisterLocal("alice", "password456")
	assert.ErrorIs(t, err, ErrHandleTaken)
}

func TestRegisterLocal_Validation(t *testing.T) {
	svc := newTestService(t, nil, true)

	tests := []struct {
		name     string
		handle   string
		password string
		wantErr  error
	}{
		{"用户名太短", "ab", "password123", ErrInvalidHandle},
		{"用户名太长", strings.Repeat("a", 21), "password123", ErrInvalidHandle},
		{"用户名含非法字符", "al ice", "password123", ErrInvalidHandle},
		{"密码太短", "alice", "short", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterLocal(tt.handle, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLocalAuth_Disabled(t *testing.T) {
	svc := newTestService(t, nil, false)

	_, err := svc.RegisterLocal("alice", "password123")
	assert.ErrorIs(t, err, ErrLocalAuthDisabled)

	_, err = svc.LoginLocal("alice", "password123")
	assert.ErrorIs(t, err, ErrLocalAuthDisabled)
}

func TestLoginLocal(t *testing.T) {
	svc := newTestService(t, nil, true)
	_, err := svc.RegisterLocal("alice", "password123")
	require.NoError(t, err)

	session, err := svc.LoginLocal("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.User.Handle)

	// 密码错误与用户不存在返回同一个错误，不泄露存在性
	_, err = svc.LoginLocal("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.LoginLocal("nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// 身份提供方用户没有本地密码，不能走本地登录
func TestLoginLocal_OIDCUserHasNoPassword(t *testing.T) {
	verifier := &stubVerifier{identity: &Identity{Subject: "idp:abc", Handle: "alice"}}
	svc := newTestService(t, verifier, true)

	_, err := svc.LoginWithIDToken(context.Background(), "raw-token")
	require.NoError(t, err)

	_, err = svc.LoginLocal("alice", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
