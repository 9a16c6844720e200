package auth

import (
	"context"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
	jwtmw "github.com/hivechat/hive/middleware/jwt"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrLocalAuthDisabled  = errors.New("本地登录未启用")
	ErrInvalidHandle      = errors.New("用户名需为 3-20 个字母数字下划线")
	ErrWeakPassword       = errors.New("密码至少 8 个字符")
	ErrHandleTaken        = errors.New("用户名已被占用")
	ErrOIDCNotConfigured  = errors.New("身份提供方未配置")
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// Service 登录入口
// 主路径：身份提供方 ID Token -> 校验 -> upsert 用户 -> 签发内部会话
// 旁路：本地账号密码（开发/测试），受配置开关控制
type Service struct {
	UserRepo   *repositories.UserRepository
	Verifier   IdentityVerifier
	Tokens     *jwtmw.TokenManager
	AllowLocal bool
}

func NewService(userRepo *repositories.UserRepository, verifier IdentityVerifier, tokens *jwtmw.TokenManager, allowLocal bool) *Service {
	return &Service{
		UserRepo:   userRepo,
		Verifier:   verifier,
		Tokens:     tokens,
		AllowLocal: allowLocal,
	}
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginWithIDToken 身份提供方登录
// 首次登录创建用户，之后每次刷新昵称/头像
func (s *Service) LoginWithIDToken(ctx context.Context, rawIDToken string) (*SessionResponse, error) {
	if s.Verifier == nil {
		return nil, ErrOIDCNotConfigured
	}
	identity, err := s.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	user, err := s.UserRepo.UpsertBySubject(identity.Subject, identity.Handle, identity.DisplayName, identity.AvatarURL)
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// RegisterLocal 本地注册（fallback）
func (s *Service) RegisterLocal(handle, password string) (*SessionResponse, error) {
	if !s.AllowLocal {
		return nil, ErrLocalAuthDisabled
	}
	if !handlePattern.MatchString(handle) {
		return nil, ErrInvalidHandle
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	if _, err := s.UserRepo.GetByHandle(handle); err == nil {
		return nil, ErrHandleTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Subject:      "local:" + handle,
		Handle:       handle,
		DisplayName:  handle,
		PasswordHash: string(hash),
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// LoginLocal 本地登录（fallback）
func (s *Service) LoginLocal(handle, password string) (*SessionResponse, error) {
	if !s.AllowLocal {
		return nil, ErrLocalAuthDisabled
	}

	user, err := s.UserRepo.GetByHandle(handle)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user *models.User) (*SessionResponse, error) {
	token, err := s.Tokens.GenerateToken(user.ID, user.Handle, user.WalletAddress)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Token: token, User: user}, nil
}
