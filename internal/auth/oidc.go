package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/hivechat/hive/config"
)

// Identity 身份提供方返回的最小用户画像
type Identity struct {
	Subject     string
	Handle      string
	DisplayName string
	AvatarURL   string
}

// IdentityVerifier 校验身份提供方签发的 ID Token
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// OIDCVerifier 基于 go-oidc 的实现，启动时发现 provider 元数据
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, cfg *config.AuthConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("发现 OIDC provider 失败: %w", err)
	}

	conf := oidc.Config{}
	if cfg.OIDCClientID == "" {
		conf.SkipClientIDCheck = true
	} else {
		conf.ClientID = cfg.OIDCClientID
	}
	return &OIDCVerifier{verifier: provider.Verifier(&conf)}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("ID Token 校验失败: %w", err)
	}

	claims := struct {
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Picture           string `json:"picture"`
	}{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}

	handle := claims.PreferredUsername
	if handle == "" {
		handle = claims.Email
	}
	return &Identity{
		Subject:     idToken.Subject,
		Handle:      handle,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	}, nil
}
