package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/internal/auth"
	jwtmw "github.com/hivechat/hive/middleware/jwt"
)

type AuthHandler struct {
	AuthService *auth.Service
	Tokens      *jwtmw.TokenManager
}

func NewAuthHandler(authService *auth.Service, tokens *jwtmw.TokenManager) *AuthHandler {
	return &AuthHandler{
		AuthService: authService,
		Tokens:      tokens,
	}
}

// Login 身份提供方登录：携带 id_token 换取本服务的会话 token
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	resp, err := h.AuthService.LoginWithIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "身份校验失败"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Register 本地注册（仅在 allow_local 打开时可用，方便开发环境）
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Handle   string `json:"handle" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	resp, err := h.AuthService.RegisterLocal(req.Handle, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLocalAuthDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, auth.ErrHandleTaken),
			errors.Is(err, auth.ErrInvalidHandle),
			errors.Is(err, auth.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// LoginLocal 本地账号密码登录
func (h *AuthHandler) LoginLocal(c *gin.Context) {
	var req struct {
		Handle   string `json:"handle" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	resp, err := h.AuthService.LoginLocal(req.Handle, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLocalAuthDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh 在刷新窗口内用旧 token 换新 token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	newToken, err := h.Tokens.RefreshToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token 无法刷新"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": newToken})
}
