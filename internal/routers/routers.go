package routers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/config"
	"github.com/hivechat/hive/internal/handlers"
	"github.com/hivechat/hive/internal/repositories"
	"github.com/hivechat/hive/internal/services"
	logmw "github.com/hivechat/hive/middleware/log"
	jwtmw "github.com/hivechat/hive/middleware/jwt"
	"github.com/hivechat/hive/pkg/middlewares"
	"github.com/hivechat/hive/pkg/ws"
	"github.com/hivechat/hive/utils/ratelimit"
)

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine, cfg *config.Config,
	logger *logmw.Logger,
	tokens *jwtmw.TokenManager,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	hiveHandler *handlers.HiveHandler,
	membershipHandler *handlers.MembershipHandler,
	messageHandler *handlers.MessageHandler,
	hub *ws.Hub,
	hiveRepo *repositories.HiveRepository,
	presence *services.PresenceService,
	limiter ratelimit.Limiter,
) {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Trace-Id"}
	r.Use(cors.New(corsCfg))

	// 请求日志 + trace id 传播
	r.Use(logmw.GinMiddleware(logger))

	// 全局限流：等待超时后返回 429
	r.Use(middlewares.RateLimitMiddleware(2 * time.Second))

	// WebSocket 路由 (必须在 AsyncMiddleware 之前注册，避免握手请求被放入 Worker Pool)
	r.GET("/ws", middlewares.AuthMiddleware(tokens), func(c *gin.Context) {
		ws.ServeWs(hub, hiveRepo, presence, c)
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Status": "OK",
		})
	})

	// 异步处理中间件
	// 将请求放入 Worker Pool 中排队执行
	r.Use(middlewares.AsyncMiddleware())

	// 发言按用户单独限流，挂在 messages 写路由上
	sendLimit := middlewares.PerUserRateLimit(limiter, cfg.RateLimit.MessagesPerMinute, time.Minute)

	RegisterAuthRoutes(r, tokens, authHandler, userHandler)
	RegisterHiveRoutes(r, tokens, hiveHandler, membershipHandler, messageHandler, sendLimit)
	RegisterMessageRoutes(r, tokens, messageHandler)
}

// 认证与用户资料接口
func RegisterAuthRoutes(r *gin.Engine, tokens *jwtmw.TokenManager, authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler) {
	authGroup := r.Group("/api/v1/auth")
	{
		authGroup.POST("/login", authHandler.Login)            // OIDC id_token 登录
		authGroup.POST("/register", authHandler.Register)      // 本地注册（开发用）
		authGroup.POST("/login/local", authHandler.LoginLocal) // 本地登录（开发用）
		authGroup.POST("/refresh", authHandler.Refresh)        // 刷新会话
	}

	userGroup := r.Group("/api/v1/users")
	userGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		userGroup.GET("/me", userHandler.Me)    // 当前用户资料
		userGroup.PUT("/me", userHandler.UpdateMe) // 更新资料/钱包地址
	}
}

// Hive 与成员管理接口
func RegisterHiveRoutes(r *gin.Engine, tokens *jwtmw.TokenManager,
	hiveHandler *handlers.HiveHandler,
	membershipHandler *handlers.MembershipHandler,
	messageHandler *handlers.MessageHandler,
	sendLimit gin.HandlerFunc,
) {
	hiveGroup := r.Group("/api/v1/hives")
	hiveGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		hiveGroup.GET("", hiveHandler.ListMine)      // 我的 Hive 列表（按活跃排序）
		hiveGroup.GET("/browse", hiveHandler.Browse) // 可加入的 Hive
		hiveGroup.POST("", hiveHandler.Create)       // 创建 Hive

		hiveGroup.GET("/:hive_id", hiveHandler.Detail)    // 详情（含成员名单）
		hiveGroup.PUT("/:hive_id", hiveHandler.Update)    // 修改（仅创建者）
		hiveGroup.DELETE("/:hive_id", hiveHandler.Delete) // 删除（仅创建者，级联清理）

		// 成员管理
		hiveGroup.POST("/:hive_id/join", membershipHandler.Join)    // 加入/申请加入
		hiveGroup.POST("/:hive_id/leave", membershipHandler.Leave)  // 主动退出
		hiveGroup.GET("/:hive_id/admin", membershipHandler.AdminOverview)    // 管理面板
		hiveGroup.POST("/:hive_id/admin", membershipHandler.ResolveByUser)   // 按申请人审批
		hiveGroup.DELETE("/:hive_id/admin", membershipHandler.RemoveMember)  // 移除成员
		hiveGroup.PUT("/:hive_id/join-requests/:request_id", membershipHandler.ResolveByRequest) // 按申请单审批

		// 消息
		hiveGroup.POST("/:hive_id/messages", sendLimit, messageHandler.Send) // 发送消息
		hiveGroup.GET("/:hive_id/messages", messageHandler.List)  // 最近消息

		// 公告
		hiveGroup.POST("/:hive_id/announcements", messageHandler.Promote)     // 设为公告
		hiveGroup.GET("/:hive_id/announcements", messageHandler.Announcements) // 公告列表

		// 摘要与在线
		hiveGroup.GET("/:hive_id/summary", hiveHandler.Summary)     // 聊天摘要
		hiveGroup.POST("/:hive_id/online", hiveHandler.Heartbeat)   // 在线心跳
		hiveGroup.GET("/:hive_id/online", hiveHandler.OnlineCount)  // 在线人数
	}
}

// 按消息 ID 操作的接口（回应）
func RegisterMessageRoutes(r *gin.Engine, tokens *jwtmw.TokenManager, messageHandler *handlers.MessageHandler) {
	msgGroup := r.Group("/api/v1/messages")
	msgGroup.Use(middlewares.AuthMiddleware(tokens))
	{
		msgGroup.POST("/:message_id/reactions", messageHandler.ToggleReaction) // 翻转回应
		msgGroup.GET("/:message_id/reactions", messageHandler.Reactions)       // 聚合视图
	}
}
