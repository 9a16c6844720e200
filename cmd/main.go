package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hivechat/hive/config"
	"github.com/hivechat/hive/internal/auth"
	"github.com/hivechat/hive/internal/consumer"
	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/gate"
	"github.com/hivechat/hive/internal/handlers"
	"github.com/hivechat/hive/internal/push"
	"github.com/hivechat/hive/internal/repositories"
	"github.com/hivechat/hive/internal/routers"
	"github.com/hivechat/hive/internal/services"
	"github.com/hivechat/hive/internal/storage"
	"github.com/hivechat/hive/internal/summarizer"
	iutils "github.com/hivechat/hive/internal/utils"
	jwtmw "github.com/hivechat/hive/middleware/jwt"
	logmw "github.com/hivechat/hive/middleware/log"
	"github.com/hivechat/hive/pkg/middlewares"
	"github.com/hivechat/hive/pkg/utils"
	"github.com/hivechat/hive/pkg/ws"
	"github.com/hivechat/hive/utils/ratelimit"
	"github.com/hivechat/hive/utils/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("配置初始化失败: %v", err)
	}

	// 结构化日志
	logger, err := logmw.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer logger.Close()

	// 初始化全局限流器
	middlewares.InitGlobalLimiter(cfg.RateLimit.Burst, cfg.RateLimit.QPS)

	// 初始化全局 Worker Pool (协程池)
	// 用于异步处理请求，防止高并发下 Goroutine 暴涨
	iutils.InitGlobalWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)

	// 初始化 PostgreSQL
	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	postgres, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		log.Fatalf("postgres 初始化失败: %v", err)
	}

	// 初始化 Redis
	redisClient, err := storage.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("redis 初始化失败: %v", err)
	}

	// 消息 ID 生成器，节点 ID 作为 worker id
	workerID, _ := strconv.ParseInt(cfg.Gateway.NodeID, 10, 64)
	idGen, err := snowflake.NewGenerator(snowflake.Config{WorkerID: workerID})
	if err != nil {
		log.Fatalf("ID 生成器初始化失败: %v", err)
	}

	// 初始化仓储层
	userRepo := repositories.NewUserRepository(postgres)
	hiveRepo := repositories.NewHiveRepository(postgres)
	memberRepo := repositories.NewMembershipRepository(postgres)
	messageRepo := repositories.NewMessageRepository(postgres)
	reactionRepo := repositories.NewReactionRepository(postgres)

	// 会话与认证
	tokens := jwtmw.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.ExpireHours, cfg.Auth.RefreshHours)
	var verifier auth.IdentityVerifier
	if cfg.Auth.OIDCIssuer != "" {
		v, err := auth.NewOIDCVerifier(context.Background(), &cfg.Auth)
		if err != nil {
			log.Fatalf("OIDC 初始化失败: %v", err)
		}
		verifier = v
	}
	authService := auth.NewService(userRepo, verifier, tokens, cfg.Auth.AllowLocal)

	// 初始化一致性哈希环（用于分布式路由）
	ring := utils.NewHashRing(128)
	for node, weight := range cfg.Gateway.Nodes {
		ring.Add(node, weight)
	}

	// 初始化 WebSocket Hub（注入哈希环与当前节点ID）
	hub := ws.NewHub(redisClient, ring, cfg.Gateway.NodeID)
	go hub.Run()

	// 事件发布器：优先 Kafka，不可用时降级为本地广播
	var kafkaPub events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		if err != nil {
			log.Printf("Kafka 生产者初始化失败: %v。事件将以降级模式直接本地广播。", err)
		} else {
			kafkaPub = kp
			defer kp.Close()
		}
	}
	publisher := events.NewFallbackPublisher(kafkaPub, hub, logger.Logger)

	// 事件消费者：把 Kafka 事件扇出到本节点的连接
	if kafkaPub != nil {
		eventConsumer := consumer.NewEventConsumer(hub)
		groupID := cfg.Kafka.GroupID + "-" + cfg.Gateway.NodeID
		if err := consumer.StartConsumer(context.Background(), cfg.Kafka.Brokers, groupID, cfg.Kafka.EventsTopic, eventConsumer); err != nil {
			log.Printf("事件消费者启动失败: %v", err)
		}
	}

	// 推送：Kafka 排队 + 独立派发协程，失败只记日志
	var notifier push.Notifier
	sender := push.NewHTTPSender(&cfg.Push)
	if kafkaPub != nil && cfg.Kafka.PushTopic != "" {
		kn, err := push.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.PushTopic)
		if err != nil {
			log.Printf("推送队列初始化失败: %v。通知将同步直发。", err)
			notifier = sender
		} else {
			notifier = kn
			defer kn.Close()
			dispatcher := push.NewDispatcher(sender, logger.Logger)
			if err := push.StartDispatcher(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-push", cfg.Kafka.PushTopic, dispatcher, logger.Logger); err != nil {
				log.Printf("推送派发器启动失败: %v", err)
			}
		}
	} else {
		notifier = sender
	}

	// 持仓校验服务（门控 Hive 加入时 fail-closed）
	oracle := gate.NewHTTPOracle(&cfg.TokenGate)

	// 分布式发言限流（Redis 故障时放行）
	sendLimiter := ratelimit.NewRedisLimiter(redisClient, logger.Logger, true)

	// 初始化服务层
	membershipService := services.NewMembershipService(hiveRepo, memberRepo, userRepo, oracle, publisher)
	hiveService := services.NewHiveService(hiveRepo, memberRepo, membershipService)
	messageService := services.NewMessageService(messageRepo, hiveRepo, userRepo, membershipService, idGen, publisher)
	reactionService := services.NewReactionService(reactionRepo, messageRepo, hiveRepo, userRepo, membershipService, publisher)
	announcementService := services.NewAnnouncementService(postgres, messageRepo, memberRepo, membershipService, notifier, publisher, logger.Logger)
	summaryService := services.NewSummaryService(messageRepo, membershipService, summarizer.NewHTTPSummarizer(&cfg.Summarizer), logger.Logger)
	presenceService := services.NewPresenceService(redisClient, time.Duration(cfg.Presence.TTLSeconds)*time.Second, membershipService)

	// 初始化处理器
	authHandler := handlers.NewAuthHandler(authService, tokens)
	userHandler := handlers.NewUserHandler(userRepo)
	hiveHandler := handlers.NewHiveHandler(hiveService, summaryService, presenceService)
	membershipHandler := handlers.NewMembershipHandler(membershipService)
	messageHandler := handlers.NewMessageHandler(messageService, reactionService, announcementService)

	// 配置并创建 Gin 引擎
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// 设置路由
	routers.SetupRoutes(r,
		cfg,
		logger,
		tokens,
		authHandler,
		userHandler,
		hiveHandler,
		membershipHandler,
		messageHandler,
		hub,
		hiveRepo,
		presenceService,
		sendLimiter,
	)

	// 启动服务器
	log.Printf("正在启动服务器，监听端口 :%d\n", cfg.Server.Port)
	if err := r.Run(":" + strconv.FormatInt(int64(cfg.Server.Port), 10)); err != nil {
		log.Fatalf("启动服务器失败: %v", err)
	}
}
