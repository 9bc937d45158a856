package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"SocialChat/apps/chat/internal/handler"
	"SocialChat/apps/chat/internal/manager"
	"SocialChat/apps/chat/internal/middleware"
	"SocialChat/apps/chat/internal/repository"
	"SocialChat/apps/chat/internal/router"
	"SocialChat/apps/chat/internal/server"
	"SocialChat/apps/chat/internal/service"
	"SocialChat/apps/chat/internal/svc"
	"SocialChat/apps/chat/mq"
	"SocialChat/config"
	"SocialChat/pkg/async"
	"SocialChat/pkg/ctxmeta"
	"SocialChat/pkg/kafka"
	"SocialChat/pkg/logger"
	"SocialChat/pkg/mysql"
	pkgredis "SocialChat/pkg/redis"
	"SocialChat/pkg/util"

	"github.com/redis/go-redis/v9"
)

func main() {
	// 服务不是从 HTTP 请求起步，先放一个固定 trace_id 用于启动期日志串联
	ctx := ctxmeta.WithTraceID(context.Background(), "0")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// 1) 日志（必须最先完成，后续模块初始化都依赖日志输出）
	l, err := logger.Build(cfg.Logger)
	if err != nil {
		panic(err)
	}
	logger.ReplaceGlobal(l)
	defer func() {
		_ = l.Sync()
	}()

	// 2) MySQL：唯一的持久化存储，不可用时直接退出
	db, err := mysql.Build(cfg.MySQL)
	if err != nil {
		logger.Fatal(ctx, "MySQL 初始化失败",
			logger.String("host", cfg.MySQL.Host),
			logger.ErrorField("error", err),
		)
	}
	mysql.ReplaceGlobal(db)
	if cfg.MySQL.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			logger.Fatal(ctx, "数据表迁移失败", logger.ErrorField("error", err))
		}
	}

	// 3) Redis：缓存与限流，不可用时降级（限流放行、缓存直读数据库）
	var redisClient *redis.Client
	if rc, err := pkgredis.Build(cfg.Redis); err != nil {
		logger.Warn(ctx, "Redis 初始化失败，降级为无 Redis 模式",
			logger.ErrorField("error", err),
		)
	} else {
		redisClient = rc
		pkgredis.ReplaceGlobal(redisClient)
		logger.Info(ctx, "Redis 初始化成功", logger.String("addr", cfg.Redis.Addr))
	}

	// 4) Kafka 事件投递：未配置 broker 时不启用
	var publisher *mq.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic,
			kafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
			kafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
			kafka.WithLogger(l),
		)
		publisher = mq.NewEventPublisher(producer, cfg.Kafka)
		logger.Info(ctx, "Kafka 事件投递已启用",
			logger.Any("brokers", cfg.Kafka.Brokers),
			logger.String("topic", cfg.Kafka.EventTopic),
		)
	}

	// 5) 协程池、ID 生成、JWT
	if err := async.Init(cfg.Async); err != nil {
		logger.Fatal(ctx, "协程池初始化失败", logger.ErrorField("error", err))
	}
	util.InitSnowflake(cfg.NodeID)
	util.InitJWT(cfg.JWT)

	// 6) 组装依赖：repository -> 实时路由 -> service -> handler
	userRepo := repository.NewUserRepository(db, redisClient)
	friendRepo := repository.NewFriendRepository(db)
	requestRepo := repository.NewFriendRequestRepository(db, redisClient)
	messageRepo := repository.NewMessageRepository(db)

	// publisher 为 nil 指针时不能直接赋给接口，否则接口非 nil
	var realtimePublisher svc.EventPublisher
	var servicePublisher service.EventPublisher
	if publisher != nil {
		realtimePublisher = publisher
		servicePublisher = publisher
	}

	realtime := svc.NewRouter(manager.NewPresenceRegistry(), manager.NewGroupRegistry(), userRepo, realtimePublisher, cfg.Realtime)
	relationSvc := service.NewRelationService(userRepo, friendRepo, requestRepo, realtime, servicePublisher)
	messageSvc := service.NewMessageService(userRepo, friendRepo, messageRepo, realtime, servicePublisher)
	conversationSvc := service.NewConversationService(userRepo, friendRepo, messageRepo)

	var limiter *middleware.RedisRateLimiter
	if redisClient != nil {
		limiter = middleware.NewRedisRateLimiter(redisClient, cfg.Server.UserRate, cfg.Server.UserBurst)
	}

	server.SetGinMode(cfg.Server)
	engine := router.InitRouter(cfg.Server, cfg.Realtime.AllowedOrigins, limiter, router.Handlers{
		Friend:  handler.NewFriendHandler(relationSvc),
		Message: handler.NewMessageHandler(messageSvc, conversationSvc),
		WS:      handler.NewWSHandler(realtime),
	})
	srv := server.New(cfg.Server, engine)

	// 7) 后台启动 HTTP 监听
	go func() {
		logger.Info(ctx, "Chat 服务启动中", logger.String("addr", srv.Addr()))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "Chat 服务启动失败", logger.ErrorField("error", err))
		}
	}()

	// 8) 阻塞等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 9) 优雅关闭：先断开全部 WebSocket，再等进行中的请求，最后释放协程池和外部连接
	logger.Info(ctx, "Chat 服务开始优雅停机")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	realtime.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP 服务优雅停机失败", logger.ErrorField("error", err))
	}
	if err := async.Release(); err != nil {
		logger.Warn(ctx, "协程池释放超时", logger.ErrorField("error", err))
	}
	if err := publisher.Close(); err != nil {
		logger.Warn(ctx, "Kafka 生产者关闭失败", logger.ErrorField("error", err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := mysql.Close(db); err != nil {
		logger.Warn(ctx, "MySQL 关闭失败", logger.ErrorField("error", err))
	}

	logger.Info(ctx, "Chat 服务已退出")
}
