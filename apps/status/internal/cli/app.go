package cli

import (
	"fmt"

	"StatusServer/apps/status/internal/handler"
	"StatusServer/apps/status/internal/manager"
	"StatusServer/apps/status/internal/middleware"
	"StatusServer/apps/status/internal/orchestrator"
	"StatusServer/apps/status/internal/registry"
	"StatusServer/apps/status/internal/relay"
	"StatusServer/apps/status/internal/repository"
	"StatusServer/apps/status/internal/router"
	"StatusServer/apps/status/internal/service"
	"StatusServer/apps/status/internal/svc"
	"StatusServer/config"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app 组装完成的服务，Engine 交给 HTTP Server，WSHandler 用于停机时关闭长连接
type app struct {
	Engine    *gin.Engine
	WSHandler *handler.WSHandler
}

// buildApp 依赖装配：仓储 -> 服务 -> 注册表/推送 -> 编排 -> 接入层
// redisClient、relayPool 可以为空。
func buildApp(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, relayPool *ants.Pool) (*app, error) {
	userRepo := repository.NewUserRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	users := service.NewUserService(userRepo, cfg.Cache)
	friendships := service.NewFriendshipService(friendshipRepo, users)

	reg := registry.New(cfg.Registry, redisClient)
	connManager := manager.NewConnectionManager()
	pusher := relay.New(reg, connManager, relayPool)
	orch := orchestrator.New(friendships, users, messageRepo, pusher)

	connectSvc := svc.NewConnectService(reg, users, orch, redisClient)
	wsHandler := handler.NewWSHandler(connManager, connectSvc, manager.KeepAlive{
		PongWait:       cfg.Server.WSPongWait,
		PingInterval:   cfg.Server.WSPingInterval,
		MaxMessageSize: cfg.Server.WSMaxMessageSize,
	})

	var limiter *middleware.UserRateLimiter
	if cfg.RateLimit.Enabled {
		var err error
		limiter, err = middleware.NewUserRateLimiter(cfg.RateLimit, redisClient)
		if err != nil {
			return nil, fmt.Errorf("build rate limiter: %w", err)
		}
	}

	engine := router.InitRouter(cfg.Server, limiter, wsHandler,
		handler.NewUserHandler(users, orch),
		handler.NewFriendshipHandler(orch),
	)
	return &app{Engine: engine, WSHandler: wsHandler}, nil
}
