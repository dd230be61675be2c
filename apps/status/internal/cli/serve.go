package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"StatusServer/apps/status/internal/server"
	"StatusServer/config"
	"StatusServer/model"
	"StatusServer/pkg/async"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/database"
	"StatusServer/pkg/logger"
	pkgredis "StatusServer/pkg/redis"
	"StatusServer/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCommand 启动 HTTP + WebSocket 服务
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Long: `Run the status server until SIGINT/SIGTERM.

On shutdown the WebSocket connections are closed first, then the HTTP
server drains in-flight requests, then the worker pools are released.

Example:
  status serve --config ./status.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts.ConfigPath)
		},
	}
}

// newApp 测试中可替换，用于覆盖组装失败路径
var newApp = buildApp

func runServe(sigCtx context.Context, configPath string) error {
	// 服务不是从 HTTP 请求起步，启动期日志用固定 trace_id 串联
	ctx := ctxmeta.WithTraceID(context.Background(), "0")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 1) 日志最先初始化，后续模块都依赖它
	l, err := logger.Build(cfg.Logger)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger.ReplaceGlobal(l)
	defer func() {
		_ = l.Sync()
	}()

	gin.SetMode(cfg.Server.Mode)
	util.InitJWT(cfg.JWT)
	if err := util.InitSnowflake(cfg.Snowflake.Node); err != nil {
		return fmt.Errorf("init snowflake: %w", err)
	}

	// 2) 数据库（必需）
	db, err := database.Build(cfg.Database)
	if err != nil {
		return fmt.Errorf("build database: %w", err)
	}
	database.ReplaceGlobal(db)
	defer func() {
		_ = database.Close(db)
	}()
	if err := model.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// 3) Redis（可选）：不可用时注册表与限流退化为进程内实现
	redisClient := buildRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
	}

	// 4) 协程池：全局池承载异步副作用，推送扇出单独一个池
	if err := async.Init(cfg.Async); err != nil {
		return fmt.Errorf("init async pool: %w", err)
	}
	var relayPool *ants.Pool
	if cfg.Async.RelayPoolSize > 0 {
		relayPool, err = async.Build(cfg.Async, cfg.Async.RelayPoolSize)
		if err != nil {
			_ = async.Release()
			return fmt.Errorf("build relay pool: %w", err)
		}
	}

	application, err := newApp(cfg, db, redisClient, relayPool)
	if err != nil {
		shutdownPools(ctx, cfg.Async, relayPool)
		return fmt.Errorf("build app: %w", err)
	}
	srv := server.New(cfg.Server, application.Engine)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Status 服务启动中",
			logger.String("addr", cfg.Server.Addr),
			logger.String("registry", cfg.Registry.Mode),
			logger.Bool("redis", redisClient != nil),
		)
		serveErr <- srv.Start()
	}()

	select {
	case <-sigCtx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error(ctx, "Status 服务监听失败", logger.ErrorField("error", err))
			shutdownPools(ctx, cfg.Async, relayPool)
			return err
		}
	}

	// 5) 优雅停机：长连接 -> HTTP -> 协程池
	logger.Info(ctx, "Status 服务开始优雅停机")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	closed := application.WSHandler.Shutdown(shutdownCtx)
	logger.Info(ctx, "WebSocket 连接已全部关闭", logger.Int("count", closed))

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP 服务优雅停机失败", logger.ErrorField("error", err))
		shutdownErr = err
	}
	shutdownPools(ctx, cfg.Async, relayPool)

	logger.Info(ctx, "Status 服务已退出")
	return shutdownErr
}

// buildRedis 未配置或连接失败时返回 nil
func buildRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	client, err := pkgredis.Build(cfg)
	if err != nil {
		if errors.Is(err, pkgredis.ErrDisabled) {
			logger.Info(ctx, "未配置 Redis，使用进程内注册表与限流")
		} else {
			logger.Warn(ctx, "Redis 初始化失败，降级为无 Redis 模式",
				logger.ErrorField("error", err),
			)
		}
		return nil
	}
	pkgredis.ReplaceGlobal(client)
	logger.Info(ctx, "Redis 初始化成功", logger.String("addr", cfg.Addr))
	return client
}

func shutdownPools(ctx context.Context, cfg config.AsyncConfig, relayPool *ants.Pool) {
	if relayPool != nil {
		if err := relayPool.ReleaseTimeout(cfg.ReleaseTimeout); err != nil {
			logger.Warn(ctx, "推送协程池释放超时", logger.ErrorField("error", err))
		}
	}
	if err := async.Release(); err != nil {
		logger.Warn(ctx, "异步协程池释放超时", logger.ErrorField("error", err))
	}
}
