package router

import (
	"net/http"

	"StatusServer/apps/status/internal/handler"
	"StatusServer/apps/status/internal/middleware"
	"StatusServer/config"
	"StatusServer/consts"
	"StatusServer/pkg/result"
	"StatusServer/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitRouter 初始化路由
// limiter 为空时不做用户级限流，wsHandler 为空时不挂载 /ws
func InitRouter(
	cfg config.ServerConfig,
	limiter *middleware.UserRateLimiter,
	wsHandler *handler.WSHandler,
	userHandler *handler.UserHandler,
	friendshipHandler *handler.FriendshipHandler,
) *gin.Engine {
	r := gin.New()

	// 恢复中间件
	r.Use(middleware.GinRecovery(true))

	// 追踪中间件 (生成 trace_id)
	r.Use(util.TraceLogger())

	// 客户端 IP 中间件
	r.Use(middleware.ClientIPMiddleware())

	// 日志中间件
	r.Use(middleware.GinLogger())

	// Prometheus 监控中间件
	r.Use(middleware.PrometheusMiddleware())

	// 跨域中间件
	r.Use(middleware.CorsMiddleware(cfg.AllowedOrigins))

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Prometheus 指标暴露接口
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 长连接，鉴权参数走 query，不套用请求超时
	if wsHandler != nil {
		r.GET("/ws", wsHandler.ServeWS)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	{
		// 公开接口（不需要认证）
		public := api.Group("/public")
		{
			public.POST("/register", userHandler.Register)
		}

		// 需要认证的接口
		auth := api.Group("/auth")
		auth.Use(middleware.JWTAuthMiddleware())
		if limiter != nil {
			auth.Use(middleware.UserRateLimitMiddleware(limiter))
		}
		{
			auth.GET("/user", userHandler.GetProfile)
			auth.PATCH("/user", userHandler.UpdateProfile)
			auth.DELETE("/user", userHandler.DeleteUser)

			auth.GET("/friends", friendshipHandler.ListFriends)

			friendships := auth.Group("/friendships")
			{
				friendships.GET("", friendshipHandler.ListRelationships)
				friendships.PUT("/request", friendshipHandler.SendRequest)
				friendships.PUT("/respond", friendshipHandler.Respond)
				friendships.DELETE("/:friendUserName", friendshipHandler.Remove)
				friendships.GET("/:friendUserName/messages", friendshipHandler.ListMessages)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		result.Abort(c, http.StatusNotFound, consts.CodeResourceNotFound)
	})

	return r
}
