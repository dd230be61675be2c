package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"StatusServer/config"
)

// Server 对 http.Server 的轻量封装，集中管理启动和优雅关闭。
type Server struct {
	httpServer *http.Server
}

// New 包装路由为 HTTP Server，超时取自配置。
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Start 启动监听，优雅关闭导致的退出返回 nil。
func (s *Server) Start() error {
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve 在已有监听上提供服务，便于测试绑定随机端口。
func (s *Server) Serve(ln net.Listener) error {
	return ignoreClosed(s.httpServer.Serve(ln))
}

// Shutdown 优雅停机，调用方需传入带超时的 ctx。
// 已被劫持的 WebSocket 连接不在此列，需先由连接管理器关闭。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
