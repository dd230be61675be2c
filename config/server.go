package config

import (
	"os"
	"time"
)

// ServerConfig HTTP/WebSocket 服务运行参数。
// 超时用于限制异常连接占用资源，避免慢连接拖垮服务。
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	Mode              string        `mapstructure:"mode"` // gin 模式 debug/release/test
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout REST 接口单次处理上限，WebSocket 长连接不受影响
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// AllowedOrigins 为空时放行全部来源（本地调试）
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// WebSocket 保活：WSPongWait 内无任何上行帧/pong 即断开，WSPingInterval 需小于 WSPongWait
	WSPongWait       time.Duration `mapstructure:"ws_pong_wait"`
	WSPingInterval   time.Duration `mapstructure:"ws_ping_interval"`
	WSMaxMessageSize int64         `mapstructure:"ws_max_message_size"`
}

// DefaultServerConfig 端口优先读取 STATUS_ADDR，未设置时默认监听 :8080。
func DefaultServerConfig() ServerConfig {
	addr := os.Getenv("STATUS_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		mode = "release"
	}
	return ServerConfig{
		Addr:              addr,
		Mode:              mode,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		RequestTimeout:    5 * time.Second,
		WSPongWait:        60 * time.Second,
		WSPingInterval:    54 * time.Second,
		WSMaxMessageSize:  64 << 10,
	}
}
