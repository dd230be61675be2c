// Package registry 维护身份到在线连接的映射，只承载在线状态，不保证投递。
package registry

import (
	"context"
	"errors"

	"StatusServer/config"
	"StatusServer/model"
	"StatusServer/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// ErrRegistryUnavailable 外部存储不可用或熔断器打开
var ErrRegistryUnavailable = errors.New("connection registry unavailable")

// connectionsGauge 本实例登记的在线连接数
var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "status_registry_connections",
	Help: "Live connections registered by this instance.",
})

// Registry 连接注册表
type Registry interface {
	// Register 幂等登记；同一连接换了身份时从旧身份下移走
	Register(ctx context.Context, identity, connectionID string) error

	// Unregister 注销连接，连接不存在时返回 (nil, nil)
	Unregister(ctx context.Context, connectionID string) (*model.ConnectionEntry, error)

	// Resolve 身份当前的连接，离线返回空切片而不是错误
	Resolve(ctx context.Context, identity string) ([]string, error)

	// ResolveMany 一次快照读取一批身份的连接，离线身份不出现在结果中
	ResolveMany(ctx context.Context, identities []string) (map[string][]string, error)

	// Touch 心跳续期
	Touch(ctx context.Context, connectionID string) error
}

// New 按配置构建注册表；redis 模式下客户端为空时回退到内存实现
func New(cfg config.RegistryConfig, client *redis.Client) Registry {
	if cfg.Mode == config.RegistryModeRedis {
		if client != nil {
			return NewRedisRegistry(client, cfg)
		}
		logger.Warn(context.Background(), "Redis 不可用，连接注册表回退为内存模式")
	}
	return NewMemoryRegistry()
}
