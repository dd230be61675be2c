package config

import "time"

const (
	RegistryModeMemory = "memory"
	RegistryModeRedis  = "redis"
)

// RegistryConfig 在线连接注册表配置。
// Mode=redis 时连接表落在 Redis，多实例可共享在线状态；Redis 不可用时自动回退到 memory。
type RegistryConfig struct {
	Mode     string        `mapstructure:"mode"`
	EntryTTL time.Duration `mapstructure:"entry_ttl"` // 连接条目过期时间，心跳续期
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig gobreaker 熔断参数。
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`  // 半开状态允许的探测请求数
	Interval     time.Duration `mapstructure:"interval"`      // 闭合状态下清空计数的周期
	Timeout      time.Duration `mapstructure:"timeout"`       // 打开后多久进入半开
	MinRequests  uint32        `mapstructure:"min_requests"`  // 触发熔断的最少请求数
	FailureRatio float64       `mapstructure:"failure_ratio"` // 触发熔断的失败率
}

func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Mode:     RegistryModeMemory,
		EntryTTL: 2 * time.Minute,
		Breaker: BreakerConfig{
			MaxRequests:  3,
			Interval:     15 * time.Second,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.5,
		},
	}
}
