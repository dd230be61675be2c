package config

import "time"

// AsyncConfig 协程池配置。
// 说明：用于异步副作用与推送扇出，不负责定时/调度。
type AsyncConfig struct {
	PoolSize         int           `mapstructure:"pool_size" json:"poolSize"`                  // 协程池容量
	MaxBlockingTasks int           `mapstructure:"max_blocking_tasks" json:"maxBlockingTasks"` // 最大阻塞任务数（0 表示不限制）
	ExpiryDuration   time.Duration `mapstructure:"expiry_duration" json:"expiryDuration"`      // 空闲 worker 过期时间
	Nonblocking      bool          `mapstructure:"nonblocking" json:"nonblocking"`             // 是否非阻塞提交
	ReleaseTimeout   time.Duration `mapstructure:"release_timeout" json:"releaseTimeout"`      // 优雅释放等待时间
	RelayPoolSize    int           `mapstructure:"relay_pool_size" json:"relayPoolSize"`       // 推送扇出专用协程池容量（0 表示同步推送）
}

// DefaultAsyncConfig 返回本地开发的默认配置。
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		PoolSize:         256,
		MaxBlockingTasks: 0,
		ExpiryDuration:   10 * time.Second,
		Nonblocking:      false,
		ReleaseTimeout:   5 * time.Second,
		RelayPoolSize:    64,
	}
}
