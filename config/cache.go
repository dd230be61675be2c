package config

import "time"

// CacheConfig 进程内资料缓存配置。
type CacheConfig struct {
	ProfileSize int           `mapstructure:"profile_size"`
	ProfileTTL  time.Duration `mapstructure:"profile_ttl"`
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ProfileSize: 4096,
		ProfileTTL:  5 * time.Minute,
	}
}

// SnowflakeConfig 消息 ID 生成节点配置。
type SnowflakeConfig struct {
	Node int64 `mapstructure:"node"`
}

func DefaultSnowflakeConfig() SnowflakeConfig {
	return SnowflakeConfig{Node: 1}
}
