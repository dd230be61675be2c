package config

import (
	"os"
	"time"
)

// RedisConfig Redis 连接配置。Addr 为空表示不使用 Redis。
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultRedisConfig 地址优先读取 STATUS_REDIS_ADDR。
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         os.Getenv("STATUS_REDIS_ADDR"),
		PoolSize:     50,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}
