package config

// RateLimitConfig 用户级限流配置（令牌桶）。
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`  // 每秒产生的令牌数
	Burst   int     `mapstructure:"burst"` // 桶容量
	// LocalSize 本地限流器（Redis 不可用时使用）最多缓存的用户数
	LocalSize int `mapstructure:"local_size"`
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:   true,
		Rate:      20,
		Burst:     40,
		LocalSize: 10000,
	}
}
