package config

import (
	"os"
	"time"
)

// 本地开发使用的默认密钥，生产环境必须通过 STATUS_JWT_SECRET 覆盖。
const defaultJWTSecret = "status-server-dev-secret"

// JWTConfig 令牌签发配置。
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

func DefaultJWTConfig() JWTConfig {
	secret := os.Getenv("STATUS_JWT_SECRET")
	if secret == "" {
		secret = defaultJWTSecret
	}
	return JWTConfig{
		Secret: secret,
		TTL:    72 * time.Hour,
		Issuer: "status-server",
	}
}
