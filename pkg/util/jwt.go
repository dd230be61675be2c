package util

import (
	"errors"
	"sync"
	"time"

	"StatusServer/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid 表示 token 签名错误、已过期或缺少必要字段。
	ErrTokenInvalid = errors.New("token invalid")

	jwtMu  sync.RWMutex
	jwtCfg = config.DefaultJWTConfig()
)

// Claims JWT 载荷：用户名 + 设备 ID。
type Claims struct {
	UserName string `json:"user_name"`
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// InitJWT 设置签发参数，进程启动时调用一次。
func InitJWT(cfg config.JWTConfig) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtCfg = cfg
}

func currentJWTConfig() config.JWTConfig {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtCfg
}

// GenerateToken 为用户设备签发访问令牌。
func GenerateToken(userName, deviceID string) (string, error) {
	cfg := currentJWTConfig()
	now := time.Now()
	claims := &Claims{
		UserName: userName,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken 校验签名与有效期并返回载荷。
func ParseToken(tokenString string) (*Claims, error) {
	cfg := currentJWTConfig()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserName == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
