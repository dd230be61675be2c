// Package redis 负责 go-redis 客户端的构建与全局持有。
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StatusServer/config"

	"github.com/redis/go-redis/v9"
)

// ErrDisabled 表示未配置 Redis 地址，调用方应走无 Redis 降级路径。
var ErrDisabled = errors.New("redis disabled: addr is empty")

var global *redis.Client

// Client 返回全局客户端（未初始化时为 nil）。
func Client() *redis.Client { return global }

// ReplaceGlobal 设置全局客户端。
func ReplaceGlobal(c *redis.Client) { global = c }

// Build 创建客户端并 PING 一次，连接失败时关闭客户端并返回错误。
func Build(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrDisabled
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
