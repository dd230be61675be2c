package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"StatusServer/config"
	rediskey "StatusServer/consts/redisKey"
	"StatusServer/model"
	"StatusServer/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisRegistry 基于 Redis 的注册表，多实例共享在线状态。
// 结构：
// - status:registry:identity:{user} SET，成员为 connection_id；
// - status:registry:conn:{conn}     HASH，identity / connected_at。
// 两类 key 都带 TTL，由心跳续期；实例崩溃后残留条目随 TTL 自然过期。
type RedisRegistry struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewRedisRegistry(client *redis.Client, cfg config.RegistryConfig) *RedisRegistry {
	ttl := cfg.EntryTTL
	if ttl <= 0 {
		ttl = config.DefaultRegistryConfig().EntryTTL
	}
	return &RedisRegistry{
		client:  client,
		ttl:     ttl,
		breaker: newBreaker("connection-registry", cfg.Breaker),
		now:     time.Now,
	}
}

func newBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "熔断器状态变化",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
}

// BreakerState 当前熔断器状态
func (r *RedisRegistry) BreakerState() gobreaker.State {
	return r.breaker.State()
}

func (r *RedisRegistry) Register(ctx context.Context, identity, connectionID string) error {
	var added bool
	err := r.do(ctx, "register", func() error {
		connKey := rediskey.RegistryConnKey(connectionID)
		prev, err := r.client.HGet(ctx, connKey, "identity").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		idKey := rediskey.RegistryIdentityKey(identity)
		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prev != "" && prev != identity {
				pipe.SRem(ctx, rediskey.RegistryIdentityKey(prev), connectionID)
			}
			pipe.HSet(ctx, connKey, "identity", identity, "connected_at", r.now().UnixMilli())
			pipe.Expire(ctx, connKey, r.ttl)
			pipe.SAdd(ctx, idKey, connectionID)
			pipe.Expire(ctx, idKey, r.ttl)
			return nil
		})
		added = err == nil && prev == ""
		return err
	})
	if added {
		connectionsGauge.Inc()
	}
	return err
}

func (r *RedisRegistry) Unregister(ctx context.Context, connectionID string) (*model.ConnectionEntry, error) {
	var entry *model.ConnectionEntry
	err := r.do(ctx, "unregister", func() error {
		connKey := rediskey.RegistryConnKey(connectionID)
		fields, err := r.client.HGetAll(ctx, connKey).Result()
		if err != nil {
			return err
		}
		identity := fields["identity"]
		if identity == "" {
			return nil
		}

		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, rediskey.RegistryIdentityKey(identity), connectionID)
			pipe.Del(ctx, connKey)
			return nil
		})
		if err != nil {
			return err
		}
		entry = &model.ConnectionEntry{
			Identity:     identity,
			ConnectionID: connectionID,
			ConnectedAt:  parseMillis(fields["connected_at"]),
		}
		return nil
	})
	if entry != nil {
		connectionsGauge.Dec()
	}
	return entry, err
}

func (r *RedisRegistry) Resolve(ctx context.Context, identity string) ([]string, error) {
	resolved, err := r.ResolveMany(ctx, []string{identity})
	if err != nil {
		return nil, err
	}
	conns := resolved[identity]
	if conns == nil {
		conns = []string{}
	}
	return conns, nil
}

// ResolveMany 在一个 MULTI 内读取全部身份集合，得到同一时刻的快照
func (r *RedisRegistry) ResolveMany(ctx context.Context, identities []string) (map[string][]string, error) {
	out := make(map[string][]string, len(identities))
	if len(identities) == 0 {
		return out, nil
	}

	err := r.do(ctx, "resolve", func() error {
		members := make(map[string]*redis.StringSliceCmd, len(identities))
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, identity := range identities {
				members[identity] = pipe.SMembers(ctx, rediskey.RegistryIdentityKey(identity))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for identity, cmd := range members {
			if conns := cmd.Val(); len(conns) > 0 {
				out[identity] = conns
			}
		}
		return r.dropExpired(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	for _, conns := range out {
		sort.Strings(conns)
	}
	return out, nil
}

func (r *RedisRegistry) Touch(ctx context.Context, connectionID string) error {
	return r.do(ctx, "touch", func() error {
		connKey := rediskey.RegistryConnKey(connectionID)
		identity, err := r.client.HGet(ctx, connKey, "identity").Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Expire(ctx, connKey, r.ttl)
			pipe.Expire(ctx, rediskey.RegistryIdentityKey(identity), r.ttl)
			return nil
		})
		return err
	})
}

// dropExpired 剔除连接 HASH 已过期的集合成员（其他实例崩溃后的残留），并顺手清理
func (r *RedisRegistry) dropExpired(ctx context.Context, resolved map[string][]string) error {
	type existsCheck struct {
		identity string
		conn     string
		cmd      *redis.IntCmd
	}
	var checks []existsCheck
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for identity, conns := range resolved {
			for _, conn := range conns {
				checks = append(checks, existsCheck{identity, conn, pipe.Exists(ctx, rediskey.RegistryConnKey(conn))})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	stale := make(map[string]map[string]struct{})
	for _, p := range checks {
		if p.cmd.Val() > 0 {
			continue
		}
		if stale[p.identity] == nil {
			stale[p.identity] = make(map[string]struct{})
		}
		stale[p.identity][p.conn] = struct{}{}
	}
	if len(stale) == 0 {
		return nil
	}

	for identity, gone := range stale {
		live := resolved[identity][:0]
		members := make([]any, 0, len(gone))
		for _, conn := range resolved[identity] {
			if _, ok := gone[conn]; ok {
				members = append(members, conn)
				continue
			}
			live = append(live, conn)
		}
		if len(live) == 0 {
			delete(resolved, identity)
		} else {
			resolved[identity] = live
		}
		if err := r.client.SRem(ctx, rediskey.RegistryIdentityKey(identity), members...).Err(); err != nil {
			logger.Warn(ctx, "清理过期连接失败",
				logger.String("identity", identity),
				logger.ErrorField("error", err),
			)
		}
	}
	return nil
}

// do 经熔断器执行一次 Redis 操作，所有失败统一归为 ErrRegistryUnavailable
func (r *RedisRegistry) do(ctx context.Context, op string, fn func() error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker [%s] is %s", ErrRegistryUnavailable, r.breaker.Name(), r.breaker.State())
	}
	logger.Warn(ctx, "连接注册表 Redis 操作失败",
		logger.String("op", op),
		logger.ErrorField("error", err),
	)
	return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
