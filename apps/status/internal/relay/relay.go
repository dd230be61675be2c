// Package relay 把事件推送到目标身份的在线连接，投递失败只记录不上抛。
package relay

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"StatusServer/apps/status/internal/registry"
	"StatusServer/model"
	"StatusServer/pkg/logger"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
	resultOffline   = "offline"
	resultNotLocal  = "not_local"
)

// ErrNotLocal 连接不在本实例上（已断开，或注册在其他实例）。
// Redis 注册表下在线状态跨实例共享，但推送只走本实例的连接。
var ErrNotLocal = errors.New("connection not on this instance")

var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "status_relay_deliveries_total",
	Help: "Push deliveries by event kind and result.",
}, []string{"kind", "result"})

// Transport 推送通道，目标连接不在本实例时返回 ErrNotLocal（可包装）
type Transport interface {
	DeliverTo(ctx context.Context, connectionID string, event *model.NotificationEvent) error
}

// Report 一次推送的统计，NotLocal 计入 Attempts 但不算失败
type Report struct {
	Attempts  int
	Delivered int
	NotLocal  int
}

// Relay 通知中继
type Relay struct {
	registry  registry.Registry
	transport Transport
	pool      *ants.Pool
}

// New pool 为空时在调用方协程内顺序投递
func New(reg registry.Registry, transport Transport, pool *ants.Pool) *Relay {
	return &Relay{
		registry:  reg,
		transport: transport,
		pool:      pool,
	}
}

// PushToIdentity 推送给单个身份，离线时不做任何投递
func (r *Relay) PushToIdentity(ctx context.Context, identity string, event model.Event) Report {
	return r.PushToIdentities(ctx, []string{identity}, event)
}

// PushToIdentities 基于一次注册表快照扇出，单个连接失败不影响其他连接
func (r *Relay) PushToIdentities(ctx context.Context, identities []string, event model.Event) Report {
	targets := dedupe(identities)
	if len(targets) == 0 {
		return Report{}
	}

	resolved, err := r.registry.ResolveMany(ctx, targets)
	if err != nil {
		logger.Warn(ctx, "解析在线连接失败，跳过推送",
			logger.String("kind", string(event.Kind)),
			logger.Int("targets", len(targets)),
			logger.ErrorField("error", err),
		)
		return Report{}
	}

	var (
		wg        sync.WaitGroup
		attempts  int
		delivered atomic.Int64
		notLocal  atomic.Int64
	)
	for _, identity := range targets {
		conns := resolved[identity]
		if len(conns) == 0 {
			deliveriesTotal.WithLabelValues(string(event.Kind), resultOffline).Inc()
			continue
		}
		notification := &model.NotificationEvent{TargetIdentity: identity, Event: event}
		for _, connID := range conns {
			attempts++
			connID := connID
			task := func() {
				defer wg.Done()
				switch r.deliver(ctx, connID, notification) {
				case resultDelivered:
					delivered.Add(1)
				case resultNotLocal:
					notLocal.Add(1)
				}
			}
			wg.Add(1)
			if r.pool == nil || r.pool.Submit(task) != nil {
				task()
			}
		}
	}
	wg.Wait()

	return Report{Attempts: attempts, Delivered: int(delivered.Load()), NotLocal: int(notLocal.Load())}
}

// deliver 单次投递并返回结果标签，panic 按失败处理
func (r *Relay) deliver(ctx context.Context, connID string, event *model.NotificationEvent) (result string) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "推送 panic",
				logger.String("connection_id", connID),
				logger.String("kind", string(event.Kind)),
				logger.Any("panic", p),
				logger.String("stack", string(debug.Stack())),
			)
			result = resultFailed
		}
		deliveriesTotal.WithLabelValues(string(event.Kind), result).Inc()
	}()

	err := r.transport.DeliverTo(ctx, connID, event)
	switch {
	case err == nil:
		return resultDelivered
	case errors.Is(err, ErrNotLocal):
		logger.Debug(ctx, "连接不在本实例，跳过推送",
			logger.String("connection_id", connID),
			logger.String("target", event.TargetIdentity),
			logger.String("kind", string(event.Kind)),
		)
		return resultNotLocal
	default:
		logger.Warn(ctx, "推送失败，已跳过",
			logger.String("connection_id", connID),
			logger.String("target", event.TargetIdentity),
			logger.String("kind", string(event.Kind)),
			logger.ErrorField("error", err),
		)
		return resultFailed
	}
}

func dedupe(identities []string) []string {
	seen := make(map[string]struct{}, len(identities))
	out := make([]string, 0, len(identities))
	for _, id := range identities {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
