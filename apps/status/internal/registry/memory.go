package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"StatusServer/model"
)

// MemoryRegistry 进程内注册表
// 两套索引共用一把读写锁，批量查询只加一次读锁。
type MemoryRegistry struct {
	mu         sync.RWMutex
	byConn     map[string]model.ConnectionEntry
	byIdentity map[string]map[string]struct{}
	now        func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byConn:     make(map[string]model.ConnectionEntry),
		byIdentity: make(map[string]map[string]struct{}),
		now:        time.Now,
	}
}

func (r *MemoryRegistry) Register(_ context.Context, identity, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connectionID]; ok {
		if prev.Identity == identity {
			return nil
		}
		r.detach(prev.Identity, connectionID)
	}

	r.byConn[connectionID] = model.ConnectionEntry{
		Identity:     identity,
		ConnectionID: connectionID,
		ConnectedAt:  r.now(),
	}
	conns, ok := r.byIdentity[identity]
	if !ok {
		conns = make(map[string]struct{})
		r.byIdentity[identity] = conns
	}
	conns[connectionID] = struct{}{}
	connectionsGauge.Set(float64(len(r.byConn)))
	return nil
}

func (r *MemoryRegistry) Unregister(_ context.Context, connectionID string) (*model.ConnectionEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connectionID]
	if !ok {
		return nil, nil
	}
	delete(r.byConn, connectionID)
	r.detach(entry.Identity, connectionID)
	connectionsGauge.Set(float64(len(r.byConn)))
	return &entry, nil
}

func (r *MemoryRegistry) Resolve(_ context.Context, identity string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byIdentity[identity]), nil
}

func (r *MemoryRegistry) ResolveMany(_ context.Context, identities []string) (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(identities))
	for _, identity := range identities {
		if conns := r.byIdentity[identity]; len(conns) > 0 {
			out[identity] = sortedKeys(conns)
		}
	}
	return out, nil
}

// Touch 内存条目不过期
func (r *MemoryRegistry) Touch(context.Context, string) error { return nil }

// Len 当前连接总数
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// detach 调用方持有写锁
func (r *MemoryRegistry) detach(identity, connectionID string) {
	conns, ok := r.byIdentity[identity]
	if !ok {
		return
	}
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(r.byIdentity, identity)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
