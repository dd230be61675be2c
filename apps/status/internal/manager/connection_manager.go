package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"StatusServer/apps/status/internal/relay"
	"StatusServer/model"
)

var (
	// ErrConnectionNotFound 连接不在本实例（已断开或在其他实例上）
	ErrConnectionNotFound = fmt.Errorf("connection not found: %w", relay.ErrNotLocal)
	// ErrSendQueueFull 写队列满或连接正在关闭
	ErrSendQueueFull = errors.New("send queue full or connection closed")
	// ErrFrameTypeRequired 上行帧缺少 type
	ErrFrameTypeRequired = errors.New("type is required")
)

// ConnectionManager 管理本实例的 WebSocket 连接，同时作为推送通道（DeliverTo）。
// 两套索引：
// - byID(connection_id) 供推送按连接定位；
// - byKey(user_name:device_id) 保证同设备最多一条活跃连接。
type ConnectionManager struct {
	mu       sync.RWMutex
	byID     map[string]*Client
	byKey    map[string]*Client
	shutdown bool
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byID:  make(map[string]*Client),
		byKey: make(map[string]*Client),
	}
}

// Register 登记连接，返回被替换掉的同设备旧连接（调用方负责关闭并注销）。
// 关停后拒绝登记，ok=false。
func (m *ConnectionManager) Register(client *Client) (replaced *Client, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil, false
	}

	key := client.Key()
	if old, exists := m.byKey[key]; exists && old != client {
		replaced = old
		delete(m.byID, old.ConnectionID())
	}

	m.byKey[key] = client
	m.byID[client.ConnectionID()] = client
	return replaced, true
}

// Unregister 只删除与入参完全一致的连接，避免并发替换时误删新连接。
func (m *ConnectionManager) Unregister(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.byID[client.ConnectionID()]; ok && current == client {
		delete(m.byID, client.ConnectionID())
	}
	if current, ok := m.byKey[client.Key()]; ok && current == client {
		delete(m.byKey, client.Key())
	}
}

// Get 按连接 ID 查找
func (m *ConnectionManager) Get(connectionID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.byID[connectionID]
	return client, ok
}

// DeliverTo 把事件编码为下行帧投递到指定连接的写队列
func (m *ConnectionManager) DeliverTo(_ context.Context, connectionID string, event *model.NotificationEvent) error {
	client, ok := m.Get(connectionID)
	if !ok {
		return ErrConnectionNotFound
	}

	payload, err := EncodeFrame(string(event.Kind), event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Kind, err)
	}
	if !client.Enqueue(payload) {
		return ErrSendQueueFull
	}
	return nil
}

// Count 当前连接数
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Shutdown 关闭全部连接并拒绝后续登记，进程退出时调用。
// 返回被关闭的连接，调用方据此做注册表清理。
func (m *ConnectionManager) Shutdown() []*Client {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true

	clients := make([]*Client, 0, len(m.byID))
	for _, client := range m.byID {
		clients = append(clients, client)
	}
	m.byID = make(map[string]*Client)
	m.byKey = make(map[string]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
	return clients
}

func buildKey(userName, deviceID string) string {
	return userName + ":" + deviceID
}
