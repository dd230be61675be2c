package manager

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultSendQueueSize = 64
	wsWriteTimeout       = 5 * time.Second
)

// KeepAlive 连接保活参数。
// PongWait 内收不到任何上行帧或 pong 即判定为死连接；PingInterval 需小于 PongWait。
// 任一项 <=0 表示关闭对应功能。
type KeepAlive struct {
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultKeepAlive 60s 读超时，54s 发一次 ping，单帧上限 64KB。
func DefaultKeepAlive() KeepAlive {
	return KeepAlive{
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 64 << 10,
	}
}

// ClientOption 创建 Client 的可选参数
type ClientOption func(*Client)

// WithKeepAlive 覆盖默认保活参数
func WithKeepAlive(k KeepAlive) ClientOption {
	return func(c *Client) {
		c.keepAlive = k
	}
}

// MessageHandler 上行消息回调，raw 为客户端原始帧。
type MessageHandler func(raw []byte)

// CloseHandler 读写循环退出后的清理回调。
type CloseHandler func()

// Client 封装单条 WebSocket 连接。
// - send 队列削峰，推送方不会直接阻塞在网络写；
// - done 是统一关闭信号；
// - once 保证 Close 幂等。
type Client struct {
	conn         *websocket.Conn
	connectionID string
	userName     string
	deviceID     string
	connectedAt  time.Time
	keepAlive    KeepAlive
	send         chan []byte
	done         chan struct{}
	once         sync.Once
}

// NewClient 创建连接包装对象，connectionID 由调用方分配。
func NewClient(conn *websocket.Conn, connectionID, userName, deviceID string, opts ...ClientOption) *Client {
	c := &Client{
		conn:         conn,
		connectionID: connectionID,
		userName:     userName,
		deviceID:     deviceID,
		connectedAt:  time.Now(),
		keepAlive:    DefaultKeepAlive(),
		send:         make(chan []byte, defaultSendQueueSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key 同设备替换用的键（user_name:device_id）。
func (c *Client) Key() string {
	return buildKey(c.userName, c.deviceID)
}

func (c *Client) ConnectionID() string { return c.connectionID }

func (c *Client) UserName() string { return c.userName }

func (c *Client) DeviceID() string { return c.deviceID }

func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// Done 连接关闭信号。
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Enqueue 投递到写队列。
// false 表示连接已关闭或队列已满。
func (c *Client) Enqueue(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	cloned := append([]byte(nil), msg...)
	select {
	case <-c.done:
		return false
	case c.send <- cloned:
		return true
	default:
		return false
	}
}

// Run 启动读写循环并阻塞到 readLoop 结束，退出时保证 Close 和 onClose 都被调用。
func (c *Client) Run(ctx context.Context, onMessage MessageHandler, onClose CloseHandler) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	go c.writeLoop(ctx)
	c.readLoop(ctx, onMessage)
}

// Close 幂等关闭：先发关闭信号，再关底层连接。
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readLoop 每收到一帧（含 pong）就顺延读超时；半开连接在 PongWait 后读失败退出。
func (c *Client) readLoop(ctx context.Context, onMessage MessageHandler) {
	if c.keepAlive.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.keepAlive.MaxMessageSize)
	}
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.extendReadDeadline()

		if onMessage != nil {
			onMessage(raw)
		}
	}
}

func (c *Client) extendReadDeadline() {
	if c.keepAlive.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.keepAlive.PongWait))
	}
}

// writeLoop 每次写都带超时，慢连接不会长期占住写协程。
func (c *Client) writeLoop(ctx context.Context) {
	var ping <-chan time.Time
	if c.keepAlive.PingInterval > 0 {
		ticker := time.NewTicker(c.keepAlive.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				c.Close()
				return
			}
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}
