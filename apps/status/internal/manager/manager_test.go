package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StatusServer/apps/status/internal/relay"
	"StatusServer/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionManagerRegisterReplacesSameDevice(t *testing.T) {
	m := NewConnectionManager()
	first := NewClient(nil, "c1", "alice", "d1")
	second := NewClient(nil, "c2", "alice", "d1")
	other := NewClient(nil, "c3", "alice", "d2")

	replaced, ok := m.Register(first)
	require.True(t, ok)
	assert.Nil(t, replaced)

	replaced, ok = m.Register(second)
	require.True(t, ok)
	assert.Same(t, first, replaced)

	_, ok = m.Register(other)
	require.True(t, ok)
	assert.Equal(t, 2, m.Count())

	_, found := m.Get("c1")
	assert.False(t, found)

	// 旧连接的清理回调不能误删新连接
	m.Unregister(first)
	got, found := m.Get("c2")
	require.True(t, found)
	assert.Same(t, second, got)

	m.Unregister(second)
	_, found = m.Get("c2")
	assert.False(t, found)
	assert.Equal(t, 1, m.Count())
}

func TestConnectionManagerDeliverTo(t *testing.T) {
	ctx := context.Background()
	m := NewConnectionManager()
	client := NewClient(nil, "c1", "alice", "d1")
	_, ok := m.Register(client)
	require.True(t, ok)

	event := &model.NotificationEvent{
		TargetIdentity: "alice",
		Event:          model.NewFriendshipRemoved("bob"),
	}

	t.Run("encodes_frame", func(t *testing.T) {
		require.NoError(t, m.DeliverTo(ctx, "c1", event))
		raw := <-client.send
		assert.JSONEq(t, `{"type":"friendship_removed","data":{"userName":"bob"}}`, string(raw))
	})

	t.Run("unknown_connection", func(t *testing.T) {
		err := m.DeliverTo(ctx, "missing", event)
		assert.ErrorIs(t, err, ErrConnectionNotFound)
		assert.ErrorIs(t, err, relay.ErrNotLocal)
	})

	t.Run("queue_full", func(t *testing.T) {
		for i := 0; i < defaultSendQueueSize; i++ {
			require.NoError(t, m.DeliverTo(ctx, "c1", event))
		}
		assert.ErrorIs(t, m.DeliverTo(ctx, "c1", event), ErrSendQueueFull)
	})

	t.Run("closed_connection", func(t *testing.T) {
		client.Close()
		assert.ErrorIs(t, m.DeliverTo(ctx, "c1", event), ErrSendQueueFull)
	})
}

func TestConnectionManagerShutdown(t *testing.T) {
	m := NewConnectionManager()
	a := NewClient(nil, "c1", "alice", "d1")
	b := NewClient(nil, "c2", "bob", "d1")
	m.Register(a)
	m.Register(b)

	closed := m.Shutdown()
	assert.Len(t, closed, 2)
	assert.Equal(t, 0, m.Count())

	select {
	case <-a.Done():
	default:
		t.Fatal("client should be closed")
	}

	_, ok := m.Register(NewClient(nil, "c3", "carol", "d1"))
	assert.False(t, ok)
	assert.Nil(t, m.Shutdown())
}

func TestEnvelopeCodec(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":" heartbeat ","data":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "heartbeat", env.Type)
	assert.JSONEq(t, `{"x":1}`, string(env.Data))

	_, err = ParseEnvelope([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrFrameTypeRequired)

	_, err = ParseEnvelope([]byte(`not json`))
	assert.Error(t, err)

	raw, err := EncodeFrame("heartbeat_ack", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat_ack"}`, string(raw))
}

func TestClientRunDeliversOverWebSocket(t *testing.T) {
	m := NewConnectionManager()
	received := make(chan string, 1)
	closed := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, "c1", "alice", "d1")
		m.Register(client)
		client.Run(context.Background(), func(raw []byte) {
			received <- string(raw)
		}, func() {
			m.Unregister(client)
			close(closed)
		})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
	select {
	case raw := <-received:
		assert.Equal(t, `{"type":"heartbeat"}`, raw)
	case <-time.After(2 * time.Second):
		t.Fatal("upstream frame not received")
	}

	profile := &model.Profile{UserName: "bob", FirstName: "Bob", Online: true}
	require.NoError(t, m.DeliverTo(context.Background(), "c1", &model.NotificationEvent{
		TargetIdentity: "alice",
		Event:          model.NewProfileUpdated(profile),
	}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Type string        `json:"type"`
		Data model.Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "profile_updated", frame.Type)
	assert.Equal(t, *profile, frame.Data)

	require.NoError(t, conn.Close())
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close handler not called")
	}
	assert.Equal(t, 0, m.Count())
}

func serveClient(t *testing.T, m *ConnectionManager, keepAlive KeepAlive) (*websocket.Conn, <-chan struct{}) {
	t.Helper()
	closed := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, "c1", "alice", "d1", WithKeepAlive(keepAlive))
		m.Register(client)
		client.Run(context.Background(), nil, func() {
			m.Unregister(client)
			close(closed)
		})
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, closed
}

func TestClientIdleConnectionIsClosed(t *testing.T) {
	m := NewConnectionManager()
	_, closed := serveClient(t, m, KeepAlive{PongWait: 100 * time.Millisecond})

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("idle client was not closed")
	}
	assert.Equal(t, 0, m.Count())
}

func TestClientPongKeepsConnectionAlive(t *testing.T) {
	m := NewConnectionManager()
	conn, closed := serveClient(t, m, KeepAlive{
		PongWait:     200 * time.Millisecond,
		PingInterval: 50 * time.Millisecond,
	})

	// 读循环里 gorilla 默认的 ping 处理会自动回 pong
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-closed:
		t.Fatal("client answering pings was closed")
	case <-time.After(600 * time.Millisecond):
	}
	assert.Equal(t, 1, m.Count())
}

func TestClientReadLimitClosesConnection(t *testing.T) {
	m := NewConnectionManager()
	conn, closed := serveClient(t, m, KeepAlive{MaxMessageSize: 16})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 64))))
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("oversized frame did not close the client")
	}
}
