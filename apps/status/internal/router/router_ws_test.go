package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StatusServer/apps/status/internal/handler"
	"StatusServer/apps/status/internal/manager"
	"StatusServer/apps/status/internal/orchestrator"
	"StatusServer/apps/status/internal/registry"
	"StatusServer/apps/status/internal/relay"
	"StatusServer/apps/status/internal/repository"
	"StatusServer/apps/status/internal/service"
	"StatusServer/apps/status/internal/svc"
	"StatusServer/apps/status/internal/testutil"
	"StatusServer/config"
	"StatusServer/consts"
	"StatusServer/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveStack struct {
	srv       *httptest.Server
	registry  *registry.MemoryRegistry
	wsHandler *handler.WSHandler
}

func newLiveStack(t *testing.T) *liveStack {
	t.Helper()
	return newLiveStackWithKeepAlive(t, manager.DefaultKeepAlive())
}

func newLiveStackWithKeepAlive(t *testing.T, keepAlive manager.KeepAlive) *liveStack {
	t.Helper()
	initRouterTestLogger()

	db := testutil.SetupTestDB(t)
	users := service.NewUserService(repository.NewUserRepository(db), config.DefaultCacheConfig())
	friendships := service.NewFriendshipService(repository.NewFriendshipRepository(db), users)

	reg := registry.NewMemoryRegistry()
	connManager := manager.NewConnectionManager()
	orch := orchestrator.New(friendships, users, repository.NewMessageRepository(db), relay.New(reg, connManager, nil))
	connectSvc := svc.NewConnectService(reg, users, orch, nil)

	wsHandler := handler.NewWSHandler(connManager, connectSvc, keepAlive)
	r := InitRouter(config.DefaultServerConfig(), nil, wsHandler,
		handler.NewUserHandler(users, orch),
		handler.NewFriendshipHandler(orch),
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &liveStack{srv: srv, registry: reg, wsHandler: wsHandler}
}

func (s *liveStack) register(t *testing.T, userName, deviceID string) string {
	t.Helper()
	body := `{"userName":"` + userName + `","firstName":"F_` + userName + `","lastName":"L","deviceId":"` + deviceID + `"}`
	resp, err := http.Post(s.srv.URL+"/api/v1/public/register", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result struct {
		Code int32 `json:"code"`
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, int32(consts.CodeSuccess), result.Code)
	return result.Data.Token
}

func (s *liveStack) call(t *testing.T, token, method, path, body string) int32 {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result struct {
		Code int32 `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result.Code
}

func (s *liveStack) dial(t *testing.T, token, deviceID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=" + token + "&device_id=" + deviceID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame wsFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestWSHandshakeErrors(t *testing.T) {
	s := newLiveStack(t)
	token := s.register(t, "alice", "a1")

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "missing_token", query: "?device_id=a1", status: http.StatusBadRequest},
		{name: "missing_device", query: "?token=" + token, status: http.StatusBadRequest},
		{name: "device_mismatch", query: "?token=" + token + "&device_id=other", status: http.StatusUnauthorized},
		{name: "bad_token", query: "?token=nope&device_id=a1", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(s.srv.URL + "/ws" + tt.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestWSEndToEndNotifications(t *testing.T) {
	s := newLiveStack(t)
	aliceToken := s.register(t, "alice", "a1")
	bobToken := s.register(t, "bob", "b1")

	alice := s.dial(t, aliceToken, "a1")

	// 心跳
	writeFrame(t, alice, `{"type":"heartbeat"}`)
	assert.Equal(t, "heartbeat_ack", readFrame(t, alice).Type)

	// 申请不推送，同意后发起方收到关系变更与对方资料
	require.Equal(t, int32(consts.CodeSuccess), s.call(t, aliceToken, http.MethodPut, "/api/v1/auth/friendships/request", `{"friendUserName":"bob"}`))
	require.Equal(t, int32(consts.CodeSuccess), s.call(t, bobToken, http.MethodPut, "/api/v1/auth/friendships/respond", `{"friendUserName":"alice","accept":true}`))

	frame := readFrame(t, alice)
	require.Equal(t, string(model.EventFriendshipUpdated), frame.Type)
	var row model.Friendship
	require.NoError(t, json.Unmarshal(frame.Data, &row))
	assert.Equal(t, "alice", row.UserName)
	assert.Equal(t, "bob", row.FriendUserName)
	assert.True(t, row.AreFriends)

	frame = readFrame(t, alice)
	require.Equal(t, string(model.EventProfileUpdated), frame.Type)
	var profile model.Profile
	require.NoError(t, json.Unmarshal(frame.Data, &profile))
	assert.Equal(t, "bob", profile.UserName)
	assert.False(t, profile.Online)

	// bob 上线，alice 收到在线资料
	bob := s.dial(t, bobToken, "b1")
	frame = readFrame(t, alice)
	require.Equal(t, string(model.EventProfileUpdated), frame.Type)
	require.NoError(t, json.Unmarshal(frame.Data, &profile))
	assert.Equal(t, "bob", profile.UserName)
	assert.True(t, profile.Online)

	// 消息：发送方收到回执，接收方收到消息
	writeFrame(t, alice, `{"type":"message","data":{"to":"bob","data":"hi"}}`)
	ack := readFrame(t, alice)
	require.Equal(t, "message_ack", ack.Type)
	var ackData struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(ack.Data, &ackData))
	assert.NotEmpty(t, ackData.ID)

	frame = readFrame(t, bob)
	require.Equal(t, string(model.EventMessagePosted), frame.Type)
	assert.Contains(t, string(frame.Data), `"hi"`)

	// 资料更新推送给在线好友
	require.Equal(t, int32(consts.CodeSuccess), s.call(t, aliceToken, http.MethodPatch, "/api/v1/auth/user", `{"status":"busy"}`))
	frame = readFrame(t, bob)
	require.Equal(t, string(model.EventProfileUpdated), frame.Type)
	require.NoError(t, json.Unmarshal(frame.Data, &profile))
	assert.Equal(t, "alice", profile.UserName)
	assert.Equal(t, "busy", profile.Status)

	// 删除关系，对端收到 friendship_removed
	require.Equal(t, int32(consts.CodeSuccess), s.call(t, bobToken, http.MethodDelete, "/api/v1/auth/friendships/alice", ""))
	frame = readFrame(t, alice)
	require.Equal(t, string(model.EventFriendshipRemoved), frame.Type)
	assert.JSONEq(t, `{"userName":"bob"}`, string(frame.Data))
}

func TestWSFrameErrors(t *testing.T) {
	s := newLiveStack(t)
	aliceToken := s.register(t, "alice", "a1")
	s.register(t, "bob", "b1")
	alice := s.dial(t, aliceToken, "a1")

	tests := []struct {
		name  string
		frame string
		code  int
	}{
		{name: "invalid_json", frame: `not-json`, code: consts.CodeParamError},
		{name: "unsupported_type", frame: `{"type":"dance"}`, code: consts.CodeBodyError},
		{name: "message_without_recipient", frame: `{"type":"message","data":{"data":"hi"}}`, code: consts.CodeParamError},
		{name: "message_to_unknown", frame: `{"type":"message","data":{"to":"ghost","data":"hi"}}`, code: consts.CodeUserNotFound},
		{name: "message_to_stranger", frame: `{"type":"message","data":{"to":"bob","data":"hi"}}`, code: consts.CodeNotFriend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFrame(t, alice, tt.frame)
			frame := readFrame(t, alice)
			require.Equal(t, "error", frame.Type)
			var data svc.ErrorData
			require.NoError(t, json.Unmarshal(frame.Data, &data))
			assert.Equal(t, tt.code, data.Code)
		})
	}
}

func TestWSShutdownUnregistersConnections(t *testing.T) {
	s := newLiveStack(t)
	aliceToken := s.register(t, "alice", "a1")
	alice := s.dial(t, aliceToken, "a1")

	writeFrame(t, alice, `{"type":"heartbeat"}`)
	require.Equal(t, "heartbeat_ack", readFrame(t, alice).Type)
	require.Equal(t, 1, s.registry.Len())

	assert.Equal(t, 1, s.wsHandler.Shutdown(t.Context()))
	assert.Equal(t, 0, s.registry.Len())

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err)
}

func TestWSIdleConnectionIsEvicted(t *testing.T) {
	s := newLiveStackWithKeepAlive(t, manager.KeepAlive{PongWait: 150 * time.Millisecond})
	aliceToken := s.register(t, "alice", "a1")
	alice := s.dial(t, aliceToken, "a1")

	require.Eventually(t, func() bool { return s.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// 客户端不再发送任何帧，也不回 pong
	assert.Eventually(t, func() bool { return s.registry.Len() == 0 }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := alice.ReadMessage()
	assert.Error(t, err)
}
