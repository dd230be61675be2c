package svc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"StatusServer/apps/status/internal/registry"
	"StatusServer/apps/status/internal/service"
	"StatusServer/model"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/util"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var svcLoggerOnce sync.Once

func initSvcTestLogger() {
	svcLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

type fakeLookup struct {
	findFn func(context.Context, string) (*model.User, error)
}

func (f *fakeLookup) FindByName(ctx context.Context, name string) (*model.User, error) {
	if f.findFn == nil {
		return &model.User{UserName: name}, nil
	}
	return f.findFn(ctx, name)
}

type presenceCall struct {
	user   string
	online bool
}

type fakeOrchestrator struct {
	mu            sync.Mutex
	presence      []presenceCall
	setPresenceFn func(context.Context, string, bool) error
	postMessageFn func(context.Context, string, string, string) (*model.Message, error)
}

var _ Orchestrator = (*fakeOrchestrator)(nil)

func (f *fakeOrchestrator) SetPresence(ctx context.Context, userName string, online bool) error {
	if f.setPresenceFn != nil {
		if err := f.setPresenceFn(ctx, userName, online); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence = append(f.presence, presenceCall{user: userName, online: online})
	return nil
}

func (f *fakeOrchestrator) PostMessage(ctx context.Context, author, recipient, data string) (*model.Message, error) {
	if f.postMessageFn == nil {
		return &model.Message{Id: 1, Author: author, Recipient: recipient, Data: data}, nil
	}
	return f.postMessageFn(ctx, author, recipient, data)
}

func (f *fakeOrchestrator) takePresence() []presenceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.presence
	f.presence = nil
	return out
}

func TestAuthenticate(t *testing.T) {
	initSvcTestLogger()
	ctx := context.Background()
	lookup := &fakeLookup{
		findFn: func(_ context.Context, name string) (*model.User, error) {
			switch name {
			case "alice":
				return &model.User{UserName: name}, nil
			case "broken":
				return nil, service.ErrUnavailable
			}
			return nil, service.ErrNotFound
		},
	}
	s := NewConnectService(registry.NewMemoryRegistry(), lookup, &fakeOrchestrator{}, nil)

	aliceToken, err := util.GenerateToken("alice", "d1")
	require.NoError(t, err)
	ghostToken, err := util.GenerateToken("ghost", "d1")
	require.NoError(t, err)
	brokenToken, err := util.GenerateToken("broken", "d1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		deviceID string
		wantErr  error
	}{
		{name: "missing_token", token: " ", deviceID: "d1", wantErr: ErrTokenRequired},
		{name: "missing_device", token: aliceToken, deviceID: "", wantErr: ErrDeviceIDRequired},
		{name: "garbage_token", token: "not-a-jwt", deviceID: "d1", wantErr: ErrTokenInvalid},
		{name: "device_mismatch", token: aliceToken, deviceID: "d2", wantErr: ErrTokenInvalid},
		{name: "unknown_user", token: ghostToken, deviceID: "d1", wantErr: ErrTokenInvalid},
		{name: "lookup_failure", token: brokenToken, deviceID: "d1", wantErr: service.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tt.token, tt.deviceID, "127.0.0.1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("success", func(t *testing.T) {
		session, err := s.Authenticate(ctx, aliceToken, "d1", " 10.0.0.1 ")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.UserName)
		assert.Equal(t, "d1", session.DeviceID)
		assert.Equal(t, "10.0.0.1", session.ClientIP)
		assert.NotEmpty(t, session.ConnectionID)

		other, err := s.Authenticate(ctx, aliceToken, "d1", "")
		require.NoError(t, err)
		assert.NotEqual(t, session.ConnectionID, other.ConnectionID)
	})
}

func TestConnectionLifecycleDrivesPresence(t *testing.T) {
	initSvcTestLogger()
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	orch := &fakeOrchestrator{}
	s := NewConnectService(reg, &fakeLookup{}, orch, nil)

	phone := &Session{ConnectionID: "c1", UserName: "alice", DeviceID: "phone"}
	laptop := &Session{ConnectionID: "c2", UserName: "alice", DeviceID: "laptop"}

	s.OnConnect(ctx, phone)
	s.OnConnect(ctx, laptop)
	assert.Equal(t, []presenceCall{{"alice", true}, {"alice", true}}, orch.takePresence())

	conns, err := reg.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, conns)

	s.OnDisconnect(ctx, phone)
	assert.Equal(t, []presenceCall{{"alice", true}}, orch.takePresence())

	s.OnDisconnect(ctx, laptop)
	assert.Equal(t, []presenceCall{{"alice", false}}, orch.takePresence())

	// 重复断开是 no-op
	s.OnDisconnect(ctx, laptop)
	assert.Empty(t, orch.takePresence())
}

func TestReconnectDuringDisconnectEndsOnline(t *testing.T) {
	initSvcTestLogger()
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	orch := &fakeOrchestrator{}
	s := NewConnectService(reg, &fakeLookup{}, orch, nil)

	old := &Session{ConnectionID: "c1", UserName: "alice", DeviceID: "phone"}
	fresh := &Session{ConnectionID: "c2", UserName: "alice", DeviceID: "phone"}
	s.OnConnect(ctx, old)
	orch.takePresence()

	// 旧连接的离线写入卡住，期间同设备的新连接上线
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	orch.setPresenceFn = func(_ context.Context, _ string, online bool) error {
		if !online {
			once.Do(func() { close(entered) })
			<-release
		}
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.OnDisconnect(ctx, old)
	}()
	<-entered

	connected := make(chan struct{})
	go func() {
		defer close(connected)
		s.OnConnect(ctx, fresh)
	}()

	select {
	case <-connected:
		t.Fatal("connect finished while disconnect of the same user was still syncing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	<-connected

	calls := orch.takePresence()
	require.NotEmpty(t, calls)
	assert.Equal(t, presenceCall{"alice", true}, calls[len(calls)-1])

	conns, err := reg.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, conns)
}

func TestPresenceLockIsPerUser(t *testing.T) {
	s := NewConnectService(registry.NewMemoryRegistry(), &fakeLookup{}, &fakeOrchestrator{}, nil)
	assert.Same(t, s.presenceLock("alice"), s.presenceLock("alice"))
}

type unavailableRegistry struct {
	registry.Registry
}

func (unavailableRegistry) Register(context.Context, string, string) error {
	return registry.ErrRegistryUnavailable
}

func (unavailableRegistry) Unregister(context.Context, string) (*model.ConnectionEntry, error) {
	return nil, registry.ErrRegistryUnavailable
}

func (unavailableRegistry) Touch(context.Context, string) error {
	return registry.ErrRegistryUnavailable
}

func TestConnectionLifecycleRegistryUnavailable(t *testing.T) {
	initSvcTestLogger()
	ctx := context.Background()
	orch := &fakeOrchestrator{}
	s := NewConnectService(unavailableRegistry{}, &fakeLookup{}, orch, nil)
	session := &Session{ConnectionID: "c1", UserName: "alice", DeviceID: "d1"}

	s.OnConnect(ctx, session)
	s.OnHeartbeat(ctx, session)
	s.OnDisconnect(ctx, session)
	assert.Empty(t, orch.takePresence())
}

func TestTouchActiveToleratesRedisFailure(t *testing.T) {
	initSvcTestLogger()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	orch := &fakeOrchestrator{}
	s := NewConnectService(registry.NewMemoryRegistry(), &fakeLookup{}, orch, client)
	session := &Session{ConnectionID: "c1", UserName: "alice", DeviceID: "d1"}

	s.OnConnect(context.Background(), session)
	s.OnHeartbeat(context.Background(), session)
	assert.Equal(t, []presenceCall{{"alice", true}}, orch.takePresence())
}

func TestPostMessageFrame(t *testing.T) {
	initSvcTestLogger()
	ctx := context.Background()
	orch := &fakeOrchestrator{}
	s := NewConnectService(registry.NewMemoryRegistry(), &fakeLookup{}, orch, nil)
	session := &Session{ConnectionID: "c1", UserName: "alice", DeviceID: "d1"}

	msg, err := s.PostMessage(ctx, session, json.RawMessage(`{"to":"bob","data":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Author)
	assert.Equal(t, "bob", msg.Recipient)
	assert.Equal(t, "hi", msg.Data)

	_, err = s.PostMessage(ctx, session, json.RawMessage(`{"data":"hi"}`))
	assert.ErrorIs(t, err, ErrMessageInvalid)
	_, err = s.PostMessage(ctx, session, json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrMessageInvalid)

	orch.postMessageFn = func(context.Context, string, string, string) (*model.Message, error) {
		return nil, service.ErrInvalidState
	}
	_, err = s.PostMessage(ctx, session, json.RawMessage(`{"to":"carol","data":"hi"}`))
	assert.True(t, errors.Is(err, service.ErrInvalidState))
}
