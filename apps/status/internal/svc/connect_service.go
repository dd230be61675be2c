package svc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"StatusServer/apps/status/internal/registry"
	"StatusServer/apps/status/internal/service"
	rediskey "StatusServer/consts/redisKey"
	"StatusServer/model"
	"StatusServer/pkg/async"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/util"

	"github.com/redis/go-redis/v9"
)

const (
	// activeWriteTimeout 单次活跃时间写入的超时
	activeWriteTimeout = time.Second
	// presenceStripes 在线状态锁的分段数
	presenceStripes = 64
)

var (
	// ErrTokenRequired 握手参数缺少 token
	ErrTokenRequired = errors.New("token is required")
	// ErrDeviceIDRequired 握手参数缺少 device_id
	ErrDeviceIDRequired = errors.New("device_id is required")
	// ErrTokenInvalid token 非法、过期、与设备不匹配，或用户已不存在
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrMessageInvalid message 帧缺少接收方
	ErrMessageInvalid = errors.New("message requires a recipient")
)

// Session 连接鉴权后的身份，整个连接生命周期复用。
type Session struct {
	ConnectionID string
	UserName     string
	DeviceID     string
	ClientIP     string
}

// ErrorData type=error 时的 data。
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MessageData type=message 时的 data。
type MessageData struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// MessageAck message_ack 的 data。
type MessageAck struct {
	ID int64 `json:"id,string"`
}

// Orchestrator 连接层用到的编排入口
type Orchestrator interface {
	SetPresence(ctx context.Context, userName string, online bool) error
	PostMessage(ctx context.Context, author, recipient, data string) (*model.Message, error)
}

// ConnectService 连接生命周期：握手鉴权、上线/下线、心跳。
type ConnectService struct {
	registry    registry.Registry
	users       service.UserLookup
	orch        Orchestrator
	redisClient *redis.Client

	// 同一用户的登记/注销与在线状态同步串行执行，按用户名分段加锁
	presenceMu [presenceStripes]sync.Mutex
}

// NewConnectService redisClient 可以为空，此时不记录设备活跃时间。
func NewConnectService(reg registry.Registry, users service.UserLookup, orch Orchestrator, redisClient *redis.Client) *ConnectService {
	return &ConnectService{
		registry:    reg,
		users:       users,
		orch:        orch,
		redisClient: redisClient,
	}
}

// Authenticate 校验握手参数。
// 1. token/device_id 非空；
// 2. JWT 合法且 claims.device_id 与 query 一致；
// 3. 用户仍然存在。
func (s *ConnectService) Authenticate(ctx context.Context, token, deviceID, clientIP string) (*Session, error) {
	token = strings.TrimSpace(token)
	deviceID = strings.TrimSpace(deviceID)
	clientIP = strings.TrimSpace(clientIP)

	if token == "" {
		return nil, ErrTokenRequired
	}
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}

	claims, err := util.ParseToken(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.UserName == "" || claims.DeviceID == "" || claims.DeviceID != deviceID {
		return nil, ErrTokenInvalid
	}

	if _, err := s.users.FindByName(ctx, claims.UserName); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	return &Session{
		ConnectionID: util.NewUUID(),
		UserName:     claims.UserName,
		DeviceID:     claims.DeviceID,
		ClientIP:     clientIP,
	}, nil
}

// OnConnect 登记到注册表，首条连接时把用户置为在线。
// 注册表不可用时连接照常服务，只是收不到推送。
func (s *ConnectService) OnConnect(ctx context.Context, session *Session) {
	mu := s.presenceLock(session.UserName)
	mu.Lock()
	defer mu.Unlock()

	if err := s.registry.Register(ctx, session.UserName, session.ConnectionID); err != nil {
		logger.Warn(ctx, "连接登记失败，本连接将收不到推送",
			logger.String("user_name", session.UserName),
			logger.ErrorField("error", err),
		)
		return
	}
	s.touchActive(ctx, session.UserName, session.DeviceID)
	s.syncPresence(ctx, session.UserName)
}

// OnHeartbeat 续期注册表条目并刷新活跃时间
func (s *ConnectService) OnHeartbeat(ctx context.Context, session *Session) {
	if err := s.registry.Touch(ctx, session.ConnectionID); err != nil {
		logger.Warn(ctx, "连接续期失败",
			logger.String("user_name", session.UserName),
			logger.ErrorField("error", err),
		)
	}
	s.touchActive(ctx, session.UserName, session.DeviceID)
}

// OnDisconnect 注销连接，最后一条连接断开时把用户置为离线
func (s *ConnectService) OnDisconnect(ctx context.Context, session *Session) {
	mu := s.presenceLock(session.UserName)
	mu.Lock()
	defer mu.Unlock()

	entry, err := s.registry.Unregister(ctx, session.ConnectionID)
	if err != nil {
		logger.Warn(ctx, "连接注销失败",
			logger.String("user_name", session.UserName),
			logger.ErrorField("error", err),
		)
		return
	}
	if entry == nil {
		return
	}
	s.syncPresence(ctx, entry.Identity)
}

// PostMessage 处理 message 帧
func (s *ConnectService) PostMessage(ctx context.Context, session *Session, data json.RawMessage) (*model.Message, error) {
	var msg MessageData
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageInvalid, err)
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, ErrMessageInvalid
	}
	return s.orch.PostMessage(ctx, session.UserName, msg.To, msg.Data)
}

// presenceLock 同一用户名总是落到同一把锁
func (s *ConnectService) presenceLock(userName string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userName))
	return &s.presenceMu[h.Sum32()%presenceStripes]
}

// syncPresence 以注册表为准推导在线状态；在线标记是条件更新，重复调用不会重复推送。
// 调用方需持有该用户的 presenceLock，保证写入顺序与注册表变更顺序一致。
func (s *ConnectService) syncPresence(ctx context.Context, userName string) {
	conns, err := s.registry.Resolve(ctx, userName)
	if err != nil {
		logger.Warn(ctx, "读取在线连接失败，跳过在线状态同步",
			logger.String("user_name", userName),
			logger.ErrorField("error", err),
		)
		return
	}
	if err := s.orch.SetPresence(ctx, userName, len(conns) > 0); err != nil {
		logger.Warn(ctx, "在线状态同步失败",
			logger.String("user_name", userName),
			logger.Bool("online", len(conns) > 0),
			logger.ErrorField("error", err),
		)
	}
}

// touchActive 设备活跃时间，HASH status:devices:active:{user_name} field=device_id value=unix 秒，每次写入续期 TTL。
// 放到协程池异步写，不占用连接读循环。
func (s *ConnectService) touchActive(ctx context.Context, userName, deviceID string) {
	if s.redisClient == nil || userName == "" || deviceID == "" {
		return
	}

	now := time.Now().Unix()
	async.RunSafe(ctx, func(ctx context.Context) {
		key := rediskey.DeviceActiveKey(userName)
		pipe := s.redisClient.Pipeline()
		pipe.HSet(ctx, key, deviceID, now)
		pipe.Expire(ctx, key, rediskey.DeviceActiveTTL)

		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn(ctx, "更新设备活跃时间失败",
				logger.String("user_name", userName),
				logger.String("device_id", deviceID),
				logger.ErrorField("error", err),
			)
		}
	}, activeWriteTimeout)
}
