package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"StatusServer/apps/status/internal/manager"
	"StatusServer/apps/status/internal/service"
	"StatusServer/apps/status/internal/svc"
	"StatusServer/consts"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	frameHeartbeat    = "heartbeat"
	frameHeartbeatAck = "heartbeat_ack"
	frameMessage      = "message"
	frameMessageAck   = "message_ack"
	frameError        = "error"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 来源校验交给前置网关，这里放开便于多端调试
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WSHandler 处理 /ws 接入。
// - Gin 层：握手参数、协议升级、握手失败的 HTTP 响应；
// - svc：鉴权、注册表登记、在线状态；
// - manager：本进程内的连接生命周期与下行投递。
type WSHandler struct {
	connManager *manager.ConnectionManager
	connectSvc  *svc.ConnectService
	keepAlive   manager.KeepAlive
}

// NewWSHandler 创建 WebSocket 入口处理器。
func NewWSHandler(connManager *manager.ConnectionManager, connectSvc *svc.ConnectService, keepAlive manager.KeepAlive) *WSHandler {
	return &WSHandler{
		connManager: connManager,
		connectSvc:  connectSvc,
		keepAlive:   keepAlive,
	}
}

// ServeWS 处理 WebSocket 握手与接入。
// 1. 从 query 读取 token/device_id，鉴权；
// 2. 构建连接级 context（trace/user/device/ip/connection_id）；
// 3. 协议升级后进入连接主循环，直到连接断开才返回。
func (h *WSHandler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	deviceID := c.Query("device_id")
	clientIP := c.GetString(ctxmeta.GinClientIP)
	if clientIP == "" {
		clientIP = c.ClientIP()
	}

	session, err := h.connectSvc.Authenticate(c.Request.Context(), token, deviceID, clientIP)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	// 连接寿命长于本次 HTTP 请求，不能沿用 request context
	connCtx := context.Background()
	if traceID := ctxmeta.TraceIDFromGin(c); traceID != "" {
		connCtx = ctxmeta.WithTraceID(connCtx, traceID)
	}
	connCtx = ctxmeta.WithUserName(connCtx, session.UserName)
	connCtx = ctxmeta.WithDeviceID(connCtx, session.DeviceID)
	connCtx = ctxmeta.WithClientIP(connCtx, session.ClientIP)
	connCtx = ctxmeta.WithConnectionID(connCtx, session.ConnectionID)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(connCtx, "WebSocket 升级失败",
			logger.ErrorField("error", err),
		)
		return
	}

	h.handleConnection(connCtx, conn, session)
}

// handleConnection 单个连接的完整生命周期。
// 同设备重复连接时新连接替换旧连接，旧连接的清理由它自己的关闭回调完成。
func (h *WSHandler) handleConnection(ctx context.Context, conn *websocket.Conn, session *svc.Session) {
	client := manager.NewClient(conn, session.ConnectionID, session.UserName, session.DeviceID,
		manager.WithKeepAlive(h.keepAlive))
	replaced, ok := h.connManager.Register(client)
	if !ok {
		logger.Info(ctx, "服务关闭中，拒绝新连接")
		client.Close()
		return
	}
	if replaced != nil {
		logger.Info(ctx, "同设备重复连接，关闭旧连接",
			logger.String("replaced_connection_id", replaced.ConnectionID()),
		)
		replaced.Close()
	}

	h.connectSvc.OnConnect(ctx, session)
	logger.Info(ctx, "WebSocket 连接已建立",
		logger.String("user_name", session.UserName),
		logger.String("device_id", session.DeviceID),
		logger.String("client_ip", session.ClientIP),
		logger.Int("online_count", h.connManager.Count()),
	)

	client.Run(ctx, func(raw []byte) {
		h.handleMessage(ctx, client, session, raw)
	}, func() {
		h.connManager.Unregister(client)
		h.connectSvc.OnDisconnect(ctx, session)
		logger.Info(ctx, "WebSocket 连接已断开",
			logger.String("user_name", session.UserName),
			logger.String("device_id", session.DeviceID),
			logger.Duration("connected_for", time.Since(client.ConnectedAt())),
			logger.Int("online_count", h.connManager.Count()),
		)
	})
}

// handleMessage 处理客户端上行帧。
// - heartbeat：续期注册表条目，回 heartbeat_ack；
// - message：发给好友的消息，成功回 message_ack{id}。
func (h *WSHandler) handleMessage(ctx context.Context, client *manager.Client, session *svc.Session, raw []byte) {
	envelope, err := manager.ParseEnvelope(raw)
	if err != nil {
		h.sendErrorFrame(ctx, client, consts.CodeParamError, "invalid frame format")
		return
	}

	switch envelope.Type {
	case frameHeartbeat:
		h.connectSvc.OnHeartbeat(ctx, session)
		h.sendFrame(ctx, client, frameHeartbeatAck, nil)
	case frameMessage:
		msg, err := h.connectSvc.PostMessage(ctx, session, envelope.Data)
		if err != nil {
			code := messageErrorCode(err)
			if code == consts.CodeInternalError {
				logger.Error(ctx, "消息处理失败", logger.ErrorField("error", err))
			}
			h.sendErrorFrame(ctx, client, code, consts.GetMessage(code))
			return
		}
		h.sendFrame(ctx, client, frameMessageAck, svc.MessageAck{ID: msg.Id})
	default:
		h.sendErrorFrame(ctx, client, consts.CodeBodyError, "unsupported message type")
	}
}

func messageErrorCode(err error) int32 {
	switch {
	case errors.Is(err, svc.ErrMessageInvalid):
		return consts.CodeParamError
	case errors.Is(err, service.ErrNotFound):
		return consts.CodeUserNotFound
	case errors.Is(err, service.ErrInvalidState):
		return consts.CodeNotFriend
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrUnavailable):
		return consts.CodeMessageSendFail
	default:
		return consts.CodeInternalError
	}
}

// sendFrame 写入下行队列；写不进去说明连接已不可用，直接关闭
func (h *WSHandler) sendFrame(ctx context.Context, client *manager.Client, msgType string, data any) {
	payload, err := manager.EncodeFrame(msgType, data)
	if err != nil {
		logger.Warn(ctx, "下行帧序列化失败",
			logger.String("type", msgType),
			logger.ErrorField("error", err),
		)
		return
	}
	if !client.Enqueue(payload) {
		client.Close()
	}
}

func (h *WSHandler) sendErrorFrame(ctx context.Context, client *manager.Client, code int32, message string) {
	h.sendFrame(ctx, client, frameError, svc.ErrorData{
		Code:    int(code),
		Message: message,
	})
}

// Shutdown 关闭全部连接并同步注销注册表条目。
// 进程退出前调用，不等待各连接自己的关闭回调。
func (h *WSHandler) Shutdown(ctx context.Context) int {
	clients := h.connManager.Shutdown()
	for _, client := range clients {
		h.connectSvc.OnDisconnect(ctx, &svc.Session{
			ConnectionID: client.ConnectionID(),
			UserName:     client.UserName(),
			DeviceID:     client.DeviceID(),
		})
	}
	return len(clients)
}

// writeAuthError 握手阶段还未升级为 WebSocket，用 HTTP JSON 返回
func (h *WSHandler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, svc.ErrTokenRequired), errors.Is(err, svc.ErrDeviceIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    consts.CodeParamError,
			"message": err.Error(),
		})
	case errors.Is(err, svc.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    consts.CodeInvalidToken,
			"message": "token invalid or expired",
		})
	default:
		logger.Error(ctxmeta.FromGin(c), "WebSocket 鉴权失败", logger.ErrorField("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    consts.CodeServiceUnavailable,
			"message": "service unavailable",
		})
	}
}
