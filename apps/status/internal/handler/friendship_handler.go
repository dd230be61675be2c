package handler

import (
	"context"
	"strings"

	"StatusServer/apps/status/internal/dto"
	"StatusServer/apps/status/internal/middleware"
	"StatusServer/consts"
	"StatusServer/model"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/result"

	"github.com/gin-gonic/gin"
)

// FriendshipOrchestrator 好友关系操作，状态变更后由编排层推送对端
type FriendshipOrchestrator interface {
	SendFriendRequest(ctx context.Context, requester, target string) (*model.Friendship, error)
	RespondToFriendRequest(ctx context.Context, responder, requester string, accept bool) (*model.Friendship, error)
	RemoveFriend(ctx context.Context, requester, target string) error
	ListFriends(ctx context.Context, identity string) ([]*model.Profile, error)
	ListRelationships(ctx context.Context, identity string, mutual *bool) ([]*model.Friendship, error)
	ListMessages(ctx context.Context, userName, friendUserName string, limit int) ([]*model.Message, error)
}

// FriendshipHandler 好友关系处理器
type FriendshipHandler struct {
	orch FriendshipOrchestrator
}

// NewFriendshipHandler 创建好友关系处理器
func NewFriendshipHandler(orch FriendshipOrchestrator) *FriendshipHandler {
	return &FriendshipHandler{orch: orch}
}

// ListFriends 互为好友的用户资料
// @Router /api/v1/auth/friends [get]
func (h *FriendshipHandler) ListFriends(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	friends, err := h.orch.ListFriends(ctx, userName)
	if err != nil {
		failWithError(ctx, c, "查询好友列表失败", err)
		return
	}
	if friends == nil {
		friends = []*model.Profile{}
	}
	result.Success(c, friends)
}

// ListRelationships 全部关系行，可按 areFriends 过滤
// @Router /api/v1/auth/friendships [get]
func (h *FriendshipHandler) ListRelationships(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	var req dto.ListRelationshipsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	rows, err := h.orch.ListRelationships(ctx, userName, req.AreFriends)
	if err != nil {
		failWithError(ctx, c, "查询好友关系失败", err)
		return
	}
	if rows == nil {
		rows = []*model.Friendship{}
	}
	result.Success(c, rows)
}

// SendRequest 发起好友申请
// @Router /api/v1/auth/friendships/request [put]
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	var req dto.FriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	row, err := h.orch.SendFriendRequest(ctx, userName, strings.TrimSpace(req.FriendUserName))
	if err != nil {
		failWithError(ctx, c, "发起好友申请失败", err)
		return
	}
	result.Success(c, row)
}

// Respond 同意或拒绝好友申请；拒绝时 data 为 null
// @Router /api/v1/auth/friendships/respond [put]
func (h *FriendshipHandler) Respond(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	var req dto.FriendRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	row, err := h.orch.RespondToFriendRequest(ctx, userName, strings.TrimSpace(req.FriendUserName), *req.Accept)
	if err != nil {
		failWithError(ctx, c, "处理好友申请失败", err)
		return
	}
	result.Success(c, row)
}

// Remove 删除好友关系（任意状态）
// @Router /api/v1/auth/friendships/:friendUserName [delete]
func (h *FriendshipHandler) Remove(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	target := strings.TrimSpace(c.Param("friendUserName"))
	if target == "" {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	if err := h.orch.RemoveFriend(ctx, userName, target); err != nil {
		failWithError(ctx, c, "删除好友关系失败", err)
		return
	}
	result.Success(c, nil)
}

// ListMessages 与好友之间最近的消息
// @Router /api/v1/auth/friendships/:friendUserName/messages [get]
func (h *FriendshipHandler) ListMessages(c *gin.Context) {
	ctx := ctxmeta.FromGin(c)
	userName, _ := middleware.GetUserName(c)

	var req dto.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}
	friendUserName := strings.TrimSpace(c.Param("friendUserName"))
	if friendUserName == "" {
		result.Fail(c, nil, consts.CodeParamError)
		return
	}

	msgs, err := h.orch.ListMessages(ctx, userName, friendUserName, req.Limit)
	if err != nil {
		failWithError(ctx, c, "查询消息记录失败", err)
		return
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	result.Success(c, msgs)
}
