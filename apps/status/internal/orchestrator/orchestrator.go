// Package orchestrator 组合状态变更与推送：先提交，提交成功后才推送。
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"StatusServer/apps/status/internal/relay"
	"StatusServer/apps/status/internal/repository"
	"StatusServer/apps/status/internal/service"
	"StatusServer/model"
	"StatusServer/pkg/ctxmeta"
	"StatusServer/pkg/logger"
	"StatusServer/pkg/util"
)

// Pusher 通知中继
type Pusher interface {
	PushToIdentity(ctx context.Context, identity string, event model.Event) relay.Report
	PushToIdentities(ctx context.Context, identities []string, event model.Event) relay.Report
}

type Orchestrator struct {
	friendships service.IFriendshipService
	users       service.IUserService
	messages    repository.IMessageRepository
	pusher      Pusher
}

func New(friendships service.IFriendshipService, users service.IUserService, messages repository.IMessageRepository, pusher Pusher) *Orchestrator {
	return &Orchestrator{
		friendships: friendships,
		users:       users,
		messages:    messages,
		pusher:      pusher,
	}
}

// SendFriendRequest 发起好友申请，不推送
func (o *Orchestrator) SendFriendRequest(ctx context.Context, requester, target string) (*model.Friendship, error) {
	return o.friendships.CreatePair(ctx, requester, target)
}

// RespondToFriendRequest responder 处理 requester 发来的申请。
// 同意：返回 responder 一侧的行，并向 requester 推送 FriendshipUpdated + ProfileUpdated；
// 拒绝：返回 nil，并向 requester 推送 FriendshipRemoved。
func (o *Orchestrator) RespondToFriendRequest(ctx context.Context, responder, requester string, accept bool) (*model.Friendship, error) {
	mine, theirs, err := o.friendships.GetPair(ctx, responder, requester)
	if err != nil {
		return nil, err
	}
	if mine == nil || theirs == nil {
		return nil, fmt.Errorf("%w: no request between %s and %s", service.ErrInvalidState, responder, requester)
	}

	if !accept {
		ok, err := o.friendships.Reject(ctx, mine, theirs)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, service.ErrConflict
		}
		o.pusher.PushToIdentity(ctxmeta.Detach(ctx), requester, model.NewFriendshipRemoved(responder))
		return nil, nil
	}

	ok, err := o.friendships.Accept(ctx, mine, theirs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, service.ErrConflict
	}

	pushCtx := ctxmeta.Detach(ctx)
	o.pusher.PushToIdentity(pushCtx, requester, model.NewFriendshipUpdated(theirs))
	profile, err := o.users.GetCurrentProfile(pushCtx, responder)
	if err != nil {
		logger.Warn(pushCtx, "读取资料快照失败，跳过资料推送",
			logger.String("user_name", responder),
			logger.ErrorField("error", err),
		)
		return mine, nil
	}
	o.pusher.PushToIdentity(pushCtx, requester, model.NewProfileUpdated(profile))
	return mine, nil
}

// RemoveFriend 删除关系（任意状态），成功后通知对端
func (o *Orchestrator) RemoveFriend(ctx context.Context, requester, target string) error {
	mine, theirs, err := o.friendships.GetPair(ctx, requester, target)
	if err != nil {
		return err
	}
	if mine == nil || theirs == nil {
		return fmt.Errorf("%w: no relationship between %s and %s", service.ErrConflict, requester, target)
	}

	ok, err := o.friendships.RemovePair(ctx, mine, theirs)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrConflict
	}

	o.pusher.PushToIdentity(ctxmeta.Detach(ctx), target, model.NewFriendshipRemoved(requester))
	return nil
}

func (o *Orchestrator) ListFriends(ctx context.Context, identity string) ([]*model.Profile, error) {
	names, err := o.friendships.ListFriendUserNames(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*model.Profile{}, nil
	}
	return o.users.GetProfiles(ctx, names)
}

func (o *Orchestrator) ListRelationships(ctx context.Context, identity string, mutual *bool) ([]*model.Friendship, error) {
	return o.friendships.ListRelationships(ctx, identity, mutual)
}

// UpdateProfile 更新资料，刷新好友行上的冗余姓名，再推送给全部好友
func (o *Orchestrator) UpdateProfile(ctx context.Context, userName string, patch model.ProfilePatch) (*model.Profile, error) {
	profile, err := o.users.UpdateProfile(ctx, userName, patch)
	if err != nil {
		return nil, err
	}

	pushCtx := ctxmeta.Detach(ctx)
	if err := o.friendships.RefreshPeerNames(pushCtx, profile); err != nil {
		logger.Warn(pushCtx, "刷新好友冗余姓名失败",
			logger.String("user_name", userName),
			logger.ErrorField("error", err),
		)
	}
	o.propagateProfile(pushCtx, profile)
	return profile, nil
}

// SetPresence 在线状态发生变化时向好友推送最新资料
func (o *Orchestrator) SetPresence(ctx context.Context, userName string, online bool) error {
	changed, err := o.users.SetOnline(ctx, userName, online)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	pushCtx := ctxmeta.Detach(ctx)
	profile, err := o.users.GetCurrentProfile(pushCtx, userName)
	if err != nil {
		return err
	}
	o.propagateProfile(pushCtx, profile)
	return nil
}

// propagateProfile 一次好友列表快照用于整个扇出
func (o *Orchestrator) propagateProfile(ctx context.Context, profile *model.Profile) {
	friends, err := o.friendships.ListFriendUserNames(ctx, profile.UserName)
	if err != nil {
		logger.Warn(ctx, "读取好友列表失败，跳过资料推送",
			logger.String("user_name", profile.UserName),
			logger.ErrorField("error", err),
		)
		return
	}
	if len(friends) == 0 {
		return
	}
	report := o.pusher.PushToIdentities(ctx, friends, model.NewProfileUpdated(profile))
	logger.Debug(ctx, "资料变更已推送",
		logger.String("user_name", profile.UserName),
		logger.Int("friends", len(friends)),
		logger.Int("attempts", report.Attempts),
		logger.Int("delivered", report.Delivered),
		logger.Int("not_local", report.NotLocal),
	)
}

// DeleteUser 删除用户及其全部关系（同一事务），提交后通知每个原对端
func (o *Orchestrator) DeleteUser(ctx context.Context, userName string) error {
	peers, err := o.users.Delete(ctx, userName)
	if err != nil {
		return err
	}

	if len(peers) > 0 {
		o.pusher.PushToIdentities(ctxmeta.Detach(ctx), peers, model.NewFriendshipRemoved(userName))
	}
	return nil
}

// ListMessages 与好友之间最近的消息，按 id 倒序；非好友返回 ErrInvalidState
func (o *Orchestrator) ListMessages(ctx context.Context, userName, friendUserName string, limit int) ([]*model.Message, error) {
	friendUserName = strings.TrimSpace(friendUserName)
	if _, err := o.users.FindByName(ctx, friendUserName); err != nil {
		return nil, err
	}
	friends, err := o.friendships.AreFriends(ctx, userName, friendUserName)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, fmt.Errorf("%w: %s and %s are not friends", service.ErrInvalidState, userName, friendUserName)
	}

	msgs, err := o.messages.ListBetween(ctx, userName, friendUserName, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrUnavailable, err)
	}
	return msgs, nil
}

// PostMessage 好友之间发消息，落库后推送给接收方
func (o *Orchestrator) PostMessage(ctx context.Context, author, recipient, data string) (*model.Message, error) {
	recipient = strings.TrimSpace(recipient)
	if _, err := o.users.FindByName(ctx, recipient); err != nil {
		return nil, err
	}
	friends, err := o.friendships.AreFriends(ctx, author, recipient)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, fmt.Errorf("%w: %s and %s are not friends", service.ErrInvalidState, author, recipient)
	}

	msg := &model.Message{
		Id:        util.NextID(),
		Author:    author,
		Recipient: recipient,
		Data:      data,
	}
	if err := o.messages.Create(ctx, msg); err != nil {
		logger.Warn(ctx, "消息保存失败",
			logger.String("author", author),
			logger.String("recipient", recipient),
			logger.ErrorField("error", err),
		)
		return nil, fmt.Errorf("%w: %v", service.ErrConflict, err)
	}

	o.pusher.PushToIdentity(ctxmeta.Detach(ctx), recipient, model.NewMessagePosted(msg))
	return msg, nil
}
