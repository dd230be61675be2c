package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StatusServer/apps/status/internal/repository"
	"StatusServer/model"
	"StatusServer/pkg/logger"
)

// friendshipServiceImpl 好友关系状态机实现
// 成对写入依赖仓储层事务 + 版本号 CAS，不额外加应用层锁。
type friendshipServiceImpl struct {
	friendshipRepo repository.IFriendshipRepository
	users          UserLookup
	now            func() time.Time
}

// FriendshipOption 状态机可选参数
type FriendshipOption func(*friendshipServiceImpl)

// WithClock 替换时间源（测试用）
func WithClock(now func() time.Time) FriendshipOption {
	return func(s *friendshipServiceImpl) {
		s.now = now
	}
}

// NewFriendshipService 创建好友关系状态机
func NewFriendshipService(friendshipRepo repository.IFriendshipRepository, users UserLookup, opts ...FriendshipOption) IFriendshipService {
	s := &friendshipServiceImpl{
		friendshipRepo: friendshipRepo,
		users:          users,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePair 建立待确认关系
// 发起方一侧预先同意（Accepted=true），接收方一侧等待确认（Accepted=false）
func (s *friendshipServiceImpl) CreatePair(ctx context.Context, requester, target string) (*model.Friendship, error) {
	if requester == target {
		return nil, ErrSelfRelationship
	}

	requesterUser, err := s.users.FindByName(ctx, requester)
	if err != nil {
		return nil, err
	}
	targetUser, err := s.users.FindByName(ctx, target)
	if err != nil {
		return nil, err
	}

	mine, theirs, err := s.friendshipRepo.GetPair(ctx, requester, target)
	if err != nil {
		logger.Warn(ctx, "查询好友关系失败",
			logger.String("requester", requester),
			logger.String("target", target),
			logger.ErrorField("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if mine != nil || theirs != nil {
		return nil, ErrAlreadyExists
	}

	mine = &model.Friendship{
		UserName:        requester,
		FriendUserName:  target,
		Accepted:        true,
		FriendFirstName: targetUser.FirstName,
		FriendLastName:  targetUser.LastName,
		Version:         1,
	}
	theirs = &model.Friendship{
		UserName:        target,
		FriendUserName:  requester,
		Accepted:        false,
		FriendFirstName: requesterUser.FirstName,
		FriendLastName:  requesterUser.LastName,
		Version:         1,
	}

	if err := s.friendshipRepo.CreatePair(ctx, mine, theirs); err != nil {
		// 唯一键冲突说明并发请求抢先建立了关系
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrAlreadyExists
		}
		logger.Warn(ctx, "创建好友关系提交失败",
			logger.String("requester", requester),
			logger.String("target", target),
			logger.ErrorField("error", err),
		)
		return nil, ErrConflict
	}

	return mine, nil
}

// GetPair 查询两侧行
func (s *friendshipServiceImpl) GetPair(ctx context.Context, userName, friendUserName string) (*model.Friendship, *model.Friendship, error) {
	mine, theirs, err := s.friendshipRepo.GetPair(ctx, userName, friendUserName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return mine, theirs, nil
}

// Accept 同意申请
// mine 必须是接收方一侧（尚未同意），theirs 是发起方一侧。
// 两行写入同一个时间戳；提交失败不抛错，返回 false 由调用方决定重试或提示冲突。
func (s *friendshipServiceImpl) Accept(ctx context.Context, mine, theirs *model.Friendship) (bool, error) {
	if err := checkPair(mine, theirs); err != nil {
		return false, err
	}
	if !mine.IsPending() || mine.IsOutgoing() || !theirs.IsOutgoing() {
		return false, fmt.Errorf("%w: %s has no pending request from %s", ErrInvalidState, mine.UserName, mine.FriendUserName)
	}

	becameAt := s.now().UTC()
	if err := s.friendshipRepo.AcceptPair(ctx, mine, theirs, becameAt); err != nil {
		s.logCommitFailure(ctx, "accept", mine, err)
		return false, nil
	}

	for _, row := range []*model.Friendship{mine, theirs} {
		at := becameAt
		row.Accepted = true
		row.AreFriends = true
		row.BecameFriendsAt = &at
		row.Version++
	}
	return true, nil
}

// Reject 拒绝申请，只能作用于尚未成为好友的关系
func (s *friendshipServiceImpl) Reject(ctx context.Context, mine, theirs *model.Friendship) (bool, error) {
	if err := checkPair(mine, theirs); err != nil {
		return false, err
	}
	if !mine.IsPending() || !theirs.IsPending() {
		return false, fmt.Errorf("%w: %s and %s are already friends", ErrInvalidState, mine.UserName, mine.FriendUserName)
	}
	return s.deletePair(ctx, "reject", mine, theirs), nil
}

// RemovePair 删除关系
func (s *friendshipServiceImpl) RemovePair(ctx context.Context, mine, theirs *model.Friendship) (bool, error) {
	if err := checkPair(mine, theirs); err != nil {
		return false, err
	}
	return s.deletePair(ctx, "remove", mine, theirs), nil
}

func (s *friendshipServiceImpl) deletePair(ctx context.Context, op string, mine, theirs *model.Friendship) bool {
	if err := s.friendshipRepo.DeletePair(ctx, mine, theirs); err != nil {
		s.logCommitFailure(ctx, op, mine, err)
		return false
	}
	return true
}

func (s *friendshipServiceImpl) ListFriendUserNames(ctx context.Context, userName string) ([]string, error) {
	names, err := s.friendshipRepo.ListFriendUserNames(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return names, nil
}

func (s *friendshipServiceImpl) ListRelationships(ctx context.Context, userName string, mutual *bool) ([]*model.Friendship, error) {
	rows, err := s.friendshipRepo.ListByUser(ctx, userName, mutual)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rows, nil
}

func (s *friendshipServiceImpl) AreFriends(ctx context.Context, a, b string) (bool, error) {
	mine, theirs, err := s.friendshipRepo.GetPair(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return mine != nil && theirs != nil && mine.AreFriends && theirs.AreFriends, nil
}

func (s *friendshipServiceImpl) RefreshPeerNames(ctx context.Context, profile *model.Profile) error {
	if profile == nil {
		return nil
	}
	if _, err := s.friendshipRepo.RefreshPeerNames(ctx, profile.UserName, profile.FirstName, profile.LastName); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *friendshipServiceImpl) logCommitFailure(ctx context.Context, op string, mine *model.Friendship, err error) {
	logger.Warn(ctx, "好友关系事务提交失败",
		logger.String("op", op),
		logger.String("user_name", mine.UserName),
		logger.String("friend_user_name", mine.FriendUserName),
		logger.Bool("version_conflict", errors.Is(err, repository.ErrVersionConflict)),
		logger.ErrorField("error", err),
	)
}

// checkPair 两侧行都存在且互为对端
func checkPair(mine, theirs *model.Friendship) error {
	if mine == nil || theirs == nil {
		return fmt.Errorf("%w: relationship side missing", ErrInvalidState)
	}
	if !mine.IsCounterpartOf(theirs) {
		return fmt.Errorf("%w: rows %s->%s and %s->%s are not a pair", ErrInvalidState,
			mine.UserName, mine.FriendUserName, theirs.UserName, theirs.FriendUserName)
	}
	return nil
}
