package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"StatusServer/apps/status/internal/repository"
	"StatusServer/config"
	"StatusServer/model"
	"StatusServer/pkg/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// userServiceImpl 用户资料服务实现
// 资料读多写少，进程内用带过期的 LRU 缓存；所有写操作成功后立即失效对应条目。
type userServiceImpl struct {
	userRepo repository.IUserRepository
	cache    *expirable.LRU[string, model.User]
}

// NewUserService 创建用户资料服务
func NewUserService(userRepo repository.IUserRepository, cacheCfg config.CacheConfig) IUserService {
	size := cacheCfg.ProfileSize
	if size <= 0 {
		size = config.DefaultCacheConfig().ProfileSize
	}
	return &userServiceImpl{
		userRepo: userRepo,
		cache:    expirable.NewLRU[string, model.User](size, nil, cacheCfg.ProfileTTL),
	}
}

// FindByName 身份查询（先查缓存）
func (s *userServiceImpl) FindByName(ctx context.Context, userName string) (*model.User, error) {
	if cached, ok := s.cache.Get(userName); ok {
		u := cached
		return &u, nil
	}

	user, err := s.userRepo.GetByName(ctx, userName)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userName)
		}
		logger.Error(ctx, "查询用户资料失败",
			logger.String("user_name", userName),
			logger.ErrorField("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.cache.Add(userName, *user)
	return user, nil
}

func (s *userServiceImpl) GetCurrentProfile(ctx context.Context, userName string) (*model.Profile, error) {
	user, err := s.FindByName(ctx, userName)
	if err != nil {
		return nil, err
	}
	return user.ToProfile(), nil
}

func (s *userServiceImpl) GetProfiles(ctx context.Context, userNames []string) ([]*model.Profile, error) {
	users, err := s.userRepo.BatchGetByNames(ctx, userNames)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	profiles := make([]*model.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.ToProfile())
	}
	return profiles, nil
}

func (s *userServiceImpl) Register(ctx context.Context, userName, firstName, lastName string) (*model.Profile, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, fmt.Errorf("%w: empty user name", ErrInvalidState)
	}
	user := &model.User{
		UserName:  userName,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user %s exists", ErrConflict, userName)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.cache.Remove(userName)
	return user.ToProfile(), nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, userName string, patch model.ProfilePatch) (*model.Profile, error) {
	user, err := s.userRepo.UpdateProfile(ctx, userName, patch)
	s.cache.Remove(userName)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userName)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return user.ToProfile(), nil
}

func (s *userServiceImpl) SetOnline(ctx context.Context, userName string, online bool) (bool, error) {
	changed, err := s.userRepo.SetOnline(ctx, userName, online)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if changed {
		s.cache.Remove(userName)
	}
	return changed, nil
}

func (s *userServiceImpl) Delete(ctx context.Context, userName string) ([]string, error) {
	peers, err := s.userRepo.Delete(ctx, userName)
	s.cache.Remove(userName)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userName)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return peers, nil
}
