package service

import (
	"context"
	"testing"
	"time"

	"StatusServer/apps/status/internal/repository"
	"StatusServer/apps/status/internal/testutil"
	"StatusServer/config"
	"StatusServer/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUserRepo struct {
	repository.IUserRepository
	gets int
}

func (r *countingUserRepo) GetByName(ctx context.Context, userName string) (*model.User, error) {
	r.gets++
	return r.IUserRepository.GetByName(ctx, userName)
}

func newUserServiceWithStore(t *testing.T, names ...string) (IUserService, *countingUserRepo) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.SeedUsers(t, db, names...)
	repo := &countingUserRepo{IUserRepository: repository.NewUserRepository(db)}
	return NewUserService(repo, config.CacheConfig{ProfileSize: 16, ProfileTTL: time.Minute}), repo
}

func TestUserServiceFindByName(t *testing.T) {
	initServiceTestLogger()
	ctx := context.Background()

	t.Run("cached_after_first_read", func(t *testing.T) {
		svc, repo := newUserServiceWithStore(t, "alice")

		u, err := svc.FindByName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "First_alice", u.FirstName)

		// 修改返回值不能污染缓存
		u.FirstName = "mutated"

		again, err := svc.FindByName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "First_alice", again.FirstName)
		assert.Equal(t, 1, repo.gets)
	})

	t.Run("missing_user", func(t *testing.T) {
		svc, _ := newUserServiceWithStore(t)
		_, err := svc.FindByName(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserServiceRegister(t *testing.T) {
	initServiceTestLogger()
	ctx := context.Background()
	svc, _ := newUserServiceWithStore(t, "alice")

	p, err := svc.Register(ctx, "  bob ", " Bob", "Builder ")
	require.NoError(t, err)
	assert.Equal(t, "bob", p.UserName)
	assert.Equal(t, "Bob", p.FirstName)
	assert.Equal(t, "Builder", p.LastName)

	_, err = svc.Register(ctx, "alice", "A", "B")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, "   ", "A", "B")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUserServiceUpdateProfileInvalidatesCache(t *testing.T) {
	initServiceTestLogger()
	ctx := context.Background()
	svc, repo := newUserServiceWithStore(t, "alice")

	_, err := svc.FindByName(ctx, "alice")
	require.NoError(t, err)

	first := "Alicia"
	p, err := svc.UpdateProfile(ctx, "alice", model.ProfilePatch{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", p.FirstName)
	assert.Equal(t, "Last_alice", p.LastName)

	u, err := svc.FindByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.FirstName)
	assert.Equal(t, 2, repo.gets)

	_, err = svc.UpdateProfile(ctx, "ghost", model.ProfilePatch{FirstName: &first})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserServiceSetOnline(t *testing.T) {
	initServiceTestLogger()
	ctx := context.Background()
	svc, _ := newUserServiceWithStore(t, "alice")

	changed, err := svc.SetOnline(ctx, "alice", true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.SetOnline(ctx, "alice", true)
	require.NoError(t, err)
	assert.False(t, changed)

	p, err := svc.GetCurrentProfile(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, p.Online)

	changed, err = svc.SetOnline(ctx, "alice", false)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestUserServiceGetProfilesAndDelete(t *testing.T) {
	initServiceTestLogger()
	ctx := context.Background()
	svc, _ := newUserServiceWithStore(t, "alice", "bob", "carol")

	profiles, err := svc.GetProfiles(ctx, []string{"carol", "ghost", "alice"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "carol", profiles[0].UserName)
	assert.Equal(t, "alice", profiles[1].UserName)

	_, err = svc.FindByName(ctx, "bob")
	require.NoError(t, err)
	peers, err := svc.Delete(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, peers)

	_, err = svc.FindByName(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Delete(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}
