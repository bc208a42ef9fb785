package repository

import (
	"context"
	"testing"

	"fedisync/internal/model"
	"fedisync/pkg/log"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	conf := viper.New()
	conf.Set("log.log_level", "error")
	conf.Set("log.log_file_name", "/tmp/fedisync-test.log")
	return NewRepository(db, nil, log.NewLog(conf))
}

func seedFollowFixture(t *testing.T, repo *Repository) (*model.Instance, *model.Instance, *model.Community) {
	t.Helper()
	ctx := context.Background()
	instanceRepo := NewInstanceRepository(repo)

	home := &model.Instance{Host: "a.example", Enabled: true, Approved: true, Software: model.SoftwareLemmy}
	remote := &model.Instance{Host: "b.example", Enabled: true, Approved: true, Software: model.SoftwareLemmy}
	require.NoError(t, instanceRepo.Create(ctx, home))
	require.NoError(t, instanceRepo.Create(ctx, remote))

	communityRepo := NewCommunityRepository(repo)
	community := &model.Community{Name: "linux", InstanceID: remote.Id}
	require.NoError(t, communityRepo.Upsert(ctx, community))
	stored, err := communityRepo.GetByNameAndInstance(ctx, "linux", remote.Id)
	require.NoError(t, err)
	return home, remote, stored
}

func TestCommunityFollowFindPendingOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	followRepo := NewCommunityFollowRepository(repo)
	communityRepo := NewCommunityRepository(repo)

	home, remote, c1 := seedFollowFixture(t, repo)
	c2 := &model.Community{Name: "golang", InstanceID: remote.Id}
	require.NoError(t, communityRepo.Upsert(ctx, c2))
	c2, err := communityRepo.GetByNameAndInstance(ctx, "golang", remote.Id)
	require.NoError(t, err)

	f1 := &model.CommunityFollow{InstanceID: home.Id, CommunityID: c1.Id, Status: model.FollowStatusWaiting}
	f2 := &model.CommunityFollow{InstanceID: home.Id, CommunityID: c2.Id, Status: model.FollowStatusError}
	require.NoError(t, followRepo.Create(ctx, f1))
	require.NoError(t, followRepo.Create(ctx, f2))

	// touching f1 cycles it behind f2
	require.NoError(t, followRepo.Touch(ctx, f1.Id))

	pending, err := followRepo.FindPending(ctx, model.PendingStatuses, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, f2.Id, pending[0].Id)
	assert.Equal(t, f1.Id, pending[1].Id)

	// joins are loaded for the evaluator
	require.NotNil(t, pending[0].Instance)
	require.NotNil(t, pending[0].Community)
	require.NotNil(t, pending[0].Community.Instance)
	assert.Equal(t, "b.example", pending[0].Community.Instance.Host)
}

func TestCommunityFollowFindPendingFiltersStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	followRepo := NewCommunityFollowRepository(repo)

	home, _, community := seedFollowFixture(t, repo)
	follow := &model.CommunityFollow{InstanceID: home.Id, CommunityID: community.Id, Status: model.FollowStatusNotAllowed}
	require.NoError(t, followRepo.Create(ctx, follow))

	pending, err := followRepo.FindPending(ctx, model.PendingStatuses, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCommunityFollowCreateIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	followRepo := NewCommunityFollowRepository(repo)

	home, _, community := seedFollowFixture(t, repo)
	first := &model.CommunityFollow{InstanceID: home.Id, CommunityID: community.Id, Status: model.FollowStatusWaiting}
	require.NoError(t, followRepo.Create(ctx, first))

	dup := &model.CommunityFollow{InstanceID: home.Id, CommunityID: community.Id, Status: model.FollowStatusWaiting}
	require.NoError(t, followRepo.Create(ctx, dup))

	pending, err := followRepo.FindPending(ctx, model.PendingStatuses, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCommunityFollowUpdateOutcome(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	followRepo := NewCommunityFollowRepository(repo)

	home, _, community := seedFollowFixture(t, repo)
	follow := &model.CommunityFollow{InstanceID: home.Id, CommunityID: community.Id, Status: model.FollowStatusWaiting}
	require.NoError(t, followRepo.Create(ctx, follow))

	reason := "rate_limited"
	require.NoError(t, followRepo.UpdateOutcome(ctx, follow.Id, model.FollowStatusError, 3, &reason))

	pending, err := followRepo.FindPending(ctx, model.PendingStatuses, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.FollowStatusError, pending[0].Status)
	assert.Equal(t, 3, pending[0].AttemptCount)
	require.NotNil(t, pending[0].ErrorReason)
	assert.Equal(t, "rate_limited", *pending[0].ErrorReason)
}

func TestCommunityFollowResetByInstance(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	followRepo := NewCommunityFollowRepository(repo)

	home, _, community := seedFollowFixture(t, repo)
	reason := "timeout"
	follow := &model.CommunityFollow{
		InstanceID:   home.Id,
		CommunityID:  community.Id,
		Status:       model.FollowStatusFederatedByUser,
		AttemptCount: 4,
		ErrorReason:  &reason,
	}
	require.NoError(t, followRepo.Create(ctx, follow))

	require.NoError(t, followRepo.ResetByInstance(ctx, home.Id))

	rows, err := followRepo.FindByCommunity(ctx, community.Id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.FollowStatusWaiting, rows[0].Status)
	// the attempt history survives a reset; only deletion clears it
	assert.Equal(t, 4, rows[0].AttemptCount)
	require.NotNil(t, rows[0].ErrorReason)
}
