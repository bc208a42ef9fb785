package service

import (
	"context"
	"testing"

	v1 "fedisync/api/v1"
	"fedisync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstanceRepo struct {
	byHost map[string]*model.Instance
	saved  []*model.Instance
}

func (r *fakeInstanceRepo) Create(ctx context.Context, instance *model.Instance) error { return nil }
func (r *fakeInstanceRepo) Update(ctx context.Context, instance *model.Instance) error {
	r.saved = append(r.saved, instance)
	return nil
}
func (r *fakeInstanceRepo) Delete(ctx context.Context, id int64) error { return nil }
func (r *fakeInstanceRepo) GetByID(ctx context.Context, id int64) (*model.Instance, error) {
	return nil, nil
}
func (r *fakeInstanceRepo) GetByHost(ctx context.Context, host string) (*model.Instance, error) {
	return r.byHost[host], nil
}
func (r *fakeInstanceRepo) List(ctx context.Context, enabledOnly bool) ([]*model.Instance, error) {
	return nil, nil
}
func (r *fakeInstanceRepo) ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Instance, int64, error) {
	return nil, 0, nil
}
func (r *fakeInstanceRepo) ListAutoAdd(ctx context.Context) ([]*model.Instance, error) {
	return nil, nil
}
func (r *fakeInstanceRepo) AddAllowed(ctx context.Context, instance, allowed *model.Instance) error {
	return nil
}
func (r *fakeInstanceRepo) RemoveAllowed(ctx context.Context, instance, allowed *model.Instance) error {
	return nil
}
func (r *fakeInstanceRepo) AddBlocked(ctx context.Context, instance, blocked *model.Instance) error {
	return nil
}
func (r *fakeInstanceRepo) RemoveBlocked(ctx context.Context, instance, blocked *model.Instance) error {
	return nil
}

type fakeInstanceFollowRepo struct {
	resets []int64
}

func (r *fakeInstanceFollowRepo) Create(ctx context.Context, follow *model.CommunityFollow) error {
	return nil
}
func (r *fakeInstanceFollowRepo) DeleteByInstance(ctx context.Context, instanceID int64) error {
	return nil
}
func (r *fakeInstanceFollowRepo) DeleteByCommunity(ctx context.Context, communityID int64) error {
	return nil
}
func (r *fakeInstanceFollowRepo) FindPending(ctx context.Context, statuses []model.FollowStatus, limit int) ([]*model.CommunityFollow, error) {
	return nil, nil
}
func (r *fakeInstanceFollowRepo) FindByCommunity(ctx context.Context, communityID int64) ([]*model.CommunityFollow, error) {
	return nil, nil
}
func (r *fakeInstanceFollowRepo) UpdateOutcome(ctx context.Context, id int64, status model.FollowStatus, attemptCount int, errorReason *string) error {
	return nil
}
func (r *fakeInstanceFollowRepo) Touch(ctx context.Context, id int64) error { return nil }
func (r *fakeInstanceFollowRepo) ResetByInstance(ctx context.Context, instanceID int64) error {
	r.resets = append(r.resets, instanceID)
	return nil
}
func (r *fakeInstanceFollowRepo) ResetByCommunity(ctx context.Context, communityID int64) error {
	return nil
}

type fakeCommunities struct {
	seeded []string
}

func (s *fakeCommunities) Add(ctx context.Context, fullName string) (*model.Community, error) {
	return nil, nil
}
func (s *fakeCommunities) List(ctx context.Context, page, pageSize int) ([]*model.Community, int64, error) {
	return nil, 0, nil
}
func (s *fakeCommunities) GetFollows(ctx context.Context, name, host string) (*model.Community, []*model.CommunityFollow, error) {
	return nil, nil, nil
}
func (s *fakeCommunities) Delete(ctx context.Context, name, host string) error { return nil }
func (s *fakeCommunities) SeedFollowsForInstance(ctx context.Context, instance *model.Instance) error {
	s.seeded = append(s.seeded, instance.Host)
	return nil
}

type fakeFollows struct{}

func (s *fakeFollows) ConditionalFollow(ctx context.Context, follow *model.CommunityFollow) (model.FollowStatus, error) {
	return model.FollowStatusWaiting, nil
}
func (s *fakeFollows) ConditionalFollowAll(ctx context.Context, communityID int64) error { return nil }
func (s *fakeFollows) UnfollowAll(ctx context.Context, instance *model.Instance) error   { return nil }

func newTestInstanceService(repo *fakeInstanceRepo, provider *fakeProvider, followRepo *fakeInstanceFollowRepo, communities *fakeCommunities) InstanceService {
	logger := newTestLogger()
	return NewInstanceService(
		NewService(nil, logger, nil, nil),
		nil,
		provider,
		repo,
		nil,
		followRepo,
		communities,
		&fakeFollows{},
		logger,
	)
}

func TestInstanceUpdateCredentialRotationEvictsCachedClient(t *testing.T) {
	instance := testInstance(1, "a.example")
	repo := &fakeInstanceRepo{byHost: map[string]*model.Instance{"a.example": instance}}
	provider := &fakeProvider{}
	followRepo := &fakeInstanceFollowRepo{}
	svc := newTestInstanceService(repo, provider, followRepo, &fakeCommunities{})

	_, err := svc.Update(context.Background(), "a.example", &v1.UpdateInstanceRequest{
		ClientSecret: strPtr("rotated"),
	})
	require.NoError(t, err)

	// the cached client still holds the old login and must be dropped
	assert.Equal(t, []string{"a.example"}, provider.evicted)
	// settings changed under settled rows: they re-open for the next sweep
	assert.Equal(t, []int64{1}, followRepo.resets)
}

func TestInstanceUpdateGainingCredentialsSeedsFollows(t *testing.T) {
	instance := testInstance(1, "a.example")
	instance.ClientID = nil
	instance.ClientSecret = nil
	repo := &fakeInstanceRepo{byHost: map[string]*model.Instance{"a.example": instance}}
	provider := &fakeProvider{}
	communities := &fakeCommunities{}
	svc := newTestInstanceService(repo, provider, &fakeInstanceFollowRepo{}, communities)

	_, err := svc.Update(context.Background(), "a.example", &v1.UpdateInstanceRequest{
		ClientID:     strPtr("bot"),
		ClientSecret: strPtr("secret"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.example"}, provider.evicted)
	assert.Equal(t, []string{"a.example"}, communities.seeded)
}

func TestInstanceUpdatePlainSettingChangeKeepsClient(t *testing.T) {
	instance := testInstance(1, "a.example")
	repo := &fakeInstanceRepo{byHost: map[string]*model.Instance{"a.example": instance}}
	provider := &fakeProvider{}
	followRepo := &fakeInstanceFollowRepo{}
	svc := newTestInstanceService(repo, provider, followRepo, &fakeCommunities{})

	nsfw := string(model.NSFWAllow)
	_, err := svc.Update(context.Background(), "a.example", &v1.UpdateInstanceRequest{
		NSFW: &nsfw,
	})
	require.NoError(t, err)

	assert.Empty(t, provider.evicted)
	assert.Equal(t, []int64{1}, followRepo.resets)
}
