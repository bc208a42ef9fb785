package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"fedisync/internal/model"
	"fedisync/pkg/log"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	conf := viper.New()
	conf.Set("log.log_level", "error")
	conf.Set("log.log_file_name", "/tmp/fedisync-test.log")
	return log.NewLog(conf)
}

type outcome struct {
	status       model.FollowStatus
	attemptCount int
	errorReason  *string
}

type fakeFollowRepo struct {
	mu       sync.Mutex
	rows     []*model.CommunityFollow
	outcomes map[int64]outcome
	touched  []int64
}

func (r *fakeFollowRepo) Create(ctx context.Context, follow *model.CommunityFollow) error {
	return nil
}
func (r *fakeFollowRepo) DeleteByInstance(ctx context.Context, instanceID int64) error { return nil }
func (r *fakeFollowRepo) DeleteByCommunity(ctx context.Context, communityID int64) error { return nil }
func (r *fakeFollowRepo) FindPending(ctx context.Context, statuses []model.FollowStatus, limit int) ([]*model.CommunityFollow, error) {
	return r.rows, nil
}
func (r *fakeFollowRepo) FindByCommunity(ctx context.Context, communityID int64) ([]*model.CommunityFollow, error) {
	return nil, nil
}
func (r *fakeFollowRepo) UpdateOutcome(ctx context.Context, id int64, status model.FollowStatus, attemptCount int, errorReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[int64]outcome)
	}
	r.outcomes[id] = outcome{status: status, attemptCount: attemptCount, errorReason: errorReason}
	return nil
}
func (r *fakeFollowRepo) Touch(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}
func (r *fakeFollowRepo) ResetByInstance(ctx context.Context, instanceID int64) error { return nil }
func (r *fakeFollowRepo) ResetByCommunity(ctx context.Context, communityID int64) error { return nil }

type scriptedFollows struct {
	status model.FollowStatus
	err    error
	panics bool

	mu    sync.Mutex
	calls int
}

func (s *scriptedFollows) ConditionalFollow(ctx context.Context, follow *model.CommunityFollow) (model.FollowStatus, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("scripted panic")
	}
	return s.status, s.err
}

func (s *scriptedFollows) ConditionalFollowAll(ctx context.Context, communityID int64) error {
	return nil
}

func (s *scriptedFollows) UnfollowAll(ctx context.Context, instance *model.Instance) error {
	return nil
}

func newTestScheduler(repo *fakeFollowRepo, follows *scriptedFollows) *Scheduler {
	return NewScheduler(viper.New(), newTestLogger(), repo, follows)
}

func TestSweepEvaluatesEligibleRows(t *testing.T) {
	repo := &fakeFollowRepo{rows: []*model.CommunityFollow{
		{Id: 1, Status: model.FollowStatusWaiting, AttemptCount: 0, CreateTime: time.Now().Add(-48 * time.Hour)},
	}}
	follows := &scriptedFollows{status: model.FollowStatusFederatedByBot}

	newTestScheduler(repo, follows).Sweep(context.Background())

	assert.Equal(t, 1, follows.calls)
	require.Contains(t, repo.outcomes, int64(1))
	assert.Equal(t, model.FollowStatusFederatedByBot, repo.outcomes[1].status)
	assert.Equal(t, 1, repo.outcomes[1].attemptCount)
	assert.Nil(t, repo.outcomes[1].errorReason)
	assert.Empty(t, repo.touched)
}

func TestSweepSkipsBackedOffRows(t *testing.T) {
	repo := &fakeFollowRepo{rows: []*model.CommunityFollow{
		// attempt 5 backs off ~25 days, created yesterday: not due
		{Id: 2, Status: model.FollowStatusError, AttemptCount: 5, CreateTime: time.Now().Add(-24 * time.Hour)},
	}}
	follows := &scriptedFollows{status: model.FollowStatusFederatedByBot}

	newTestScheduler(repo, follows).Sweep(context.Background())

	assert.Zero(t, follows.calls)
	assert.Empty(t, repo.outcomes)
	assert.Equal(t, []int64{2}, repo.touched)
}

func TestSweepRecordsRetryableFailure(t *testing.T) {
	repo := &fakeFollowRepo{rows: []*model.CommunityFollow{
		{Id: 3, Status: model.FollowStatusWaiting, AttemptCount: 2, CreateTime: time.Now().Add(-30 * 24 * time.Hour)},
	}}
	follows := &scriptedFollows{err: context.DeadlineExceeded}

	newTestScheduler(repo, follows).Sweep(context.Background())

	require.Contains(t, repo.outcomes, int64(3))
	assert.Equal(t, model.FollowStatusError, repo.outcomes[3].status)
	assert.Equal(t, 3, repo.outcomes[3].attemptCount)
	require.NotNil(t, repo.outcomes[3].errorReason)
}

func TestSweepContainsPanics(t *testing.T) {
	repo := &fakeFollowRepo{rows: []*model.CommunityFollow{
		{Id: 4, Status: model.FollowStatusWaiting, AttemptCount: 0, CreateTime: time.Now().Add(-48 * time.Hour)},
	}}
	follows := &scriptedFollows{panics: true}

	// must not propagate the panic
	newTestScheduler(repo, follows).Sweep(context.Background())

	require.Contains(t, repo.outcomes, int64(4))
	assert.Equal(t, model.FollowStatusError, repo.outcomes[4].status)
	require.NotNil(t, repo.outcomes[4].errorReason)
	assert.Equal(t, "unknown", *repo.outcomes[4].errorReason)
}
