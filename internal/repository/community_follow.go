package repository

import (
	"context"
	"time"

	"fedisync/internal/model"

	"gorm.io/gorm/clause"
)

type CommunityFollowRepository interface {
	Create(ctx context.Context, follow *model.CommunityFollow) error
	DeleteByInstance(ctx context.Context, instanceID int64) error
	DeleteByCommunity(ctx context.Context, communityID int64) error
	// FindPending returns follows in the "needs attention" statuses ordered
	// oldest-updated-first, joined with both instances and their lists.
	FindPending(ctx context.Context, statuses []model.FollowStatus, limit int) ([]*model.CommunityFollow, error)
	FindByCommunity(ctx context.Context, communityID int64) ([]*model.CommunityFollow, error)
	UpdateOutcome(ctx context.Context, id int64, status model.FollowStatus, attemptCount int, errorReason *string) error
	// Touch bumps gmt_modified only, cycling a backoff-skipped row to the
	// back of the oldest-first queue.
	Touch(ctx context.Context, id int64) error
	ResetByInstance(ctx context.Context, instanceID int64) error
	ResetByCommunity(ctx context.Context, communityID int64) error
}

func NewCommunityFollowRepository(r *Repository) CommunityFollowRepository {
	return &communityFollowRepository{Repository: r}
}

type communityFollowRepository struct {
	*Repository
}

func (r *communityFollowRepository) Create(ctx context.Context, follow *model.CommunityFollow) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}, {Name: "community_id"}},
		DoNothing: true,
	}).Create(follow).Error
}

func (r *communityFollowRepository) DeleteByInstance(ctx context.Context, instanceID int64) error {
	return r.DB(ctx).Where("instance_id = ?", instanceID).Delete(&model.CommunityFollow{}).Error
}

func (r *communityFollowRepository) DeleteByCommunity(ctx context.Context, communityID int64) error {
	return r.DB(ctx).Where("community_id = ?", communityID).Delete(&model.CommunityFollow{}).Error
}

func (r *communityFollowRepository) FindPending(ctx context.Context, statuses []model.FollowStatus, limit int) ([]*model.CommunityFollow, error) {
	var follows []*model.CommunityFollow
	if err := r.DB(ctx).
		Where("status IN ?", statuses).
		Order("gmt_modified ASC").
		Limit(limit).
		Preload("Instance.Allowed").
		Preload("Instance.Blocked").
		Preload("Community.Instance.Allowed").
		Preload("Community.Instance.Blocked").
		Find(&follows).Error; err != nil {
		return nil, err
	}
	return follows, nil
}

func (r *communityFollowRepository) FindByCommunity(ctx context.Context, communityID int64) ([]*model.CommunityFollow, error) {
	var follows []*model.CommunityFollow
	if err := r.DB(ctx).
		Where("community_id = ?", communityID).
		Preload("Instance.Allowed").
		Preload("Instance.Blocked").
		Preload("Community.Instance.Allowed").
		Preload("Community.Instance.Blocked").
		Find(&follows).Error; err != nil {
		return nil, err
	}
	return follows, nil
}

func (r *communityFollowRepository) UpdateOutcome(ctx context.Context, id int64, status model.FollowStatus, attemptCount int, errorReason *string) error {
	return r.DB(ctx).Model(&model.CommunityFollow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"attempt_count": attemptCount,
			"error_reason":  errorReason,
			"gmt_modified":  time.Now(),
		}).Error
}

func (r *communityFollowRepository) Touch(ctx context.Context, id int64) error {
	return r.DB(ctx).Model(&model.CommunityFollow{}).
		Where("id = ?", id).
		Update("gmt_modified", time.Now()).Error
}

// resets flip status only: attempt_count survives so a flapping pair keeps
// its backoff history until the row itself is deleted and recreated
func (r *communityFollowRepository) ResetByInstance(ctx context.Context, instanceID int64) error {
	return r.DB(ctx).Model(&model.CommunityFollow{}).
		Where("instance_id = ?", instanceID).
		Updates(map[string]interface{}{
			"status":       model.FollowStatusWaiting,
			"gmt_modified": time.Now(),
		}).Error
}

func (r *communityFollowRepository) ResetByCommunity(ctx context.Context, communityID int64) error {
	return r.DB(ctx).Model(&model.CommunityFollow{}).
		Where("community_id = ?", communityID).
		Updates(map[string]interface{}{
			"status":       model.FollowStatusWaiting,
			"gmt_modified": time.Now(),
		}).Error
}
