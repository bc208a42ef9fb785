package repository

import (
	"context"
	"errors"

	"fedisync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityRepository interface {
	Upsert(ctx context.Context, community *model.Community) error
	Delete(ctx context.Context, id int64) error
	DeleteByInstance(ctx context.Context, instanceID int64) error
	GetByNameAndInstance(ctx context.Context, name string, instanceID int64) (*model.Community, error)
	List(ctx context.Context) ([]*model.Community, error)
	ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Community, int64, error)
}

func NewCommunityRepository(r *Repository) CommunityRepository {
	return &communityRepository{Repository: r}
}

type communityRepository struct {
	*Repository
}

func (r *communityRepository) Upsert(ctx context.Context, community *model.Community) error {
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"gmt_modified"}),
	}).Create(community).Error
}

func (r *communityRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.Community{}).Error
}

func (r *communityRepository) DeleteByInstance(ctx context.Context, instanceID int64) error {
	return r.DB(ctx).Where("instance_id = ?", instanceID).Delete(&model.Community{}).Error
}

func (r *communityRepository) GetByNameAndInstance(ctx context.Context, name string, instanceID int64) (*model.Community, error) {
	var community model.Community
	if err := r.DB(ctx).Preload("Instance").
		Where("name = ? AND instance_id = ?", name, instanceID).
		First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) List(ctx context.Context) ([]*model.Community, error) {
	var communities []*model.Community
	if err := r.DB(ctx).Preload("Instance").Find(&communities).Error; err != nil {
		return nil, err
	}
	return communities, nil
}

func (r *communityRepository) ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Community, int64, error) {
	var communities []*model.Community
	var total int64

	query := r.DB(ctx).Model(&model.Community{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := r.DB(ctx).Preload("Instance").
		Order("id DESC").Offset(offset).Limit(pageSize).
		Find(&communities).Error; err != nil {
		return nil, 0, err
	}

	return communities, total, nil
}
