package repository

import (
	"context"
	"errors"

	"fedisync/internal/model"

	"gorm.io/gorm"
)

type InstanceRepository interface {
	Create(ctx context.Context, instance *model.Instance) error
	Update(ctx context.Context, instance *model.Instance) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Instance, error)
	GetByHost(ctx context.Context, host string) (*model.Instance, error)
	List(ctx context.Context, enabledOnly bool) ([]*model.Instance, error)
	ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Instance, int64, error)
	ListAutoAdd(ctx context.Context) ([]*model.Instance, error)
	AddAllowed(ctx context.Context, instance, allowed *model.Instance) error
	RemoveAllowed(ctx context.Context, instance, allowed *model.Instance) error
	AddBlocked(ctx context.Context, instance, blocked *model.Instance) error
	RemoveBlocked(ctx context.Context, instance, blocked *model.Instance) error
}

func NewInstanceRepository(r *Repository) InstanceRepository {
	return &instanceRepository{Repository: r}
}

type instanceRepository struct {
	*Repository
}

func (r *instanceRepository) Create(ctx context.Context, instance *model.Instance) error {
	return r.DB(ctx).Create(instance).Error
}

func (r *instanceRepository) Update(ctx context.Context, instance *model.Instance) error {
	return r.DB(ctx).Save(instance).Error
}

func (r *instanceRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.Instance{}).Error
}

func (r *instanceRepository) GetByID(ctx context.Context, id int64) (*model.Instance, error) {
	var instance model.Instance
	if err := r.DB(ctx).Preload("Allowed").Preload("Blocked").Where("id = ?", id).First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

func (r *instanceRepository) GetByHost(ctx context.Context, host string) (*model.Instance, error) {
	var instance model.Instance
	if err := r.DB(ctx).Preload("Allowed").Preload("Blocked").Where("host = ?", host).First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

func (r *instanceRepository) List(ctx context.Context, enabledOnly bool) ([]*model.Instance, error) {
	var instances []*model.Instance
	query := r.DB(ctx)
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Order("enabled DESC, id ASC").Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *instanceRepository) ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.Instance, int64, error) {
	var instances []*model.Instance
	var total int64

	query := r.DB(ctx).Model(&model.Instance{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("enabled DESC, id ASC").Offset(offset).Limit(pageSize).Find(&instances).Error; err != nil {
		return nil, 0, err
	}

	return instances, total, nil
}

func (r *instanceRepository) ListAutoAdd(ctx context.Context) ([]*model.Instance, error) {
	var instances []*model.Instance
	if err := r.DB(ctx).
		Where("enabled = ? AND approved = ? AND auto_add = ?", true, true, true).
		Where("client_id IS NOT NULL AND client_secret IS NOT NULL").
		Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *instanceRepository) AddAllowed(ctx context.Context, instance, allowed *model.Instance) error {
	return r.DB(ctx).Model(instance).Association("Allowed").Append(allowed)
}

func (r *instanceRepository) RemoveAllowed(ctx context.Context, instance, allowed *model.Instance) error {
	return r.DB(ctx).Model(instance).Association("Allowed").Delete(allowed)
}

func (r *instanceRepository) AddBlocked(ctx context.Context, instance, blocked *model.Instance) error {
	return r.DB(ctx).Model(instance).Association("Blocked").Append(blocked)
}

func (r *instanceRepository) RemoveBlocked(ctx context.Context, instance, blocked *model.Instance) error {
	return r.DB(ctx).Model(instance).Association("Blocked").Delete(blocked)
}
