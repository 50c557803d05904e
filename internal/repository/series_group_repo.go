package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/model"
)

// SeriesGroupRepository 系列组数据访问接口
type SeriesGroupRepository interface {
	Create(ctx context.Context, group *model.SeriesGroup) error
	GetByID(ctx context.Context, id string) (*model.SeriesGroup, error)
	List(ctx context.Context, entityTable string, offset, limit int) ([]model.SeriesGroup, int64, error)
	Update(ctx context.Context, group *model.SeriesGroup) error
	// Delete 硬删除组（依赖外键级联删除版本与实例）
	Delete(ctx context.Context, id string) error
}

type seriesGroupRepo struct {
	db *gorm.DB
}

// NewSeriesGroupRepo 创建 SeriesGroupRepository 实例
func NewSeriesGroupRepo(db *gorm.DB) SeriesGroupRepository {
	return &seriesGroupRepo{db: db}
}

func (r *seriesGroupRepo) Create(ctx context.Context, group *model.SeriesGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *seriesGroupRepo) GetByID(ctx context.Context, id string) (*model.SeriesGroup, error) {
	var group model.SeriesGroup
	err := r.db.WithContext(ctx).
		Where("group_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *seriesGroupRepo) List(ctx context.Context, entityTable string, offset, limit int) ([]model.SeriesGroup, int64, error) {
	var groups []model.SeriesGroup
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SeriesGroup{})
	if entityTable != "" {
		db = db.Where("entity_table = ?", entityTable)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&groups).Error
	return groups, total, err
}

func (r *seriesGroupRepo) Update(ctx context.Context, group *model.SeriesGroup) error {
	return r.db.WithContext(ctx).Save(group).Error
}

func (r *seriesGroupRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("group_id = ?", id).
		Delete(&model.SeriesGroup{}).Error
}
