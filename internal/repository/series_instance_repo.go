package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/model"
)

// SeriesInstanceRepository 系列实例数据访问接口
type SeriesInstanceRepository interface {
	Create(ctx context.Context, instance *model.SeriesInstance) error
	BatchCreate(ctx context.Context, instances []model.SeriesInstance) error
	GetByID(ctx context.Context, id string) (*model.SeriesInstance, error)
	// GetByEntity 按目标实体行反查实例（系列归属查询）
	GetByEntity(ctx context.Context, entityTable, entityID string) (*model.SeriesInstance, error)
	// ListByGroup 按发生时间升序返回组的实例，可选时间窗过滤
	ListByGroup(ctx context.Context, groupID string, from, to *time.Time, offset, limit int) ([]model.SeriesInstance, int64, error)
	// ListBySeries 按发生时间升序返回版本的全部实例
	ListBySeries(ctx context.Context, seriesID string) ([]model.SeriesInstance, error)
	// ListBySeriesFrom 返回版本中发生时间 >= from 的实例（拆分时的再生成范围）
	ListBySeriesFrom(ctx context.Context, seriesID string, from time.Time) ([]model.SeriesInstance, error)
	Update(ctx context.Context, instance *model.SeriesInstance) error
	// DeleteBySeriesFrom 删除版本中发生时间 >= from 的实例，返回删除行数
	DeleteBySeriesFrom(ctx context.Context, seriesID string, from time.Time) (int64, error)
	CountByGroup(ctx context.Context, groupID string) (int64, error)
}

type seriesInstanceRepo struct {
	db *gorm.DB
}

// NewSeriesInstanceRepo 创建 SeriesInstanceRepository 实例
func NewSeriesInstanceRepo(db *gorm.DB) SeriesInstanceRepository {
	return &seriesInstanceRepo{db: db}
}

func (r *seriesInstanceRepo) Create(ctx context.Context, instance *model.SeriesInstance) error {
	return r.db.WithContext(ctx).Create(instance).Error
}

func (r *seriesInstanceRepo) BatchCreate(ctx context.Context, instances []model.SeriesInstance) error {
	if len(instances) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(instances, 200).Error
}

func (r *seriesInstanceRepo) GetByID(ctx context.Context, id string) (*model.SeriesInstance, error) {
	var instance model.SeriesInstance
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", id).
		First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *seriesInstanceRepo) GetByEntity(ctx context.Context, entityTable, entityID string) (*model.SeriesInstance, error) {
	var instance model.SeriesInstance
	err := r.db.WithContext(ctx).
		Where("entity_table = ? AND entity_id = ?", entityTable, entityID).
		First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *seriesInstanceRepo) ListByGroup(ctx context.Context, groupID string, from, to *time.Time, offset, limit int) ([]model.SeriesInstance, int64, error) {
	var instances []model.SeriesInstance
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.SeriesInstance{}).
		Where("group_id = ?", groupID)
	if from != nil {
		db = db.Where("occurrence_date >= ?", from.UTC())
	}
	if to != nil {
		db = db.Where("occurrence_date < ?", to.UTC())
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("occurrence_date ASC").
		Offset(offset).
		Limit(limit).
		Find(&instances).Error
	return instances, total, err
}

func (r *seriesInstanceRepo) ListBySeries(ctx context.Context, seriesID string) ([]model.SeriesInstance, error) {
	var instances []model.SeriesInstance
	err := r.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("occurrence_date ASC").
		Find(&instances).Error
	return instances, err
}

func (r *seriesInstanceRepo) ListBySeriesFrom(ctx context.Context, seriesID string, from time.Time) ([]model.SeriesInstance, error) {
	var instances []model.SeriesInstance
	err := r.db.WithContext(ctx).
		Where("series_id = ? AND occurrence_date >= ?", seriesID, from.UTC()).
		Order("occurrence_date ASC").
		Find(&instances).Error
	return instances, err
}

func (r *seriesInstanceRepo) Update(ctx context.Context, instance *model.SeriesInstance) error {
	return r.db.WithContext(ctx).Save(instance).Error
}

func (r *seriesInstanceRepo) DeleteBySeriesFrom(ctx context.Context, seriesID string, from time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("series_id = ? AND occurrence_date >= ?", seriesID, from.UTC()).
		Delete(&model.SeriesInstance{})
	return res.RowsAffected, res.Error
}

func (r *seriesInstanceRepo) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SeriesInstance{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}
