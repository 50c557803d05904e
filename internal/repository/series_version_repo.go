package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/model"
)

// SeriesVersionRepository 系列版本数据访问接口
//
// 版本链不变量在此层守护：
//   - 同组最多一个当前版本（Create 拒绝第二个）
//   - 终止是一次性的（重复 Terminate 报错且状态不变）
//   - 终止时间不得早于版本起点
type SeriesVersionRepository interface {
	Create(ctx context.Context, version *model.SeriesVersion) error
	GetByID(ctx context.Context, seriesID string) (*model.SeriesVersion, error)
	// GetCurrent 返回组的当前版本；组已结束时返回 gorm.ErrRecordNotFound
	GetCurrent(ctx context.Context, groupID string) (*model.SeriesVersion, error)
	// ListByGroup 按 dtstart 升序返回组的全部版本（版本链视图）
	ListByGroup(ctx context.Context, groupID string) ([]model.SeriesVersion, error)
	// Terminate 终止版本
	Terminate(ctx context.Context, seriesID string, at time.Time) error
	UpdateTemplate(ctx context.Context, seriesID string, template map[string]interface{}) error
}

type seriesVersionRepo struct {
	db *gorm.DB
}

// NewSeriesVersionRepo 创建 SeriesVersionRepository 实例
func NewSeriesVersionRepo(db *gorm.DB) SeriesVersionRepository {
	return &seriesVersionRepo{db: db}
}

func (r *seriesVersionRepo) Create(ctx context.Context, version *model.SeriesVersion) error {
	// 单当前版本守护：已有当前版本时拒绝创建
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SeriesVersion{}).
		Where("group_id = ? AND terminated_at IS NULL", version.GroupID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCurrentVersionExists
	}

	return r.db.WithContext(ctx).Create(version).Error
}

func (r *seriesVersionRepo) GetByID(ctx context.Context, seriesID string) (*model.SeriesVersion, error) {
	var version model.SeriesVersion
	err := r.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *seriesVersionRepo) GetCurrent(ctx context.Context, groupID string) (*model.SeriesVersion, error) {
	var version model.SeriesVersion
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND terminated_at IS NULL", groupID).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *seriesVersionRepo) ListByGroup(ctx context.Context, groupID string) ([]model.SeriesVersion, error) {
	var versions []model.SeriesVersion
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("dtstart ASC").
		Find(&versions).Error
	return versions, err
}

func (r *seriesVersionRepo) Terminate(ctx context.Context, seriesID string, at time.Time) error {
	version, err := r.GetByID(ctx, seriesID)
	if err != nil {
		return err
	}
	if version.TerminatedAt != nil {
		return ErrVersionAlreadyTerminated
	}
	if at.Before(version.Dtstart) {
		return ErrTerminateBeforeStart
	}

	// WHERE 带 terminated_at IS NULL，并发下第二个终止者更新不到行
	res := r.db.WithContext(ctx).
		Model(&model.SeriesVersion{}).
		Where("series_id = ? AND terminated_at IS NULL", seriesID).
		Update("terminated_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionAlreadyTerminated
	}
	return nil
}

func (r *seriesVersionRepo) UpdateTemplate(ctx context.Context, seriesID string, template map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&model.SeriesVersion{}).
		Where("series_id = ?", seriesID).
		Update("entity_template", datatypes.JSONMap(template))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
