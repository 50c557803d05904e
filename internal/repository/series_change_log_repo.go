package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/model"
)

// SeriesChangeLogRepository 系列变更日志数据访问接口（纯审计，只增不改）
type SeriesChangeLogRepository interface {
	Create(ctx context.Context, log *model.SeriesChangeLog) error
	ListByGroup(ctx context.Context, groupID string, offset, limit int) ([]model.SeriesChangeLog, int64, error)
}

type seriesChangeLogRepo struct {
	db *gorm.DB
}

// NewSeriesChangeLogRepo 创建 SeriesChangeLogRepository 实例
func NewSeriesChangeLogRepo(db *gorm.DB) SeriesChangeLogRepository {
	return &seriesChangeLogRepo{db: db}
}

func (r *seriesChangeLogRepo) Create(ctx context.Context, log *model.SeriesChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *seriesChangeLogRepo) ListByGroup(ctx context.Context, groupID string, offset, limit int) ([]model.SeriesChangeLog, int64, error) {
	var logs []model.SeriesChangeLog
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.SeriesChangeLog{}).
		Where("group_id = ?", groupID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
