package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/model"
)

// EntityConfigRepository 实体元数据访问接口（本服务只读）
type EntityConfigRepository interface {
	GetByTable(ctx context.Context, tableName string) (*model.EntityConfig, error)
	List(ctx context.Context) ([]model.EntityConfig, error)
}

type entityConfigRepo struct {
	db *gorm.DB
}

// NewEntityConfigRepo 创建 EntityConfigRepository 实例
func NewEntityConfigRepo(db *gorm.DB) EntityConfigRepository {
	return &entityConfigRepo{db: db}
}

func (r *entityConfigRepo) GetByTable(ctx context.Context, tableName string) (*model.EntityConfig, error) {
	var cfg model.EntityConfig
	err := r.db.WithContext(ctx).
		Where("table_name = ?", tableName).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *entityConfigRepo) List(ctx context.Context) ([]model.EntityConfig, error) {
	var cfgs []model.EntityConfig
	err := r.db.WithContext(ctx).
		Order("table_name ASC").
		Find(&cfgs).Error
	return cfgs, err
}
