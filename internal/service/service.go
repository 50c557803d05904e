package service

import (
	"go.uber.org/zap"

	"github.com/civic-os/series-backend/config"
	"github.com/civic-os/series-backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Series       SeriesService
	Conflict     ConflictService
	Export       ExportService
	EntityConfig EntityConfigService
}

// NewService 创建 Service 聚合
func NewService(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *Service {
	conflict := NewConflictService(repo, logger)
	return &Service{
		Series:       NewSeriesService(repo, conflict, &cfg.Series, logger),
		Conflict:     conflict,
		Export:       NewExportService(repo, logger),
		EntityConfig: NewEntityConfigService(repo, logger),
	}
}
