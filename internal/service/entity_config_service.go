package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/model"
	"github.com/civic-os/series-backend/internal/repository"
)

// EntityConfigService 实体配置查询接口（只读）
type EntityConfigService interface {
	// List 列出全部支持重复系列的实体配置
	List(ctx context.Context) ([]dto.EntityConfigResponse, error)
	// Get 按表名获取单个实体配置
	Get(ctx context.Context, tableName string) (*dto.EntityConfigResponse, error)
}

type entityConfigService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEntityConfigService 创建 EntityConfigService 实例
func NewEntityConfigService(repo *repository.Repository, logger *zap.Logger) EntityConfigService {
	return &entityConfigService{repo: repo, logger: logger}
}

func (s *entityConfigService) List(ctx context.Context) ([]dto.EntityConfigResponse, error) {
	configs, err := s.repo.EntityConfig.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntityConfigResponse, 0, len(configs))
	for i := range configs {
		resp, err := buildEntityConfigResponse(&configs[i])
		if err != nil {
			// 单条配置损坏不拖垮整个列表
			s.logger.Warn("实体配置解析失败",
				zap.String("table", configs[i].TableName_),
				zap.Error(err),
			)
			continue
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *entityConfigService) Get(ctx context.Context, tableName string) (*dto.EntityConfigResponse, error) {
	cfg, err := s.repo.EntityConfig.GetByTable(ctx, tableName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityConfigNotFound
		}
		return nil, err
	}
	return buildEntityConfigResponse(cfg)
}

func buildEntityConfigResponse(cfg *model.EntityConfig) (*dto.EntityConfigResponse, error) {
	props, err := cfg.ParseProperties()
	if err != nil {
		return nil, err
	}
	resp := &dto.EntityConfigResponse{
		TableName:             cfg.TableName_,
		DisplayName:           cfg.DisplayName,
		SupportsRecurring:     cfg.SupportsRecurring,
		RecurringPropertyName: cfg.RecurringPropertyName,
		DisplayColumn:         cfg.DisplayColumn,
	}
	for _, p := range props {
		resp.Properties = append(resp.Properties, dto.EntityPropertyResponse{
			Name:             p.Name,
			DisplayName:      p.DisplayName,
			Type:             p.Type,
			TemplateEligible: p.TemplateEligible,
			RuleCount:        len(p.Rules),
		})
	}
	return resp, nil
}
