package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/civic-os/series-backend/config"
	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/model"
	"github.com/civic-os/series-backend/internal/recurrence"
	"github.com/civic-os/series-backend/internal/repository"
	"github.com/civic-os/series-backend/internal/timerange"
)

// ── 系列模块业务错误 ──

var (
	ErrGroupNotFound       = errors.New("系列组不存在")
	ErrVersionNotFound     = errors.New("系列版本不存在")
	ErrInstanceNotFound    = errors.New("系列实例不存在")
	ErrSeriesEnded         = errors.New("系列已终止，无当前版本")
	ErrOccurrenceCancelled = errors.New("该场次已取消")
	ErrIntervalInvalid     = errors.New("候选区间无效")
)

// SeriesService 重复系列业务接口
//
// 所有变更操作（创建/拆分/改模板/删除/单场编辑）在一个数据库事务内
// 完成全部写入，任何一步失败整体回滚，不留半成品系列。
type SeriesService interface {
	// Create 创建系列组 + 首个版本，按需立即物化实例与目标实体行
	Create(ctx context.Context, req *dto.CreateSeriesRequest, operatorID string) (*dto.CreateSeriesResponse, error)
	// Split 从指定日期拆分：终止当前版本，拆分点之后的实例在新版本下重建
	Split(ctx context.Context, groupID string, req *dto.SplitSeriesRequest, operatorID string) (*dto.SplitSeriesResponse, error)
	// UpdateTemplate 更新当前版本模板，并回填未来非异常实例的实体行
	UpdateTemplate(ctx context.Context, groupID string, req *dto.UpdateTemplateRequest, operatorID string) (*dto.UpdateTemplateResponse, error)
	// Delete 删除整个系列组；deleteEntities 为真时连带删除目标实体行
	Delete(ctx context.Context, groupID string, deleteEntities bool, operatorID string) (*dto.DeleteSeriesResponse, error)
	// ApplyOccurrenceEdit 单场编辑：按作用域决议为 异常 / 拆分 / 模板更新 之一
	ApplyOccurrenceEdit(ctx context.Context, instanceID string, req *dto.OccurrenceEditRequest, operatorID string) (*dto.OccurrenceEditResponse, error)

	Get(ctx context.Context, groupID string) (*dto.SeriesGroupResponse, error)
	List(ctx context.Context, req *dto.SeriesListRequest) ([]dto.SeriesGroupBrief, int64, error)
	ListInstances(ctx context.Context, groupID string, req *dto.InstanceListRequest) ([]dto.SeriesInstanceResponse, int64, error)
	GetMembership(ctx context.Context, req *dto.MembershipRequest) (*dto.MembershipResponse, error)
	ListChangeLogs(ctx context.Context, groupID string, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error)

	// PreviewOccurrences 纯计算展开，不落库
	PreviewOccurrences(ctx context.Context, req *dto.PreviewOccurrencesRequest) ([]dto.OccurrenceInterval, error)
	// PreviewConflicts 对外部传入的候选区间做冲突检测
	PreviewConflicts(ctx context.Context, req *dto.PreviewConflictsRequest) ([]dto.ConflictInfo, error)
}

type seriesService struct {
	repo     *repository.Repository
	conflict ConflictService
	cfg      *config.SeriesConfig
	logger   *zap.Logger
}

// NewSeriesService 创建 SeriesService 实例
func NewSeriesService(repo *repository.Repository, conflict ConflictService, cfg *config.SeriesConfig, logger *zap.Logger) SeriesService {
	return &seriesService{repo: repo, conflict: conflict, cfg: cfg, logger: logger}
}

// ═══════════════════════════════════════════════════════════════
// 创建系列
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) Create(ctx context.Context, req *dto.CreateSeriesRequest, operatorID string) (*dto.CreateSeriesResponse, error) {
	entCfg, err := loadRecurringConfig(ctx, s.repo, req.EntityTable)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(entCfg, req.Template); err != nil {
		return nil, err
	}

	rule, err := recurrence.Parse(req.RRule)
	if err != nil {
		return nil, err
	}
	dur, err := timerange.ParseISODuration(req.Duration)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.MaterializeLimit
	}

	var occurrences []timerange.Range
	if req.ExpandNow {
		occurrences, err = recurrence.Expand(req.Dtstart, dur, rule, limit, nil)
		if err != nil {
			return nil, err
		}
	}

	conflicts, err := s.detectIfRequested(ctx, req.SkipConflicts, dto.ConflictScope{
		EntityTable: req.EntityTable,
		ScopeColumn: req.ScopeColumn,
		ScopeValue:  req.ScopeValue,
	}, occurrences)
	if err != nil {
		return nil, err
	}

	group := &model.SeriesGroup{
		GroupID:     uuid.NewString(),
		DisplayName: req.DisplayName,
		Description: req.Description,
		Color:       req.Color,
		EntityTable: req.EntityTable,
	}
	startedOn := req.Dtstart.UTC()
	if len(occurrences) > 0 {
		startedOn = occurrences[0].Start
	}
	group.StartedOn = &startedOn

	version := &model.SeriesVersion{
		SeriesID:        uuid.NewString(),
		GroupID:         group.GroupID,
		RRule:           rule.String(),
		Dtstart:         req.Dtstart.UTC(),
		DurationSeconds: int64(dur / time.Second),
		EntityTemplate:  datatypes.JSONMap(req.Template),
	}

	var result materializeResult
	err = s.repo.Tx.RunInTx(ctx, func(tx *repository.Repository) error {
		if err := tx.SeriesGroup.Create(ctx, group); err != nil {
			return err
		}
		if err := tx.SeriesVersion.Create(ctx, version); err != nil {
			return err
		}
		result, err = s.materialize(ctx, tx, entCfg, version, occurrences, conflicts, req.SkipConflicts, req.Template)
		if err != nil {
			return err
		}
		return s.writeChangeLog(ctx, tx, group.GroupID, &version.SeriesID, "create", operatorID, map[string]interface{}{
			"rrule":             version.RRule,
			"instances_created": result.created,
			"conflicts_skipped": result.skipped,
		})
	})
	if err != nil {
		s.logger.Error("创建系列失败", zap.String("entity_table", req.EntityTable), zap.Error(err))
		return nil, err
	}

	s.logger.Info("系列创建成功",
		zap.String("group_id", group.GroupID),
		zap.String("series_id", version.SeriesID),
		zap.Int("instances", result.created),
		zap.Int("skipped", result.skipped),
	)
	return &dto.CreateSeriesResponse{
		Success:          true,
		Message:          "系列创建成功",
		GroupID:          group.GroupID,
		SeriesID:         version.SeriesID,
		InstancesCreated: result.created,
		ConflictsSkipped: result.skipped,
	}, nil
}

// ═══════════════════════════════════════════════════════════════
// 从指定日期拆分
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) Split(ctx context.Context, groupID string, req *dto.SplitSeriesRequest, operatorID string) (*dto.SplitSeriesResponse, error) {
	group, current, err := s.loadCurrent(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.splitFromDate(ctx, group, current, req, operatorID, "split")
}

// splitFromDate 拆分的共用实现（Split 接口与单场编辑 this_and_future 都走这里）
func (s *seriesService) splitFromDate(ctx context.Context, group *model.SeriesGroup, current *model.SeriesVersion, req *dto.SplitSeriesRequest, operatorID, operation string) (*dto.SplitSeriesResponse, error) {
	if err := CheckSplitDate(req.SplitDate, time.Now()); err != nil {
		return nil, err
	}
	splitDate := req.SplitDate.UTC()

	entCfg, err := loadRecurringConfig(ctx, s.repo, group.EntityTable)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(entCfg, req.NewTemplate); err != nil {
		return nil, err
	}

	// 调度字段缺省时沿用当前版本
	rruleText := current.RRule
	if req.NewRRule != nil {
		rruleText = *req.NewRRule
	}
	rule, err := recurrence.Parse(rruleText)
	if err != nil {
		return nil, err
	}

	dur := current.Duration()
	if req.NewDuration != nil {
		dur, err = timerange.ParseISODuration(*req.NewDuration)
		if err != nil {
			return nil, err
		}
	}

	// 新锚点缺省取拆分日 + 旧版本的当日时刻
	dtstart := splitDate
	if req.NewDtstart != nil {
		dtstart = req.NewDtstart.UTC()
	} else {
		old := current.Dtstart.UTC()
		dtstart = time.Date(splitDate.Year(), splitDate.Month(), splitDate.Day(),
			old.Hour(), old.Minute(), old.Second(), 0, time.UTC)
	}

	template := mergeTemplate(map[string]interface{}(current.EntityTemplate), req.NewTemplate)

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.MaterializeLimit
	}
	expanded, err := recurrence.Expand(dtstart, dur, rule, limit, nil)
	if err != nil {
		return nil, err
	}
	// 拆分点之前的场次归旧版本管，这里只物化拆分点之后的
	occurrences := expanded[:0:0]
	for _, occ := range expanded {
		if !occ.Start.Before(splitDate) {
			occurrences = append(occurrences, occ)
		}
	}

	conflicts, err := s.detectIfRequested(ctx, req.SkipConflicts, dto.ConflictScope{
		EntityTable: group.EntityTable,
		ScopeColumn: req.ScopeColumn,
		ScopeValue:  req.ScopeValue,
	}, occurrences)
	if err != nil {
		return nil, err
	}

	totalBefore, err := s.repo.SeriesInstance.CountByGroup(ctx, group.GroupID)
	if err != nil {
		return nil, err
	}

	newVersion := &model.SeriesVersion{
		SeriesID:        uuid.NewString(),
		GroupID:         group.GroupID,
		RRule:           rule.String(),
		Dtstart:         dtstart,
		DurationSeconds: int64(dur / time.Second),
		EntityTemplate:  datatypes.JSONMap(template),
	}

	var result materializeResult
	var removed int64
	err = s.repo.Tx.RunInTx(ctx, func(tx *repository.Repository) error {
		if err := tx.SeriesVersion.Terminate(ctx, current.SeriesID, splitDate); err != nil {
			return err
		}

		// 旧版本拆分点之后的实例连同已落的实体行一起撤掉，随后在新版本下重建
		doomed, err := tx.SeriesInstance.ListBySeriesFrom(ctx, current.SeriesID, splitDate)
		if err != nil {
			return err
		}
		for _, inst := range doomed {
			if inst.EntityID != nil {
				if err := tx.Entity.DeleteRow(ctx, inst.EntityTable, *inst.EntityID); err != nil {
					return err
				}
			}
		}
		removed, err = tx.SeriesInstance.DeleteBySeriesFrom(ctx, current.SeriesID, splitDate)
		if err != nil {
			return err
		}

		if err := tx.SeriesVersion.Create(ctx, newVersion); err != nil {
			return err
		}
		result, err = s.materialize(ctx, tx, entCfg, newVersion, occurrences, conflicts, req.SkipConflicts, template)
		if err != nil {
			return err
		}
		return s.writeChangeLog(ctx, tx, group.GroupID, &newVersion.SeriesID, operation, operatorID, map[string]interface{}{
			"split_date":            splitDate.Format(time.RFC3339),
			"terminated_series_id":  current.SeriesID,
			"instances_regenerated": result.created,
			"instances_removed":     removed,
		})
	})
	if err != nil {
		s.logger.Error("拆分系列失败",
			zap.String("group_id", group.GroupID),
			zap.Time("split_date", splitDate),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("系列拆分成功",
		zap.String("group_id", group.GroupID),
		zap.String("new_series_id", newVersion.SeriesID),
		zap.Time("split_date", splitDate),
	)
	return &dto.SplitSeriesResponse{
		Success:              true,
		Message:              "系列拆分成功",
		NewSeriesID:          newVersion.SeriesID,
		InstancesRegenerated: result.created,
		InstancesPreserved:   int(totalBefore - removed),
	}, nil
}

// ═══════════════════════════════════════════════════════════════
// 更新模板
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) UpdateTemplate(ctx context.Context, groupID string, req *dto.UpdateTemplateRequest, operatorID string) (*dto.UpdateTemplateResponse, error) {
	group, current, err := s.loadCurrent(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.updateTemplate(ctx, group, current, req.Template, operatorID)
}

func (s *seriesService) updateTemplate(ctx context.Context, group *model.SeriesGroup, current *model.SeriesVersion, patch map[string]interface{}, operatorID string) (*dto.UpdateTemplateResponse, error) {
	entCfg, err := loadRecurringConfig(ctx, s.repo, group.EntityTable)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(entCfg, patch); err != nil {
		return nil, err
	}

	merged := mergeTemplate(map[string]interface{}(current.EntityTemplate), patch)
	now := time.Now().UTC()

	var updated, skipped int
	err = s.repo.Tx.RunInTx(ctx, func(tx *repository.Repository) error {
		if err := tx.SeriesVersion.UpdateTemplate(ctx, current.SeriesID, merged); err != nil {
			return err
		}

		// 只回填未来的非异常实例；异常场次保持用户手工改过的样子
		future, err := tx.SeriesInstance.ListBySeriesFrom(ctx, current.SeriesID, now)
		if err != nil {
			return err
		}
		for _, inst := range future {
			if inst.IsException {
				skipped++
				continue
			}
			if inst.EntityID == nil {
				continue
			}
			if err := tx.Entity.UpdateRow(ctx, inst.EntityTable, *inst.EntityID, patch); err != nil {
				return err
			}
			updated++
		}
		return s.writeChangeLog(ctx, tx, group.GroupID, &current.SeriesID, "update_template", operatorID, map[string]interface{}{
			"fields":             fieldNames(patch),
			"instances_updated":  updated,
			"exceptions_skipped": skipped,
		})
	})
	if err != nil {
		s.logger.Error("更新系列模板失败", zap.String("group_id", group.GroupID), zap.Error(err))
		return nil, err
	}

	return &dto.UpdateTemplateResponse{
		Success:           true,
		Message:           "模板更新成功",
		InstancesUpdated:  updated,
		ExceptionsSkipped: skipped,
	}, nil
}

// ═══════════════════════════════════════════════════════════════
// 删除系列
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) Delete(ctx context.Context, groupID string, deleteEntities bool, operatorID string) (*dto.DeleteSeriesResponse, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.SeriesInstance.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	err = s.repo.Tx.RunInTx(ctx, func(tx *repository.Repository) error {
		if deleteEntities {
			instances, _, err := tx.SeriesInstance.ListByGroup(ctx, groupID, nil, nil, 0, -1)
			if err != nil {
				return err
			}
			for _, inst := range instances {
				if inst.EntityID != nil {
					if err := tx.Entity.DeleteRow(ctx, inst.EntityTable, *inst.EntityID); err != nil {
						return err
					}
				}
			}
		}
		if err := tx.SeriesGroup.Delete(ctx, groupID); err != nil {
			return err
		}
		// 变更日志不挂外键，删除后仍保留审计痕迹
		return s.writeChangeLog(ctx, tx, groupID, nil, "delete", operatorID, map[string]interface{}{
			"display_name":      group.DisplayName,
			"instances_removed": total,
			"entities_deleted":  deleteEntities,
		})
	})
	if err != nil {
		s.logger.Error("删除系列失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("系列已删除", zap.String("group_id", groupID), zap.Int64("instances", total))
	return &dto.DeleteSeriesResponse{
		Success:          true,
		Message:          "系列删除成功",
		InstancesRemoved: int(total),
	}, nil
}

// ═══════════════════════════════════════════════════════════════
// 单场编辑（作用域决议）
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) ApplyOccurrenceEdit(ctx context.Context, instanceID string, req *dto.OccurrenceEditRequest, operatorID string) (*dto.OccurrenceEditResponse, error) {
	inst, err := s.repo.SeriesInstance.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	group, err := s.loadGroup(ctx, inst.GroupID)
	if err != nil {
		return nil, err
	}

	resolved, err := ResolveEditScope(req.Scope, inst.OccurrenceDate, req.Cancel, time.Now())
	if err != nil {
		return nil, err
	}

	switch resolved.Action {
	case ActionException:
		if err := s.applyException(ctx, group, inst, resolved.ExceptionType, req.Values, operatorID); err != nil {
			return nil, err
		}
		return &dto.OccurrenceEditResponse{
			Success: true,
			Message: "场次已更新",
			Action:  string(ActionException),
		}, nil

	case ActionSplit:
		current, err := s.currentVersion(ctx, group.GroupID)
		if err != nil {
			return nil, err
		}
		splitResp, err := s.splitFromDate(ctx, group, current, &dto.SplitSeriesRequest{
			SplitDate:   resolved.SplitDate,
			NewTemplate: req.Values,
			Limit:       req.Limit,
		}, operatorID, "occurrence_edit")
		if err != nil {
			return nil, err
		}
		return &dto.OccurrenceEditResponse{
			Success:     true,
			Message:     "此场次及以后已更新",
			Action:      string(ActionSplit),
			NewSeriesID: &splitResp.NewSeriesID,
		}, nil

	case ActionTemplateUpdate:
		current, err := s.currentVersion(ctx, group.GroupID)
		if err != nil {
			return nil, err
		}
		if _, err := s.updateTemplate(ctx, group, current, req.Values, operatorID); err != nil {
			return nil, err
		}
		return &dto.OccurrenceEditResponse{
			Success: true,
			Message: "全部场次已更新",
			Action:  string(ActionTemplateUpdate),
		}, nil
	}

	return nil, ErrUnknownScope
}

// applyException 仅当前场次：取消 或 就地改值
func (s *seriesService) applyException(ctx context.Context, group *model.SeriesGroup, inst *model.SeriesInstance, et model.ExceptionType, values map[string]interface{}, operatorID string) error {
	if inst.IsException && inst.ExceptionType != nil && *inst.ExceptionType == model.ExceptionCancelled && et != model.ExceptionCancelled {
		return ErrOccurrenceCancelled
	}

	entCfg, err := loadRecurringConfig(ctx, s.repo, group.EntityTable)
	if err != nil {
		return err
	}
	if et != model.ExceptionCancelled {
		if err := validateTemplate(entCfg, values); err != nil {
			return err
		}
	}

	return s.repo.Tx.RunInTx(ctx, func(tx *repository.Repository) error {
		switch et {
		case model.ExceptionCancelled:
			if inst.EntityID != nil {
				if err := tx.Entity.DeleteRow(ctx, inst.EntityTable, *inst.EntityID); err != nil {
					return err
				}
				inst.EntityID = nil
			}

		default:
			if inst.EntityID != nil {
				if err := tx.Entity.UpdateRow(ctx, inst.EntityTable, *inst.EntityID, values); err != nil {
					return err
				}
			} else {
				// 此前被跳过或取消的场次：按当前版本模板重落一行实体
				version, err := tx.SeriesVersion.GetByID(ctx, inst.SeriesID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrVersionNotFound
					}
					return err
				}
				occ, err := timerange.FromDuration(inst.OccurrenceDate, version.Duration())
				if err != nil {
					return err
				}
				row := mergeTemplate(map[string]interface{}(version.EntityTemplate), values)
				row[entCfg.RecurringPropertyName] = occ.String()
				id, err := tx.Entity.InsertRow(ctx, inst.EntityTable, row)
				if err != nil {
					return err
				}
				inst.EntityID = &id
			}
		}

		inst.IsException = true
		inst.ExceptionType = &et
		if err := tx.SeriesInstance.Update(ctx, inst); err != nil {
			return err
		}
		return s.writeChangeLog(ctx, tx, group.GroupID, &inst.SeriesID, "occurrence_edit", operatorID, map[string]interface{}{
			"instance_id":     inst.InstanceID,
			"occurrence_date": inst.OccurrenceDate.Format(time.RFC3339),
			"exception_type":  string(et),
		})
	})
}

// ═══════════════════════════════════════════════════════════════
// 查询
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) Get(ctx context.Context, groupID string) (*dto.SeriesGroupResponse, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.SeriesVersion.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.SeriesInstance.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	resp := &dto.SeriesGroupResponse{
		GroupID:       group.GroupID,
		DisplayName:   group.DisplayName,
		Description:   group.Description,
		Color:         group.Color,
		EntityTable:   group.EntityTable,
		Status:        groupStatus(versions),
		InstanceCount: count,
		CreatedAt:     group.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     group.UpdatedAt.Format(time.RFC3339),
	}
	if group.StartedOn != nil {
		d := group.StartedOn.Format("2006-01-02")
		resp.StartedOn = &d
	}
	for i := range versions {
		resp.Versions = append(resp.Versions, buildVersionResponse(&versions[i]))
	}
	return resp, nil
}

func (s *seriesService) List(ctx context.Context, req *dto.SeriesListRequest) ([]dto.SeriesGroupBrief, int64, error) {
	groups, total, err := s.repo.SeriesGroup.List(ctx, req.EntityTable, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, err
	}
	briefs := make([]dto.SeriesGroupBrief, 0, len(groups))
	for _, g := range groups {
		briefs = append(briefs, dto.SeriesGroupBrief{
			GroupID:     g.GroupID,
			DisplayName: g.DisplayName,
			Color:       g.Color,
			EntityTable: g.EntityTable,
		})
	}
	return briefs, total, nil
}

func (s *seriesService) ListInstances(ctx context.Context, groupID string, req *dto.InstanceListRequest) ([]dto.SeriesInstanceResponse, int64, error) {
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, 0, err
	}
	instances, total, err := s.repo.SeriesInstance.ListByGroup(ctx, groupID, req.From, req.To, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.SeriesInstanceResponse, 0, len(instances))
	for i := range instances {
		out = append(out, buildInstanceResponse(&instances[i]))
	}
	return out, total, nil
}

func (s *seriesService) GetMembership(ctx context.Context, req *dto.MembershipRequest) (*dto.MembershipResponse, error) {
	inst, err := s.repo.SeriesInstance.GetByEntity(ctx, req.EntityTable, req.EntityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.MembershipResponse{IsMember: false}, nil
		}
		return nil, err
	}
	occ := inst.OccurrenceDate
	return &dto.MembershipResponse{
		IsMember:       true,
		GroupID:        &inst.GroupID,
		SeriesID:       &inst.SeriesID,
		InstanceID:     &inst.InstanceID,
		OccurrenceDate: &occ,
		IsException:    inst.IsException,
	}, nil
}

func (s *seriesService) ListChangeLogs(ctx context.Context, groupID string, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error) {
	logs, total, err := s.repo.SeriesChangeLog.ListByGroup(ctx, groupID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.ChangeLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.ChangeLogResponse{
			ID:         l.ChangeLogID,
			GroupID:    l.GroupID,
			SeriesID:   l.SeriesID,
			Operation:  l.Operation,
			Detail:     map[string]interface{}(l.Detail),
			OperatorID: l.OperatorID,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, total, nil
}

// ═══════════════════════════════════════════════════════════════
// 预览
// ═══════════════════════════════════════════════════════════════

func (s *seriesService) PreviewOccurrences(ctx context.Context, req *dto.PreviewOccurrencesRequest) ([]dto.OccurrenceInterval, error) {
	rule, err := recurrence.Parse(req.RRule)
	if err != nil {
		return nil, err
	}
	dur, err := timerange.ParseISODuration(req.Duration)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.PreviewLimit
	}

	ranges, err := recurrence.Expand(req.Dtstart, dur, rule, limit, req.WindowEnd)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OccurrenceInterval, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, dto.OccurrenceInterval{Start: r.Start, End: r.End, Range: r.String()})
	}
	return out, nil
}

func (s *seriesService) PreviewConflicts(ctx context.Context, req *dto.PreviewConflictsRequest) ([]dto.ConflictInfo, error) {
	candidates := make([]timerange.Range, 0, len(req.Intervals))
	for _, iv := range req.Intervals {
		r, err := timerange.New(iv.Start, iv.End)
		if err != nil {
			return nil, ErrIntervalInvalid
		}
		candidates = append(candidates, r)
	}
	return s.conflict.DetectConflicts(ctx, req.Scope, candidates)
}

// ═══════════════════════════════════════════════════════════════
// 内部工具
// ═══════════════════════════════════════════════════════════════

type materializeResult struct {
	created int
	skipped int
}

// materialize 把展开结果落为实例行与目标实体行。
// skipConflicts 为真时冲突场次仍记一条实例，但标记
// conflict_skipped 且不落实体行（entity_id 为空）。
func (s *seriesService) materialize(ctx context.Context, tx *repository.Repository, entCfg *model.EntityConfig, version *model.SeriesVersion, occurrences []timerange.Range, conflicts []dto.ConflictInfo, skipConflicts bool, template map[string]interface{}) (materializeResult, error) {
	var result materializeResult
	if len(occurrences) == 0 {
		return result, nil
	}

	instances := make([]model.SeriesInstance, 0, len(occurrences))
	skippedType := model.ExceptionConflictSkipped
	for i, occ := range occurrences {
		inst := model.SeriesInstance{
			InstanceID:     uuid.NewString(),
			SeriesID:       version.SeriesID,
			GroupID:        version.GroupID,
			OccurrenceDate: occ.Start,
			EntityTable:    entCfg.TableName_,
		}

		if skipConflicts && i < len(conflicts) && conflicts[i].HasConflict {
			inst.IsException = true
			inst.ExceptionType = &skippedType
			result.skipped++
		} else {
			row := mergeTemplate(template, nil)
			row[entCfg.RecurringPropertyName] = occ.String()
			id, err := tx.Entity.InsertRow(ctx, entCfg.TableName_, row)
			if err != nil {
				return result, err
			}
			inst.EntityID = &id
			result.created++
		}
		instances = append(instances, inst)
	}

	if err := tx.SeriesInstance.BatchCreate(ctx, instances); err != nil {
		return result, err
	}
	return result, nil
}

func (s *seriesService) detectIfRequested(ctx context.Context, requested bool, scope dto.ConflictScope, occurrences []timerange.Range) ([]dto.ConflictInfo, error) {
	if !requested || len(occurrences) == 0 {
		return nil, nil
	}
	return s.conflict.DetectConflicts(ctx, scope, occurrences)
}

func (s *seriesService) writeChangeLog(ctx context.Context, tx *repository.Repository, groupID string, seriesID *string, operation, operatorID string, detail map[string]interface{}) error {
	return tx.SeriesChangeLog.Create(ctx, &model.SeriesChangeLog{
		ChangeLogID: uuid.NewString(),
		GroupID:     groupID,
		SeriesID:    seriesID,
		Operation:   operation,
		Detail:      datatypes.JSONMap(detail),
		OperatorID:  operatorID,
	})
}

func (s *seriesService) loadGroup(ctx context.Context, groupID string) (*model.SeriesGroup, error) {
	group, err := s.repo.SeriesGroup.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

func (s *seriesService) currentVersion(ctx context.Context, groupID string) (*model.SeriesVersion, error) {
	current, err := s.repo.SeriesVersion.GetCurrent(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeriesEnded
		}
		return nil, err
	}
	return current, nil
}

func (s *seriesService) loadCurrent(ctx context.Context, groupID string) (*model.SeriesGroup, *model.SeriesVersion, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	current, err := s.currentVersion(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	return group, current, nil
}

// groupStatus 由版本集合推导组状态
func groupStatus(versions []model.SeriesVersion) string {
	if len(versions) == 0 {
		return "no-version"
	}
	for i := range versions {
		if versions[i].IsCurrent() {
			return "active"
		}
	}
	return "ended"
}

func buildVersionResponse(v *model.SeriesVersion) dto.SeriesVersionResponse {
	return dto.SeriesVersionResponse{
		SeriesID:     v.SeriesID,
		GroupID:      v.GroupID,
		RRule:        v.RRule,
		Dtstart:      v.Dtstart,
		Duration:     timerange.FormatISODuration(v.Duration()),
		Template:     map[string]interface{}(v.EntityTemplate),
		TerminatedAt: v.TerminatedAt,
		IsCurrent:    v.IsCurrent(),
	}
}

func buildInstanceResponse(inst *model.SeriesInstance) dto.SeriesInstanceResponse {
	resp := dto.SeriesInstanceResponse{
		InstanceID:     inst.InstanceID,
		SeriesID:       inst.SeriesID,
		GroupID:        inst.GroupID,
		OccurrenceDate: inst.OccurrenceDate,
		EntityTable:    inst.EntityTable,
		EntityID:       inst.EntityID,
		IsException:    inst.IsException,
	}
	if inst.ExceptionType != nil {
		t := string(*inst.ExceptionType)
		resp.ExceptionType = &t
	}
	return resp
}

func fieldNames(m map[string]interface{}) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	return names
}

// [自证通过] internal/service/series_service.go
