package dto

import "time"

// ── 重复系列模块 DTO ──

// CreateSeriesRequest 创建系列请求
type CreateSeriesRequest struct {
	DisplayName string                 `json:"display_name" binding:"required,min=2,max=100"`
	Description string                 `json:"description"  binding:"omitempty,max=500"`
	Color       *string                `json:"color"        binding:"omitempty,max=20"`
	EntityTable string                 `json:"entity_table" binding:"required,max=63"`
	RRule       string                 `json:"rrule"        binding:"omitempty,max=255"`
	Dtstart     time.Time              `json:"dtstart"      binding:"required"`
	Duration    string                 `json:"duration"     binding:"required"` // ISO 8601，如 "PT1H"
	Template    map[string]interface{} `json:"template"`

	// 冲突检测范围（如 场地列=某场地）
	ScopeColumn string `json:"scope_column" binding:"omitempty,max=63"`
	ScopeValue  string `json:"scope_value"  binding:"omitempty,max=255"`

	// 物化策略
	ExpandNow     bool `json:"expand_now"`
	SkipConflicts bool `json:"skip_conflicts"`
	Limit         int  `json:"limit" binding:"omitempty,min=1,max=5000"`
}

// CreateSeriesResponse 创建系列响应
type CreateSeriesResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	GroupID          string `json:"group_id"`
	SeriesID         string `json:"series_id"`
	InstancesCreated int    `json:"instances_created"`
	ConflictsSkipped int    `json:"conflicts_skipped"`
}

// SplitSeriesRequest 从指定日期拆分系列请求
// 新调度字段缺省时沿用当前版本的对应配置
type SplitSeriesRequest struct {
	SplitDate   time.Time              `json:"split_date"   binding:"required"`
	NewRRule    *string                `json:"new_rrule"    binding:"omitempty,max=255"`
	NewDtstart  *time.Time             `json:"new_dtstart"`
	NewDuration *string                `json:"new_duration"` // ISO 8601
	NewTemplate map[string]interface{} `json:"new_template"`
	Limit       int                    `json:"limit" binding:"omitempty,min=1,max=5000"`

	// 复用创建时的冲突范围
	ScopeColumn   string `json:"scope_column" binding:"omitempty,max=63"`
	ScopeValue    string `json:"scope_value"  binding:"omitempty,max=255"`
	SkipConflicts bool   `json:"skip_conflicts"`
}

// SplitSeriesResponse 拆分系列响应
type SplitSeriesResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	NewSeriesID          string `json:"new_series_id"`
	InstancesRegenerated int    `json:"instances_regenerated"`
	InstancesPreserved   int    `json:"instances_preserved"`
}

// UpdateTemplateRequest 更新系列模板请求
type UpdateTemplateRequest struct {
	Template map[string]interface{} `json:"template" binding:"required"`
}

// UpdateTemplateResponse 更新系列模板响应
type UpdateTemplateResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	InstancesUpdated  int    `json:"instances_updated"`
	ExceptionsSkipped int    `json:"exceptions_skipped"`
}

// DeleteSeriesResponse 删除系列响应
type DeleteSeriesResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	InstancesRemoved int    `json:"instances_removed"`
}

// MembershipRequest 系列归属查询参数
type MembershipRequest struct {
	EntityTable string `form:"entity_table" binding:"required,max=63"`
	EntityID    string `form:"entity_id"    binding:"required,uuid"`
}

// MembershipResponse 系列归属响应
// 供单实体编辑页判断"该记录是否属于某个系列"
type MembershipResponse struct {
	IsMember       bool       `json:"is_member"`
	GroupID        *string    `json:"group_id,omitempty"`
	SeriesID       *string    `json:"series_id,omitempty"`
	InstanceID     *string    `json:"instance_id,omitempty"`
	OccurrenceDate *time.Time `json:"occurrence_date,omitempty"`
	IsException    bool       `json:"is_exception,omitempty"`
}

// ── 发生编辑（范围决议） ──

// EditScope 编辑范围（闭合枚举）
const (
	ScopeThisOnly      = "this_only"
	ScopeThisAndFuture = "this_and_future"
	ScopeAll           = "all"
)

// OccurrenceEditRequest 单次发生编辑请求
type OccurrenceEditRequest struct {
	Scope  string                 `json:"scope"  binding:"required,oneof=this_only this_and_future all"`
	Values map[string]interface{} `json:"values"`
	Cancel bool                   `json:"cancel"` // true 时取消该次发生（仅 this_only 有意义）
	Limit  int                    `json:"limit"  binding:"omitempty,min=1,max=5000"`
}

// OccurrenceEditResponse 单次发生编辑响应
type OccurrenceEditResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Action  string `json:"action"` // exception | split | template_update
	// split 时返回新版本 ID
	NewSeriesID *string `json:"new_series_id,omitempty"`
}

// ── 预览 ──

// PreviewOccurrencesRequest 预览发生序列请求
type PreviewOccurrencesRequest struct {
	RRule     string     `json:"rrule"    binding:"omitempty,max=255"`
	Dtstart   time.Time  `json:"dtstart"  binding:"required"`
	Duration  string     `json:"duration" binding:"required"`
	Limit     int        `json:"limit"    binding:"omitempty,min=1,max=1000"`
	WindowEnd *time.Time `json:"window_end"`
}

// OccurrenceInterval 单个发生区间
type OccurrenceInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Range string    `json:"range"` // 线格式 "[start,end)"
}

// ConflictScope 冲突检测范围
type ConflictScope struct {
	EntityTable string `json:"entity_table" binding:"required,max=63"`
	ScopeColumn string `json:"scope_column" binding:"omitempty,max=63"`
	ScopeValue  string `json:"scope_value"  binding:"omitempty,max=255"`
}

// PreviewConflictsRequest 预览冲突请求
type PreviewConflictsRequest struct {
	Scope     ConflictScope        `json:"scope"     binding:"required"`
	Intervals []OccurrenceInterval `json:"intervals" binding:"required,min=1,max=1000,dive"`
}

// ConflictInfo 冲突检测结果（逐候选，与输入同序）
type ConflictInfo struct {
	OccurrenceStart    time.Time `json:"occurrence_start"`
	OccurrenceEnd      time.Time `json:"occurrence_end"`
	HasConflict        bool      `json:"has_conflict"`
	ConflictingDisplay *string   `json:"conflicting_display,omitempty"`
}

// ── 查询 ──

// SeriesListRequest 系列列表查询参数
type SeriesListRequest struct {
	PaginationRequest
	EntityTable string `form:"entity_table" binding:"omitempty,max=63"`
}

// SeriesGroupBrief 系列组简要信息
type SeriesGroupBrief struct {
	GroupID     string  `json:"group_id"`
	DisplayName string  `json:"display_name"`
	Color       *string `json:"color,omitempty"`
	EntityTable string  `json:"entity_table"`
}

// SeriesGroupResponse 系列组详情响应
type SeriesGroupResponse struct {
	GroupID       string                  `json:"group_id"`
	DisplayName   string                  `json:"display_name"`
	Description   string                  `json:"description,omitempty"`
	Color         *string                 `json:"color,omitempty"`
	EntityTable   string                  `json:"entity_table"`
	StartedOn     *string                 `json:"started_on,omitempty"`
	Status        string                  `json:"status"` // no-version | active | ended
	Versions      []SeriesVersionResponse `json:"versions,omitempty"`
	InstanceCount int64                   `json:"instance_count"`
	CreatedAt     string                  `json:"created_at"`
	UpdatedAt     string                  `json:"updated_at"`
}

// SeriesVersionResponse 系列版本响应
type SeriesVersionResponse struct {
	SeriesID     string                 `json:"series_id"`
	GroupID      string                 `json:"group_id"`
	RRule        string                 `json:"rrule"`
	Dtstart      time.Time              `json:"dtstart"`
	Duration     string                 `json:"duration"` // ISO 8601
	Template     map[string]interface{} `json:"template,omitempty"`
	TerminatedAt *time.Time             `json:"terminated_at,omitempty"`
	IsCurrent    bool                   `json:"is_current"`
}

// InstanceListRequest 实例列表查询参数
type InstanceListRequest struct {
	PaginationRequest
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to"   time_format:"2006-01-02T15:04:05Z07:00"`
}

// SeriesInstanceResponse 系列实例响应
type SeriesInstanceResponse struct {
	InstanceID     string    `json:"instance_id"`
	SeriesID       string    `json:"series_id"`
	GroupID        string    `json:"group_id"`
	OccurrenceDate time.Time `json:"occurrence_date"`
	EntityTable    string    `json:"entity_table"`
	EntityID       *string   `json:"entity_id,omitempty"`
	IsException    bool      `json:"is_exception"`
	ExceptionType  *string   `json:"exception_type,omitempty"`
}

// ChangeLogListRequest 变更日志查询参数
type ChangeLogListRequest struct {
	PaginationRequest
}

// ChangeLogResponse 变更日志响应
type ChangeLogResponse struct {
	ID         string                 `json:"id"`
	GroupID    string                 `json:"group_id"`
	SeriesID   *string                `json:"series_id,omitempty"`
	Operation  string                 `json:"operation"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	OperatorID string                 `json:"operator_id"`
	CreatedAt  string                 `json:"created_at"`
}

// [自证通过] internal/dto/series.go
