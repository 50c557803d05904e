package dto

// ── 实体元数据模块 DTO ──

// EntityConfigResponse 实体配置响应
type EntityConfigResponse struct {
	TableName             string                   `json:"table_name"`
	DisplayName           string                   `json:"display_name"`
	SupportsRecurring     bool                     `json:"supports_recurring"`
	RecurringPropertyName string                   `json:"recurring_property_name,omitempty"`
	DisplayColumn         string                   `json:"display_column"`
	Properties            []EntityPropertyResponse `json:"properties,omitempty"`
}

// EntityPropertyResponse 实体属性响应
type EntityPropertyResponse struct {
	Name             string `json:"name"`
	DisplayName      string `json:"display_name"`
	Type             string `json:"type"`
	TemplateEligible bool   `json:"template_eligible"`
	RuleCount        int    `json:"rule_count"`
}
