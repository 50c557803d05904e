package service

import (
	"errors"
	"fmt"

	"github.com/civic-os/series-backend/internal/model"
)

var ErrTemplateInvalid = errors.New("模板字段校验未通过")

// validateTemplate 按实体配置校验模板字段。
//
// 两层检查：字段必须在配置中声明且允许进模板；字段值要过完
// 该属性声明的全部校验规则。任何一条不过立即返回，错误信息
// 带字段名，处理器层原样透出给前端。
func validateTemplate(cfg *model.EntityConfig, template map[string]interface{}) error {
	if len(template) == 0 {
		return nil
	}

	props, err := cfg.ParseProperties()
	if err != nil {
		return fmt.Errorf("解析实体属性配置失败: %w", err)
	}

	byName := make(map[string]model.EntityProperty, len(props))
	for _, p := range props {
		byName[p.Name] = p
	}

	for field, value := range template {
		prop, ok := byName[field]
		if !ok {
			return fmt.Errorf("%w: 字段 %s 未在实体配置中声明", ErrTemplateInvalid, field)
		}
		if !prop.TemplateEligible {
			return fmt.Errorf("%w: 字段 %s 不允许作为模板字段", ErrTemplateInvalid, field)
		}
		for _, rule := range prop.Rules {
			if err := rule.Check(field, value); err != nil {
				return fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
			}
		}
	}
	return nil
}

// mergeTemplate 在现有模板之上逐字段覆盖，返回新 map，不改入参
func mergeTemplate(base map[string]interface{}, overlay map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
