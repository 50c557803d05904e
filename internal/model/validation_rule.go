package model

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// ── 校验规则（闭合变体） ──
//
// 模板字段的校验规则建模为闭合 tagged-variant：
// kind ∈ {minLength, maxLength, min, max, pattern}，
// 新增 kind 必须同时扩展 Check 的 switch，保证分支穷尽。

// RuleKind 校验规则种类（闭合枚举）
type RuleKind string

const (
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleMin       RuleKind = "min"
	RuleMax       RuleKind = "max"
	RulePattern   RuleKind = "pattern"
)

// ValidationRule 单条校验规则
// Value 随 kind 取数值（minLength/maxLength/min/max）或正则串（pattern）
type ValidationRule struct {
	Kind    RuleKind        `json:"kind"`
	Value   json.RawMessage `json:"value"`
	Message string          `json:"message,omitempty"`
}

// Check 用本条规则校验字段值，违反时返回用户可读错误
func (r ValidationRule) Check(field string, value interface{}) error {
	switch r.Kind {
	case RuleMinLength:
		n, err := r.intValue()
		if err != nil {
			return err
		}
		s, ok := value.(string)
		if !ok {
			return r.violation(field, "字段 %s 需为字符串", field)
		}
		if len([]rune(s)) < n {
			return r.violation(field, "字段 %s 长度不能少于 %d", field, n)
		}
	case RuleMaxLength:
		n, err := r.intValue()
		if err != nil {
			return err
		}
		s, ok := value.(string)
		if !ok {
			return r.violation(field, "字段 %s 需为字符串", field)
		}
		if len([]rune(s)) > n {
			return r.violation(field, "字段 %s 长度不能超过 %d", field, n)
		}
	case RuleMin:
		limit, err := r.floatValue()
		if err != nil {
			return err
		}
		f, ok := toFloat(value)
		if !ok {
			return r.violation(field, "字段 %s 需为数值", field)
		}
		if f < limit {
			return r.violation(field, "字段 %s 不能小于 %v", field, limit)
		}
	case RuleMax:
		limit, err := r.floatValue()
		if err != nil {
			return err
		}
		f, ok := toFloat(value)
		if !ok {
			return r.violation(field, "字段 %s 需为数值", field)
		}
		if f > limit {
			return r.violation(field, "字段 %s 不能大于 %v", field, limit)
		}
	case RulePattern:
		var pat string
		if err := json.Unmarshal(r.Value, &pat); err != nil {
			return fmt.Errorf("pattern 规则的 value 必须为字符串: %w", err)
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return fmt.Errorf("pattern 规则正则无效: %w", err)
		}
		s, ok := value.(string)
		if !ok {
			return r.violation(field, "字段 %s 需为字符串", field)
		}
		if !re.MatchString(s) {
			return r.violation(field, "字段 %s 格式不符合要求", field)
		}
	default:
		return fmt.Errorf("未知校验规则 kind %q", r.Kind)
	}
	return nil
}

// violation 构造违规错误，优先使用规则自带消息
func (r ValidationRule) violation(field, format string, args ...interface{}) error {
	if r.Message != "" {
		return fmt.Errorf("%s", r.Message)
	}
	return fmt.Errorf(format, args...)
}

func (r ValidationRule) intValue() (int, error) {
	var n int
	if err := json.Unmarshal(r.Value, &n); err != nil {
		return 0, fmt.Errorf("规则 %s 的 value 必须为整数: %w", r.Kind, err)
	}
	return n, nil
}

func (r ValidationRule) floatValue() (float64, error) {
	var f float64
	if err := json.Unmarshal(r.Value, &f); err != nil {
		return 0, fmt.Errorf("规则 %s 的 value 必须为数值: %w", r.Kind, err)
	}
	return f, nil
}

// toFloat 宽容的数值转换（JSON 解码后数值为 float64）
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
