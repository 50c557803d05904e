package model

import (
	"encoding/json"
	"testing"
)

func rule(kind RuleKind, value string) ValidationRule {
	return ValidationRule{Kind: kind, Value: json.RawMessage(value)}
}

func TestValidationRule_MinMaxLength(t *testing.T) {
	minRule := rule(RuleMinLength, "2")
	if err := minRule.Check("name", "场地A"); err != nil {
		t.Errorf("长度足够应通过: %v", err)
	}
	if err := minRule.Check("name", "场"); err == nil {
		t.Error("长度不足应报错")
	}
	// 按字符数而非字节数
	if err := rule(RuleMaxLength, "3").Check("name", "一二三"); err != nil {
		t.Errorf("3 个汉字应通过 maxLength=3: %v", err)
	}
	if err := rule(RuleMaxLength, "3").Check("name", "一二三四"); err == nil {
		t.Error("超长应报错")
	}
	if err := minRule.Check("name", 42); err == nil {
		t.Error("非字符串应报错")
	}
}

func TestValidationRule_MinMax(t *testing.T) {
	if err := rule(RuleMin, "1").Check("capacity", float64(4)); err != nil {
		t.Errorf("数值达标应通过: %v", err)
	}
	if err := rule(RuleMin, "1").Check("capacity", float64(0)); err == nil {
		t.Error("低于下限应报错")
	}
	if err := rule(RuleMax, "10").Check("capacity", float64(11)); err == nil {
		t.Error("超过上限应报错")
	}
	if err := rule(RuleMax, "10").Check("capacity", "十"); err == nil {
		t.Error("非数值应报错")
	}
}

func TestValidationRule_Pattern(t *testing.T) {
	phone := rule(RulePattern, `"^1[0-9]{10}$"`)
	if err := phone.Check("phone", "13800138000"); err != nil {
		t.Errorf("匹配的值应通过: %v", err)
	}
	if err := phone.Check("phone", "abc"); err == nil {
		t.Error("不匹配的值应报错")
	}
}

func TestValidationRule_CustomMessage(t *testing.T) {
	r := ValidationRule{Kind: RuleMinLength, Value: json.RawMessage("5"), Message: "名称太短啦"}
	err := r.Check("name", "短")
	if err == nil || err.Error() != "名称太短啦" {
		t.Errorf("应优先使用规则自带消息，实际: %v", err)
	}
}

func TestValidationRule_UnknownKind(t *testing.T) {
	if err := rule("between", "1").Check("x", 1); err == nil {
		t.Error("未知 kind 应报错而非静默通过")
	}
}

func TestValidExceptionType(t *testing.T) {
	for _, et := range []ExceptionType{ExceptionCancelled, ExceptionRescheduled, ExceptionModified, ExceptionConflictSkipped} {
		if !ValidExceptionType(et) {
			t.Errorf("%s 应为合法例外类型", et)
		}
	}
	if ValidExceptionType("ghosted") {
		t.Error("未知例外类型应判非法")
	}
}
