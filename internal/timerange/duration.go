package timerange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ── ISO 8601 时长 ──
//
// 线格式使用 ISO 8601 时长（如 PT1H、PT30M、P1DT2H），存储层以秒为单位。
// 仅支持 D/H/M/S 与 W 单位；年月因长度不定不支持，解析时报错。

var ErrInvalidDuration = errors.New("时长格式无效，应为 ISO 8601（如 PT1H）")

// ParseISODuration 解析 ISO 8601 时长字符串
func ParseISODuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 3 || s[0] != 'P' {
		return 0, ErrInvalidDuration
	}

	body := s[1:]
	datePart := body
	timePart := ""
	if i := strings.IndexByte(body, 'T'); i >= 0 {
		datePart = body[:i]
		timePart = body[i+1:]
		if timePart == "" {
			return 0, ErrInvalidDuration
		}
	}

	var total time.Duration

	d, err := parseDurationPart(datePart, map[byte]time.Duration{
		'W': 7 * 24 * time.Hour,
		'D': 24 * time.Hour,
	})
	if err != nil {
		return 0, err
	}
	total += d

	d, err = parseDurationPart(timePart, map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	})
	if err != nil {
		return 0, err
	}
	total += d

	if total <= 0 {
		return 0, ErrInvalidDuration
	}
	return total, nil
}

// parseDurationPart 解析数字+单位序列（如 "1D"、"2H30M"）
func parseDurationPart(s string, units map[byte]time.Duration) (time.Duration, error) {
	var total time.Duration
	num := ""
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= '0' && ch <= '9' {
			num += string(ch)
			continue
		}
		unit, ok := units[ch]
		if !ok || num == "" {
			return 0, fmt.Errorf("%w: 无法识别 %q", ErrInvalidDuration, s)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, err)
		}
		total += time.Duration(n) * unit
		num = ""
	}
	if num != "" {
		return 0, fmt.Errorf("%w: 缺少单位（%q）", ErrInvalidDuration, s)
	}
	return total, nil
}

// FormatISODuration 将时长序列化为 ISO 8601 字符串
func FormatISODuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}

	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	hours := secs / 3600
	secs %= 3600
	mins := secs / 60
	secs %= 60

	var b strings.Builder
	b.WriteByte('P')
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || mins > 0 || secs > 0 {
		b.WriteByte('T')
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if mins > 0 {
			fmt.Fprintf(&b, "%dM", mins)
		}
		if secs > 0 {
			fmt.Fprintf(&b, "%dS", secs)
		}
	}
	if b.Len() == 1 {
		return "PT0S"
	}
	return b.String()
}
