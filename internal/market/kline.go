package market

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KlineRecord 单只股票某个交易日的日线记录（复权方式由数据源决定）。
type KlineRecord struct {
	Date   time.Time
	Open   float64
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// Series 按日期升序排列的日线序列。
type Series []KlineRecord

// ValidationError 表示序列不满足基础约束（缺失日期/未来日期等），
// 属于数据源侧的数据问题，重试无法修复。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "kline 校验失败: " + e.Reason
}

// Normalize 去重（保留首次出现的日期）并按日期升序排序；
// 发现缺失日期或晚于 today 所在日历日的日期时返回 ValidationError。
func (s Series) Normalize(today time.Time) (Series, error) {
	if len(s) == 0 {
		return s, nil
	}
	// 只比较日历日：记录按 UTC 解析而 today 带本地时区，
	// 按绝对时间比较会把东八区凌晨的当日数据误判成未来日期
	todayKey := today.Format("20060102")
	seen := make(map[string]bool, len(s))
	out := make(Series, 0, len(s))
	for _, rec := range s {
		if rec.Date.IsZero() {
			return nil, &ValidationError{Reason: "存在缺失日期"}
		}
		key := rec.Date.Format("20060102")
		if key > todayKey {
			return nil, &ValidationError{Reason: fmt.Sprintf("包含未来日期 %s，可能抓取错误", rec.Date.Format("2006-01-02"))}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ParseDate 接受 YYYYMMDD 或 YYYY-MM-DD 两种常见格式。
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("日期为空")
	}
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期 %q", s)
}

// ParseValue 宽松解析数值字段；非数值内容返回 NaN 占位而不是让整次抓取失败。
func ParseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// FormatValue 输出 CSV 单元格；NaN 输出空串，与空值语义对齐。
func FormatValue(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
