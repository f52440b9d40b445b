package stocklist

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"stockfetch/internal/logger"
	"stockfetch/internal/source"

	"github.com/shopspring/decimal"
)

// Filter 控制股票池的过滤规则。
type Filter struct {
	ExcludeBoards []string // 子集：gem(创业板 300/301) star(科创板 688) bj(北交所 .BJ/4/8)
	IncludeST     bool     // 默认剔除 ST，显式置 true 才保留
	MinMarketCap  float64  // 最小市值（亿元），<=0 不限制
	MaxMarketCap  float64  // 最大市值（亿元），<=0 不限制
}

var stPattern = regexp.MustCompile(`^ST|\*ST|ST$`)

// 清单中的市值列按万元记，换算为亿元再比较。
var wanPerYi = decimal.NewFromInt(10000)

// Load 从 stocklist.csv 读取股票池并应用过滤，返回去重且保持原顺序
// 的 6 位代码。文件不可读、缺少 symbol 列或过滤后为空都视为配置
// 错误，调用方应在任何抓取开始之前终止。
func Load(path string, f Filter) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取股票清单失败: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析股票清单失败: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("股票清单 %s 为空", path)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	symIdx, ok := col["symbol"]
	if !ok {
		return nil, fmt.Errorf("股票清单 %s 缺少 symbol 列", path)
	}

	boards := make(map[string]bool, len(f.ExcludeBoards))
	for _, b := range f.ExcludeBoards {
		boards[strings.ToLower(strings.TrimSpace(b))] = true
	}

	capFilter := f.MinMarketCap > 0 || f.MaxMarketCap > 0
	if capFilter {
		if _, ok := col["market_cap"]; !ok {
			logger.Warnf("股票清单缺少 market_cap 列，跳过市值筛选")
			capFilter = false
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seen := make(map[string]bool)
	var codes []string
	var stRemoved int
	for _, row := range rows[1:] {
		rawSym := ""
		if symIdx < len(row) {
			rawSym = strings.TrimSpace(row[symIdx])
		}
		// 空 symbol 单元格直接跳过，补零后会变成假代码 000000
		if rawSym == "" {
			continue
		}
		code := source.Zfill(rawSym)
		tsCode := strings.ToUpper(field(row, "ts_code"))
		if boards["gem"] && (strings.HasPrefix(code, "300") || strings.HasPrefix(code, "301")) {
			continue
		}
		if boards["star"] && strings.HasPrefix(code, "688") {
			continue
		}
		if boards["bj"] && (strings.HasSuffix(tsCode, ".BJ") || strings.HasPrefix(code, "4") || strings.HasPrefix(code, "8")) {
			continue
		}
		if !f.IncludeST {
			if name := field(row, "name"); name != "" && stPattern.MatchString(name) {
				stRemoved++
				continue
			}
		}
		if capFilter && !capInRange(field(row, "market_cap"), f.MinMarketCap, f.MaxMarketCap) {
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	if stRemoved > 0 {
		logger.Infof("已剔除 %d 只 ST 股票", stRemoved)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("股票清单 %s 为空或被过滤后无代码", path)
	}
	logger.Infof("从 %s 读取到 %d 只股票", path, len(codes))
	return codes, nil
}

func capInRange(raw string, minYi, maxYi float64) bool {
	capWan, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	capYi := capWan.Div(wanPerYi)
	if minYi > 0 && capYi.LessThan(decimal.NewFromFloat(minYi)) {
		return false
	}
	if maxYi > 0 && capYi.GreaterThan(decimal.NewFromFloat(maxYi)) {
		return false
	}
	return true
}
