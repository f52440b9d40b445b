package config

import (
	"fmt"
	"strings"
	"time"

	"stockfetch/internal/market"
)

// Config 是 stockfetch 的主配置载体。
type Config struct {
	App       AppConfig       `yaml:"app"`
	Fetch     FetchConfig     `yaml:"fetch"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stocklist StocklistConfig `yaml:"stocklist"`
	Tushare   TushareConfig   `yaml:"tushare"`
	Eastmoney EastmoneyConfig `yaml:"eastmoney"`
	Runlog    RunlogConfig    `yaml:"runlog"`
}

type AppConfig struct {
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
	HTTPAddr string `yaml:"http_addr"` // 为空则不启动状态服务
}

// FetchConfig 控制抓取范围与重试节奏。
type FetchConfig struct {
	Start           string `yaml:"start"` // YYYYMMDD 或 "today"
	End             string `yaml:"end"`   // YYYYMMDD 或 "today"
	OutDir          string `yaml:"out_dir"`
	Workers         int    `yaml:"workers"`
	Datasource      string `yaml:"datasource"` // tushare | eastmoney
	MaxAttempts     int    `yaml:"max_attempts"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
	BackoffSeconds  int    `yaml:"backoff_seconds"`
}

// DateRange 把 start/end 解析成日期，"today" 以 now 所在日为准。
func (f FetchConfig) DateRange(now time.Time) (start, end time.Time, err error) {
	start, err = resolveDate(f.Start, now)
	if err != nil {
		return start, end, fmt.Errorf("起始日期无效: %w", err)
	}
	end, err = resolveDate(f.End, now)
	if err != nil {
		return start, end, fmt.Errorf("结束日期无效: %w", err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("结束日期 %s 早于起始日期 %s", f.End, f.Start)
	}
	return start, end, nil
}

func resolveDate(s string, now time.Time) (time.Time, error) {
	if strings.EqualFold(strings.TrimSpace(s), "today") {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return market.ParseDate(s)
}

func (f FetchConfig) Cooldown() time.Duration {
	return time.Duration(f.CooldownSeconds) * time.Second
}

func (f FetchConfig) Backoff() time.Duration {
	return time.Duration(f.BackoffSeconds) * time.Second
}

type RateLimitConfig struct {
	Enabled      bool `yaml:"enabled"`
	MaxPerMinute int  `yaml:"max_per_minute"`
}

type StocklistConfig struct {
	Path          string   `yaml:"path"`
	ExcludeBoards []string `yaml:"exclude_boards"` // gem/star/bj
	IncludeST     bool     `yaml:"include_st"`
	MinMarketCap  float64  `yaml:"min_market_cap"` // 亿元
	MaxMarketCap  float64  `yaml:"max_market_cap"` // 亿元
}

type TushareConfig struct {
	Token   string `yaml:"token"` // 为空时读环境变量 TUSHARE_TOKEN
	BaseURL string `yaml:"base_url"`
}

type EastmoneyConfig struct {
	BaseURL string `yaml:"base_url"`
}

type RunlogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
