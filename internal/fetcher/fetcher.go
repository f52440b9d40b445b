package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"stockfetch/internal/logger"
	"stockfetch/internal/market"
	"stockfetch/internal/source"
)

// Status 单只股票抓取流程的终态。
type Status int

const (
	StatusSuccess Status = iota // 有数据并已落盘
	StatusEmpty                 // 确认区间内无数据，已写表头空表
	StatusFailed                // 重试耗尽或数据异常
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome 单只股票一次运行的结果，只在本次运行汇总中使用。
type Outcome struct {
	Symbol   string
	Status   Status
	Records  int
	Attempts int
	Err      error
}

// SeriesWriter 持久化单只股票的完整序列，整体覆盖旧文件。
type SeriesWriter interface {
	WriteSeries(code string, series market.Series) error
}

// Config 控制重试节奏。
type Config struct {
	MaxAttempts int           // 单只股票最大尝试次数，默认 3
	Cooldown    time.Duration // 限流冷却时长，默认 600s，实际带 ±20% 抖动
	BackoffStep time.Duration // 瞬时错误退避步长，第 n 次退避 n*步长，默认 15s
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 600 * time.Second
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = 15 * time.Second
	}
}

// Fetcher 单只股票的抓取状态机：取限流令牌 → 拉取 → 校验 → 落盘。
// 限流/封禁信号走长冷却，瞬时错误走线性退避，次数封顶后记失败；
// 校验失败（数据源数据问题）不再重试。
type Fetcher struct {
	client  *Client
	limiter *Limiter
	writer  SeriesWriter
	cfg     Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFetcher(client *Client, limiter *Limiter, writer SeriesWriter, cfg Config) *Fetcher {
	cfg.applyDefaults()
	return &Fetcher{
		client:  client,
		limiter: limiter,
		writer:  writer,
		cfg:     cfg,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// FetchOne 把一只股票跑到终态。错误只体现在返回的 Outcome 里，
// 永远不向调用方抛出，单只失败不影响其它任务。
func (f *Fetcher) FetchOne(ctx context.Context, code string, start, end time.Time) Outcome {
	out := Outcome{Symbol: code, Status: StatusFailed}
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		out.Attempts = attempt
		if err := f.limiter.Wait(ctx); err != nil {
			out.Err = err
			return out
		}
		series, err := f.client.Fetch(ctx, code, start, end)
		if err == nil {
			return f.finish(out, code, series)
		}
		out.Err = err

		var throttle *source.ThrottleError
		var delay time.Duration
		if errors.As(err, &throttle) {
			delay = jitter(f.cfg.Cooldown)
			logger.Warnf("[fetch] %s 触发限流(第 %d/%d 次)，冷却 %s 后重试: %v",
				code, attempt, f.cfg.MaxAttempts, delay.Round(time.Second), err)
		} else {
			delay = f.cfg.BackoffStep * time.Duration(attempt)
			logger.Warnf("[fetch] %s 请求失败(第 %d/%d 次)，%s 后重试: %v",
				code, attempt, f.cfg.MaxAttempts, delay, err)
		}
		if attempt == f.cfg.MaxAttempts {
			break
		}
		if err := f.sleep(ctx, delay); err != nil {
			out.Err = err
			return out
		}
	}
	return out
}

func (f *Fetcher) finish(out Outcome, code string, series market.Series) Outcome {
	normalized, err := series.Normalize(f.now())
	if err != nil {
		out.Err = err
		return out
	}
	if err := f.writer.WriteSeries(code, normalized); err != nil {
		out.Err = err
		return out
	}
	out.Err = nil
	out.Records = len(normalized)
	if len(normalized) == 0 {
		out.Status = StatusEmpty
		logger.Debugf("[fetch] %s 区间内无数据，已生成空表", code)
	} else {
		out.Status = StatusSuccess
		logger.Debugf("[fetch] %s 更新成功，共 %d 条", code, len(normalized))
	}
	return out
}

// jitter 在 ±20% 内抖动冷却时长，避免多个 worker 同时苏醒。
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}
