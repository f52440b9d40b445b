package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockfetch/internal/config"
	"stockfetch/internal/fetcher"
	"stockfetch/internal/logger"
	"stockfetch/internal/source"
	"stockfetch/internal/stocklist"
	"stockfetch/internal/store"
	"stockfetch/internal/store/runlog"
	"stockfetch/internal/web"

	"github.com/google/uuid"
)

// App 把股票池、数据源、限流器、工作池和存储装配成一次完整运行。
type App struct {
	cfg     *config.Config
	codes   []string
	pool    *fetcher.Pool
	runlog  *runlog.Store
	web     *web.Server
	srcName string
}

// NewApp 按配置选择数据源并完成装配。股票清单不可读、凭证缺失
// 都属于配置错误，在任何抓取开始之前直接失败。
func NewApp(cfg *config.Config) (*App, error) {
	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	return NewAppWithSource(cfg, src)
}

// NewAppWithSource 用外部注入的数据源装配，测试用桩数据源也走这里。
func NewAppWithSource(cfg *config.Config, src source.Source) (*App, error) {
	codes, err := stocklist.Load(cfg.Stocklist.Path, stocklist.Filter{
		ExcludeBoards: cfg.Stocklist.ExcludeBoards,
		IncludeST:     cfg.Stocklist.IncludeST,
		MinMarketCap:  cfg.Stocklist.MinMarketCap,
		MaxMarketCap:  cfg.Stocklist.MaxMarketCap,
	})
	if err != nil {
		return nil, err
	}

	var limiter *fetcher.Limiter
	if cfg.RateLimit.Enabled {
		limiter = fetcher.NewLimiter(cfg.RateLimit.MaxPerMinute)
	} else {
		limiter = fetcher.NewDisabledLimiter()
	}

	csvStore, err := store.NewCSVStore(cfg.Fetch.OutDir)
	if err != nil {
		return nil, err
	}
	f := fetcher.NewFetcher(fetcher.NewClient(src), limiter, csvStore, fetcher.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Cooldown:    cfg.Fetch.Cooldown(),
		BackoffStep: cfg.Fetch.Backoff(),
	})
	pool := fetcher.NewPool(f, cfg.Fetch.Workers)

	app := &App{
		cfg:     cfg,
		codes:   codes,
		pool:    pool,
		srcName: src.Name(),
	}
	if cfg.Runlog.Enabled {
		rl, err := runlog.NewStore(cfg.Runlog.Path)
		if err != nil {
			return nil, fmt.Errorf("初始化运行日志失败: %w", err)
		}
		app.runlog = rl
	}
	if cfg.App.HTTPAddr != "" {
		app.web = web.NewServer(cfg.App.HTTPAddr, pool)
	}
	return app, nil
}

func buildSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Fetch.Datasource {
	case "tushare":
		return source.NewTushareSource(cfg.Tushare.BaseURL, cfg.Tushare.Token), nil
	case "eastmoney":
		return source.NewEastmoneySource(cfg.Eastmoney.BaseURL), nil
	default:
		return nil, fmt.Errorf("未知数据源: %s", cfg.Fetch.Datasource)
	}
}

// Run 执行一次完整抓取并输出汇总；单只股票失败不会让 Run 返回错误。
func (a *App) Run(ctx context.Context) error {
	start, end, err := a.cfg.Fetch.DateRange(time.Now())
	if err != nil {
		return err
	}
	logger.Infof("开始抓取 %d 支股票 | 数据源:%s(日线,qfq) | 日期:%s → %s | 并发:%d",
		len(a.codes), a.srcName, start.Format("20060102"), end.Format("20060102"), a.cfg.Fetch.Workers)

	if a.web != nil {
		a.web.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			a.web.Shutdown(shutdownCtx)
		}()
	}

	began := time.Now()
	outcomes := a.pool.Run(ctx, a.codes, start, end)
	elapsed := time.Since(began)

	var succeeded, empty, failed int
	for _, o := range outcomes {
		switch o.Status {
		case fetcher.StatusSuccess:
			succeeded++
		case fetcher.StatusEmpty:
			empty++
		default:
			failed++
		}
	}

	line := strings.Repeat("=", 50)
	logger.Infof("%s", line)
	logger.Infof("抓取完成统计:")
	logger.Infof("总股票数: %d", len(a.codes))
	logger.Infof("成功更新: %d（其中空表 %d）", succeeded+empty, empty)
	logger.Infof("失败数量: %d", failed)
	logger.Infof("总耗时: %.1f秒", elapsed.Seconds())
	if elapsed > 0 {
		logger.Infof("平均速度: %.2f只/秒", float64(len(a.codes))/elapsed.Seconds())
	}
	logger.Infof("%s", line)
	logger.Infof("全部任务完成，数据已保存至 %s", a.cfg.Fetch.OutDir)

	if a.runlog != nil {
		run := runlog.RunModel{
			ID:         uuid.NewString(),
			Datasource: a.srcName,
			StartDate:  start.Format("20060102"),
			EndDate:    end.Format("20060102"),
			Total:      len(a.codes),
			Succeeded:  succeeded,
			Empty:      empty,
			Failed:     failed,
			StartedAt:  began.Unix(),
			FinishedAt: began.Add(elapsed).Unix(),
		}
		if err := a.runlog.SaveRun(ctx, run, outcomes); err != nil {
			logger.Warnf("写入运行日志失败: %v", err)
		}
		if err := a.runlog.Close(); err != nil {
			logger.Warnf("关闭运行日志失败: %v", err)
		}
	}
	return nil
}
