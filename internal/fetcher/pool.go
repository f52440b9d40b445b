package fetcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stockfetch/internal/logger"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 6

// Pool 固定并发度的抓取工作池。所有 worker 共享同一个 Limiter，
// 并发度只限制在途请求数量，真正的吞吐由限流器决定。
type Pool struct {
	fetcher     *Fetcher
	concurrency int

	mu       sync.Mutex
	outcomes map[string]Outcome

	done  atomic.Int64
	total atomic.Int64
}

func NewPool(f *Fetcher, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Pool{
		fetcher:     f,
		concurrency: concurrency,
		outcomes:    make(map[string]Outcome),
	}
}

// Progress 返回已完成数与总数，供进度展示。
func (p *Pool) Progress() (done, total int64) {
	return p.done.Load(), p.total.Load()
}

// Outcomes 返回当前已聚合结果的快照。
func (p *Pool) Outcomes() map[string]Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]Outcome, len(p.outcomes))
	for k, v := range p.outcomes {
		out[k] = v
	}
	return out
}

// Run 把每只股票分发给状态机跑到终态并聚合结果。
// 单个任务内逃逸的 panic 被捕获记为该股票失败，不影响其余任务。
func (p *Pool) Run(ctx context.Context, codes []string, start, end time.Time) map[string]Outcome {
	p.total.Store(int64(len(codes)))
	p.done.Store(0)
	p.mu.Lock()
	p.outcomes = make(map[string]Outcome, len(codes))
	p.mu.Unlock()

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			out := p.fetchSafe(ctx, code, start, end)
			p.mu.Lock()
			p.outcomes[code] = out
			p.mu.Unlock()

			n := p.done.Add(1)
			if out.Status == StatusFailed {
				logger.Errorf("[fetch] %s 失败(尝试 %d 次): %v", code, out.Attempts, out.Err)
			}
			if n%50 == 0 || n == p.total.Load() {
				logger.Infof("[fetch] 进度 %d/%d", n, p.total.Load())
			}
			return nil
		})
	}
	_ = g.Wait()
	return p.Outcomes()
}

func (p *Pool) fetchSafe(ctx context.Context, code string, start, end time.Time) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Symbol: code, Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.fetcher.FetchOne(ctx, code, start, end)
}
