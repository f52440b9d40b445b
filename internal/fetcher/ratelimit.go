package fetcher

import (
	"context"
	"sync"
	"time"
)

// Limiter 进程级请求节流器：按 60 秒滚动窗口限制请求总数，
// 并在相邻请求之间强制 60/max 秒的最小间隔。整个 Wait 过程
// 持有互斥锁，对所有并发调用方原子生效。
type Limiter struct {
	mu        sync.Mutex
	maxPerMin int
	disabled  bool

	windowStart time.Time
	count       int
	last        time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter 创建每分钟最多 maxPerMin 次请求的节流器。
func NewLimiter(maxPerMin int) *Limiter {
	if maxPerMin <= 0 {
		return NewDisabledLimiter()
	}
	return &Limiter{
		maxPerMin: maxPerMin,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// NewDisabledLimiter 返回完全关闭的节流器，Wait 直接放行。
// 这是面向 AkShare 类无限流数据源的显式开关。
func NewDisabledLimiter() *Limiter {
	return &Limiter{disabled: true, now: time.Now, sleep: sleepCtx}
}

// Wait 阻塞到允许发出下一次请求为止，并记录本次请求。
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.disabled {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() {
		l.windowStart = now
	}
	if now.Sub(l.windowStart) >= time.Minute {
		l.windowStart = now
		l.count = 0
	}
	if l.count >= l.maxPerMin {
		// 睡到窗口边界，再加 1 秒安全余量
		wait := time.Minute - now.Sub(l.windowStart) + time.Second
		if wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
		l.windowStart = l.now()
		l.count = 0
		now = l.windowStart
	}
	interval := time.Minute / time.Duration(l.maxPerMin)
	if !l.last.IsZero() {
		if since := now.Sub(l.last); since < interval {
			if err := l.sleep(ctx, interval-since); err != nil {
				return err
			}
			now = l.now()
		}
	}
	l.last = now
	l.count++
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
