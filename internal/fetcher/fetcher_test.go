package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stockfetch/internal/market"
	"stockfetch/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource 按调用次数返回预设结果。
type stubSource struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, req source.Request) ([]source.RawBar, error)
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(_ context.Context, req source.Request) ([]source.RawBar, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call, req)
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memWriter 把序列留在内存里供断言。
type memWriter struct {
	mu     sync.Mutex
	series map[string]market.Series
}

func newMemWriter() *memWriter {
	return &memWriter{series: make(map[string]market.Series)}
}

func (w *memWriter) WriteSeries(code string, s market.Series) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.series[code] = s
	return nil
}

func (w *memWriter) get(code string) (market.Series, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.series[code]
	return s, ok
}

func newTestFetcher(src source.Source, writer SeriesWriter, clock *fakeClock) *Fetcher {
	f := NewFetcher(NewClient(src), NewDisabledLimiter(), writer, Config{
		MaxAttempts: 3,
		Cooldown:    600 * time.Second,
		BackoffStep: 15 * time.Second,
	})
	f.now = clock.Now
	f.sleep = clock.Sleep
	return f
}

func rawBar(date string) source.RawBar {
	return source.RawBar{Date: date, Open: "10.0", Close: "10.1", High: "10.2", Low: "9.9", Volume: "100"}
}

var fetchRange = struct{ start, end time.Time }{
	start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	end:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
}

func TestFetcherThrottleExhaustsAttempts(t *testing.T) {
	src := &stubSource{fn: func(int, source.Request) ([]source.RawBar, error) {
		return nil, errors.New("访问频率过高，请稍后再试")
	}}
	writer := newMemWriter()
	clock := newFakeClock()
	f := newTestFetcher(src, writer, clock)

	out := f.FetchOne(context.Background(), "000001", fetchRange.start, fetchRange.end)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, src.callCount(), "不应超过最大尝试次数")
	var throttle *source.ThrottleError
	assert.ErrorAs(t, out.Err, &throttle)
	_, wrote := writer.get("000001")
	assert.False(t, wrote)

	// 两次冷却均带 ±20% 抖动
	require.Len(t, clock.slept, 2)
	for _, d := range clock.slept {
		assert.GreaterOrEqual(t, d, 480*time.Second)
		assert.LessOrEqual(t, d, 720*time.Second)
	}
}

func TestFetcherTransientThenSuccess(t *testing.T) {
	src := &stubSource{fn: func(call int, _ source.Request) ([]source.RawBar, error) {
		if call == 1 {
			return nil, errors.New("connection refused")
		}
		return []source.RawBar{rawBar("20240102"), rawBar("20240103")}, nil
	}}
	writer := newMemWriter()
	clock := newFakeClock()
	f := newTestFetcher(src, writer, clock)

	out := f.FetchOne(context.Background(), "000001", fetchRange.start, fetchRange.end)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, src.callCount())
	assert.Equal(t, 2, out.Records)
	got, ok := writer.get("000001")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-02", got[0].Date.Format("2006-01-02"))

	// 第一次瞬时失败退避 15s*1
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 15*time.Second, clock.slept[0])
}

func TestFetcherValidationFailureNotRetried(t *testing.T) {
	src := &stubSource{fn: func(int, source.Request) ([]source.RawBar, error) {
		return []source.RawBar{rawBar("20990101")}, nil // 未来日期
	}}
	writer := newMemWriter()
	clock := newFakeClock()
	f := newTestFetcher(src, writer, clock)

	out := f.FetchOne(context.Background(), "000001", fetchRange.start, fetchRange.end)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, src.callCount(), "数据问题重试无益")
	var verr *market.ValidationError
	assert.ErrorAs(t, out.Err, &verr)
	_, wrote := writer.get("000001")
	assert.False(t, wrote)
}

func TestFetcherMissingDateNotRetried(t *testing.T) {
	src := &stubSource{fn: func(int, source.Request) ([]source.RawBar, error) {
		return []source.RawBar{rawBar("20240102"), rawBar("")}, nil
	}}
	writer := newMemWriter()
	f := newTestFetcher(src, writer, newFakeClock())

	out := f.FetchOne(context.Background(), "000001", fetchRange.start, fetchRange.end)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, 1, src.callCount())
	var verr *market.ValidationError
	assert.ErrorAs(t, out.Err, &verr)
}

func TestFetcherEmptySeries(t *testing.T) {
	src := &stubSource{fn: func(int, source.Request) ([]source.RawBar, error) {
		return nil, nil
	}}
	writer := newMemWriter()
	f := newTestFetcher(src, writer, newFakeClock())

	out := f.FetchOne(context.Background(), "000001", fetchRange.start, fetchRange.end)

	assert.Equal(t, StatusEmpty, out.Status)
	assert.Equal(t, 0, out.Records)
	got, ok := writer.get("000001")
	require.True(t, ok, "空序列也要落盘生成空表")
	assert.Len(t, got, 0)
}
