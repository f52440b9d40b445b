package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stockfetch/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// perSymbolSource 按 ts_code 决定成败。
type perSymbolSource struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]bool
	panics  map[string]bool
}

func (s *perSymbolSource) Name() string { return "stub" }

func (s *perSymbolSource) Fetch(_ context.Context, req source.Request) ([]source.RawBar, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[req.TsCode]++
	s.mu.Unlock()

	if s.panics[req.TsCode] {
		panic("provider sdk exploded")
	}
	if s.failing[req.TsCode] {
		return nil, errors.New("internal server error")
	}
	return []source.RawBar{rawBar("20240102")}, nil
}

func newTestPool(src source.Source, concurrency int) (*Pool, *memWriter) {
	writer := newMemWriter()
	f := NewFetcher(NewClient(src), NewDisabledLimiter(), writer, Config{MaxAttempts: 1})
	f.sleep = func(context.Context, time.Duration) error { return nil }
	return NewPool(f, concurrency), writer
}

func TestPoolRunAggregatesOutcomes(t *testing.T) {
	var codes []string
	failing := make(map[string]bool)
	for i := 1; i <= 10; i++ {
		code := fmt.Sprintf("%06d", i)
		codes = append(codes, code)
		if i <= 3 {
			failing[source.ToTsCode(code)] = true
		}
	}
	src := &perSymbolSource{failing: failing}
	pool, _ := newTestPool(src, 4)

	outcomes := pool.Run(context.Background(), codes, fetchRange.start, fetchRange.end)

	require.Len(t, outcomes, 10, "每只股票恰好一个结果")
	var succeeded, failed int
	for _, code := range codes {
		out, ok := outcomes[code]
		require.True(t, ok, "缺少 %s 的结果", code)
		switch out.Status {
		case StatusSuccess:
			succeeded++
		case StatusFailed:
			failed++
		}
	}
	assert.Equal(t, 7, succeeded)
	assert.Equal(t, 3, failed)

	done, total := pool.Progress()
	assert.Equal(t, int64(10), done)
	assert.Equal(t, int64(10), total)
}

func TestPoolRecoversPanic(t *testing.T) {
	src := &perSymbolSource{panics: map[string]bool{source.ToTsCode("000002"): true}}
	pool, _ := newTestPool(src, 2)

	outcomes := pool.Run(context.Background(), []string{"000001", "000002"}, fetchRange.start, fetchRange.end)

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusSuccess, outcomes["000001"].Status)
	assert.Equal(t, StatusFailed, outcomes["000002"].Status)
	assert.ErrorContains(t, outcomes["000002"].Err, "panic")
}

func TestPoolSingleWorker(t *testing.T) {
	src := &perSymbolSource{}
	pool, writer := newTestPool(src, 1)

	outcomes := pool.Run(context.Background(), []string{"600000", "000001"}, fetchRange.start, fetchRange.end)

	assert.Len(t, outcomes, 2)
	for _, code := range []string{"600000", "000001"} {
		assert.Equal(t, StatusSuccess, outcomes[code].Status)
		_, ok := writer.get(code)
		assert.True(t, ok)
	}
}
