package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSeriesNormalize(t *testing.T) {
	today := day("2024-06-30")

	t.Run("valid series kept as-is", func(t *testing.T) {
		s := Series{
			{Date: day("2024-01-02"), Close: 10},
			{Date: day("2024-01-03"), Close: 11},
			{Date: day("2024-01-04"), Close: 12},
		}
		out, err := s.Normalize(today)
		require.NoError(t, err)
		require.Len(t, out, 3)
		for i := 1; i < len(out); i++ {
			assert.True(t, out[i-1].Date.Before(out[i].Date))
		}
	})

	t.Run("duplicate dates keep first occurrence", func(t *testing.T) {
		s := Series{
			{Date: day("2024-01-02"), Close: 10},
			{Date: day("2024-01-02"), Close: 99},
			{Date: day("2024-01-03"), Close: 11},
		}
		out, err := s.Normalize(today)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, 10.0, out[0].Close)
		assert.Equal(t, day("2024-01-03"), out[1].Date)
	})

	t.Run("unsorted input sorted ascending", func(t *testing.T) {
		s := Series{
			{Date: day("2024-01-05")},
			{Date: day("2024-01-02")},
			{Date: day("2024-01-03")},
		}
		out, err := s.Normalize(today)
		require.NoError(t, err)
		assert.Equal(t, day("2024-01-02"), out[0].Date)
		assert.Equal(t, day("2024-01-05"), out[2].Date)
	})

	t.Run("future date rejected", func(t *testing.T) {
		s := Series{
			{Date: day("2024-06-28")},
			{Date: day("2024-07-01")},
		}
		_, err := s.Normalize(today)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("today itself is not a future date", func(t *testing.T) {
		s := Series{{Date: day("2024-06-30")}}
		_, err := s.Normalize(today)
		assert.NoError(t, err)
	})

	t.Run("east-of-UTC morning keeps same-day records", func(t *testing.T) {
		// 记录按 UTC 解析，today 带东八区时区；按日历日比较不受时差影响
		cst := time.FixedZone("CST", 8*3600)
		now := time.Date(2024, 6, 30, 2, 0, 0, 0, cst)
		s := Series{{Date: day("2024-06-30")}}
		_, err := s.Normalize(now)
		assert.NoError(t, err)
	})

	t.Run("east-of-UTC evening still rejects tomorrow", func(t *testing.T) {
		cst := time.FixedZone("CST", 8*3600)
		now := time.Date(2024, 6, 30, 23, 0, 0, 0, cst)
		s := Series{{Date: day("2024-07-01")}}
		_, err := s.Normalize(now)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("missing date rejected", func(t *testing.T) {
		s := Series{{Date: time.Time{}}}
		_, err := s.Normalize(today)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("empty series passes", func(t *testing.T) {
		out, err := Series{}.Normalize(today)
		assert.NoError(t, err)
		assert.Len(t, out, 0)
	})
}

func TestParseDate(t *testing.T) {
	for _, raw := range []string{"20240102", "2024-01-02"} {
		got, err := ParseDate(raw)
		require.NoError(t, err)
		assert.Equal(t, day("2024-01-02"), got)
	}
	_, err := ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("not-a-date")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 12.5, ParseValue("12.5"))
	assert.Equal(t, 12.5, ParseValue(" 12.5 "))
	assert.True(t, math.IsNaN(ParseValue("")))
	assert.True(t, math.IsNaN(ParseValue("-")))
	assert.True(t, math.IsNaN(ParseValue("abc")))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "12.5", FormatValue(12.5))
	assert.Equal(t, "", FormatValue(math.NaN()))
}
