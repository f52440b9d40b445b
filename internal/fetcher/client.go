package fetcher

import (
	"context"
	"sort"
	"time"

	"stockfetch/internal/market"
	"stockfetch/internal/source"
)

// Client 把抽象数据源包装成返回规范化日线序列的 K 线客户端。
type Client struct {
	src source.Source
}

func NewClient(src source.Source) *Client {
	return &Client{src: src}
}

func (c *Client) Name() string { return c.src.Name() }

// Fetch 拉取单只股票 [start, end] 区间的日线并规范化：
// 6 位代码映射为交易所代码，数值字段宽松转换（无法解析记 NaN），
// 结果按日期升序。数据源错误统一分类为限流或瞬时错误；
// 数据源报告区间内无数据时返回空序列而不是错误。
func (c *Client) Fetch(ctx context.Context, code string, start, end time.Time) (market.Series, error) {
	req := source.Request{
		TsCode: source.ToTsCode(code),
		Start:  start.Format("20060102"),
		End:    end.Format("20060102"),
	}
	rows, err := c.src.Fetch(ctx, req)
	if err != nil {
		return nil, source.Classify(c.src.Name(), err)
	}
	series := make(market.Series, 0, len(rows))
	for _, row := range rows {
		// 日期解析失败保留零值，由序列校验环节判定为缺失日期
		date, _ := market.ParseDate(row.Date)
		series = append(series, market.KlineRecord{
			Date:   date,
			Open:   market.ParseValue(row.Open),
			Close:  market.ParseValue(row.Close),
			High:   market.ParseValue(row.High),
			Low:    market.ParseValue(row.Low),
			Volume: market.ParseValue(row.Volume),
		})
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
