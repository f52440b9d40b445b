package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// EastmoneySource 基于东方财富行情接口（push2his）的日线数据，qfq 前复权。
type EastmoneySource struct {
	baseURL string
	client  *http.Client
}

func NewEastmoneySource(base string) *EastmoneySource {
	if base == "" {
		base = "https://push2his.eastmoney.com"
	}
	return &EastmoneySource{
		baseURL: base,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *EastmoneySource) Name() string { return "eastmoney" }

func (e *EastmoneySource) Fetch(ctx context.Context, req Request) ([]RawBar, error) {
	if req.TsCode == "" {
		return nil, fmt.Errorf("ts_code 不能为空")
	}
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/api/qt/stock/kline/get"
	q := u.Query()
	q.Set("secid", secID(req.TsCode))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")
	q.Set("klt", "101") // 日线
	q.Set("fqt", "1")   // qfq 前复权
	q.Set("beg", req.Start)
	q.Set("end", req.End)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Code: resp.StatusCode}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	klines := gjson.GetBytes(raw, "data.klines").Array()
	out := make([]RawBar, 0, len(klines))
	for _, line := range klines {
		// f51..f56: 日期,开盘,收盘,最高,最低,成交量
		parts := strings.Split(line.String(), ",")
		if len(parts) < 6 {
			continue
		}
		out = append(out, RawBar{
			Date:   parts[0],
			Open:   parts[1],
			Close:  parts[2],
			High:   parts[3],
			Low:    parts[4],
			Volume: parts[5],
		})
	}
	return out, nil
}

// secID 东财的市场前缀：沪市 1，深市/北交所 0。
func secID(tsCode string) string {
	code := tsCode
	if i := strings.IndexByte(tsCode, '.'); i > 0 {
		code = tsCode[:i]
	}
	if strings.HasSuffix(tsCode, ".SH") {
		return "1." + code
	}
	return "0." + code
}
