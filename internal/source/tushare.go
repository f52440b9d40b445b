package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const tushareFields = "ts_code,trade_date,open,high,low,close,vol"

// TushareSource 基于 Tushare Pro 的 HTTP 接口（api.waditu.com）。
type TushareSource struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewTushareSource(base, token string) *TushareSource {
	if base == "" {
		base = "https://api.waditu.com"
	}
	return &TushareSource{
		baseURL: base,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *TushareSource) Name() string { return "tushare" }

func (t *TushareSource) Fetch(ctx context.Context, req Request) ([]RawBar, error) {
	if req.TsCode == "" {
		return nil, fmt.Errorf("ts_code 不能为空")
	}
	payload := map[string]any{
		"api_name": "daily",
		"token":    t.token,
		"params": map[string]string{
			"ts_code":    req.TsCode,
			"start_date": req.Start,
			"end_date":   req.End,
		},
		"fields": tushareFields,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(httpReq)
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
	if code := gjson.GetBytes(raw, "code").Int(); code != 0 {
		return nil, fmt.Errorf("tushare code=%d: %s", code, gjson.GetBytes(raw, "msg").String())
	}
	return parseTushareItems(raw), nil
}

// parseTushareItems 按 data.fields 中的列名定位各字段，避免依赖列顺序。
func parseTushareItems(raw []byte) []RawBar {
	fields := gjson.GetBytes(raw, "data.fields").Array()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.String()] = i
	}
	items := gjson.GetBytes(raw, "data.items").Array()
	out := make([]RawBar, 0, len(items))
	for _, item := range items {
		row := item.Array()
		pick := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i].String()
		}
		out = append(out, RawBar{
			Date:   pick("trade_date"),
			Open:   pick("open"),
			Close:  pick("close"),
			High:   pick("high"),
			Low:    pick("low"),
			Volume: pick("vol"),
		})
	}
	return out
}
