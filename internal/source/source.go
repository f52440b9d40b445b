package source

import "context"

// Request 描述一次远端日线请求，日期为 YYYYMMDD。
type Request struct {
	TsCode string
	Start  string
	End    string
}

// RawBar 保留数据源返回的原始字段，数值统一为字符串，
// 由上层做宽松的数值转换。
type RawBar struct {
	Date   string
	Open   string
	Close  string
	High   string
	Low    string
	Volume string
}

// Source 统一不同行情数据源的日线拉取行为。
type Source interface {
	Fetch(ctx context.Context, req Request) ([]RawBar, error)
	Name() string
}
