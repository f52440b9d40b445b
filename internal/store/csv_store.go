package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"stockfetch/internal/market"
)

var csvHeader = []string{"date", "open", "close", "high", "low", "volume"}

// CSVStore 每只股票一个 CSV 文件，列固定为 date,open,close,high,low,volume。
// 每次写入都是整体覆盖：先写临时文件再原子改名，进程中途被杀时
// 磁盘上要么是旧文件要么是完整的新文件，不会出现半截数据。
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("输出目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSVStore{dir: dir}, nil
}

// Path 返回股票对应的输出文件路径。
func (s *CSVStore) Path(code string) string {
	return filepath.Join(s.dir, code+".csv")
}

// WriteSeries 落盘单只股票的完整序列；空序列也会生成只有表头的
// 文件，用于区分「查过但无数据」和「从未查过」。
func (s *CSVStore) WriteSeries(code string, series market.Series) error {
	tmp, err := os.CreateTemp(s.dir, code+".csv.tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := writeCSV(tmp, series); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.Path(code)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func writeCSV(f *os.File, series market.Series) error {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range series {
		row := []string{
			rec.Date.Format("2006-01-02"),
			market.FormatValue(rec.Open),
			market.FormatValue(rec.Close),
			market.FormatValue(rec.High),
			market.FormatValue(rec.Low),
			market.FormatValue(rec.Volume),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
