package runlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stockfetch/internal/fetcher"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// RunModel 一次完整抓取运行的汇总。
type RunModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	Datasource string `gorm:"column:datasource"`
	StartDate  string `gorm:"column:start_date"`
	EndDate    string `gorm:"column:end_date"`
	Total      int    `gorm:"column:total"`
	Succeeded  int    `gorm:"column:succeeded"`
	Empty      int    `gorm:"column:empty"`
	Failed     int    `gorm:"column:failed"`
	StartedAt  int64  `gorm:"column:started_at"`
	FinishedAt int64  `gorm:"column:finished_at"`
}

func (RunModel) TableName() string { return "fetch_runs" }

// OutcomeModel 单只股票在某次运行中的结果。
type OutcomeModel struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string `gorm:"column:run_id;index"`
	Symbol   string `gorm:"column:symbol"`
	Status   string `gorm:"column:status"`
	Records  int    `gorm:"column:records"`
	Attempts int    `gorm:"column:attempts"`
	Error    string `gorm:"column:error"`
}

func (OutcomeModel) TableName() string { return "fetch_outcomes" }

// Store 把每次运行的汇总与逐股结果写进本地 SQLite，方便事后
// 排查哪些股票失败以及失败原因。
type Store struct {
	db *gorm.DB
}

// NewStore 打开（必要时创建）运行日志数据库。底层使用纯 Go 的
// modernc sqlite 驱动，无需 cgo。
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog: 数据库路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &OutcomeModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return &Store{db: db}, nil
}

// SaveRun 在一个事务里写入运行汇总与全部逐股结果。
func (s *Store) SaveRun(ctx context.Context, run RunModel, outcomes map[string]fetcher.Outcome) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		rows := make([]OutcomeModel, 0, len(outcomes))
		for _, o := range outcomes {
			errStr := ""
			if o.Err != nil {
				errStr = o.Err.Error()
			}
			rows = append(rows, OutcomeModel{
				RunID:    run.ID,
				Symbol:   o.Symbol,
				Status:   o.Status.String(),
				Records:  o.Records,
				Attempts: o.Attempts,
				Error:    errStr,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
