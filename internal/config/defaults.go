package config

// 默认值常量
const (
	defaultLogLevel        = "info"
	defaultStart           = "20190101"
	defaultEnd             = "today"
	defaultOutDir          = "./data"
	defaultWorkers         = 6
	defaultDatasource      = "eastmoney"
	defaultMaxAttempts     = 3
	defaultCooldownSeconds = 600
	defaultBackoffSeconds  = 15
	defaultMaxPerMinute    = 40
	defaultStocklistPath   = "./stocklist.csv"
	defaultRunlogPath      = "./data/fetch_runs.db"
)

// applyDefaults 为缺省字段填默认值。
func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if c.Fetch.Start == "" {
		c.Fetch.Start = defaultStart
	}
	if c.Fetch.End == "" {
		c.Fetch.End = defaultEnd
	}
	if c.Fetch.OutDir == "" {
		c.Fetch.OutDir = defaultOutDir
	}
	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = defaultWorkers
	}
	if c.Fetch.Datasource == "" {
		c.Fetch.Datasource = defaultDatasource
	}
	if c.Fetch.MaxAttempts <= 0 {
		c.Fetch.MaxAttempts = defaultMaxAttempts
	}
	if c.Fetch.CooldownSeconds <= 0 {
		c.Fetch.CooldownSeconds = defaultCooldownSeconds
	}
	if c.Fetch.BackoffSeconds <= 0 {
		c.Fetch.BackoffSeconds = defaultBackoffSeconds
	}
	if c.RateLimit.MaxPerMinute <= 0 {
		c.RateLimit.MaxPerMinute = defaultMaxPerMinute
	}
	if c.Stocklist.Path == "" {
		c.Stocklist.Path = defaultStocklistPath
	}
	if c.Runlog.Path == "" {
		c.Runlog.Path = defaultRunlogPath
	}
}
