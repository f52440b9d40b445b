package config

import (
	"fmt"
	"strings"
	"time"
)

var validBoards = map[string]bool{"gem": true, "star": true, "bj": true}

// validate 检查配置的一致性；这里返回的都是配置错误，
// 调用方应在任何抓取开始之前终止整个运行。
func validate(c *Config) error {
	switch c.Fetch.Datasource {
	case "tushare":
		if strings.TrimSpace(c.Tushare.Token) == "" {
			return fmt.Errorf("使用 tushare 数据源需要 token（配置 tushare.token 或环境变量 TUSHARE_TOKEN）")
		}
	case "eastmoney":
	default:
		return fmt.Errorf("未知数据源: %s（支持 tushare/eastmoney）", c.Fetch.Datasource)
	}
	if _, _, err := c.Fetch.DateRange(time.Now()); err != nil {
		return err
	}
	for _, b := range c.Stocklist.ExcludeBoards {
		if !validBoards[strings.ToLower(strings.TrimSpace(b))] {
			return fmt.Errorf("未知板块 %q（支持 gem/star/bj）", b)
		}
	}
	if c.Stocklist.MinMarketCap > 0 && c.Stocklist.MaxMarketCap > 0 &&
		c.Stocklist.MaxMarketCap < c.Stocklist.MinMarketCap {
		return fmt.Errorf("市值范围无效: max %.1f 亿 < min %.1f 亿", c.Stocklist.MaxMarketCap, c.Stocklist.MinMarketCap)
	}
	return nil
}
