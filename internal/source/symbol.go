package source

import "strings"

// ToTsCode 把 6 位股票代码映射到带交易所后缀的标准代码：
// 60/68/9 开头为上交所，4/8 开头为北交所，其余为深交所。
func ToTsCode(code string) string {
	code = Zfill(code)
	switch {
	case strings.HasPrefix(code, "60"), strings.HasPrefix(code, "68"), strings.HasPrefix(code, "9"):
		return code + ".SH"
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"):
		return code + ".BJ"
	default:
		return code + ".SZ"
	}
}

// Zfill 左补零到 6 位。
func Zfill(code string) string {
	code = strings.TrimSpace(code)
	for len(code) < 6 {
		code = "0" + code
	}
	return code
}
