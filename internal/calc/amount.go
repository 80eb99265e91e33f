package calc

import (
	"fmt"
	"math"
	"strings"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultDecimals 未知币种使用的小数位数
const DefaultDecimals int32 = 2

var currencyDecimals = map[string]int32{
	"USD":  2,
	"EUR":  2,
	"USDC": 6,
	"USDT": 6,
	"ETH":  18,
}

var minInt64 = decimal.NewFromInt(math.MinInt64)

// CurrencyDecimals 返回币种的最小单位小数位数
func CurrencyDecimals(currency string) int32 {
	if d, ok := currencyDecimals[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return d
	}
	return DefaultDecimals
}

// FormatAmount 将最小单位金额格式化为十进制字符串，例如 12345 (2位) -> "123.45"
func FormatAmount(amount int64, decimals int32) string {
	return decimal.New(amount, -decimals).StringFixed(decimals)
}

// ParseAmount 将十进制字符串解析为最小单位金额，不经过浮点数
//
// 与 FormatAmount 互逆，负数同样接受；是否允许负数由调用方判断。
func ParseAmount(text string, decimals int32) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty amount", model.ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidAmount, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: more than %d decimal places in %s", model.ErrInvalidAmount, decimals, text)
	}
	if scaled.GreaterThan(maxInt64) || scaled.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: amount %s overflows", model.ErrInvalidAmount, text)
	}
	return scaled.IntPart(), nil
}
