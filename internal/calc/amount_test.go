package calc

import (
	"math"
	"testing"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "123.45", FormatAmount(12345, 2))
	assert.Equal(t, "0.05", FormatAmount(5, 2))
	assert.Equal(t, "7", FormatAmount(7, 0))
	assert.Equal(t, "0.000000000000000001", FormatAmount(1, 18))
	assert.Equal(t, "1.000000", FormatAmount(1000000, 6))
	assert.Equal(t, "-123.45", FormatAmount(-12345, 2))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("123.45", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), v)

	v, err = ParseAmount(" 10 ", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v)

	v, err = ParseAmount("0.1", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), v)

	v, err = ParseAmount("-1.50", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(-150), v)

	for _, bad := range []string{"", "abc", "--1", "1.234", "-0.001", "99999999999999999999", "-99999999999999999999"} {
		_, err := ParseAmount(bad, 2)
		assert.ErrorIs(t, err, model.ErrInvalidAmount, bad)
	}
}

func TestAmountRoundTrip(t *testing.T) {
	amounts := []int64{0, 1, 9, 10, 99, 100, 12345, 1000000007, math.MaxInt64, -1, -12345, math.MinInt64}
	for _, decimals := range []int32{0, 2, 6, 18} {
		for _, amount := range amounts {
			parsed, err := ParseAmount(FormatAmount(amount, decimals), decimals)
			require.NoError(t, err)
			assert.Equal(t, amount, parsed, "decimals=%d", decimals)
		}
	}
}

func TestCurrencyDecimals(t *testing.T) {
	assert.Equal(t, int32(2), CurrencyDecimals("usd"))
	assert.Equal(t, int32(6), CurrencyDecimals("USDC"))
	assert.Equal(t, int32(18), CurrencyDecimals("ETH"))
	assert.Equal(t, DefaultDecimals, CurrencyDecimals("XYZ"))
}
