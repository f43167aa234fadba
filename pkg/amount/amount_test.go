package amount

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-swap/pkg/types"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		human    string
		decimals int
		want     string
	}{
		{"1.5", 18, "1500000000000000000"},
		{"100", 6, "100000000"},
		{"0.000001", 6, "1"},
		{"2.50", 2, "250"},
		{"7", 0, "7"},
		{"1.100000", 2, "110"},
	}

	for _, tt := range tests {
		got, err := ToBaseUnits(tt.human, tt.decimals)
		require.NoError(t, err, tt.human)
		assert.Equal(t, tt.want, got, tt.human)
	}
}

func TestToBaseUnitsRejects(t *testing.T) {
	tests := []struct {
		name     string
		human    string
		decimals int
	}{
		{"zero", "0", 18},
		{"negative", "-1", 18},
		{"garbage", "one", 18},
		{"empty", "", 18},
		{"unknown decimals", "1", -1},
		{"too precise", "0.0000001", 6},
		{"exponent", "1e3", 18},
		{"huge exponent", "1e2147483640", 18},
		{"large exponent", "1e50000000", 18},
		{"negative exponent", "15E-1", 18},
		{"signed", "+1", 18},
		{"grouped", "1,000", 18},
		{"lone dot", ".", 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToBaseUnits(tt.human, tt.decimals)
			require.Error(t, err)
			assert.True(t, types.IsValidation(err))
		})
	}
}

func TestToHumanAmount(t *testing.T) {
	tests := []struct {
		base     string
		decimals int
		want     string
	}{
		{"1500000", 6, "1.50"},
		{"1234567", 6, "1.234567"},
		{"1500000000000000000", 18, "1.50"},
		{"1", 18, "0.000000000000000001"},
		{"0", 6, "0.00"},
		{"42", 0, "42"},
		{"12345", 1, "1234.5"},
	}

	for _, tt := range tests {
		got, err := ToHumanAmount(tt.base, tt.decimals)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ToHumanAmount("1.5", 6)
	assert.True(t, types.IsValidation(err))
	_, err = ToHumanAmount("100", -1)
	assert.True(t, types.IsValidation(err))
}

func TestRoundTrip(t *testing.T) {
	amounts := []string{"1", "1.5", "0.1", "123456.789", "0.000001", "99999999.123456"}
	for _, decimals := range []int{6, 8, 18} {
		for _, human := range amounts {
			base, err := ToBaseUnits(human, decimals)
			require.NoError(t, err)

			back, err := ToHumanAmount(base, decimals)
			require.NoError(t, err)

			want := decimal.RequireFromString(human)
			got := decimal.RequireFromString(back)
			assert.True(t, want.Equal(got), "%s with %d decimals came back as %s", human, decimals, back)
		}
	}
}

func TestGasConversions(t *testing.T) {
	wei := GweiToWei(decimal.RequireFromString("12.5"))
	assert.Equal(t, "12500000000", wei.String())

	assert.Equal(t, "0", GweiToWei(decimal.Zero).String())
	assert.True(t, WeiToGwei(big.NewInt(30_000_000_000)).Equal(decimal.NewFromInt(30)))
	assert.True(t, WeiToGwei(nil).IsZero())

	assert.Equal(t, "2.00", WeiToEther(new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))))
	assert.Equal(t, "0.00", WeiToEther(nil))
}

func TestFormatRespectsTokenPrecision(t *testing.T) {
	assert.Equal(t, "5", Format(decimal.NewFromInt(5), 0))
	assert.Equal(t, "5.0", Format(decimal.NewFromInt(5), 1))
	assert.Equal(t, "5.00", Format(decimal.NewFromInt(5), 6))
	assert.Equal(t, "31.46", Format(decimal.RequireFromString("31.456"), 2))
}
