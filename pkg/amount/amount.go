// Package amount converts between human decimal token amounts and integer
// base units.
package amount

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"intent-swap/pkg/types"
)

// plainDecimal is the accepted human amount shape. Exponent notation is
// rejected since the exponent is unbounded.
var plainDecimal = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

const (
	minFractionDigits = 2
	gweiDecimals      = 9
	etherDecimals     = 18
)

// ToBaseUnits converts a human amount such as "1.5" to base units using the
// token's decimals. A negative decimals value means the token's decimals are
// unknown.
func ToBaseUnits(human string, decimals int) (string, error) {
	if decimals < 0 {
		return "", types.NewValidationError("decimals", "token decimals are unknown")
	}

	human = strings.TrimSpace(human)
	if !plainDecimal.MatchString(human) {
		if strings.HasPrefix(human, "-") {
			return "", types.NewValidationError("amount", "amount must be greater than 0")
		}
		return "", types.NewValidationError("amount", "cannot parse '"+human+"'")
	}
	d, err := decimal.NewFromString(human)
	if err != nil {
		return "", types.NewValidationError("amount", "cannot parse '"+human+"'")
	}
	if d.Sign() <= 0 {
		return "", types.NewValidationError("amount", "amount must be greater than 0")
	}
	if -d.Exponent() > int32(decimals) && !d.Equal(d.Truncate(int32(decimals))) {
		return "", types.NewValidationError("amount", "'"+human+"' has more decimal places than the token supports")
	}

	return d.Shift(int32(decimals)).BigInt().String(), nil
}

// ToHumanAmount converts base units to a decimal string with at least two and
// at most decimals fractional digits.
func ToHumanAmount(base string, decimals int) (string, error) {
	if decimals < 0 {
		return "", types.NewValidationError("decimals", "token decimals are unknown")
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(base), 10)
	if !ok {
		return "", types.NewValidationError("amount", "cannot parse base units '"+base+"'")
	}
	return Format(decimal.NewFromBigInt(n, -int32(decimals)), decimals), nil
}

// Format renders d with at least two and at most maxFraction fractional
// digits. When maxFraction is below two it wins, so a token without decimals
// never shows a fraction.
func Format(d decimal.Decimal, maxFraction int) string {
	if maxFraction < 0 {
		maxFraction = 0
	}
	minDigits := min(minFractionDigits, maxFraction)
	s := d.StringFixed(int32(maxFraction))
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	keep := len(s)
	for keep > dot+1+minDigits && s[keep-1] == '0' {
		keep--
	}
	return s[:keep]
}

// GweiToWei converts a gwei gas price to wei, dropping sub-wei fractions
func GweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Shift(gweiDecimals).BigInt()
}

// WeiToGwei converts a wei amount to gwei
func WeiToGwei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -gweiDecimals)
}

// WeiToEther formats a wei balance as a human ether amount
func WeiToEther(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	return Format(decimal.NewFromBigInt(wei, -etherDecimals), etherDecimals)
}

// FromBig formats a base unit amount held as a big.Int
func FromBig(base *big.Int, decimals int) (string, error) {
	if base == nil {
		base = new(big.Int)
	}
	return ToHumanAmount(base.String(), decimals)
}
