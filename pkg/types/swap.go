package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction says whether a swap amount is the amount to sell or to buy
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// NativeTokenAddress is the aggregator's sentinel for the chain's native currency
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// SwapIntent is what the user asked for, as produced by intent parsing
type SwapIntent struct {
	Direction    Direction
	SourceSymbol string
	TargetSymbol string
	RawAmount    string
}

// TokenRef identifies a token on a chain
type TokenRef struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	ChainID  int64  `json:"chain_id"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logo_uri,omitempty"`
}

// IsNative reports whether the token is the chain's native currency
func (t TokenRef) IsNative() bool {
	return IsNativeAddress(t.Address)
}

// IsNativeAddress reports whether address is the native currency sentinel
func IsNativeAddress(address string) bool {
	return strings.EqualFold(address, NativeTokenAddress)
}

// QuoteRequest is the query sent to the aggregator. Exactly one of
// SellAmount and BuyAmount is set; both are integer base units.
type QuoteRequest struct {
	SellToken    string
	BuyToken     string
	SellAmount   string
	BuyAmount    string
	TakerAddress string
}

// Validate checks the request shape
func (r QuoteRequest) Validate() error {
	if r.SellToken == "" {
		return NewValidationError("sellToken", "sell token address is required")
	}
	if r.BuyToken == "" {
		return NewValidationError("buyToken", "buy token address is required")
	}
	if r.SellAmount != "" && r.BuyAmount != "" {
		return NewValidationError("amount", "only one of sell amount and buy amount may be set")
	}
	if r.SellAmount == "" && r.BuyAmount == "" {
		return NewValidationError("amount", "one of sell amount or buy amount is required")
	}
	return nil
}

// Source is one liquidity source contributing to a price
type Source struct {
	Name       string `json:"name"`
	Proportion string `json:"proportion"`
}

// Price is an indicative, non-committing aggregator price
type Price struct {
	ChainID              int64    `json:"chainId"`
	Price                string   `json:"price"`
	EstimatedPriceImpact string   `json:"estimatedPriceImpact"`
	Gas                  string   `json:"gas"`
	EstimatedGas         string   `json:"estimatedGas"`
	GasPrice             string   `json:"gasPrice"`
	BuyTokenAddress      string   `json:"buyTokenAddress"`
	SellTokenAddress     string   `json:"sellTokenAddress"`
	BuyAmount            string   `json:"buyAmount"`
	SellAmount           string   `json:"sellAmount"`
	Sources              []Source `json:"sources"`
	AllowanceTarget      string   `json:"allowanceTarget"`
}

// ActiveSources returns the sources with a non-zero share of the route
func (p *Price) ActiveSources() []Source {
	if p == nil {
		return nil
	}
	active := make([]Source, 0, len(p.Sources))
	for _, s := range p.Sources {
		proportion, err := decimal.NewFromString(s.Proportion)
		if err != nil || proportion.IsZero() {
			continue
		}
		active = append(active, s)
	}
	return active
}

// Quote is a committing, executable aggregator quote
type Quote struct {
	Price
	GuaranteedPrice string `json:"guaranteedPrice"`
	To              string `json:"to"`
	Data            string `json:"data"`
	Value           string `json:"value"`
}

// GasTierName names a gas price preset
type GasTierName string

const (
	GasFast    GasTierName = "fast"
	GasAverage GasTierName = "average"
	GasSafe    GasTierName = "safe"
)

// DefaultGasTier is used until the user picks one
const DefaultGasTier = GasAverage

// ParseGasTierName parses a user supplied tier name
func ParseGasTierName(name string) (GasTierName, error) {
	switch GasTierName(strings.ToLower(strings.TrimSpace(name))) {
	case GasFast:
		return GasFast, nil
	case GasAverage, "avg", "regular":
		return GasAverage, nil
	case GasSafe, "slow":
		return GasSafe, nil
	default:
		return "", NewValidationError("gas", "unknown gas tier '"+name+"', expected fast, average or safe")
	}
}

// GasTier is a gas price in gwei with its estimated confirmation time
type GasTier struct {
	Name      GasTierName     `json:"name"`
	PriceGwei decimal.Decimal `json:"price_gwei"`
	ETA       time.Duration   `json:"eta"`
}

// GasTiers holds the three presets
type GasTiers struct {
	Fast    GasTier   `json:"fast"`
	Average GasTier   `json:"average"`
	Safe    GasTier   `json:"safe"`
	Block   uint64    `json:"block,omitempty"`
	Fetched time.Time `json:"fetched"`
}

// Tier returns the preset for name, falling back to average
func (g GasTiers) Tier(name GasTierName) GasTier {
	switch name {
	case GasFast:
		return g.Fast
	case GasSafe:
		return g.Safe
	default:
		return g.Average
	}
}

// All returns the presets from fastest to slowest
func (g GasTiers) All() []GasTier {
	return []GasTier{g.Fast, g.Average, g.Safe}
}

// AllowanceState is the result of one allowance check
type AllowanceState struct {
	Owner    string
	Spender  string
	Current  string
	Required string
	// Approved is set when the check had to send an approval
	Approved bool
	TxHash   string
}

// Balance is one tracked token balance
type Balance struct {
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
	Pending bool   `json:"pending"`
	Err     error  `json:"-"`
}

// Balances is ordered like the tracked token list, native currency first
type Balances []Balance
