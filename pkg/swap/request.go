package swap

import (
	"intent-swap/pkg/amount"
	"intent-swap/pkg/types"
)

// NewQuoteRequest derives the aggregator request for intent. The amount is
// converted with the decimals of the token it is denominated in: the sell
// token for a sell, the buy token for a buy.
func NewQuoteRequest(intent types.SwapIntent, sell, buy types.TokenRef) (types.QuoteRequest, error) {
	req := types.QuoteRequest{
		SellToken: sell.Address,
		BuyToken:  buy.Address,
	}

	switch intent.Direction {
	case types.DirectionSell:
		base, err := amount.ToBaseUnits(intent.RawAmount, sell.Decimals)
		if err != nil {
			return types.QuoteRequest{}, err
		}
		req.SellAmount = base
	case types.DirectionBuy:
		base, err := amount.ToBaseUnits(intent.RawAmount, buy.Decimals)
		if err != nil {
			return types.QuoteRequest{}, err
		}
		req.BuyAmount = base
	default:
		return types.QuoteRequest{}, types.NewValidationError("direction", "unknown direction '"+string(intent.Direction)+"'")
	}

	if err := req.Validate(); err != nil {
		return types.QuoteRequest{}, err
	}
	return req, nil
}
