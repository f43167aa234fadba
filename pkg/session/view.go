package session

import (
	"fmt"
	"strings"

	"intent-swap/pkg/amount"
	"intent-swap/pkg/types"
)

// Placeholder is shown for values that are still loading
const Placeholder = "⏳"

// View is everything a front end renders for one session
type View struct {
	Title      string
	Working    bool
	Price      *types.Price
	PriceStale bool
	Sources    []SourceView
	GasChoices []GasChoice
	GasStale   bool
	Balances   types.Balances
	Activity   []types.ActivityRecord
	Execution  *types.SwapExecution
}

// SourceView is a liquidity source formatted for display
type SourceView struct {
	Name       string
	Proportion string
}

// GasChoice is one selectable gas tier
type GasChoice struct {
	Tier     types.GasTier
	Selected bool
}

// Title renders "Swap {from} {FROM} → {to} {TO} (1 → {price})". Amounts not
// known yet are shown as the placeholder and the price part is left out until
// a price is known.
func Title(req types.QuoteRequest, sell, buy types.TokenRef, price *types.Price) string {
	from := displayAmount(req.SellAmount, sell.Decimals)
	to := displayAmount(req.BuyAmount, buy.Decimals)
	if price != nil {
		if from == Placeholder {
			from = displayAmount(price.SellAmount, sell.Decimals)
		}
		if to == Placeholder {
			to = displayAmount(price.BuyAmount, buy.Decimals)
		}
	}

	title := fmt.Sprintf("Swap %s %s → %s %s", from, sell.Symbol, to, buy.Symbol)
	if price != nil && price.Price != "" {
		title += " (1 → " + price.Price + ")"
	}
	return title
}

func displayAmount(base string, decimals int) string {
	if base == "" {
		return Placeholder
	}
	human, err := amount.ToHumanAmount(base, decimals)
	if err != nil {
		return Placeholder
	}
	return human
}

// Sources returns the price's active sources with underscores shown as spaces
func Sources(price *types.Price) []SourceView {
	active := price.ActiveSources()
	if len(active) == 0 {
		return nil
	}
	views := make([]SourceView, 0, len(active))
	for _, s := range active {
		views = append(views, SourceView{
			Name:       strings.ReplaceAll(s.Name, "_", " "),
			Proportion: s.Proportion,
		})
	}
	return views
}
