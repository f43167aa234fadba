// Package gas turns the explorer's gas oracle into three price presets.
package gas

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"intent-swap/pkg/amount"
	"intent-swap/pkg/client"
	"intent-swap/pkg/types"
)

// Explorer is the gas part of the block explorer API
type Explorer interface {
	GasOracle(ctx context.Context) (client.GasOracle, error)
	GasEstimate(ctx context.Context, gasPriceWei *big.Int) (time.Duration, error)
}

// Advisor fetches gas tiers
type Advisor struct {
	explorer Explorer
	now      func() time.Time
}

func NewAdvisor(explorer Explorer) *Advisor {
	return &Advisor{explorer: explorer, now: time.Now}
}

// GetGasTiers fetches the oracle prices and the confirmation time of each.
// The prices are ordered so that fast >= average >= safe. Any failure fails
// the whole fetch.
func (a *Advisor) GetGasTiers(ctx context.Context) (types.GasTiers, error) {
	oracle, err := a.explorer.GasOracle(ctx)
	if err != nil {
		return types.GasTiers{}, fmt.Errorf("failed to fetch gas oracle: %w", err)
	}

	prices := []decimal.Decimal{oracle.Fast, oracle.Propose, oracle.Safe}
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].GreaterThan(prices[j]) })

	tiers := [3]types.GasTier{
		{Name: types.GasFast, PriceGwei: prices[0]},
		{Name: types.GasAverage, PriceGwei: prices[1]},
		{Name: types.GasSafe, PriceGwei: prices[2]},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range tiers {
		tier := &tiers[i]
		g.Go(func() error {
			eta, err := a.explorer.GasEstimate(gctx, amount.GweiToWei(tier.PriceGwei))
			if err != nil {
				return fmt.Errorf("failed to estimate %s confirmation time: %w", tier.Name, err)
			}
			tier.ETA = eta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.GasTiers{}, err
	}

	return types.GasTiers{
		Fast:    tiers[0],
		Average: tiers[1],
		Safe:    tiers[2],
		Block:   oracle.LastBlock,
		Fetched: a.now(),
	}, nil
}

// Select resolves a tier preference. An unknown name falls back to average.
func Select(tiers types.GasTiers, name string) types.GasTier {
	tierName, err := types.ParseGasTierName(name)
	if err != nil {
		tierName = types.DefaultGasTier
	}
	return tiers.Tier(tierName)
}
