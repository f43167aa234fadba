package gas

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-swap/pkg/client"
	"intent-swap/pkg/types"
)

type fakeExplorer struct {
	mu        sync.Mutex
	oracle    client.GasOracle
	etas      map[string]time.Duration
	failFor   string
	estimated []string
}

func (f *fakeExplorer) GasOracle(ctx context.Context) (client.GasOracle, error) {
	return f.oracle, nil
}

func (f *fakeExplorer) GasEstimate(ctx context.Context, wei *big.Int) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimated = append(f.estimated, wei.String())
	if wei.String() == f.failFor {
		return 0, errors.New("rate limited")
	}
	return f.etas[wei.String()], nil
}

func TestGetGasTiers(t *testing.T) {
	explorer := &fakeExplorer{
		oracle: client.GasOracle{
			LastBlock: 19000000,
			Safe:      decimal.RequireFromString("20"),
			Propose:   decimal.RequireFromString("25.5"),
			Fast:      decimal.RequireFromString("31"),
		},
		etas: map[string]time.Duration{
			"31000000000": 15 * time.Second,
			"25500000000": 45 * time.Second,
			"20000000000": 3 * time.Minute,
		},
	}

	tiers, err := NewAdvisor(explorer).GetGasTiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "31", tiers.Fast.PriceGwei.String())
	assert.Equal(t, 15*time.Second, tiers.Fast.ETA)
	assert.Equal(t, "25.5", tiers.Average.PriceGwei.String())
	assert.Equal(t, 45*time.Second, tiers.Average.ETA)
	assert.Equal(t, "20", tiers.Safe.PriceGwei.String())
	assert.Equal(t, uint64(19000000), tiers.Block)
	assert.Len(t, explorer.estimated, 3)
}

func TestGetGasTiersIsMonotonic(t *testing.T) {
	explorer := &fakeExplorer{
		oracle: client.GasOracle{
			Safe:    decimal.RequireFromString("40"),
			Propose: decimal.RequireFromString("10"),
			Fast:    decimal.RequireFromString("25"),
		},
	}

	tiers, err := NewAdvisor(explorer).GetGasTiers(context.Background())
	require.NoError(t, err)
	assert.True(t, tiers.Fast.PriceGwei.GreaterThanOrEqual(tiers.Average.PriceGwei))
	assert.True(t, tiers.Average.PriceGwei.GreaterThanOrEqual(tiers.Safe.PriceGwei))
	assert.Equal(t, types.GasFast, tiers.Fast.Name)
	assert.Equal(t, types.GasSafe, tiers.Safe.Name)
}

func TestGetGasTiersEstimateFailure(t *testing.T) {
	explorer := &fakeExplorer{
		oracle: client.GasOracle{
			Safe:    decimal.RequireFromString("20"),
			Propose: decimal.RequireFromString("25"),
			Fast:    decimal.RequireFromString("30"),
		},
		failFor: "25000000000",
	}

	_, err := NewAdvisor(explorer).GetGasTiers(context.Background())
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	tiers := types.GasTiers{
		Fast:    types.GasTier{Name: types.GasFast, PriceGwei: decimal.NewFromInt(30)},
		Average: types.GasTier{Name: types.GasAverage, PriceGwei: decimal.NewFromInt(25)},
		Safe:    types.GasTier{Name: types.GasSafe, PriceGwei: decimal.NewFromInt(20)},
	}

	assert.Equal(t, types.GasFast, Select(tiers, "fast").Name)
	assert.Equal(t, types.GasSafe, Select(tiers, "SLOW").Name)
	assert.Equal(t, types.GasAverage, Select(tiers, "ludicrous").Name)
	assert.Equal(t, types.GasAverage, Select(tiers, "").Name)
}
