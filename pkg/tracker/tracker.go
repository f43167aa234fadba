// Package tracker reports wallet balances and recent activity.
package tracker

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"intent-swap/pkg/amount"
	"intent-swap/pkg/types"
)

// DefaultBlockWindow is how far back activity is looked up
const DefaultBlockWindow = 10000

const nativeSymbol = "ETH"

// Chain is the balance part of the node
type Chain interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Explorer lists an address's transactions
type Explorer interface {
	TxList(ctx context.Context, address string, startBlock, endBlock uint64) ([]types.ActivityRecord, error)
}

type Tracker struct {
	chain    Chain
	explorer Explorer
	tokens   []types.TokenRef
	window   uint64
	log      logrus.FieldLogger
}

// New creates a tracker for the given ERC20 tokens. Native ether is always
// tracked and listed first.
func New(chain Chain, explorer Explorer, tokens []types.TokenRef, window uint64, log logrus.FieldLogger) *Tracker {
	if window == 0 {
		window = DefaultBlockWindow
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	erc20 := make([]types.TokenRef, 0, len(tokens))
	for _, t := range tokens {
		if t.IsNative() {
			continue
		}
		erc20 = append(erc20, t)
	}

	return &Tracker{
		chain:    chain,
		explorer: explorer,
		tokens:   erc20,
		window:   window,
		log:      log.WithField("component", "tracker"),
	}
}

// GetBalances fetches every balance concurrently. A failed entry is marked
// pending with its error and does not affect the others.
func (t *Tracker) GetBalances(ctx context.Context, account common.Address) types.Balances {
	balances := make(types.Balances, len(t.tokens)+1)

	var g errgroup.Group
	g.Go(func() error {
		wei, err := t.chain.NativeBalance(ctx, account)
		balances[0] = t.balance(nativeSymbol, wei, 18, err)
		return nil
	})
	for i, token := range t.tokens {
		i, token := i, token
		g.Go(func() error {
			base, err := t.chain.BalanceOf(ctx, common.HexToAddress(token.Address), account)
			balances[i+1] = t.balance(token.Symbol, base, token.Decimals, err)
			return nil
		})
	}
	_ = g.Wait()

	return balances
}

func (t *Tracker) balance(symbol string, base *big.Int, decimals int, err error) types.Balance {
	if err != nil {
		t.log.WithError(err).WithField("symbol", symbol).Warn("balance unavailable")
		return types.Balance{Symbol: symbol, Pending: true, Err: err}
	}
	human, err := amount.FromBig(base, decimals)
	if err != nil {
		return types.Balance{Symbol: symbol, Pending: true, Err: err}
	}
	return types.Balance{Symbol: symbol, Amount: human}
}

// GetActivity lists the account's transactions in the recent block window,
// newest first, with the optimistic record of a just submitted swap merged in
func (t *Tracker) GetActivity(ctx context.Context, account common.Address, optimistic *types.ActivityRecord) ([]types.ActivityRecord, error) {
	head, err := t.chain.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	start := uint64(0)
	if head > t.window {
		start = head - t.window
	}

	history, err := t.explorer.TxList(ctx, account.Hex(), start, head)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return Merge(optimistic, history), nil
}

// Merge puts the optimistic record in front of history until history shows
// the same transaction with at least one confirmation. No hash appears twice
// and history is sorted newest first.
func Merge(optimistic *types.ActivityRecord, history []types.ActivityRecord) []types.ActivityRecord {
	sorted := make([]types.ActivityRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	merged := make([]types.ActivityRecord, 0, len(sorted)+1)
	if optimistic != nil && optimistic.Hash != "" {
		confirmed := false
		for _, r := range sorted {
			if r.SameTx(*optimistic) && r.Confirmations > 0 {
				confirmed = true
				break
			}
		}
		if !confirmed {
			opt := *optimistic
			opt.Optimistic = true
			merged = append(merged, opt)
		}
	}

	for _, r := range sorted {
		duplicate := false
		for _, m := range merged {
			if m.SameTx(r) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, r)
		}
	}
	return merged
}
