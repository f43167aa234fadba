// Package allowance makes sure the exchange may spend the sell token before a
// swap is submitted.
package allowance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"intent-swap/pkg/chain"
	"intent-swap/pkg/types"
)

// DefaultTimeout bounds the wait for an approval to be mined
const DefaultTimeout = 10 * time.Minute

// Chain is what the gate needs from the node
type Chain interface {
	Address() common.Address
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	Send(ctx context.Context, req chain.TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Gate checks and raises ERC20 allowances
type Gate struct {
	chain   Chain
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewGate creates a gate. A zero timeout uses DefaultTimeout.
func NewGate(c Chain, timeout time.Duration, log logrus.FieldLogger) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{
		chain:   c,
		timeout: timeout,
		log:     log.WithField("component", "allowance"),
	}
}

// EnsureAllowance makes sure spender may move at least required base units of
// token on behalf of the wallet. When the current allowance already covers it
// nothing is written. Otherwise approve(spender, required) is sent at
// gasPriceWei, or the node's gas price when that is nil or zero, and the call
// returns once it is mined.
//
// Once the approval is broadcast the wait ignores cancellation of ctx and is
// bounded by the gate's timeout.
func (g *Gate) EnsureAllowance(ctx context.Context, token, spender, required string, gasPriceWei *big.Int) (types.AllowanceState, error) {
	if !common.IsHexAddress(token) {
		return types.AllowanceState{}, types.NewValidationError("token", "invalid token address '"+token+"'")
	}
	if !common.IsHexAddress(spender) {
		return types.AllowanceState{}, types.NewValidationError("spender", "invalid spender address '"+spender+"'")
	}
	amount, ok := new(big.Int).SetString(required, 10)
	if !ok || amount.Sign() < 0 {
		return types.AllowanceState{}, types.NewValidationError("amount", "invalid required amount '"+required+"'")
	}

	owner := g.chain.Address()
	tokenAddr := common.HexToAddress(token)
	spenderAddr := common.HexToAddress(spender)

	state := types.AllowanceState{
		Owner:    owner.Hex(),
		Spender:  spenderAddr.Hex(),
		Required: amount.String(),
	}

	current, err := g.chain.Allowance(ctx, tokenAddr, owner, spenderAddr)
	if err != nil {
		return state, types.WrapChain("allowance", err)
	}
	state.Current = current.String()

	log := g.log.WithFields(logrus.Fields{
		"token":    tokenAddr.Hex(),
		"spender":  spenderAddr.Hex(),
		"current":  state.Current,
		"required": state.Required,
	})

	if current.Cmp(amount) >= 0 {
		log.Debug("allowance already sufficient")
		return state, nil
	}

	data, err := chain.ApproveData(spenderAddr, amount)
	if err != nil {
		return state, types.WrapChain("approve", err)
	}
	req := chain.TxRequest{To: tokenAddr, Data: data}

	if req.Gas, err = g.chain.EstimateGas(ctx, req); err != nil {
		return state, types.WrapChain("approve", err)
	}

	req.GasPrice = gasPriceWei
	if req.GasPrice == nil || req.GasPrice.Sign() == 0 {
		if req.GasPrice, err = g.chain.SuggestGasPrice(ctx); err != nil {
			return state, types.WrapChain("approve", err)
		}
	}

	hash, err := g.chain.Send(ctx, req)
	if err != nil {
		return state, types.WrapChain("approve", err)
	}
	state.Approved = true
	state.TxHash = hash.Hex()
	log.WithField("hash", state.TxHash).Info("approval sent, waiting to be mined")

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	receipt, err := g.chain.WaitMined(waitCtx, hash)
	if err != nil {
		return state, types.WrapChain("approve", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return state, &types.ChainError{Op: "approve", Err: fmt.Errorf("approval %s reverted", state.TxHash)}
	}

	state.Current = amount.String()
	log.WithField("hash", state.TxHash).Info("approval mined")
	return state, nil
}
