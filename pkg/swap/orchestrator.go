// Package swap runs a user-triggered swap: allowance check, quote refetch
// and submission.
package swap

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"intent-swap/pkg/amount"
	"intent-swap/pkg/chain"
	"intent-swap/pkg/types"
)

// QuoteSource fetches executable quotes
type QuoteSource interface {
	GetQuote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error)
}

// AllowanceGate raises the sell token allowance when needed
type AllowanceGate interface {
	EnsureAllowance(ctx context.Context, token, spender, required string, gasPriceWei *big.Int) (types.AllowanceState, error)
}

// Sender signs and broadcasts transactions from the wallet
type Sender interface {
	Address() common.Address
	ChainID() *big.Int
	Send(ctx context.Context, req chain.TxRequest) (common.Hash, error)
}

// Recorder persists execution progress
type Recorder interface {
	Save(exec types.SwapExecution) error
}

// Metrics counts transitions
type Metrics interface {
	Transition(status types.ExecutionStatus)
}

// Order is what the user confirmed: the request, the price they saw and the
// gas tier they picked
type Order struct {
	Request types.QuoteRequest
	Price   *types.Price
	Gas     types.GasTier
}

// Deps wires an Orchestrator. Recorder and Metrics are optional.
type Deps struct {
	Quotes   QuoteSource
	Gate     AllowanceGate
	Sender   Sender
	Recorder Recorder
	Metrics  Metrics
	Logger   logrus.FieldLogger
}

// Orchestrator allows one execution in flight per wallet
type Orchestrator struct {
	quotes   QuoteSource
	gate     AllowanceGate
	sender   Sender
	recorder Recorder
	metrics  Metrics
	log      logrus.FieldLogger
	now      func() time.Time

	mu         sync.Mutex
	current    *types.SwapExecution
	optimistic *types.ActivityRecord
}

func NewOrchestrator(deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		quotes:   deps.Quotes,
		gate:     deps.Gate,
		sender:   deps.Sender,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		log:      log.WithField("component", "swap"),
		now:      time.Now,
	}
}

// Trigger executes order. It returns a StateError, leaving the running
// execution untouched, when one is already gating or submitting. Gating,
// quote, build and submit failures end in a Failed execution that is
// returned together with the error. A submitted execution returns as soon as
// the node accepted the transaction.
func (o *Orchestrator) Trigger(ctx context.Context, order Order) (types.SwapExecution, error) {
	if order.Price == nil {
		return types.SwapExecution{}, types.NewValidationError("price", "no price to execute")
	}
	if err := order.Request.Validate(); err != nil {
		return types.SwapExecution{}, err
	}

	exec, err := o.claim(order)
	if err != nil {
		return types.SwapExecution{}, err
	}
	log := o.log.WithField("execution", exec.ID)

	gasPriceWei := amount.GweiToWei(order.Gas.PriceGwei)

	if needsAllowance(order.Price) {
		log.WithField("spender", order.Price.AllowanceTarget).Debug("checking allowance")
		state, err := o.gate.EnsureAllowance(ctx, order.Price.SellTokenAddress, order.Price.AllowanceTarget, order.Price.SellAmount, gasPriceWei)
		exec.Approval = &state
		if err != nil {
			return o.fail(exec, types.StepGating, err)
		}
	}

	exec = o.transition(exec, types.StatusSubmitting)

	req := order.Request
	req.TakerAddress = o.sender.Address().Hex()
	quote, err := o.quotes.GetQuote(ctx, req)
	if err != nil {
		return o.fail(exec, types.StepQuote, err)
	}
	exec.Quote = quote

	tx, err := o.buildTx(quote, gasPriceWei)
	if err != nil {
		return o.fail(exec, types.StepBuild, err)
	}

	hash, err := o.sender.Send(ctx, tx)
	if err != nil {
		return o.fail(exec, types.StepSubmit, err)
	}
	exec.TxHash = hash.Hex()

	o.mu.Lock()
	o.optimistic = &types.ActivityRecord{
		Hash:       exec.TxHash,
		Timestamp:  o.now(),
		Optimistic: true,
	}
	o.mu.Unlock()

	exec = o.transition(exec, types.StatusSubmitted)
	log.WithField("hash", exec.TxHash).Info("swap submitted")
	return exec, nil
}

// State returns the slot status: Gating or Submitting while an execution is
// in flight, Idle otherwise
func (o *Orchestrator) State() types.ExecutionStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil || !o.current.Status.InFlight() {
		return types.StatusIdle
	}
	return o.current.Status
}

// Current returns the latest execution, if any
func (o *Orchestrator) Current() (types.SwapExecution, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return types.SwapExecution{}, false
	}
	return *o.current, true
}

// Optimistic returns the activity record of the last submitted swap
func (o *Orchestrator) Optimistic() *types.ActivityRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.optimistic == nil {
		return nil
	}
	r := *o.optimistic
	return &r
}

// claim moves the slot from Idle to Gating in one step
func (o *Orchestrator) claim(order Order) (types.SwapExecution, error) {
	wallet := o.sender.Address().Hex()

	o.mu.Lock()
	if o.current != nil && o.current.Status.InFlight() {
		status := o.current.Status
		o.mu.Unlock()
		return types.SwapExecution{}, &types.StateError{Wallet: wallet, Status: status}
	}

	now := o.now()
	exec := types.SwapExecution{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		Status:    types.StatusGating,
		Request:   order.Request,
		Price:     order.Price,
		Gas:       order.Gas,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored := exec
	o.current = &stored
	o.mu.Unlock()

	o.record(exec)
	return exec, nil
}

func (o *Orchestrator) transition(exec types.SwapExecution, status types.ExecutionStatus) types.SwapExecution {
	exec.Status = status
	exec.UpdatedAt = o.now()

	o.mu.Lock()
	stored := exec
	o.current = &stored
	o.mu.Unlock()

	o.record(exec)
	return exec
}

func (o *Orchestrator) fail(exec types.SwapExecution, step string, err error) (types.SwapExecution, error) {
	exec.FailedStep = step
	exec.Error = err.Error()
	exec = o.transition(exec, types.StatusFailed)

	o.log.WithFields(logrus.Fields{
		"execution": exec.ID,
		"step":      step,
	}).WithError(err).Error("swap failed")

	return exec, fmt.Errorf("swap failed at %s: %w", step, err)
}

func (o *Orchestrator) record(exec types.SwapExecution) {
	if o.metrics != nil {
		o.metrics.Transition(exec.Status)
	}
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Save(exec); err != nil {
		o.log.WithError(err).WithField("execution", exec.ID).Warn("failed to journal execution")
	}
}

// buildTx turns a quote into a transaction. A zero gas price leaves the
// choice to the node.
func (o *Orchestrator) buildTx(q *types.Quote, gasPriceWei *big.Int) (chain.TxRequest, error) {
	if chainID := o.sender.ChainID(); q.ChainID != 0 && chainID.Cmp(big.NewInt(q.ChainID)) != 0 {
		return chain.TxRequest{}, fmt.Errorf("quote is for chain %d, wallet is on chain %s", q.ChainID, chainID)
	}
	if !common.IsHexAddress(q.To) {
		return chain.TxRequest{}, fmt.Errorf("quote has invalid target %q", q.To)
	}

	var data []byte
	if q.Data != "" {
		var err error
		if data, err = hexutil.Decode(q.Data); err != nil {
			return chain.TxRequest{}, fmt.Errorf("quote has invalid calldata: %w", err)
		}
	}

	value, err := parseBig(q.Value)
	if err != nil {
		return chain.TxRequest{}, fmt.Errorf("quote has invalid value %q: %w", q.Value, err)
	}

	gasField := q.Gas
	if gasField == "" {
		gasField = q.EstimatedGas
	}
	var gas uint64
	if gasField != "" {
		if gas, err = strconv.ParseUint(gasField, 10, 64); err != nil {
			return chain.TxRequest{}, fmt.Errorf("quote has invalid gas %q: %w", gasField, err)
		}
	}

	req := chain.TxRequest{
		To:    common.HexToAddress(q.To),
		Data:  data,
		Value: value,
		Gas:   gas,
	}
	if gasPriceWei != nil && gasPriceWei.Sign() > 0 {
		req.GasPrice = gasPriceWei
	}
	return req, nil
}

// needsAllowance reports whether the sell token is an ERC20 with a spender
func needsAllowance(p *types.Price) bool {
	if types.IsNativeAddress(p.SellTokenAddress) {
		return false
	}
	return p.AllowanceTarget != "" && common.HexToAddress(p.AllowanceTarget) != (common.Address{})
}

// parseBig reads a decimal or 0x-prefixed integer, empty meaning zero
func parseBig(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeBig(s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not an integer")
	}
	return v, nil
}
