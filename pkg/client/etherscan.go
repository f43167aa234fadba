package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"intent-swap/pkg/types"
)

// DefaultExplorerRate is the free-tier request rate per second
const DefaultExplorerRate = 5

// Etherscan is a client for an Etherscan-compatible explorer API. Requests
// are rate limited client side.
type Etherscan struct {
	c       *httpClient
	apiKey  string
	limiter ratelimit.Limiter
}

// GasOracle is the explorer's gas price suggestion in gwei
type GasOracle struct {
	LastBlock uint64
	Safe      decimal.Decimal
	Propose   decimal.Decimal
	Fast      decimal.Decimal
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type gasOracleResult struct {
	LastBlock       string `json:"LastBlock"`
	SafeGasPrice    string `json:"SafeGasPrice"`
	ProposeGasPrice string `json:"ProposeGasPrice"`
	FastGasPrice    string `json:"FastGasPrice"`
}

type txResult struct {
	BlockNumber   string `json:"blockNumber"`
	TimeStamp     string `json:"timeStamp"`
	Hash          string `json:"hash"`
	IsError       string `json:"isError"`
	Confirmations string `json:"confirmations"`
}

// NewEtherscan creates an explorer client allowing rate requests per second
func NewEtherscan(baseURL, apiKey string, rate int, hc *http.Client, log logrus.FieldLogger) *Etherscan {
	if rate <= 0 {
		rate = DefaultExplorerRate
	}
	return &Etherscan{
		c:       newHTTPClient("etherscan", baseURL, hc, log),
		apiKey:  apiKey,
		limiter: ratelimit.New(rate),
	}
}

func (e *Etherscan) call(ctx context.Context, q url.Values) (*envelope, error) {
	if e.apiKey != "" {
		q.Set("apikey", e.apiKey)
	}
	e.limiter.Take()

	env, err := getJSON[envelope](ctx, e.c, "", q)
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		if isEmptyResult(env) {
			return env, nil
		}
		return nil, &types.APIError{
			Service:    e.c.service,
			StatusCode: http.StatusOK,
			Message:    explorerMessage(env),
			Body:       string(env.Result),
		}
	}
	return env, nil
}

// GasOracle returns the safe, proposed and fast gas prices
func (e *Etherscan) GasOracle(ctx context.Context) (GasOracle, error) {
	q := url.Values{}
	q.Set("module", "gastracker")
	q.Set("action", "gasoracle")

	env, err := e.call(ctx, q)
	if err != nil {
		return GasOracle{}, err
	}

	var r gasOracleResult
	if err := json.Unmarshal(env.Result, &r); err != nil {
		return GasOracle{}, fmt.Errorf("failed to decode gas oracle: %w", err)
	}

	var oracle GasOracle
	if oracle.Safe, err = decimal.NewFromString(r.SafeGasPrice); err != nil {
		return GasOracle{}, fmt.Errorf("invalid safe gas price %q: %w", r.SafeGasPrice, err)
	}
	if oracle.Propose, err = decimal.NewFromString(r.ProposeGasPrice); err != nil {
		return GasOracle{}, fmt.Errorf("invalid proposed gas price %q: %w", r.ProposeGasPrice, err)
	}
	if oracle.Fast, err = decimal.NewFromString(r.FastGasPrice); err != nil {
		return GasOracle{}, fmt.Errorf("invalid fast gas price %q: %w", r.FastGasPrice, err)
	}
	if r.LastBlock != "" {
		oracle.LastBlock, _ = strconv.ParseUint(r.LastBlock, 10, 64)
	}
	return oracle, nil
}

// GasEstimate returns the estimated confirmation time for a gas price in wei
func (e *Etherscan) GasEstimate(ctx context.Context, gasPriceWei *big.Int) (time.Duration, error) {
	q := url.Values{}
	q.Set("module", "gastracker")
	q.Set("action", "gasestimate")
	q.Set("gasprice", gasPriceWei.String())

	env, err := e.call(ctx, q)
	if err != nil {
		return 0, err
	}

	var s string
	if err := json.Unmarshal(env.Result, &s); err != nil {
		return 0, fmt.Errorf("failed to decode gas estimate: %w", err)
	}
	seconds, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gas estimate %q: %w", s, err)
	}
	return time.Duration(seconds) * time.Second, nil
}

// TxList returns the address's transactions between two blocks, newest first
func (e *Etherscan) TxList(ctx context.Context, address string, startBlock, endBlock uint64) ([]types.ActivityRecord, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", strconv.FormatUint(startBlock, 10))
	q.Set("endblock", strconv.FormatUint(endBlock, 10))
	q.Set("page", "1")
	q.Set("sort", "desc")

	env, err := e.call(ctx, q)
	if err != nil {
		return nil, err
	}

	var txs []txResult
	if err := json.Unmarshal(env.Result, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode tx list: %w", err)
	}

	records := make([]types.ActivityRecord, 0, len(txs))
	for _, tx := range txs {
		ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
		confirmations, _ := strconv.ParseUint(tx.Confirmations, 10, 64)
		records = append(records, types.ActivityRecord{
			Hash:          tx.Hash,
			Timestamp:     time.Unix(ts, 0).UTC(),
			Confirmations: confirmations,
			IsError:       tx.IsError == "1",
		})
	}
	return records, nil
}

// isEmptyResult reports a "No transactions found" reply, which the explorer
// flags as status 0
func isEmptyResult(env *envelope) bool {
	if !strings.HasPrefix(strings.ToLower(env.Message), "no transactions found") {
		return false
	}
	var list []json.RawMessage
	return json.Unmarshal(env.Result, &list) == nil
}

// explorerMessage picks the error detail, which the explorer puts in result
func explorerMessage(env *envelope) string {
	var detail string
	if err := json.Unmarshal(env.Result, &detail); err == nil && detail != "" {
		return detail
	}
	return env.Message
}
