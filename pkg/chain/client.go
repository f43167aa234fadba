// Package chain talks to an EVM node over JSON-RPC.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"intent-swap/pkg/types"
)

const (
	defaultPollInterval = 2 * time.Second
	// gasBufferPercent is added on top of every gas estimate
	gasBufferPercent = 20
)

// Backend is the part of ethclient.Client the engine uses
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Signer signs transactions for one address
type Signer interface {
	Address() common.Address
	SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
}

// TxRequest describes a transaction to send from the signer. A zero Gas is
// estimated and a nil GasPrice is taken from the node.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// Client reads chain state and sends signed transactions
type Client struct {
	backend      Backend
	chainID      *big.Int
	signer       Signer
	pollInterval time.Duration
	log          logrus.FieldLogger
	closer       func()
}

// Dial connects to the node at rpcURL
func Dial(ctx context.Context, rpcURL string, chainID int64, signer Signer, log logrus.FieldLogger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	c := NewClient(ec, chainID, signer, log)
	c.closer = ec.Close
	return c, nil
}

// NewClient wraps an existing backend
func NewClient(backend Backend, chainID int64, signer Signer, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		backend:      backend,
		chainID:      big.NewInt(chainID),
		signer:       signer,
		pollInterval: defaultPollInterval,
		log:          log.WithField("component", "chain"),
	}
}

// SetPollInterval changes how often WaitMined polls for a receipt
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// Address returns the signer's address
func (c *Client) Address() common.Address {
	return c.signer.Address()
}

// ChainID returns the configured chain id
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Allowance reads token.allowance(owner, spender)
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := allowanceData(owner, spender)
	if err != nil {
		return nil, err
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, types.WrapChain("allowance", err)
	}
	v, err := decodeUint256("allowance", out)
	return v, types.WrapChain("allowance", err)
}

// BalanceOf reads token.balanceOf(account)
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := balanceOfData(account)
	if err != nil {
		return nil, err
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, types.WrapChain("balanceOf", err)
	}
	v, err := decodeUint256("balanceOf", out)
	return v, types.WrapChain("balanceOf", err)
}

// NativeBalance returns the account's ether balance in wei
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	return balance, types.WrapChain("getBalance", err)
}

// BlockNumber returns the head block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.backend.BlockNumber(ctx)
	return n, types.WrapChain("blockNumber", err)
}

// SuggestGasPrice returns the node's gas price in wei
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.backend.SuggestGasPrice(ctx)
	return price, types.WrapChain("gasPrice", err)
}

// EstimateGas estimates req from the signer and adds a 20% buffer
func (c *Client) EstimateGas(ctx context.Context, req TxRequest) (uint64, error) {
	to := req.To
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.signer.Address(),
		To:    &to,
		Data:  req.Data,
		Value: req.Value,
	})
	if err != nil {
		return 0, types.WrapChain("estimateGas", err)
	}
	return gas * (100 + gasBufferPercent) / 100, nil
}

// Send builds, signs and broadcasts req. It returns once the node has
// accepted the transaction.
func (c *Client) Send(ctx context.Context, req TxRequest) (common.Hash, error) {
	from := c.signer.Address()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, types.WrapChain("nonce", err)
	}

	gasPrice := req.GasPrice
	if gasPrice == nil || gasPrice.Sign() == 0 {
		if gasPrice, err = c.SuggestGasPrice(ctx); err != nil {
			return common.Hash{}, err
		}
	}

	gas := req.Gas
	if gas == 0 {
		if gas, err = c.EstimateGas(ctx, req); err != nil {
			return common.Hash{}, err
		}
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	to := req.To
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})

	signed, err := c.signer.SignTx(tx, c.chainID)
	if err != nil {
		return common.Hash{}, types.WrapChain("sign", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, types.WrapChain("sendTransaction", err)
	}

	c.log.WithFields(logrus.Fields{
		"hash":      signed.Hash().Hex(),
		"to":        to.Hex(),
		"nonce":     nonce,
		"gas":       gas,
		"gas_price": gasPrice.String(),
	}).Info("transaction sent")

	return signed.Hash(), nil
}

// WaitMined polls until the transaction has a receipt or ctx is done
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, types.WrapChain("receipt", err)
		}

		select {
		case <-ctx.Done():
			return nil, types.WrapChain("waitMined", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close closes the node connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}
