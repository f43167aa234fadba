package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"intent-swap/config"
	"intent-swap/pkg/allowance"
	"intent-swap/pkg/chain"
	"intent-swap/pkg/client"
	"intent-swap/pkg/gas"
	"intent-swap/pkg/intent"
	"intent-swap/pkg/metrics"
	"intent-swap/pkg/session"
	"intent-swap/pkg/store"
	"intent-swap/pkg/swap"
	"intent-swap/pkg/tokens"
	"intent-swap/pkg/tracker"
	"intent-swap/pkg/types"
	"intent-swap/pkg/wallet"
)

// app builds the components a command needs on first use
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	tokens *tokens.Table
	http   *http.Client

	wallet   *wallet.Wallet
	chain    *chain.Client
	zeroex   *client.ZeroEx
	explorer *client.Etherscan
	journal  *store.Journal
	metrics  *metrics.Metrics
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     newLogger(cmd),
		tokens:  tokens.Default(),
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: metrics.New(),
	}, nil
}

func (a *app) Close() {
	if a.chain != nil {
		a.chain.Close()
		a.chain = nil
	}
}

// Wallet opens the keystore, creating a fresh key on first run
func (a *app) Wallet() (*wallet.Wallet, error) {
	if a.wallet != nil {
		return a.wallet, nil
	}
	if err := a.cfg.RequireWallet(); err != nil {
		return nil, err
	}

	w, created, err := wallet.LoadOrCreate(a.cfg.KeystorePath, a.cfg.KeystorePassphrase, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return nil, err
	}
	if created {
		color.Yellow("\nCreated a new wallet at %s", a.cfg.KeystorePath)
		fmt.Printf("  Address: %s\n", color.CyanString(w.Address().Hex()))
		fmt.Println("  Fund it with ETH before swapping.")
	}
	a.wallet = w
	return w, nil
}

func (a *app) Chain(ctx context.Context) (*chain.Client, error) {
	if a.chain != nil {
		return a.chain, nil
	}
	if err := a.cfg.RequireChain(); err != nil {
		return nil, err
	}
	w, err := a.Wallet()
	if err != nil {
		return nil, err
	}

	c, err := chain.Dial(ctx, a.cfg.RPCURL, a.cfg.ChainID, w, a.log)
	if err != nil {
		return nil, err
	}
	a.chain = c
	return c, nil
}

func (a *app) ZeroEx() *client.ZeroEx {
	if a.zeroex == nil {
		a.zeroex = client.NewZeroEx(a.cfg.ZeroExAPIURL, a.cfg.ZeroExAPIKey, a.http, a.log)
	}
	return a.zeroex
}

func (a *app) Explorer() *client.Etherscan {
	if a.explorer == nil {
		a.explorer = client.NewEtherscan(a.cfg.EtherscanAPIURL, a.cfg.EtherscanAPIKey, a.cfg.ExplorerRateLimit, a.http, a.log)
	}
	return a.explorer
}

// Journal opens the execution journal and marks runs a previous process left
// in flight as failed
func (a *app) Journal() (*store.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := store.Open(a.cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	recovered, err := j.Recover()
	if err != nil {
		return nil, err
	}
	for _, exec := range recovered {
		a.log.WithFields(logrus.Fields{
			"id":   exec.ID,
			"step": exec.FailedStep,
		}).Warn("swap was interrupted by a previous run")
	}
	a.journal = j
	return j, nil
}

func (a *app) Tracker(ctx context.Context) (*tracker.Tracker, error) {
	c, err := a.Chain(ctx)
	if err != nil {
		return nil, err
	}

	var tracked []types.TokenRef
	for _, symbol := range a.cfg.TrackedTokens {
		token, err := a.tokens.Lookup(symbol, a.cfg.ChainID)
		if err != nil {
			a.log.WithError(err).WithField("symbol", symbol).Warn("skipping tracked token")
			continue
		}
		tracked = append(tracked, token)
	}
	return tracker.New(c, a.Explorer(), tracked, a.cfg.ActivityBlockWindow, a.log), nil
}

func (a *app) Orchestrator(ctx context.Context) (*swap.Orchestrator, error) {
	c, err := a.Chain(ctx)
	if err != nil {
		return nil, err
	}
	j, err := a.Journal()
	if err != nil {
		return nil, err
	}
	return swap.NewOrchestrator(swap.Deps{
		Quotes:   a.ZeroEx(),
		Gate:     allowance.NewGate(c, a.cfg.ApprovalTimeout, a.log),
		Sender:   c,
		Recorder: j,
		Metrics:  a.metrics,
		Logger:   a.log,
	}), nil
}

// Session wires everything one swap intent needs
func (a *app) Session(ctx context.Context, si types.SwapIntent, sell, buy types.TokenRef) (*session.Session, *swap.Orchestrator, error) {
	orch, err := a.Orchestrator(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := a.Tracker(ctx)
	if err != nil {
		return nil, nil, err
	}

	s, err := session.New(session.Deps{
		Wallet:   a.chain.Address(),
		Sell:     sell,
		Buy:      buy,
		Prices:   a.ZeroEx(),
		Gas:      gas.NewAdvisor(a.Explorer()),
		Tracker:  t,
		Executor: orch,
		Intervals: session.Intervals{
			Price:         a.cfg.PriceInterval,
			PriceDebounce: a.cfg.PriceDebounce,
			Gas:           a.cfg.GasInterval,
			Balances:      a.cfg.BalanceInterval,
			Activity:      a.cfg.ActivityInterval,
		},
		Recorder: a.metrics,
		Logger:   a.log,
	}, si)
	if err != nil {
		return nil, nil, err
	}
	return s, orch, nil
}

// ResolveIntent understands query through wit.ai when a token is configured
// and through the built-in command grammar otherwise
func (a *app) ResolveIntent(ctx context.Context, query string) (types.SwapIntent, error) {
	var results []intent.Result
	if a.cfg.WitToken != "" {
		var err error
		results, err = client.NewWit(a.cfg.WitURL, a.cfg.WitToken, a.http, a.log).Intents(ctx, query)
		if err != nil {
			return types.SwapIntent{}, err
		}
	} else {
		results = intent.ParseCommand(query)
	}

	si, err := intent.First(results)
	if err != nil {
		return types.SwapIntent{}, err
	}
	if si == nil {
		return types.SwapIntent{}, fmt.Errorf("could not understand %q (expected e.g. 'sell 1.5 ETH for USDC')", query)
	}
	return *si, nil
}

// Tokens looks up both sides of the intent on the configured chain
func (a *app) Tokens(si types.SwapIntent) (sell, buy types.TokenRef, err error) {
	if sell, err = a.tokens.Lookup(si.SourceSymbol, a.cfg.ChainID); err != nil {
		return sell, buy, err
	}
	if buy, err = a.tokens.Lookup(si.TargetSymbol, a.cfg.ChainID); err != nil {
		return sell, buy, err
	}
	if strings.EqualFold(sell.Address, buy.Address) {
		return sell, buy, types.NewValidationError("target_currency", "cannot swap a token for itself")
	}
	return sell, buy, nil
}
