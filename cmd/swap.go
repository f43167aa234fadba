package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"intent-swap/pkg/metrics"
	"intent-swap/pkg/session"
	"intent-swap/pkg/types"
)

// priceWait bounds how long the first price and gas fetch may take
const priceWait = 30 * time.Second

var (
	gasTier     string
	noConfirm   bool
	watchTx     bool
	metricsAddr string
)

var swapCmd = &cobra.Command{
	Use:   "swap <intent>",
	Short: "Swap tokens from a plain language intent",
	Long: `Fetch a price for the intent, show the gas presets and balances, and once
confirmed approve the sell token if needed and submit the swap.

When wit_token is configured the intent is understood by wit.ai, otherwise it
must read "<sell|buy|swap> <amount> <token> <to|for|with|using|into> <token>".

Examples:
  intent-swap swap sell 1.5 ETH for USDC
  intent-swap swap buy 100 USDC with DAI --gas fast
  intent-swap swap swap 250 DAI to WETH --yes --watch`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&gasTier, "gas", string(types.DefaultGasTier), "Gas preset: fast, average or safe")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVarP(&watchTx, "watch", "w", false, "Wait until the swap is confirmed")
	swapCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9100)")
}

func runSwap(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	if err := swapIntent(ctx, a, strings.Join(args, " "), jsonOutput); err != nil {
		printError(err)
		a.Close()
		os.Exit(1)
	}
}

func swapIntent(ctx context.Context, a *app, query string, jsonOutput bool) error {
	si, err := a.ResolveIntent(ctx, query)
	if err != nil {
		return err
	}
	sell, buy, err := a.Tokens(si)
	if err != nil {
		return err
	}

	s, _, err := a.Session(ctx, si, sell, buy)
	if err != nil {
		return err
	}
	if err := s.SelectGas(gasTier); err != nil {
		return err
	}

	if metricsAddr != "" {
		stop := serveMetrics(a.log, a.metrics, metricsAddr)
		defer stop()
	}

	s.Start(ctx)
	defer s.Close()

	stopSpinner := startSpinner("Fetching price and gas...", jsonOutput)
	waitCtx, cancel := context.WithTimeout(ctx, priceWait)
	price := s.WaitPrice(waitCtx)
	s.WaitGas(waitCtx)
	cancel()
	stopSpinner()

	if !price.Loaded {
		if price.Err != nil {
			return price.Err
		}
		return fmt.Errorf("no price received within %s", priceWait)
	}

	view := s.View()
	if !jsonOutput {
		displayView(view)
	}

	// Ask for confirmation, re-quoting when the user enters a new amount
	for !noConfirm && !jsonOutput {
		answer := askSwap()
		if answer == "y" || answer == "yes" {
			break
		}
		if answer == "" || answer == "n" || answer == "no" {
			fmt.Println("\nSwap cancelled.")
			return nil
		}

		si := s.Intent()
		si.RawAmount = answer
		since := time.Now()
		if err := s.SetIntent(si); err != nil {
			color.Red("  %v", err)
			continue
		}

		stopSpinner = startSpinner("Updating price...", false)
		waitCtx, cancel := context.WithTimeout(ctx, priceWait)
		price = s.WaitPriceSince(waitCtx, since)
		cancel()
		stopSpinner()
		if !price.UpdatedAt.After(since) {
			color.Yellow("  price not updated yet, showing the last known one")
		}

		view = s.View()
		displayView(view)
	}

	stopSpinner = startSpinner("Submitting swap...", jsonOutput)
	exec, err := s.Execute(ctx)
	stopSpinner()

	if jsonOutput {
		printJSON(map[string]interface{}{
			"title":     view.Title,
			"execution": exec,
		})
		return err
	}

	displayExecution(a.cfg, exec)
	if err != nil {
		return err
	}

	if watchTx && exec.TxHash != "" {
		return watchConfirmation(ctx, s, exec.TxHash)
	}

	fmt.Println("\nYou can follow the swap using:")
	color.Cyan("  intent-swap activity --watch\n")
	return nil
}

// watchConfirmation waits for the submitted transaction to show up confirmed
// in the wallet's activity
func watchConfirmation(ctx context.Context, s *session.Session, hash string) error {
	stopSpinner := startSpinner("Waiting for confirmation...", false)
	defer stopSpinner()

	target := types.ActivityRecord{Hash: hash}
	for {
		for _, r := range s.View().Activity {
			if !r.SameTx(target) || r.Optimistic {
				continue
			}
			switch r.Status() {
			case types.ActivitySuccess:
				stopSpinner()
				printSuccess(color.GreenString("✓ Swap confirmed (%d confirmations)", r.Confirmations))
				return nil
			case types.ActivityError:
				stopSpinner()
				return fmt.Errorf("swap transaction %s reverted", hash)
			}
		}

		select {
		case <-ctx.Done():
			stopSpinner()
			color.Yellow("\nStopped watching, swap %s is still pending.", hash)
			return ctx.Err()
		case <-s.Changes():
		}
	}
}

// serveMetrics exposes the registry until the returned func is called
func serveMetrics(log logrus.FieldLogger, m *metrics.Metrics, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// askSwap reads the answer to the confirmation prompt. Anything other than
// yes or no is taken as a new amount.
func askSwap() string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N, or enter a new amount): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}

	return strings.TrimSpace(strings.ToLower(response))
}
