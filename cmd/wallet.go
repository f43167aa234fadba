package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"intent-swap/pkg/poller"
	"intent-swap/pkg/types"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show the wallet address, creating the keystore on first use",
	Run:   runWallet,
}

var balancesCmd = &cobra.Command{
	Use:     "balances",
	Aliases: []string{"balance"},
	Short:   "Show ETH and tracked token balances",
	Run:     runBalances,
}

var watchActivity bool

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the wallet's recent transactions",
	Long: `Show the wallet's transactions over the last activity_block_window blocks,
newest first.

Examples:
  intent-swap activity
  intent-swap activity --watch`,
	Run: runActivity,
}

func init() {
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(activityCmd)

	activityCmd.Flags().BoolVarP(&watchActivity, "watch", "w", false, "Keep refreshing until interrupted")
}

func runWallet(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	w, err := a.Wallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"address":  w.Address().Hex(),
			"keystore": a.cfg.KeystorePath,
		})
		return
	}
	fmt.Printf("\n  Address:           %s\n", color.CyanString(w.Address().Hex()))
	fmt.Printf("  Keystore:          %s\n\n", a.cfg.KeystorePath)
}

func runBalances(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	t, err := a.Tracker(ctx)
	if err != nil {
		printError(err)
		a.Close()
		os.Exit(1)
	}

	stopSpinner := startSpinner("Fetching balances...", jsonOutput)
	balances := t.GetBalances(ctx, a.chain.Address())
	stopSpinner()

	for _, b := range balances {
		if b.Err != nil {
			a.log.WithError(b.Err).WithField("symbol", b.Symbol).Warn("balance unavailable")
		}
	}

	if jsonOutput {
		printJSON(balances)
		return
	}

	header("BALANCES")
	fmt.Printf("\n  %s\n\n", color.HiBlackString(a.chain.Address().Hex()))
	displayBalances(balances)
	fmt.Println("\n" + strings.Repeat("=", lineWidth) + "\n")
}

func runActivity(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	t, err := a.Tracker(ctx)
	if err != nil {
		printError(err)
		a.Close()
		os.Exit(1)
	}
	account := a.chain.Address()

	task := poller.NewTask("activity", a.cfg.ActivityInterval, func(ctx context.Context) ([]types.ActivityRecord, error) {
		return t.GetActivity(ctx, account, nil)
	}, poller.WithLogger(a.log), poller.WithRecorder(a.metrics))

	render := func(snap poller.Snapshot[[]types.ActivityRecord]) {
		if jsonOutput {
			printJSON(snap.Value)
			return
		}
		header("ACTIVITY")
		fmt.Printf("\n  %s\n\n", color.HiBlackString(account.Hex()))
		displayActivity(a.cfg, snap.Value)
		if snap.Stale {
			color.Yellow("\n  (activity may be outdated: %v)", snap.Err)
		}
		fmt.Println("\n" + strings.Repeat("=", lineWidth) + "\n")
	}

	if !watchActivity {
		stopSpinner := startSpinner("Fetching activity...", jsonOutput)
		snap := task.Refresh(ctx)
		stopSpinner()
		if !snap.Loaded {
			if snap.Err == nil {
				snap.Err = ctx.Err()
			}
			printError(snap.Err)
			a.Close()
			os.Exit(1)
		}
		render(snap)
		return
	}

	changes := task.Changes()
	task.Start(ctx)
	defer task.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			render(task.Snapshot())
		}
	}
}
