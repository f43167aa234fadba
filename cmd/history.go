package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"intent-swap/pkg/amount"
	"intent-swap/pkg/types"
)

var (
	historyAll    bool
	historyWallet string
)

var historyCmd = &cobra.Command{
	Use:   "history [execution-id]",
	Short: "Show swaps started from this machine",
	Long: `Show the execution journal, newest first. With an id, show that execution
in full.

Examples:
  intent-swap history
  intent-swap history --all
  intent-swap history 2f1c7a3e-...`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Include every wallet")
	historyCmd.Flags().StringVar(&historyWallet, "wallet", "", "Wallet address (defaults to the keystore's)")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	j, err := a.Journal()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if len(args) == 1 {
		exec, err := j.Get(args[0])
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(exec)
			return
		}
		header("EXECUTION")
		displayJournalEntry(a, exec)
		displayExecution(a.cfg, exec)
		fmt.Println()
		return
	}

	wallet := historyWallet
	if wallet == "" && !historyAll {
		w, err := a.Wallet()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		wallet = w.Address().Hex()
	}

	executions := j.ListByWallet(wallet)
	if jsonOutput {
		printJSON(executions)
		return
	}

	if len(executions) == 0 {
		fmt.Println("\nNo swaps recorded yet.")
		return
	}

	header("HISTORY")
	for _, exec := range executions {
		displayJournalEntry(a, exec)
	}
	fmt.Println("\n" + strings.Repeat("=", lineWidth))
	fmt.Printf("\nTotal: %d swaps (journal: %s)\n\n", len(executions), j.Path())
}

func displayJournalEntry(a *app, exec types.SwapExecution) {
	status := color.YellowString("%s", exec.Status)
	switch exec.Status {
	case types.StatusSubmitted:
		status = color.GreenString("%s", exec.Status)
	case types.StatusFailed:
		status = color.RedString("%s", exec.Status)
	}

	fmt.Printf("\n  %s  %s  %s\n", exec.CreatedAt.Local().Format("2006-01-02 15:04"), status, color.HiBlackString(exec.ID))
	fmt.Printf("    %s\n", describeRequest(a, exec.Request))
	if exec.TxHash != "" {
		fmt.Printf("    %s\n", color.CyanString(a.cfg.TxURL(exec.TxHash)))
	}
	if exec.Error != "" {
		fmt.Printf("    %s: %s\n", exec.FailedStep, exec.Error)
	}
}

// describeRequest renders the request with token symbols when they are known
func describeRequest(a *app, req types.QuoteRequest) string {
	sell, sellOK := tokenByAddress(a, req.SellToken)
	buy, buyOK := tokenByAddress(a, req.BuyToken)
	if !sellOK || !buyOK {
		return fmt.Sprintf("%s → %s", req.SellToken, req.BuyToken)
	}

	if req.SellAmount != "" {
		if human, err := amount.ToHumanAmount(req.SellAmount, sell.Decimals); err == nil {
			return fmt.Sprintf("sell %s %s for %s", human, sell.Symbol, buy.Symbol)
		}
	}
	if human, err := amount.ToHumanAmount(req.BuyAmount, buy.Decimals); err == nil {
		return fmt.Sprintf("buy %s %s with %s", human, buy.Symbol, sell.Symbol)
	}
	return fmt.Sprintf("%s → %s", sell.Symbol, buy.Symbol)
}

func tokenByAddress(a *app, address string) (types.TokenRef, bool) {
	for _, t := range a.tokens.List(a.cfg.ChainID) {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return types.TokenRef{}, false
}
