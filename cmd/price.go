package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"intent-swap/pkg/session"
	"intent-swap/pkg/swap"
)

var priceCmd = &cobra.Command{
	Use:   "price <intent>",
	Short: "Show an indicative price without swapping",
	Long: `Fetch an indicative price from the 0x API. No wallet or node is needed.

Examples:
  intent-swap price sell 1 ETH for USDC
  intent-swap price buy 500 DAI with USDC`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	si, err := a.ResolveIntent(ctx, strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	sell, buy, err := a.Tokens(si)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	req, err := swap.NewQuoteRequest(si, sell, buy)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	stopSpinner := startSpinner("Fetching price...", jsonOutput)
	price, err := a.ZeroEx().GetPrice(ctx, req)
	stopSpinner()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(price)
		return
	}

	header("PRICE")
	fmt.Printf("\n  %s\n", color.New(color.Bold).Sprint(session.Title(req, sell, buy, price)))
	if sources := session.Sources(price); len(sources) > 0 {
		fmt.Println("\n  Sources:")
		for _, s := range sources {
			fmt.Printf("    %-20s %s\n", s.Name, color.HiBlackString(s.Proportion))
		}
	}
	if price.EstimatedGas != "" {
		fmt.Printf("\n  Estimated Gas:     %s\n", price.EstimatedGas)
	}
	fmt.Println("\n" + strings.Repeat("=", lineWidth) + "\n")
}
