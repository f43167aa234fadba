package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"intent-swap/pkg/types"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List all supported tokens",
	Long: `List the tokens known on the configured chain.

You can filter tokens by symbol.

Examples:
  intent-swap list-tokens
  intent-swap list-tokens --symbol USD`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	filtered := a.tokens.List(a.cfg.ChainID)
	if filterSymbol != "" {
		var temp []types.TokenRef
		for _, token := range filtered {
			if strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, token)
			}
		}
		filtered = temp
	}

	// Output
	if jsonOutput {
		printJSON(filtered)
	} else {
		displayTokens(a.cfg.ChainID, filtered)
	}
}

func displayTokens(chainID int64, tokens []types.TokenRef) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	color.Cyan("\nCHAIN %d", chainID)
	fmt.Println(strings.Repeat("-", 90))

	for _, token := range tokens {
		address := token.Address
		if token.IsNative() {
			address = "native"
		}
		fmt.Printf("  %-10s  %2d decimals  %-24s %s\n",
			color.YellowString(token.Symbol),
			token.Decimals,
			token.Name,
			color.HiBlackString(address))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}
