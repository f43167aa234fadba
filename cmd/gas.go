package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"intent-swap/pkg/gas"
	"intent-swap/pkg/session"
	"intent-swap/pkg/types"
)

var gasCmd = &cobra.Command{
	Use:   "gas",
	Short: "Show the fast, average and safe gas presets",
	Run:   runGas,
}

func init() {
	rootCmd.AddCommand(gasCmd)
}

func runGas(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	stopSpinner := startSpinner("Fetching gas prices...", jsonOutput)
	tiers, err := gas.NewAdvisor(a.Explorer()).GetGasTiers(cmd.Context())
	stopSpinner()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tiers)
		return
	}

	header("GAS")
	fmt.Println()
	choices := make([]session.GasChoice, 0, 3)
	for _, tier := range tiers.All() {
		choices = append(choices, session.GasChoice{Tier: tier, Selected: tier.Name == types.DefaultGasTier})
	}
	displayGasChoices(choices)
	fmt.Printf("\n  Block:             %d\n", tiers.Block)
	fmt.Println("\n" + strings.Repeat("=", lineWidth) + "\n")
}
