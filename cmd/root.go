package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "intent-swap",
	Short: "Swap ERC20 tokens on Ethereum from a plain language intent",
	Long: `intent-swap turns an intent like "sell 1.5 ETH for USDC" into a swap
on Ethereum. Prices and quotes come from the 0x API, gas presets and wallet
activity from Etherscan, and the transaction is signed with a local keystore.

Examples:
  intent-swap swap sell 1.5 ETH for USDC
  intent-swap swap buy 100 USDC with DAI --gas fast
  intent-swap price swap 1 WETH to DAI
  intent-swap balances
  intent-swap activity --watch`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $HOME/.intent-swap.yaml)")
}

// newLogger logs to stderr so that --json output on stdout stays parseable
func newLogger(cmd *cobra.Command) *logrus.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if jsonOutput {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
