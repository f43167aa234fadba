package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"intent-swap/config"
	"intent-swap/pkg/amount"
	"intent-swap/pkg/session"
	"intent-swap/pkg/types"
)

const lineWidth = 60

func separator() {
	fmt.Println(strings.Repeat("=", lineWidth))
}

func header(title string) {
	fmt.Println("\n" + strings.Repeat("=", lineWidth))
	color.Green("%s", center(title))
	separator()
}

func center(s string) string {
	pad := (lineWidth - len([]rune(s))) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// startSpinner shows a spinner unless output is JSON. The returned func stops it.
func startSpinner(suffix string, jsonOutput bool) func() {
	if jsonOutput {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

func printJSON(v any) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func displayView(v session.View) {
	header("SWAP")

	fmt.Printf("\n  %s\n", color.New(color.Bold).Sprint(v.Title))
	if v.PriceStale {
		color.Yellow("  (price may be outdated)")
	}

	if len(v.Sources) > 0 {
		fmt.Println("\n  Sources:")
		for _, s := range v.Sources {
			fmt.Printf("    %-20s %s\n", s.Name, color.HiBlackString(s.Proportion))
		}
	}

	if v.Price != nil && v.Price.EstimatedPriceImpact != "" {
		fmt.Printf("\n  Price Impact:      %s%%\n", v.Price.EstimatedPriceImpact)
	}

	fmt.Println("\n  Gas:")
	displayGasChoices(v.GasChoices)
	if v.GasStale {
		color.Yellow("  (gas prices may be outdated)")
	}

	if len(v.Balances) > 0 {
		fmt.Println("\n  Balances:")
		displayBalances(v.Balances)
	}

	fmt.Println("\n" + strings.Repeat("=", lineWidth) + "\n")
}

func displayGasChoices(choices []session.GasChoice) {
	for _, c := range choices {
		marker := "( )"
		if c.Selected {
			marker = color.GreenString("(•)")
		}
		fmt.Printf("    %s %-8s %s\n", marker, c.Tier.Name, gasDetails(c.Tier))
	}
}

func gasDetails(tier types.GasTier) string {
	if tier.PriceGwei.IsZero() {
		return session.Placeholder
	}
	details := amount.Format(tier.PriceGwei, 2) + " gwei"
	if tier.ETA > 0 {
		details += color.HiBlackString("  ~%s", tier.ETA.Round(time.Second))
	}
	return details
}

func displayBalances(balances types.Balances) {
	for _, b := range balances {
		value := b.Amount
		if b.Pending || value == "" {
			value = session.Placeholder
		}
		fmt.Printf("    %-8s %s\n", color.YellowString(b.Symbol), value)
	}
}

func displayActivity(cfg *config.Config, records []types.ActivityRecord) {
	if len(records) == 0 {
		fmt.Println("\n  No recent activity.")
		return
	}
	for _, r := range records {
		when := session.Placeholder
		if !r.Timestamp.IsZero() {
			when = r.Timestamp.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  %s  %-19s  %s\n", activityStatus(r.Status()), when, color.HiBlackString(cfg.TxURL(r.Hash)))
	}
}

func activityStatus(status types.ActivityStatus) string {
	switch status {
	case types.ActivitySuccess:
		return color.GreenString("%-8s", status)
	case types.ActivityError:
		return color.RedString("%-8s", status)
	default:
		return color.YellowString("%-8s", status)
	}
}

func displayExecution(cfg *config.Config, exec types.SwapExecution) {
	if exec.Approval != nil && exec.Approval.Approved {
		fmt.Printf("  Approval Tx:       %s\n", color.CyanString(cfg.TxURL(exec.Approval.TxHash)))
	}
	switch exec.Status {
	case types.StatusSubmitted:
		color.Green("\n✓ Swap submitted!")
		fmt.Printf("  Transaction:       %s\n", color.CyanString(cfg.TxURL(exec.TxHash)))
		fmt.Printf("  Gas:               %s\n", gasDetails(exec.Gas))
	case types.StatusFailed:
		color.Red("\n✗ Swap failed at %s", exec.FailedStep)
		fmt.Printf("  Reason:            %s\n", exec.Error)
	default:
		fmt.Printf("\n  Status: %s\n", exec.Status)
	}
}
