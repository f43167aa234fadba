package intent

import (
	"regexp"
	"strings"
)

// commandPattern matches "<verb> <amount> <token> <joiner> <token>"
var commandPattern = regexp.MustCompile(`^(BUY|SELL|SWAP)\s+(\d+\.?\d*)\s+([A-Z0-9]+)\s+(?:TO|FOR|WITH|USING|INTO)\s+([A-Z0-9]+)$`)

// ParseCommand is the offline classifier. It turns commands like
// "sell 1.5 ETH for USDC", "swap 1 ETH to DAI" or "buy 100 USDC with ETH"
// into the same Result shape the intent service returns. Queries it does not
// understand yield no results.
func ParseCommand(command string) []Result {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")

	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil
	}

	verb, amount, first, second := matches[1], matches[2], matches[3], matches[4]

	name := NameSell
	source, target := first, second
	if verb == "BUY" {
		// the amount is denominated in the token being bought
		name = NameBuy
		source, target = second, first
	}

	return []Result{{
		Name:       name,
		Confidence: 1,
		Entities: map[string]string{
			EntityAmount: amount,
			EntitySource: source,
			EntityTarget: target,
		},
	}}
}
