// Package intent maps classified user intents onto swap intents.
package intent

import (
	"strings"

	"intent-swap/pkg/types"
)

// Intent names produced by the classifier
const (
	NameBuy  = "ca_buy"
	NameSell = "ca_sell"
)

// Entity keys produced by the classifier
const (
	EntitySource = "source_currency"
	EntityTarget = "target_currency"
	EntityAmount = "currency_amount"
	EntityNumber = "wit$number"
)

// MinEntities is the number of entities a swap intent needs
const MinEntities = 3

// Result is one classified intent with its flattened entities
type Result struct {
	Name       string
	Confidence float64
	Entities   map[string]string
}

// ToSwapIntent maps a classifier result to a SwapIntent. It returns nil and
// no error when the result has fewer than MinEntities entities: there is not
// enough to go on and the swap flow should not be entered.
func ToSwapIntent(r Result) (*types.SwapIntent, error) {
	if len(r.Entities) < MinEntities {
		return nil, nil
	}

	var direction types.Direction
	switch r.Name {
	case NameBuy:
		direction = types.DirectionBuy
	case NameSell:
		direction = types.DirectionSell
	default:
		return nil, types.NewValidationError("intent", "unsupported intent '"+r.Name+"'")
	}

	source := strings.TrimSpace(r.Entities[EntitySource])
	if source == "" {
		return nil, types.NewValidationError(EntitySource, "source currency is required")
	}
	target := strings.TrimSpace(r.Entities[EntityTarget])
	if target == "" {
		return nil, types.NewValidationError(EntityTarget, "target currency is required")
	}

	raw := strings.TrimSpace(r.Entities[EntityNumber])
	if raw == "" {
		raw = strings.TrimSpace(r.Entities[EntityAmount])
	}
	if raw == "" {
		return nil, types.NewValidationError(EntityAmount, "amount is required")
	}

	return &types.SwapIntent{
		Direction:    direction,
		SourceSymbol: strings.ToUpper(source),
		TargetSymbol: strings.ToUpper(target),
		RawAmount:    raw,
	}, nil
}

// First returns the first result that maps to a swap intent. A nil intent
// with no error means nothing usable was found.
func First(results []Result) (*types.SwapIntent, error) {
	var firstErr error
	for _, r := range results {
		si, err := ToSwapIntent(r)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if si != nil {
			return si, nil
		}
	}
	return nil, firstErr
}
