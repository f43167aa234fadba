// Package tokens is the static token metadata table.
package tokens

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"intent-swap/pkg/types"
)

//go:embed tokens.json
var defaultTable []byte

// entry mirrors types.TokenRef but keeps decimals optional so a table row
// without decimals is caught instead of read as 0
type entry struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	ChainID  int64  `json:"chain_id"`
	Address  string `json:"address"`
	Decimals *int   `json:"decimals"`
	LogoURI  string `json:"logo_uri"`
}

// Table looks up tokens by symbol and chain
type Table struct {
	entries []entry
}

// Default returns the embedded mainnet/sepolia table
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded token table: %v", err))
	}
	return t
}

// Parse reads a JSON token table
func Parse(data []byte) (*Table, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse token table: %w", err)
	}
	for _, e := range entries {
		if e.Symbol == "" || e.ChainID == 0 {
			return nil, fmt.Errorf("token table entry %q is missing symbol or chain id", e.Address)
		}
		if !common.IsHexAddress(e.Address) {
			return nil, fmt.Errorf("token %s on chain %d has invalid address %q", e.Symbol, e.ChainID, e.Address)
		}
	}
	return &Table{entries: entries}, nil
}

// Lookup resolves symbol on chainID. Unknown symbols and entries without
// decimals are validation errors.
func (t *Table) Lookup(symbol string, chainID int64) (types.TokenRef, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return types.TokenRef{}, types.NewValidationError("token", "token symbol is required")
	}

	for _, e := range t.entries {
		if e.ChainID != chainID || !strings.EqualFold(e.Symbol, symbol) {
			continue
		}
		if e.Decimals == nil {
			return types.TokenRef{}, types.NewValidationError("token", fmt.Sprintf("token %s on chain %d has no decimals", e.Symbol, chainID))
		}
		return types.TokenRef{
			Symbol:   e.Symbol,
			Name:     e.Name,
			ChainID:  e.ChainID,
			Address:  e.Address,
			Decimals: *e.Decimals,
			LogoURI:  e.LogoURI,
		}, nil
	}

	return types.TokenRef{}, types.NewValidationError("token", fmt.Sprintf("token '%s' not found on chain %d", symbol, chainID))
}

// List returns the resolvable tokens on chainID, sorted by symbol. A chainID
// of 0 lists every chain.
func (t *Table) List(chainID int64) []types.TokenRef {
	refs := make([]types.TokenRef, 0, len(t.entries))
	for _, e := range t.entries {
		if chainID != 0 && e.ChainID != chainID {
			continue
		}
		ref, err := t.Lookup(e.Symbol, e.ChainID)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ChainID != refs[j].ChainID {
			return refs[i].ChainID < refs[j].ChainID
		}
		return refs[i].Symbol < refs[j].Symbol
	})
	return refs
}

// NormalizeSymbol upper-cases a symbol and trims it
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
