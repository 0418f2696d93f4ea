// Package tokens loads per-network ERC-20 token metadata from
// tokens/<network>.json (SPEC_FULL.md supplemented feature, feeding
// internal/fundupdate's token list), the same embed-or-read-file idiom
// the teacher uses for its static ABI fixtures.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kismp123/bugchainindexer-go/internal/fundupdate"
)

type tokenJSON struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Load reads dir/<network>.json and returns the decoded token list. A
// missing file is not an error: a network with no tracked tokens simply
// gets native-balance-only fund updates.
func Load(dir, network string) ([]fundupdate.Token, error) {
	path := filepath.Join(dir, network+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []tokenJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tokens: parse %s: %w", path, err)
	}

	out := make([]fundupdate.Token, len(raw))
	for i, t := range raw {
		out[i] = fundupdate.Token{
			Address:  strings.ToLower(t.Address),
			Symbol:   strings.ToUpper(t.Symbol),
			Decimals: t.Decimals,
		}
	}
	return out, nil
}
