// internal/market/market.go
package market

import (
	"fmt"
	"sort"
)

// PerpMarket describes one perp market known to the terminal.
type PerpMarket struct {
	Index  uint16 `json:"index"`
	Symbol string `json:"symbol"`
}

// DemoPrice holds the synthetic quote used when demo mode is on.
type DemoPrice struct {
	Current float64 `json:"current"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
}

// Статическая таблица рынков devnet. Индексы фиксированы протоколом.
var markets = map[string]uint16{
	"SOL-PERP": 0,
	"BTC-PERP": 1,
	"ETH-PERP": 2,
}

var demoPrices = map[string]DemoPrice{
	"SOL-PERP": {Current: 123.45, Bid: 123.40, Ask: 123.50},
	"BTC-PERP": {Current: 67890.50, Bid: 67885.00, Ask: 67896.00},
	"ETH-PERP": {Current: 3456.78, Bid: 3455.50, Ask: 3458.00},
}

// USDCSpotMarketIndex is the spot market used for collateral transfers.
const USDCSpotMarketIndex uint16 = 0

// Resolve maps a human-readable market symbol to its protocol market index.
func Resolve(symbol string) (uint16, error) {
	index, ok := markets[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown market: %s", symbol)
	}
	return index, nil
}

// Symbol returns the market name for an index, or a synthetic label when the
// index is not in the table.
func Symbol(index uint16) string {
	for name, idx := range markets {
		if idx == index {
			return name
		}
	}
	return fmt.Sprintf("Market %d", index)
}

// Price returns the demo quote for a market symbol.
func Price(symbol string) (DemoPrice, bool) {
	p, ok := demoPrices[symbol]
	return p, ok
}

// List returns all known markets ordered by index.
func List() []PerpMarket {
	out := make([]PerpMarket, 0, len(markets))
	for name, idx := range markets {
		out = append(out, PerpMarket{Index: idx, Symbol: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
