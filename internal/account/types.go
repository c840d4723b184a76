// internal/account/types.go
package account

import "github.com/shopspring/decimal"

// PositionRecord is one market exposure within a subaccount. Fixed-point
// amounts stay as decimal strings until render time; scaling them early would
// lose precision.
type PositionRecord struct {
	MarketIndex          uint16 `json:"marketIndex"`
	Market               string `json:"market"`
	BaseAssetAmount      string `json:"baseAssetAmount"`
	QuoteAssetAmount     string `json:"quoteAssetAmount"`
	QuoteEntryAmount     string `json:"quoteEntryAmount"`
	QuoteBreakEvenAmount string `json:"quoteBreakEvenAmount"`
	SettledPnl           string `json:"settledPnl"`
	OpenOrders           uint8  `json:"openOrders"`
	LpShares             string `json:"lpShares"`
	OpenBids             string `json:"openBids"`
	OpenAsks             string `json:"openAsks"`
}

// SubaccountRecord is the display-side view of one subaccount.
type SubaccountRecord struct {
	Authority              string           `json:"authority"`
	SubAccountID           uint16           `json:"subAccountId"`
	Name                   string           `json:"name"`
	Equity                 decimal.Decimal  `json:"equity"`
	TotalCollateral        decimal.Decimal  `json:"totalCollateral"`
	OpenOrders             uint8            `json:"openOrders"`
	OpenPositions          int              `json:"openPositions"`
	Status                 uint8            `json:"status"`
	HasOpenOrder           bool             `json:"hasOpenOrder"`
	IsMarginTradingEnabled bool             `json:"isMarginTradingEnabled"`
	PerpPositions          []PositionRecord `json:"perpPositions"`
}

// PortfolioSummary is the fold over all loaded subaccounts. Derived, never
// persisted.
type PortfolioSummary struct {
	TotalCollateral decimal.Decimal `json:"totalCollateral"`
	OpenPositions   int             `json:"openPositions"`
	PnL             decimal.Decimal `json:"pnl"`
}
