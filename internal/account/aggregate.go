// internal/account/aggregate.go
package account

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/market"
)

var (
	// ErrNoAccountsFound means the authority owns no subaccounts. The lookup
	// path treats this as a user-facing error, the dashboard path as an empty
	// render state.
	ErrNoAccountsFound = errors.New("No Drift Protocol accounts found for this wallet")
	// ErrAccountDataProcessing means every record in the batch was malformed.
	ErrAccountDataProcessing = errors.New("Failed to process account data")
)

// Aggregator normalizes raw subaccounts into display records and folds them
// into a portfolio summary.
type Aggregator struct {
	logger *zap.Logger
}

func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger.Named("aggregator")}
}

// Aggregate transforms the raw batch. A malformed record is dropped with a
// warning, not fatal to the batch; a batch that drops to empty is an error.
func (a *Aggregator) Aggregate(raw []drift.RawAccount) ([]SubaccountRecord, PortfolioSummary, error) {
	if len(raw) == 0 {
		return nil, PortfolioSummary{}, ErrNoAccountsFound
	}

	records := make([]SubaccountRecord, 0, len(raw))
	for _, acc := range raw {
		record, err := transformAccount(acc)
		if err != nil {
			a.logger.Warn("Dropping malformed subaccount",
				zap.Uint16("sub_account_id", acc.SubAccountID),
				zap.Error(err))
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, PortfolioSummary{}, ErrAccountDataProcessing
	}

	return records, Summarize(records), nil
}

// transformAccount normalizes one raw subaccount. Fixed-point quote fields
// are 1e6-scaled integers; missing (zero-valued) fields stay zero.
func transformAccount(acc drift.RawAccount) (SubaccountRecord, error) {
	if acc.PerpPositions == nil {
		return SubaccountRecord{}, fmt.Errorf("perp positions missing")
	}

	totalDeposits := drift.QuoteToDecimal(acc.TotalDeposits)
	totalWithdraws := drift.QuoteToDecimal(acc.TotalWithdraws)
	settledPnl := drift.QuoteToDecimal(acc.SettledPerpPnl)
	totalCollateral := totalDeposits.Sub(totalWithdraws).Add(settledPnl)

	positions := make([]PositionRecord, 0, len(acc.PerpPositions))
	openPositions := 0
	for _, pos := range acc.PerpPositions {
		if pos.BaseAssetAmount != 0 {
			openPositions++
		}
		positions = append(positions, PositionRecord{
			MarketIndex:          pos.MarketIndex,
			Market:               market.Symbol(pos.MarketIndex),
			BaseAssetAmount:      strconv.FormatInt(pos.BaseAssetAmount, 10),
			QuoteAssetAmount:     strconv.FormatInt(pos.QuoteAssetAmount, 10),
			QuoteEntryAmount:     strconv.FormatInt(pos.QuoteEntryAmount, 10),
			QuoteBreakEvenAmount: strconv.FormatInt(pos.QuoteBreakEvenAmount, 10),
			SettledPnl:           strconv.FormatInt(pos.SettledPnl, 10),
			OpenOrders:           pos.OpenOrders,
			LpShares:             strconv.FormatUint(pos.LpShares, 10),
			OpenBids:             strconv.FormatInt(pos.OpenBids, 10),
			OpenAsks:             strconv.FormatInt(pos.OpenAsks, 10),
		})
	}

	return SubaccountRecord{
		Authority:              acc.Authority.String(),
		SubAccountID:           acc.SubAccountID,
		Name:                   decodeName(acc.Name, acc.SubAccountID),
		Equity:                 totalCollateral,
		TotalCollateral:        totalCollateral,
		OpenOrders:             acc.OpenOrders,
		OpenPositions:          openPositions,
		Status:                 acc.Status,
		HasOpenOrder:           acc.HasOpenOrder,
		IsMarginTradingEnabled: acc.IsMarginTradingEnabled,
		PerpPositions:          positions,
	}, nil
}

// decodeName trims zero padding from the on-chain name. Empty names fall back
// to a synthetic label.
func decodeName(name [32]byte, subAccountID uint16) string {
	decoded := string(bytes.ReplaceAll(name[:], []byte{0}, nil))
	if decoded == "" {
		return fmt.Sprintf("Account %d", subAccountID)
	}
	return decoded
}

// Summarize folds records into a portfolio summary. Plain summation: the
// result does not depend on record order.
func Summarize(records []SubaccountRecord) PortfolioSummary {
	summary := PortfolioSummary{
		TotalCollateral: decimal.Zero,
		PnL:             decimal.Zero,
	}
	for _, record := range records {
		summary.TotalCollateral = summary.TotalCollateral.Add(record.TotalCollateral)
		summary.OpenPositions += record.OpenPositions
		summary.PnL = summary.PnL.Add(record.Equity.Sub(record.TotalCollateral))
	}
	return summary
}

// OpenPositions filters a record's positions down to the open ones. The
// record's own collection keeps closed positions.
func OpenPositions(record SubaccountRecord) []PositionRecord {
	open := make([]PositionRecord, 0, len(record.PerpPositions))
	for _, pos := range record.PerpPositions {
		if pos.BaseAssetAmount != "0" {
			open = append(open, pos)
		}
	}
	return open
}
