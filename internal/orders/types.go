// internal/orders/types.go
package orders

import (
	"fmt"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
)

// FormInput carries raw order form values. Numeric fields stay strings until
// validation so a blank field is distinguishable from zero.
type FormInput struct {
	Market    string `json:"market"`
	Direction string `json:"direction"` // long | short
	OrderType string `json:"orderType"` // market | limit
	Size      string `json:"size"`
	Price     string `json:"price"` // limit orders

	UseAuction        bool   `json:"useAuction"`
	AuctionDuration   int64  `json:"auctionDuration"` // seconds
	AuctionStartPrice string `json:"auctionStartPrice"`
	AuctionEndPrice   string `json:"auctionEndPrice"`

	Advanced   bool   `json:"advanced"`
	TakeProfit string `json:"takeProfit"`
	StopLoss   string `json:"stopLoss"`
}

// Batch is the ordered set of orders one form submission produces.
type Batch struct {
	Primary    drift.OrderParams
	TakeProfit *drift.OrderParams
	StopLoss   *drift.OrderParams

	// Display values echoed back in the success message.
	Market    string
	Direction string
	OrderType string
	Size      string
}

// LegResult is the outcome of one sequential submission attempt. Legs are
// independent: a failed one does not roll back those already submitted.
type LegResult struct {
	Leg       string `json:"leg"` // primary | take-profit | stop-loss
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmissionResult reports the whole batch.
type SubmissionResult struct {
	Message string      `json:"message"`
	Legs    []LegResult `json:"legs"`
	Demo    bool        `json:"demo"`
}

// ValidationError is caught before any network call and shown inline.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func successMessage(direction, orderType, size, market string) string {
	return fmt.Sprintf("Successfully placed %s %s order for %s %s", direction, orderType, size, market)
}
