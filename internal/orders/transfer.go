// internal/orders/transfer.go
package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/market"
)

// TransferInput is a collateral deposit or withdrawal request. SubAccountID
// retargets the client for this and subsequent operations; absent it keeps
// the current selection.
type TransferInput struct {
	Action       string  `json:"action"` // deposit | withdraw
	Amount       string  `json:"amount"` // USDC, human decimal
	SubAccountID *uint16 `json:"subAccountId,omitempty"`
}

// TransferResult reports one settled transfer.
type TransferResult struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// TransferError carries user-facing text rewritten from a program rejection.
type TransferError struct {
	Message       string
	OriginalError error
}

func (e *TransferError) Error() string {
	return e.Message
}

func (e *TransferError) Unwrap() error {
	return e.OriginalError
}

// Transfer moves USDC collateral in or out of the active subaccount. Program
// rejections are rewritten to user-facing messages; unmatched errors keep
// their raw text.
func (s *Submitter) Transfer(ctx context.Context, client drift.Client, input TransferInput) (*TransferResult, error) {
	if input.Action != "deposit" && input.Action != "withdraw" {
		return nil, &ValidationError{Field: "action", Reason: "must be deposit or withdraw"}
	}
	amount, err := parsePositive("amount", input.Amount)
	if err != nil {
		return nil, err
	}
	amountUnits := client.ToPricePrecision(amount)

	if input.SubAccountID != nil {
		client.SetSubAccount(*input.SubAccountID)
	}

	tokenAccount, err := client.GetAssociatedTokenAccount(ctx, market.USDCSpotMarketIndex)
	if err != nil {
		if errors.Is(err, drift.ErrTokenAccountNotFound) {
			return nil, &TransferError{Message: drift.ErrTokenAccountNotFound.Error(), OriginalError: err}
		}
		return nil, err
	}

	opLog := s.logger.WithOperation("transfer")

	if input.Action == "deposit" {
		sig, err := client.Deposit(ctx, amountUnits, market.USDCSpotMarketIndex, tokenAccount)
		if err != nil {
			return nil, &TransferError{Message: drift.FriendlyDepositError(err), OriginalError: err}
		}
		opLog.Info("Deposit settled", zap.String("amount", amount.String()), zap.String("signature", sig.String()))
		return &TransferResult{
			Message:   fmt.Sprintf("Successfully deposited %s USDC", amount.String()),
			Signature: sig.String(),
		}, nil
	}

	sig, err := client.Withdraw(ctx, amountUnits, market.USDCSpotMarketIndex, tokenAccount)
	if err != nil {
		return nil, &TransferError{Message: drift.FriendlyWithdrawError(err), OriginalError: err}
	}
	opLog.Info("Withdrawal settled", zap.String("amount", amount.String()), zap.String("signature", sig.String()))
	return &TransferResult{
		Message:   fmt.Sprintf("Successfully withdrew %s USDC", amount.String()),
		Signature: sig.String(),
	}, nil
}
