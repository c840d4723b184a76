// internal/drift/errors.go
package drift

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotSubscribed is returned when a program call is made before Subscribe.
	ErrNotSubscribed = errors.New("client is not subscribed")
	// ErrTokenAccountNotFound means the signer has no token account for the
	// requested spot market.
	ErrTokenAccountNotFound = errors.New("USDC token account not found. Please ensure you have USDC in your wallet.")
)

// InitializationError is terminal for session setup: connection failure,
// insufficient balance or failed account provisioning.
type InitializationError struct {
	Reason        string
	OriginalError error
}

func (e *InitializationError) Error() string {
	if e.OriginalError != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.OriginalError)
	}
	return e.Reason
}

func (e *InitializationError) Unwrap() error {
	return e.OriginalError
}

// SubmissionError is a network or program rejection of one submitted
// transaction leg.
type SubmissionError struct {
	Leg           string
	OriginalError error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s order rejected: %v", e.Leg, e.OriginalError)
}

func (e *SubmissionError) Unwrap() error {
	return e.OriginalError
}

// rewriteRule заменяет известный фрагмент ошибки программы на понятный текст.
type rewriteRule struct {
	substring string
	message   string
}

var depositRules = []rewriteRule{
	{"0x1", "Insufficient USDC balance in wallet"},
	{"associated token account", "USDC token account not found. Please ensure you have USDC in your wallet."},
	{"insufficient funds", "Insufficient USDC in your wallet"},
}

var withdrawRules = []rewriteRule{
	{"0x1", "Insufficient USDC balance in wallet"},
	{"associated token account", "USDC token account not found. Please ensure you have USDC in your wallet."},
	{"insufficient funds", "Insufficient funds in your Drift account"},
}

// FriendlyDepositError maps a raw program error to user-facing text.
// Unmatched errors keep their original message.
func FriendlyDepositError(err error) string {
	return applyRules(err, depositRules)
}

// FriendlyWithdrawError is FriendlyDepositError with withdraw-side wording
// for the insufficient-funds case.
func FriendlyWithdrawError(err error) string {
	return applyRules(err, withdrawRules)
}

func applyRules(err error, rules []rewriteRule) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, rule := range rules {
		if strings.Contains(msg, rule.substring) {
			return rule.message
		}
	}
	return msg
}
