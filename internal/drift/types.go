// internal/drift/types.go
package drift

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Direction задает сторону позиции.
type Direction uint8

const (
	DirectionLong Direction = iota
	DirectionShort
)

// Opposite returns the reverse direction. Used for reduce-only exit legs.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

func (d Direction) String() string {
	if d == DirectionShort {
		return "short"
	}
	return "long"
}

// OrderType mirrors the order kinds the program accepts.
type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeTriggerMarket
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeTriggerMarket:
		return "trigger-market"
	default:
		return "market"
	}
}

// TriggerCondition selects when a trigger order fires relative to its price.
type TriggerCondition uint8

const (
	TriggerAbove TriggerCondition = iota
	TriggerBelow
)

func (c TriggerCondition) String() string {
	if c == TriggerBelow {
		return "below"
	}
	return "above"
}

// OrderParams is the wire-level order request handed to the program.
// Integer amounts are in protocol base units: base asset 1e9, prices 1e6.
type OrderParams struct {
	OrderType        OrderType
	MarketIndex      uint16
	Direction        Direction
	BaseAssetAmount  uint64
	Price            uint64 // limit orders only
	ReduceOnly       bool
	TriggerPrice     uint64
	TriggerCondition TriggerCondition

	// Auction window, market orders only. MaxTS caps how long the auction
	// may stay live (unix seconds).
	AuctionDuration   uint64
	AuctionStartPrice uint64
	AuctionEndPrice   uint64
	MaxTS             int64
}

// RawPosition is one perp position exactly as decoded from the user account.
// Signed amounts keep the protocol's fixed-point base units.
type RawPosition struct {
	MarketIndex          uint16
	BaseAssetAmount      int64
	QuoteAssetAmount     int64
	QuoteEntryAmount     int64
	QuoteBreakEvenAmount int64
	SettledPnl           int64
	LpShares             uint64
	OpenBids             int64
	OpenAsks             int64
	OpenOrders           uint8
}

// RawAccount is one subaccount as decoded from chain state. Numeric fields
// default to zero when the account predates a field's introduction.
type RawAccount struct {
	Authority              solana.PublicKey
	Name                   [32]byte
	SubAccountID           uint16
	TotalDeposits          int64 // quote base units, 1e6
	TotalWithdraws         int64
	SettledPerpPnl         int64
	OpenOrders             uint8
	Status                 uint8
	HasOpenOrder           bool
	IsMarginTradingEnabled bool
	PerpPositions          []RawPosition
}

// Converter exposes the precision helpers the protocol client provides.
type Converter interface {
	// ToBasePrecision scales a human decimal amount to base-asset units (1e9).
	ToBasePrecision(v decimal.Decimal) uint64
	// ToPricePrecision scales a human decimal price to quote units (1e6).
	ToPricePrecision(v decimal.Decimal) uint64
}

// Client is the boundary to the on-chain protocol. All methods may block on
// network round-trips; failures propagate unchanged to the caller.
type Client interface {
	Converter

	// Subscribe establishes the connection and account subscription.
	// Must be called once before any other method.
	Subscribe(ctx context.Context) error
	// Unsubscribe releases the connection.
	Unsubscribe() error

	// SetSubAccount switches the subaccount targeted by Deposit, Withdraw and
	// PlaceOrder. New clients start at subaccount 0.
	SetSubAccount(id uint16)

	// GetAccountsForAuthority returns every subaccount owned by the authority.
	GetAccountsForAuthority(ctx context.Context, authority solana.PublicKey) ([]RawAccount, error)
	// InitializeUserAccount provisions subaccount 0 for the signing wallet.
	InitializeUserAccount(ctx context.Context) (solana.Signature, error)
	// GetAssociatedTokenAccount resolves the signer's token account for a spot
	// market. Returns ErrTokenAccountNotFound when the account does not exist.
	GetAssociatedTokenAccount(ctx context.Context, marketIndex uint16) (solana.PublicKey, error)

	Deposit(ctx context.Context, amount uint64, marketIndex uint16, tokenAccount solana.PublicKey) (solana.Signature, error)
	Withdraw(ctx context.Context, amount uint64, marketIndex uint16, tokenAccount solana.PublicKey) (solana.Signature, error)
	PlaceOrder(ctx context.Context, params OrderParams) (solana.Signature, error)
}
