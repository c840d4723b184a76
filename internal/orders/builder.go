// internal/orders/builder.go
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/market"
)

// auctionExpiryBuffer tolerates scheduling slack between building an auction
// order and the cluster picking it up.
const auctionExpiryBuffer = 40 * time.Second

// Builder turns form input into protocol order requests. Scaling rules are
// delegated to the client's converter.
type Builder struct {
	conv drift.Converter
}

func NewBuilder(conv drift.Converter) *Builder {
	return &Builder{conv: conv}
}

// Build validates the form and constructs the primary order plus optional
// reduce-only TP/SL trigger legs. No network calls happen here.
func (b *Builder) Build(input FormInput, now time.Time) (*Batch, error) {
	marketIndex, err := market.Resolve(input.Market)
	if err != nil {
		return nil, &ValidationError{Field: "market", Reason: err.Error()}
	}

	direction, err := parseDirection(input.Direction)
	if err != nil {
		return nil, err
	}

	orderType, err := parseOrderType(input.OrderType)
	if err != nil {
		return nil, err
	}

	size, err := parsePositive("size", input.Size)
	if err != nil {
		return nil, err
	}
	baseAssetAmount := b.conv.ToBasePrecision(size)

	primary := drift.OrderParams{
		OrderType:       orderType,
		MarketIndex:     marketIndex,
		Direction:       direction,
		BaseAssetAmount: baseAssetAmount,
	}

	if orderType == drift.OrderTypeLimit {
		price, err := parsePositive("price", input.Price)
		if err != nil {
			return nil, err
		}
		primary.Price = b.conv.ToPricePrecision(price)
	}

	// Auction window attaches to market orders only.
	if input.UseAuction && orderType == drift.OrderTypeMarket {
		if input.AuctionDuration <= 0 {
			return nil, &ValidationError{Field: "auctionDuration", Reason: "must be positive"}
		}
		startPrice, err := parsePositive("auctionStartPrice", input.AuctionStartPrice)
		if err != nil {
			return nil, err
		}
		endPrice, err := parsePositive("auctionEndPrice", input.AuctionEndPrice)
		if err != nil {
			return nil, err
		}
		primary.AuctionDuration = uint64(input.AuctionDuration)
		primary.AuctionStartPrice = b.conv.ToPricePrecision(startPrice)
		primary.AuctionEndPrice = b.conv.ToPricePrecision(endPrice)
		primary.MaxTS = now.Add(time.Duration(input.AuctionDuration)*time.Second + auctionExpiryBuffer).Unix()
	}

	batch := &Batch{
		Primary:   primary,
		Market:    input.Market,
		Direction: direction.String(),
		OrderType: orderType.String(),
		Size:      size.String(),
	}

	if input.Advanced {
		if input.TakeProfit != "" {
			tp, err := parsePositive("takeProfit", input.TakeProfit)
			if err != nil {
				return nil, err
			}
			leg := b.triggerLeg(marketIndex, direction, baseAssetAmount, tp, true)
			batch.TakeProfit = &leg
		}
		if input.StopLoss != "" {
			sl, err := parsePositive("stopLoss", input.StopLoss)
			if err != nil {
				return nil, err
			}
			leg := b.triggerLeg(marketIndex, direction, baseAssetAmount, sl, false)
			batch.StopLoss = &leg
		}
	}

	return batch, nil
}

// triggerLeg builds a reduce-only trigger-market order on the opposite side
// of the primary. Take-profit triggers in the primary's favorable direction,
// stop-loss in its adverse one.
func (b *Builder) triggerLeg(
	marketIndex uint16,
	primaryDirection drift.Direction,
	baseAssetAmount uint64,
	triggerPrice decimal.Decimal,
	takeProfit bool,
) drift.OrderParams {
	var condition drift.TriggerCondition
	if primaryDirection == drift.DirectionLong {
		condition = drift.TriggerBelow
		if takeProfit {
			condition = drift.TriggerAbove
		}
	} else {
		condition = drift.TriggerAbove
		if takeProfit {
			condition = drift.TriggerBelow
		}
	}
	return drift.OrderParams{
		OrderType:        drift.OrderTypeTriggerMarket,
		MarketIndex:      marketIndex,
		Direction:        primaryDirection.Opposite(),
		BaseAssetAmount:  baseAssetAmount,
		TriggerPrice:     b.conv.ToPricePrecision(triggerPrice),
		TriggerCondition: condition,
		ReduceOnly:       true,
	}
}

func parseDirection(raw string) (drift.Direction, error) {
	switch raw {
	case "long":
		return drift.DirectionLong, nil
	case "short":
		return drift.DirectionShort, nil
	default:
		return 0, &ValidationError{Field: "direction", Reason: "must be long or short"}
	}
}

func parseOrderType(raw string) (drift.OrderType, error) {
	switch raw {
	case "market":
		return drift.OrderTypeMarket, nil
	case "limit":
		return drift.OrderTypeLimit, nil
	default:
		return 0, &ValidationError{Field: "orderType", Reason: "must be market or limit"}
	}
}

func parsePositive(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, &ValidationError{Field: field, Reason: "is required"}
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Reason: "is not a number"}
	}
	if value.Sign() <= 0 {
		return decimal.Zero, &ValidationError{Field: field, Reason: "must be positive"}
	}
	return value, nil
}
