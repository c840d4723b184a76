package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
)

var testNow = time.Unix(1_700_000_000, 0)

func marketForm() FormInput {
	return FormInput{
		Market:    "SOL-PERP",
		Direction: "long",
		OrderType: "market",
		Size:      "1.5",
	}
}

func TestBuild_MarketOrder(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	batch, err := b.Build(marketForm(), testNow)
	require.NoError(t, err)

	assert.Equal(t, drift.OrderTypeMarket, batch.Primary.OrderType)
	assert.Equal(t, uint16(0), batch.Primary.MarketIndex)
	assert.Equal(t, drift.DirectionLong, batch.Primary.Direction)
	assert.Equal(t, uint64(1_500_000_000), batch.Primary.BaseAssetAmount)
	assert.Nil(t, batch.TakeProfit)
	assert.Nil(t, batch.StopLoss)
}

func TestBuild_LimitOrderRequiresPrice(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.OrderType = "limit"

	_, err := b.Build(form, testNow)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)

	form.Price = "123.45"
	batch, err := b.Build(form, testNow)
	require.NoError(t, err)
	assert.Equal(t, drift.OrderTypeLimit, batch.Primary.OrderType)
	assert.Equal(t, uint64(123_450_000), batch.Primary.Price)
}

func TestBuild_SizeValidation(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	for _, size := range []string{"", "0", "-2", "abc"} {
		form := marketForm()
		form.Size = size
		_, err := b.Build(form, testNow)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "size %q", size)
		assert.Equal(t, "size", vErr.Field)
	}
}

func TestBuild_UnknownMarket(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.Market = "DOGE-PERP"
	_, err := b.Build(form, testNow)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "market", vErr.Field)
}

func TestBuild_AuctionWindow(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.UseAuction = true
	form.AuctionDuration = 60
	form.AuctionStartPrice = "100"
	form.AuctionEndPrice = "101.5"

	batch, err := b.Build(form, testNow)
	require.NoError(t, err)

	assert.Equal(t, uint64(60), batch.Primary.AuctionDuration)
	assert.Equal(t, uint64(100_000_000), batch.Primary.AuctionStartPrice)
	assert.Equal(t, uint64(101_500_000), batch.Primary.AuctionEndPrice)
	// now + duration + буфер 40 секунд
	assert.Equal(t, testNow.Unix()+60+40, batch.Primary.MaxTS)
}

func TestBuild_AuctionIgnoredForLimitOrders(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.OrderType = "limit"
	form.Price = "100"
	form.UseAuction = true
	form.AuctionDuration = 60
	form.AuctionStartPrice = "100"
	form.AuctionEndPrice = "101"

	batch, err := b.Build(form, testNow)
	require.NoError(t, err)
	assert.Zero(t, batch.Primary.AuctionDuration)
	assert.Zero(t, batch.Primary.MaxTS)
}

func TestBuild_TakeProfitStopLossLegs(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.Advanced = true
	form.TakeProfit = "150"
	form.StopLoss = "90"

	batch, err := b.Build(form, testNow)
	require.NoError(t, err)
	require.NotNil(t, batch.TakeProfit)
	require.NotNil(t, batch.StopLoss)

	for _, leg := range []*drift.OrderParams{batch.TakeProfit, batch.StopLoss} {
		assert.Equal(t, drift.OrderTypeTriggerMarket, leg.OrderType)
		assert.Equal(t, drift.DirectionShort, leg.Direction, "leg opposes a long primary")
		assert.True(t, leg.ReduceOnly)
		assert.Equal(t, batch.Primary.BaseAssetAmount, leg.BaseAssetAmount)
	}

	// long primary: TP срабатывает выше, SL ниже
	assert.Equal(t, drift.TriggerAbove, batch.TakeProfit.TriggerCondition)
	assert.Equal(t, uint64(150_000_000), batch.TakeProfit.TriggerPrice)
	assert.Equal(t, drift.TriggerBelow, batch.StopLoss.TriggerCondition)
	assert.Equal(t, uint64(90_000_000), batch.StopLoss.TriggerPrice)
}

func TestBuild_TriggerConditionsForShortPrimary(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.Direction = "short"
	form.Advanced = true
	form.TakeProfit = "90"
	form.StopLoss = "150"

	batch, err := b.Build(form, testNow)
	require.NoError(t, err)

	assert.Equal(t, drift.DirectionLong, batch.TakeProfit.Direction)
	assert.Equal(t, drift.TriggerBelow, batch.TakeProfit.TriggerCondition)
	assert.Equal(t, drift.DirectionLong, batch.StopLoss.Direction)
	assert.Equal(t, drift.TriggerAbove, batch.StopLoss.TriggerCondition)
}

func TestBuild_LegsIgnoredWithoutAdvanced(t *testing.T) {
	b := NewBuilder(drift.StandardConverter{})

	form := marketForm()
	form.TakeProfit = "150"
	form.StopLoss = "90"

	batch, err := b.Build(form, testNow)
	require.NoError(t, err)
	assert.Nil(t, batch.TakeProfit)
	assert.Nil(t, batch.StopLoss)
}
