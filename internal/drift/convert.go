// internal/drift/convert.go
package drift

import "github.com/shopspring/decimal"

// Протокольные масштабы фиксированной точки.
const (
	// BaseExponent scales base-asset amounts (perp size).
	BaseExponent = 9
	// QuoteExponent scales quote amounts and prices (USDC precision).
	QuoteExponent = 6
)

var (
	baseFactor  = decimal.New(1, BaseExponent)
	quoteFactor = decimal.New(1, QuoteExponent)
)

// StandardConverter implements Converter with the protocol's fixed scales.
// Embed it in client implementations and test doubles.
type StandardConverter struct{}

func (StandardConverter) ToBasePrecision(v decimal.Decimal) uint64 {
	return decimalToUnits(v, baseFactor)
}

func (StandardConverter) ToPricePrecision(v decimal.Decimal) uint64 {
	return decimalToUnits(v, quoteFactor)
}

func decimalToUnits(v, factor decimal.Decimal) uint64 {
	scaled := v.Mul(factor).Truncate(0)
	if scaled.Sign() <= 0 {
		return 0
	}
	return uint64(scaled.IntPart())
}

// QuoteToDecimal converts quote base units (1e6) back to a decimal value.
func QuoteToDecimal(units int64) decimal.Decimal {
	return decimal.New(units, -QuoteExponent)
}
