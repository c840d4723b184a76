package drift

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToBasePrecision(t *testing.T) {
	conv := StandardConverter{}

	assert.Equal(t, uint64(1_500_000_000), conv.ToBasePrecision(decimal.RequireFromString("1.5")))
	assert.Equal(t, uint64(1), conv.ToBasePrecision(decimal.RequireFromString("0.000000001")))
	// Хвост мельче 1e-9 отбрасывается, без округления вверх.
	assert.Equal(t, uint64(1), conv.ToBasePrecision(decimal.RequireFromString("0.0000000019")))
	assert.Equal(t, uint64(0), conv.ToBasePrecision(decimal.Zero))
	assert.Equal(t, uint64(0), conv.ToBasePrecision(decimal.RequireFromString("-5")))
}

func TestToPricePrecision(t *testing.T) {
	conv := StandardConverter{}

	assert.Equal(t, uint64(123_450_000), conv.ToPricePrecision(decimal.RequireFromString("123.45")))
	assert.Equal(t, uint64(1), conv.ToPricePrecision(decimal.RequireFromString("0.000001")))
	assert.Equal(t, uint64(67_890_500_000), conv.ToPricePrecision(decimal.RequireFromString("67890.50")))
}

func TestQuoteToDecimal(t *testing.T) {
	assert.Equal(t, "90.125", QuoteToDecimal(90_125_000).String())
	assert.Equal(t, "-0.000001", QuoteToDecimal(-1).String())
	assert.Equal(t, "0", QuoteToDecimal(0).String())
}

func TestPrecisionRoundTrip(t *testing.T) {
	conv := StandardConverter{}
	v := decimal.RequireFromString("25.5")
	units := conv.ToPricePrecision(v)
	assert.True(t, QuoteToDecimal(int64(units)).Equal(v))
}
