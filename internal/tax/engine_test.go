package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testEngine(enabled bool) *Engine {
	return NewEngine(StaticProfileHolder(Profile{
		SellerState: "MH",
		DefaultRate: 5,
		Label:       "GST",
		Enabled:     enabled,
	}))
}

func TestSplit_IntraState(t *testing.T) {
	b := Split(d("200"), d("5"), false)

	assert.True(t, b.CGST.Equal(b.SGST), "intra-state CGST must equal SGST")
	assert.True(t, b.CGST.Equal(d("5.00")))
	assert.True(t, b.IGST.IsZero())
	assert.True(t, b.Total().Equal(d("10.00")))
}

func TestSplit_InterState(t *testing.T) {
	b := Split(d("200"), d("18"), true)

	assert.True(t, b.CGST.IsZero())
	assert.True(t, b.SGST.IsZero())
	assert.True(t, b.IGST.Equal(d("36.00")))
}

func TestSplit_RoundsHalfUpPerComponent(t *testing.T) {
	// 33.33 * 5 / 200 = 0.83325 -> 0.83 each side
	b := Split(d("33.33"), d("5"), false)
	assert.True(t, b.CGST.Equal(d("0.83")))

	// 10.10 * 5 / 200 = 0.2525 -> half up to 0.25... 0.2525 rounds to 0.25
	// and 0.255 must round up:
	// 10.20 * 5 / 200 = 0.255 -> 0.26
	b = Split(d("10.20"), d("5"), false)
	assert.True(t, b.CGST.Equal(d("0.26")))
	assert.True(t, b.Total().Equal(d("0.52")), "total summed from rounded components")
}

func TestSplit_ZeroRate(t *testing.T) {
	b := Split(d("500"), decimal.Zero, false)
	assert.True(t, b.CGST.IsZero())
	assert.True(t, b.SGST.IsZero())
	assert.True(t, b.IGST.IsZero())
}

func TestEngine_BuyerStateSelection(t *testing.T) {
	e := testEngine(true)

	intra := e.ForLine(d("100"), d("5"), "MH")
	assert.True(t, intra.CGST.Equal(d("2.50")))
	assert.True(t, intra.IGST.IsZero())

	// unknown buyer state is treated as intra-state
	unknown := e.ForLine(d("100"), d("5"), "")
	assert.True(t, unknown.CGST.Equal(d("2.50")))
	assert.True(t, unknown.IGST.IsZero())

	inter := e.ForLine(d("100"), d("5"), "KA")
	assert.True(t, inter.IGST.Equal(d("5.00")))
	assert.True(t, inter.CGST.IsZero())

	// state comparison is case-insensitive
	intraLower := e.ForLine(d("100"), d("5"), "mh")
	assert.True(t, intraLower.CGST.Equal(d("2.50")))
}

func TestEngine_Disabled(t *testing.T) {
	e := testEngine(false)

	b := e.ForLine(d("100"), d("18"), "KA")
	assert.True(t, b.Total().IsZero())
}
