// Package tax computes the CGST/SGST vs IGST split for invoice lines.
//
// Intra-state supplies (buyer in the seller's state, or buyer state unknown)
// split the rate evenly between central and state GST. Inter-state supplies
// charge the full rate as integrated GST.
package tax

import (
	"strings"

	"github.com/masaladesk/masaladesk/internal/billing"
	"github.com/shopspring/decimal"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Breakup is the GST components for one taxable amount, each rounded to two
// decimals. Totals are summed from rounded components so displayed lines add
// up exactly.
type Breakup struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

func (b Breakup) Total() decimal.Decimal {
	return b.CGST.Add(b.SGST).Add(b.IGST)
}

func (b Breakup) Add(o Breakup) Breakup {
	return Breakup{
		CGST: b.CGST.Add(o.CGST),
		SGST: b.SGST.Add(o.SGST),
		IGST: b.IGST.Add(o.IGST),
	}
}

// Split computes the GST components for a taxable amount at a percentage
// rate. Zero rate yields a zero breakup.
func Split(taxable, ratePct decimal.Decimal, interState bool) Breakup {
	if taxable.IsZero() || ratePct.IsZero() {
		return Breakup{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	}
	if interState {
		return Breakup{
			CGST: decimal.Zero,
			SGST: decimal.Zero,
			IGST: billing.Round2(taxable.Mul(ratePct).Div(hundred)),
		}
	}
	half := billing.Round2(taxable.Mul(ratePct).Div(hundred).Div(two))
	return Breakup{CGST: half, SGST: half, IGST: decimal.Zero}
}

// Engine resolves the seller-side tax profile and applies Split per line.
type Engine struct {
	profiles *ProfileHolder
}

func NewEngine(profiles *ProfileHolder) *Engine {
	return &Engine{profiles: profiles}
}

// ForLine computes the breakup for one taxable line amount. An empty buyer
// state is treated as intra-state supply.
func (e *Engine) ForLine(taxable, ratePct decimal.Decimal, buyerState string) Breakup {
	profile := e.profiles.Get()
	if !profile.Enabled {
		return Breakup{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	}

	buyerState = strings.TrimSpace(buyerState)
	interState := buyerState != "" && !strings.EqualFold(buyerState, profile.SellerState)
	return Split(taxable, ratePct, interState)
}

// DefaultRate is the profile's default GST percentage, used when a catalog
// item carries no rate of its own.
func (e *Engine) DefaultRate() decimal.Decimal {
	return decimal.NewFromFloat(e.profiles.Get().DefaultRate)
}

// Label is the UI-facing tax label from the profile (e.g. "GST").
func (e *Engine) Label() string {
	return e.profiles.Get().Label
}
