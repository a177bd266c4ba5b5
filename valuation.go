package cryptotax

import (
	"fmt"

	"github.com/ederavini/cryptotax/date"
)

// Valuation is the resolved EUR value of a ledger entry.
type Valuation struct {
	Value Money
	// Proxy is true when no close existed for the entry's own day and the
	// nearest earlier one was used instead.
	Proxy    bool
	ProxyDay date.Date
}

// Valuer assigns a EUR value to ledger entries, preferring the entry's own
// fiat leg and falling back to the daily close table.
type Valuer struct {
	prices *PriceSeries
}

// NewValuer returns a valuer backed by the given price table.
func NewValuer(prices *PriceSeries) *Valuer {
	return &Valuer{prices: prices}
}

// Value resolves the absolute EUR value of an entry:
//
//  1. the entry's own EUR denomination, when present;
//  2. the EUR counter leg of a two-leg trade;
//  3. the asset's close on the entry's day, exact match;
//  4. the nearest earlier close, flagged as a proxy valuation;
//  5. otherwise ErrUnresolved — never a silent zero, which would corrupt
//     cost basis and gain figures downstream.
func (v *Valuer) Value(e LedgerEntry) (Valuation, error) {
	if e.EURValue != nil {
		val := *e.EURValue
		if val.IsNegative() {
			val = val.Neg()
		}
		return Valuation{Value: val}, nil
	}

	if IsFiat(e.CounterAsset) {
		return Valuation{Value: M(e.CounterQuantity.Abs().Decimal())}, nil
	}

	if IsFiat(e.Asset) {
		// A fiat entry is worth its own quantity.
		return Valuation{Value: M(e.Quantity.Abs().Decimal())}, nil
	}

	day := e.Day()
	if close, ok := v.prices.PriceOn(e.Asset, day); ok {
		return Valuation{Value: M(close).Mul(e.Quantity.Abs())}, nil
	}

	if on, close, ok := v.prices.PriceAsOf(e.Asset, day); ok {
		return Valuation{
			Value:    M(close).Mul(e.Quantity.Abs()),
			Proxy:    true,
			ProxyDay: on,
		}, nil
	}

	return Valuation{}, fmt.Errorf("%s on %s: %w", e.Asset, day, ErrUnresolved)
}
