package cryptotax

import (
	"sort"
	"time"

	"github.com/ederavini/cryptotax/date"
)

// Reconcile compares the balance derived from the ledger with the snapshot
// reported by the exchange. A mismatch means missed or misread activity; it
// is reported per asset, never corrected by inventing entries.
func Reconcile(l *Ledger, reported map[string]Quantity) []Warning {
	derived := l.Holdings(time.Now())

	assets := make(map[string]struct{}, len(derived)+len(reported))
	for a := range derived {
		assets[a] = struct{}{}
	}
	for a := range reported {
		assets[a] = struct{}{}
	}

	var warnings []Warning
	for asset := range assets {
		if IsFiat(asset) {
			continue
		}
		have, want := derived[asset], reported[asset]
		if have.Equal(want) {
			continue
		}
		warnings = append(warnings, warnf(WarnBalanceDrift, "", asset,
			"ledger holds %s, exchange reports %s (drift %s)", have, want, want.Sub(have)))
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Asset < warnings[j].Asset })
	return warnings
}

// YearEndBalance is the holding of one asset at the end of a calendar year,
// valued at the year-end close (or the nearest earlier one).
type YearEndBalance struct {
	Year     int      `json:"year"`
	Asset    string   `json:"asset"`
	Quantity Quantity `json:"quantity"`
	Value    Money    `json:"value"`
	// Priced is false when no close at all was available for the asset; the
	// quantity is still reported, with a zero value, so the holding is visible.
	Priced bool `json:"priced"`
}

// YearEndBalances values the portfolio at the end of each calendar year the
// ledger spans. Fiat is worth its face value; dust and closed positions are
// omitted.
func YearEndBalances(l *Ledger, prices *PriceSeries) []YearEndBalance {
	newest := l.NewestEntryTime()
	if newest.IsZero() {
		return nil
	}
	firstYear := newest.Year()
	for e := range l.Entries() {
		firstYear = e.Year()
		break
	}

	var out []YearEndBalance
	for year := firstYear; year <= newest.Year(); year++ {
		eoy := date.EndOfYear(year)
		for asset, quantity := range l.Holdings(eoy.Time().Add(24*time.Hour - time.Nanosecond)) {
			if quantity.IsZero() {
				continue
			}
			b := YearEndBalance{Year: year, Asset: asset, Quantity: quantity}
			if IsFiat(asset) {
				b.Value = M(quantity.Decimal())
				b.Priced = true
			} else if _, close, ok := prices.PriceAsOf(asset, eoy); ok {
				b.Value = M(close).Mul(quantity)
				b.Priced = true
			}
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Asset < b.Asset
	})
	return out
}
