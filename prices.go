package cryptotax

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/ederavini/cryptotax/date"
	"github.com/shopspring/decimal"
)

// PricePoint is one daily closing price of an asset, in EUR.
type PricePoint struct {
	Asset string          `json:"asset"`
	Day   date.Date       `json:"day"`
	Close decimal.Decimal `json:"close"`
}

// PriceSeries is the per-asset, time-indexed table of daily EUR closes.
//
// It is built by merging externally supplied historical rows with live-fetched
// ones. A (asset, day) pair holds exactly one close: live values take
// precedence over historical ones, and the override is reported, never silent.
type PriceSeries struct {
	histories map[string]*date.History[decimal.Decimal]
}

// NewPriceSeries returns an empty price table.
func NewPriceSeries() *PriceSeries {
	return &PriceSeries{histories: make(map[string]*date.History[decimal.Decimal])}
}

func (p *PriceSeries) history(asset string) *date.History[decimal.Decimal] {
	h, ok := p.histories[asset]
	if !ok {
		h = &date.History[decimal.Decimal]{}
		p.histories[asset] = h
	}
	return h
}

// IngestHistorical append-merges externally supplied OHLC rows for one asset.
//
// The fixed tabular layout is `timestamp,open,high,low,close,volume,trade_count`
// with no header; only timestamp and close are read. Days already present in
// the table are left untouched: historical rows never override live ones.
// Malformed rows are skipped and reported as warnings.
func (p *PriceSeries) IngestHistorical(asset string, r io.Reader) (added int, warnings []Warning, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // some exports omit the trade_count column

	h := p.history(asset)
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, warnings, fmt.Errorf("historical prices for %s: %w", asset, err)
		}
		line++
		if len(record) < 5 {
			warnings = append(warnings, warnf(WarnMalformedEntry, "", asset, "price row %d: want at least 5 columns, got %d", line, len(record)))
			continue
		}
		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			warnings = append(warnings, warnf(WarnMalformedEntry, "", asset, "price row %d: bad timestamp %q", line, record[0]))
			continue
		}
		close, err := decimal.NewFromString(record[4])
		if err != nil {
			warnings = append(warnings, warnf(WarnMalformedEntry, "", asset, "price row %d: bad close %q", line, record[4]))
			continue
		}
		if h.AppendMissing(date.FromTime(time.Unix(ts, 0)), close) {
			added++
		}
	}
	return added, warnings, nil
}

// IngestLive append-merges freshly fetched closes. A conflicting close for an
// existing (asset, day) is resolved by preferring the live value; the override
// is reported as a warning.
func (p *PriceSeries) IngestLive(points []PricePoint) (added int, warnings []Warning) {
	for _, pt := range points {
		previous, replaced := p.history(pt.Asset).Append(pt.Day, pt.Close)
		if !replaced {
			added++
			continue
		}
		if !previous.Equal(pt.Close) {
			warnings = append(warnings, warnf(WarnPriceOverride, "", pt.Asset,
				"%s: close %s overrides %s", pt.Day, pt.Close, previous))
		}
	}
	return added, warnings
}

// PriceOn returns the close of an asset on an exact day. There is no
// interpolation: callers handle the miss explicitly.
func (p *PriceSeries) PriceOn(asset string, day date.Date) (decimal.Decimal, bool) {
	h, ok := p.histories[asset]
	if !ok {
		return decimal.Decimal{}, false
	}
	return h.Get(day)
}

// PriceAsOf returns the close on the given day or the nearest earlier one,
// along with the day it was actually found on.
func (p *PriceSeries) PriceAsOf(asset string, day date.Date) (on date.Date, close decimal.Decimal, ok bool) {
	h, found := p.histories[asset]
	if !found {
		return date.Date{}, decimal.Decimal{}, false
	}
	return h.ValueAsOf(day)
}

// Latest returns the most recent day holding a close for the asset.
func (p *PriceSeries) Latest(asset string) (date.Date, bool) {
	h, ok := p.histories[asset]
	if !ok || h.Len() == 0 {
		return date.Date{}, false
	}
	day, _ := h.Latest()
	return day, true
}

// Gaps flags the days missing from an asset's series between its first and
// last point. Gaps are reported, never silently interpolated.
func (p *PriceSeries) Gaps(asset string) []Warning {
	h, ok := p.histories[asset]
	if !ok || h.Len() < 2 {
		return nil
	}
	var warnings []Warning
	var prev date.Date
	first := true
	for day := range h.Values() {
		if !first {
			if missing := day.Sub(prev) - 1; missing > 0 {
				warnings = append(warnings, warnf(WarnPriceGap, "", asset,
					"%d day(s) missing between %s and %s", missing, prev, day))
			}
		}
		prev, first = day, false
	}
	return warnings
}

// Assets returns the sorted list of assets with at least one close.
func (p *PriceSeries) Assets() []string {
	assets := make([]string, 0, len(p.histories))
	for a, h := range p.histories {
		if h.Len() > 0 {
			assets = append(assets, a)
		}
	}
	slices.Sort(assets)
	return assets
}

// Len returns the total number of price points in the table.
func (p *PriceSeries) Len() int {
	n := 0
	for _, h := range p.histories {
		n += h.Len()
	}
	return n
}
