package cryptotax

import (
	"fmt"
	"time"
)

// DisposalEvent is the realized gain/loss record produced for one disposing
// ledger entry. It is immutable and consumed only by the yearly aggregation.
type DisposalEvent struct {
	RefID      string    `json:"refid"`
	Asset      string    `json:"asset"`
	DisposedAt time.Time `json:"disposedAt"`
	Quantity   Quantity  `json:"quantity"` // positive
	Proceeds   Money     `json:"proceeds"`
	CostBasis  Money     `json:"costBasis"`
	Gain       Money     `json:"gain"` // Proceeds - CostBasis
	// Matched lists the lot fragments consumed, in matching order.
	Matched []Fragment `json:"matched"`
	// PartialData is true when part of the disposal could not be matched
	// against open lots (deposits predating the tracked window) and was
	// assigned a zero cost basis.
	PartialData bool `json:"partialData,omitempty"`
}

// Engine replays a valuated, time-sorted ledger and maintains, per asset, the
// ordered collection of open acquisition lots.
//
// It is a single-pass, single-threaded batch computation: lot consumption
// order is strictly sequential in time, so no concurrent mutation of the lot
// collections is permitted within one run.
type Engine struct {
	method MatchingMethod
	valuer *Valuer
}

// NewEngine returns an engine using the given matching method and valuer.
func NewEngine(method MatchingMethod, valuer *Valuer) *Engine {
	return &Engine{method: method, valuer: valuer}
}

// Replay walks the whole ledger in canonical order and returns one
// DisposalEvent per disposing entry.
//
// Acquisitions (positive trade/deposit/staking/receive with a resolved value)
// open a lot at unit cost value/quantity. Disposals (negative
// trade/withdrawal/spend) consume lots under the configured method. Transfers
// between the user's own addresses only relabel custody: they neither create
// nor consume lots. Entries whose value cannot be resolved are excluded from
// lot math and reported.
func (e *Engine) Replay(l *Ledger) ([]DisposalEvent, []Warning, error) {
	open := make(map[string]*lots)
	acquired := make(map[string]Quantity)
	consumed := make(map[string]Quantity)

	var events []DisposalEvent
	var warnings []Warning

	for entry := range l.Entries() {
		if IsFiat(entry.Asset) || entry.Kind == KindTransfer {
			continue
		}

		switch {
		case entry.IsAcquisition():
			val, err := e.valuer.Value(entry)
			if err != nil {
				warnings = append(warnings, warnf(WarnUnresolvedValue, entry.RefID, entry.Asset, "%v", err))
				continue
			}
			if val.Proxy {
				warnings = append(warnings, warnf(WarnValuedByProxy, entry.RefID, entry.Asset,
					"no close on %s, valued with close of %s", entry.Day(), val.ProxyDay))
			}
			al, ok := open[entry.Asset]
			if !ok {
				al = &lots{}
				open[entry.Asset] = al
			}
			al.push(entry.Time, entry.RefID, entry.Quantity, val.Value.Div(entry.Quantity))
			acquired[entry.Asset] = acquired[entry.Asset].Add(entry.Quantity)

		case entry.IsDisposal():
			val, err := e.valuer.Value(entry)
			if err != nil {
				warnings = append(warnings, warnf(WarnUnresolvedValue, entry.RefID, entry.Asset, "%v", err))
				continue
			}
			if val.Proxy {
				warnings = append(warnings, warnf(WarnValuedByProxy, entry.RefID, entry.Asset,
					"no close on %s, valued with close of %s", entry.Day(), val.ProxyDay))
			}
			quantity := entry.Quantity.Neg()
			al, ok := open[entry.Asset]
			if !ok {
				al = &lots{}
				open[entry.Asset] = al
			}
			matched, short := al.consume(quantity, e.method)

			var costBasis Money
			for _, frag := range matched {
				costBasis = costBasis.Add(frag.Cost())
			}
			ev := DisposalEvent{
				RefID:      entry.RefID,
				Asset:      entry.Asset,
				DisposedAt: entry.Time,
				Quantity:   quantity,
				Proceeds:   val.Value,
				CostBasis:  costBasis,
				Gain:       val.Value.Sub(costBasis),
				Matched:    matched,
			}
			if short.IsPositive() {
				// Data gap: the unmatched remainder gets a zero cost basis,
				// its full share of the proceeds counts as gain.
				ev.Matched = append(ev.Matched, Fragment{Quantity: short, ZeroBasis: true})
				ev.PartialData = true
				warnings = append(warnings, warnf(WarnInsufficientLots, entry.RefID, entry.Asset,
					"disposal of %s exceeds open lots by %s, remainder taken at zero cost basis", quantity, short))
			}
			events = append(events, ev)
			consumed[entry.Asset] = consumed[entry.Asset].Add(quantity.Sub(short))
		}

		// Lot conservation: open quantity must equal acquisitions minus
		// matched disposals at every point of the replay.
		want := acquired[entry.Asset].Sub(consumed[entry.Asset])
		var got Quantity
		if al := open[entry.Asset]; al != nil {
			got = al.total()
		}
		if !got.Equal(want) {
			return nil, warnings, fmt.Errorf("lot conservation violated for %s after %s: open %s, want %s",
				entry.Asset, entry.RefID, got, want)
		}
	}

	return events, warnings, nil
}
