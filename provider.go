package cryptotax

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawEntry is one activity record as the exchange reports it, before asset
// normalization and kind mapping.
type RawEntry struct {
	ID     string // unique row id, becomes the entry's reference id
	RefID  string // groups the legs of one operation (both legs of a trade)
	Time   time.Time
	Type   string // exchange-specific activity type
	Asset  string // exchange-specific asset code
	Amount decimal.Decimal
	Fee    decimal.Decimal
}

// ActivitySource is the capability interface of one exchange account: the
// only two network-shaped inputs the engine consumes. Additional exchanges
// are supported by implementing it, not by inheritance.
type ActivitySource interface {
	// Name identifies the source; it keys the persisted watermark.
	Name() string
	// FetchActivity returns all activity records since the given instant
	// (exclusive). Failures are transport errors and abort the run.
	FetchActivity(since time.Time) ([]RawEntry, error)
	// FetchBalance returns the current per-asset balance snapshot, used for
	// reconciliation, not gain calculation.
	FetchBalance() (map[string]Quantity, error)
}

// PriceSource is an optional capability of a source that can also serve daily
// EUR closes for an asset.
type PriceSource interface {
	// FetchDailyCloses returns daily closes strictly after the given day.
	FetchDailyCloses(asset string, since time.Time) ([]PricePoint, error)
}

// rawKinds maps exchange activity types onto entry kinds. Types outside this
// table (margin, rollover, ...) are reported as malformed and skipped.
var rawKinds = map[string]EntryKind{
	"trade":      KindTrade,
	"deposit":    KindDeposit,
	"withdrawal": KindWithdrawal,
	"staking":    KindStaking,
	"earn":       KindStaking,
	"transfer":   KindTransfer,
	"spend":      KindSpend,
	"receive":    KindReceive,
}

// normalizeBatch turns fetched raw records into ledger entries: asset codes
// are canonicalized, activity types mapped, and the two legs of a trade are
// paired so each leg knows its counter asset and quantity. Records that
// cannot be normalized become warnings, never batch failures.
func normalizeBatch(raws []RawEntry) ([]LedgerEntry, []Warning) {
	entries := make([]LedgerEntry, 0, len(raws))
	var warnings []Warning

	// Index trade legs by the shared operation id for counter-leg pairing.
	legs := make(map[string][]int)
	for i, raw := range raws {
		if raw.Type == "trade" && raw.RefID != "" {
			legs[raw.RefID] = append(legs[raw.RefID], i)
		}
	}

	flagged := make(map[string]struct{})
	for i, raw := range raws {
		if raw.ID == "" || raw.Time.IsZero() || raw.Asset == "" {
			warnings = append(warnings, warnf(WarnMalformedEntry, raw.ID, raw.Asset,
				"missing required fields in %q record", raw.Type))
			continue
		}
		kind, ok := rawKinds[raw.Type]
		if !ok {
			warnings = append(warnings, warnf(WarnMalformedEntry, raw.ID, raw.Asset,
				"unsupported activity type %q", raw.Type))
			continue
		}

		symbol, known := Normalize(raw.Asset)
		if !known {
			if _, done := flagged[symbol]; !done {
				flagged[symbol] = struct{}{}
				warnings = append(warnings, warnf(WarnUnknownAsset, raw.ID, symbol,
					"asset code %q passed through for review", raw.Asset))
			}
		}

		entry := LedgerEntry{
			RefID:    raw.ID,
			Time:     raw.Time.UTC(),
			Kind:     kind,
			Asset:    symbol,
			Quantity: Q(raw.Amount),
			Fee:      Q(raw.Fee),
		}

		// Pair the sibling leg of a two-leg trade.
		for _, j := range legs[raw.RefID] {
			if j == i {
				continue
			}
			sibling := raws[j]
			counter, _ := Normalize(sibling.Asset)
			entry.CounterAsset = counter
			entry.CounterQuantity = Q(sibling.Amount)
			if IsFiat(counter) {
				v := M(sibling.Amount.Abs())
				entry.EURValue = &v
			}
			break
		}

		entries = append(entries, entry)
	}
	return entries, warnings
}
