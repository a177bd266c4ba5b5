package cryptotax

import (
	"errors"
	"fmt"
	"time"

	"github.com/ederavini/cryptotax/date"
)

// EntryKind is the activity class of a ledger entry.
type EntryKind string

const (
	KindTrade      EntryKind = "trade"
	KindDeposit    EntryKind = "deposit"
	KindWithdrawal EntryKind = "withdrawal"
	KindStaking    EntryKind = "staking"
	KindTransfer   EntryKind = "transfer"
	KindSpend      EntryKind = "spend"
	KindReceive    EntryKind = "receive"
)

// ParseEntryKind validates a kind string coming from persistence or an exchange.
func ParseEntryKind(s string) (EntryKind, error) {
	switch k := EntryKind(s); k {
	case KindTrade, KindDeposit, KindWithdrawal, KindStaking, KindTransfer, KindSpend, KindReceive:
		return k, nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", s)
	}
}

// LedgerEntry is the immutable record of one activity unit on the exchange.
//
// Its identity is RefID, the exchange-assigned unique id, which is also the
// deduplication key of the incremental merge. Entries are never mutated after
// ingest.
type LedgerEntry struct {
	RefID    string    `json:"refid"`
	Time     time.Time `json:"time"` // UTC instant
	Source   string    `json:"source,omitempty"`
	Kind     EntryKind `json:"kind"`
	Asset    string    `json:"asset"`    // canonical symbol
	Quantity Quantity  `json:"quantity"` // signed: negative reduces holdings
	Fee      Quantity  `json:"fee,omitempty"`

	// Counter leg of a two-leg trade, when present.
	CounterAsset    string   `json:"counterAsset,omitempty"`
	CounterQuantity Quantity `json:"counterQuantity,omitempty"`

	// EURValue is set when the entry is directly denominated in EUR.
	EURValue *Money `json:"eurValue,omitempty"`
}

// Validate reports why an entry cannot be admitted into the ledger.
func (e LedgerEntry) Validate() error {
	var errs error
	if e.RefID == "" {
		errs = errors.Join(errs, errors.New("missing reference id"))
	}
	if e.Time.IsZero() {
		errs = errors.Join(errs, errors.New("missing timestamp"))
	}
	if e.Asset == "" {
		errs = errors.Join(errs, errors.New("missing asset"))
	}
	if _, err := ParseEntryKind(string(e.Kind)); err != nil {
		errs = errors.Join(errs, err)
	}
	return errs
}

// Day returns the UTC day of the entry, the resolution used for valuation.
func (e LedgerEntry) Day() date.Date { return date.FromTime(e.Time) }

// Year returns the calendar year of the entry in UTC.
func (e LedgerEntry) Year() int { return e.Time.UTC().Year() }

// IsAcquisition reports whether the entry increases holdings in a way that
// opens a lot. Transfers and fiat movements never open lots.
func (e LedgerEntry) IsAcquisition() bool {
	if !e.Quantity.IsPositive() || IsFiat(e.Asset) {
		return false
	}
	switch e.Kind {
	case KindTrade, KindDeposit, KindStaking, KindReceive:
		return true
	}
	return false
}

// IsDisposal reports whether the entry reduces holdings in a way that
// realizes gain or loss.
func (e LedgerEntry) IsDisposal() bool {
	if !e.Quantity.IsNegative() || IsFiat(e.Asset) {
		return false
	}
	switch e.Kind {
	case KindTrade, KindWithdrawal, KindSpend:
		return true
	}
	return false
}

// less is the deterministic ledger order: timestamp ascending, ties broken by
// reference id so replays are stable regardless of fetch order.
func (e LedgerEntry) less(o LedgerEntry) bool {
	if !e.Time.Equal(o.Time) {
		return e.Time.Before(o.Time)
	}
	return e.RefID < o.RefID
}
