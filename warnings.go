package cryptotax

import "fmt"

// WarningKind classifies a non-fatal issue found during a run.
//
// Record-level problems never abort a batch: they are collected and returned
// alongside the computed results so callers can display them.
type WarningKind string

const (
	// WarnMalformedEntry marks a fetched record that could not be turned into
	// a ledger entry (missing fields, unparseable timestamp). The record is
	// skipped, the batch continues.
	WarnMalformedEntry WarningKind = "malformed-entry"
	// WarnUnknownAsset marks an asset code the normalizer has not vetted.
	// The entry is kept with the passed-through symbol.
	WarnUnknownAsset WarningKind = "unknown-asset"
	// WarnUnresolvedValue marks an entry with no resolvable EUR value. It is
	// excluded from lot creation and consumption, never defaulted to zero.
	WarnUnresolvedValue WarningKind = "unresolved-value"
	// WarnValuedByProxy marks an entry valued with the nearest earlier close
	// because no close exists for its own day.
	WarnValuedByProxy WarningKind = "valued-by-proxy"
	// WarnInsufficientLots marks a disposal that exceeded the open lots; the
	// unmatched remainder was treated as zero cost basis.
	WarnInsufficientLots WarningKind = "insufficient-lots"
	// WarnPriceOverride marks a historical close replaced by a live-fetched one.
	WarnPriceOverride WarningKind = "price-override"
	// WarnPriceGap marks a hole in an asset's daily close series.
	WarnPriceGap WarningKind = "price-gap"
	// WarnBalanceDrift marks an asset whose ledger-derived holdings disagree
	// with the exchange balance snapshot.
	WarnBalanceDrift WarningKind = "balance-drift"
)

// Warning is a non-fatal, record-level issue.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	RefID   string      `json:"refid,omitempty"`
	Asset   string      `json:"asset,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	s := string(w.Kind)
	if w.Asset != "" {
		s += " " + w.Asset
	}
	if w.RefID != "" {
		s += " [" + w.RefID + "]"
	}
	return s + ": " + w.Message
}

func warnf(kind WarningKind, refID, asset, format string, args ...any) Warning {
	return Warning{Kind: kind, RefID: refID, Asset: asset, Message: fmt.Sprintf(format, args...)}
}
