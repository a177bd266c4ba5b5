package cryptotax

import (
	"iter"
	"slices"
	"sort"
	"time"
)

// Ledger is the persisted, append-only, deduplicated activity history.
//
// Entries are always kept sorted by (timestamp, reference id) so downstream
// replays are deterministic. The ledger also tracks one watermark per data
// source: the maximum timestamp ever merged, used as the lower bound of the
// next incremental fetch.
type Ledger struct {
	entries    []LedgerEntry
	byRef      map[string]struct{}
	watermarks map[string]time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byRef:      make(map[string]struct{}),
		watermarks: make(map[string]time.Time),
	}
}

// MergeResult describes the outcome of one incremental merge.
type MergeResult struct {
	Added     int
	Skipped   int // duplicates dropped silently
	Watermark time.Time
	Warnings  []Warning
}

// Merge folds a freshly fetched batch into the ledger.
//
// Entries already present (same reference id) are dropped silently, so merging
// the same batch twice changes nothing. Malformed entries are excluded and
// reported as warnings, never as a fatal error. The returned watermark is the
// maximum timestamp across all entries ever merged for that source.
func (l *Ledger) Merge(source string, batch []LedgerEntry) MergeResult {
	res := MergeResult{Watermark: l.watermarks[source]}

	for _, e := range batch {
		if err := e.Validate(); err != nil {
			res.Warnings = append(res.Warnings, warnf(WarnMalformedEntry, e.RefID, e.Asset, "%v", err))
			continue
		}
		if _, dup := l.byRef[e.RefID]; dup {
			res.Skipped++
			continue
		}
		e.Source = source
		e.Time = e.Time.UTC()
		l.entries = append(l.entries, e)
		l.byRef[e.RefID] = struct{}{}
		res.Added++
		if e.Time.After(res.Watermark) {
			res.Watermark = e.Time
		}
	}

	if res.Added > 0 {
		l.sort()
	}
	if res.Watermark.After(l.watermarks[source]) {
		l.watermarks[source] = res.Watermark
	}
	return res
}

// sort restores the canonical (timestamp, reference id) order.
func (l *Ledger) sort() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].less(l.entries[j])
	})
}

// Len returns the number of entries in the ledger.
func (l *Ledger) Len() int { return len(l.entries) }

// Has reports whether an entry with this reference id was already merged.
func (l *Ledger) Has(refID string) bool {
	_, ok := l.byRef[refID]
	return ok
}

// Watermark returns the last processed timestamp for a source.
func (l *Ledger) Watermark(source string) (time.Time, bool) {
	w, ok := l.watermarks[source]
	return w, ok
}

// SetWatermark restores a persisted watermark, keeping the highest value seen.
func (l *Ledger) SetWatermark(source string, w time.Time) {
	if w.After(l.watermarks[source]) {
		l.watermarks[source] = w.UTC()
	}
}

// Watermarks returns a copy of all per-source watermarks.
func (l *Ledger) Watermarks() map[string]time.Time {
	out := make(map[string]time.Time, len(l.watermarks))
	for s, w := range l.watermarks {
		out[s] = w
	}
	return out
}

// Entries iterates over all entries in canonical order.
func (l *Ledger) Entries() iter.Seq[LedgerEntry] {
	return func(yield func(LedgerEntry) bool) {
		for _, e := range l.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// AssetEntries iterates over the entries of one asset in canonical order.
func (l *Ledger) AssetEntries(asset string) iter.Seq[LedgerEntry] {
	return func(yield func(LedgerEntry) bool) {
		for _, e := range l.entries {
			if e.Asset != asset {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Assets returns the sorted list of assets appearing in the ledger.
func (l *Ledger) Assets() []string {
	seen := make(map[string]struct{})
	for _, e := range l.entries {
		seen[e.Asset] = struct{}{}
	}
	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	slices.Sort(assets)
	return assets
}

// Holdings computes the signed balance per asset from entries up to and
// including the given instant. Used for reconciliation against the exchange
// balance snapshot, not for gain calculation.
func (l *Ledger) Holdings(asOf time.Time) map[string]Quantity {
	holdings := make(map[string]Quantity)
	for _, e := range l.entries {
		if e.Time.After(asOf) {
			// The ledger is sorted by time, so it's safe to break.
			break
		}
		holdings[e.Asset] = holdings[e.Asset].Add(e.Quantity).Sub(e.Fee)
	}
	return holdings
}

// NewestEntryTime returns the timestamp of the latest entry, or the zero time
// for an empty ledger.
func (l *Ledger) NewestEntryTime() time.Time {
	if len(l.entries) == 0 {
		return time.Time{}
	}
	return l.entries[len(l.entries)-1].Time
}
