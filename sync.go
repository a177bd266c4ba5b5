package cryptotax

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of one full computation: the yearly tax report, the
// disposal events that back it, and every data-quality warning raised along
// the way. All of it is derived from the persisted ledger and price table;
// none of it is persisted itself.
type Result struct {
	Report   *TaxReport       `json:"report"`
	Events   []DisposalEvent  `json:"events"`
	Balances []YearEndBalance `json:"balances"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// Compute runs the whole pipeline offline, from the persisted state only:
// valuation, lot replay and yearly aggregation. Given the same state and
// config it always produces the same result.
func Compute(cfg *Config, store *Store) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	l, err := store.LoadLedger()
	if err != nil {
		return nil, err
	}
	prices, err := store.LoadPrices()
	if err != nil {
		return nil, err
	}
	return compute(cfg, l, prices)
}

func compute(cfg *Config, l *Ledger, prices *PriceSeries) (*Result, error) {
	res := &Result{}
	for _, asset := range prices.Assets() {
		res.Warnings = append(res.Warnings, prices.Gaps(asset)...)
	}

	engine := NewEngine(cfg.Method, NewValuer(prices))
	events, warnings, err := engine.Replay(l)
	if err != nil {
		return nil, err
	}
	res.Events = events
	res.Warnings = append(res.Warnings, warnings...)
	res.Report = ComputeTax(events, cfg)
	res.Balances = YearEndBalances(l, prices)

	logrus.WithFields(logrus.Fields{
		"entries":   l.Len(),
		"disposals": len(events),
		"warnings":  len(res.Warnings),
		"method":    cfg.Method,
	}).Info("computation done")
	return res, nil
}

// SynchronizeAndCompute fetches fresh activity and prices from the sources,
// folds them into the persisted state, then computes the tax report.
//
// All network reads happen before the first write: a transport failure aborts
// the run with the persisted ledger, prices and watermarks untouched, so the
// next run simply retries the same window.
func SynchronizeAndCompute(cfg *Config, store *Store, sources ...ActivitySource) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	l, err := store.LoadLedger()
	if err != nil {
		return nil, err
	}
	prices, err := store.LoadPrices()
	if err != nil {
		return nil, err
	}

	// Phase one: every network read, no writes.
	type fetched struct {
		source   ActivitySource
		entries  []LedgerEntry
		balance  map[string]Quantity
		warnings []Warning
	}
	var pulls []fetched
	for _, source := range sources {
		since, _ := l.Watermark(source.Name())
		log := logrus.WithField("source", source.Name())
		log.WithField("since", since.Format(time.RFC3339)).Info("fetching activity")

		raws, err := source.FetchActivity(since)
		if err != nil {
			return nil, err
		}
		balance, err := source.FetchBalance()
		if err != nil {
			return nil, err
		}
		entries, warnings := normalizeBatch(raws)
		pulls = append(pulls, fetched{source: source, entries: entries, balance: balance, warnings: warnings})
	}

	var syncWarnings []Warning
	for _, pull := range pulls {
		res := l.Merge(pull.source.Name(), pull.entries)
		syncWarnings = append(syncWarnings, res.Warnings...)
		logrus.WithFields(logrus.Fields{
			"source":  pull.source.Name(),
			"added":   res.Added,
			"skipped": res.Skipped,
		}).Info("activity merged")
	}

	priceWarnings, err := refreshPrices(l, prices, sources)
	if err != nil {
		return nil, err
	}
	syncWarnings = append(syncWarnings, priceWarnings...)

	// Phase two: the network is done with, persist the new state.
	if err := store.SaveLedger(l); err != nil {
		return nil, err
	}
	if err := store.SavePrices(prices); err != nil {
		return nil, err
	}

	res, err := compute(cfg, l, prices)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(syncWarnings, res.Warnings...)
	for _, pull := range pulls {
		res.Warnings = append(res.Warnings, Reconcile(l, pull.balance)...)
	}
	return res, nil
}

// refreshPrices pulls daily closes for every non-fiat asset in the ledger from
// the sources that can serve them, resuming each series where it stopped.
func refreshPrices(l *Ledger, prices *PriceSeries, sources []ActivitySource) ([]Warning, error) {
	var feeds []PriceSource
	for _, source := range sources {
		if feed, ok := source.(PriceSource); ok {
			feeds = append(feeds, feed)
		}
	}
	if len(feeds) == 0 {
		return nil, nil
	}

	var warnings []Warning
	for _, asset := range l.Assets() {
		if IsFiat(asset) {
			continue
		}
		var since time.Time
		if latest, ok := prices.Latest(asset); ok {
			since = latest.Time()
		}
		var points []PricePoint
		var err error
		for _, feed := range feeds {
			points, err = feed.FetchDailyCloses(asset, since)
			if err == nil {
				break
			}
			var te *TransportError
			if errors.As(err, &te) {
				return nil, err
			}
		}
		if err != nil {
			// No feed covers this asset; valuation will fall back or flag it.
			warnings = append(warnings, warnf(WarnUnresolvedValue, "", asset, "%v", err))
			continue
		}
		added, overrides := prices.IngestLive(points)
		warnings = append(warnings, overrides...)
		logrus.WithFields(logrus.Fields{"asset": asset, "added": added}).Debug("prices refreshed")
	}
	return warnings, nil
}

// ImportHistoricalPrices reads an externally supplied OHLC export for one
// asset into the persisted price table.
func ImportHistoricalPrices(store *Store, asset string, path string) (int, []Warning, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	prices, err := store.LoadPrices()
	if err != nil {
		return 0, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("cannot read historical prices: %w", err)
	}
	defer f.Close()

	added, warnings, err := prices.IngestHistorical(asset, f)
	if err != nil {
		return added, warnings, err
	}
	if err := store.SavePrices(prices); err != nil {
		return added, warnings, err
	}
	return added, warnings, nil
}
