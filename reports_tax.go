package cryptotax

import "sort"

// YearlySummary aggregates realized gains and the resulting tax for one
// calendar year. Asset is empty for the portfolio total.
//
// Summaries are derived, recomputed on each run: the ledger and the price
// table are the only durable state.
type YearlySummary struct {
	Year      int    `json:"year"`
	Asset     string `json:"asset,omitempty"`
	GrossGain Money  `json:"grossGain"`
	GrossLoss Money  `json:"grossLoss"` // positive magnitude
	NetGain   Money  `json:"netGain"`
	Taxable   Money  `json:"taxable"`
	TaxDue    Money  `json:"taxDue"`
}

// TaxReport is the yearly aggregation of all disposal events.
type TaxReport struct {
	Method MatchingMethod `json:"method"`
	// Years holds one portfolio-level summary per calendar year with
	// realized disposals, sorted by year.
	Years []YearlySummary `json:"years"`
	// PerAsset is the per-asset breakdown, sorted by year then asset.
	// The exemption threshold applies to the yearly net gain, not per
	// asset, so per-asset rows carry no taxable amount.
	PerAsset []YearlySummary `json:"perAsset"`
}

// ComputeTax is a pure reduction over the disposal events: it partitions them
// by calendar year (and by asset for the breakdown), sums gains and losses,
// and applies the configured per-year exemption threshold and flat rate.
func ComputeTax(events []DisposalEvent, cfg *Config) *TaxReport {
	type key struct {
		year  int
		asset string
	}
	buckets := make(map[key]*YearlySummary)

	add := func(k key, ev DisposalEvent) {
		s, ok := buckets[k]
		if !ok {
			s = &YearlySummary{Year: k.year, Asset: k.asset}
			buckets[k] = s
		}
		if ev.Gain.IsNegative() {
			s.GrossLoss = s.GrossLoss.Add(ev.Gain.Neg())
		} else {
			s.GrossGain = s.GrossGain.Add(ev.Gain)
		}
		s.NetGain = s.GrossGain.Sub(s.GrossLoss)
	}

	for _, ev := range events {
		year := ev.DisposedAt.UTC().Year()
		add(key{year: year}, ev)
		add(key{year: year, asset: ev.Asset}, ev)
	}

	report := &TaxReport{Method: cfg.Method}
	for k, s := range buckets {
		if k.asset != "" {
			report.PerAsset = append(report.PerAsset, *s)
			continue
		}
		// Exemption applies to the yearly net gain, floored at zero.
		taxable := s.NetGain.Sub(M(cfg.Threshold(k.year)))
		if taxable.IsNegative() {
			taxable = M(0)
		}
		s.Taxable = taxable
		s.TaxDue = taxable.MulRate(cfg.Rate).Round()
		report.Years = append(report.Years, *s)
	}

	sort.Slice(report.Years, func(i, j int) bool {
		return report.Years[i].Year < report.Years[j].Year
	})
	sort.Slice(report.PerAsset, func(i, j int) bool {
		a, b := report.PerAsset[i], report.PerAsset[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Asset < b.Asset
	})
	return report
}
