package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ederavini/cryptotax"
)

func printReport(w io.Writer, report *cryptotax.TaxReport) {
	fmt.Fprintf(w, "Realized gains (%s)\n\n", report.Method)

	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tGains\tLosses\tNet\tTaxable\tTax due\t")
	for _, y := range report.Years {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			y.Year, y.GrossGain, y.GrossLoss, y.NetGain.SignedString(), y.Taxable, y.TaxDue)
	}
	tw.Flush()

	if len(report.PerAsset) == 0 {
		return
	}
	fmt.Fprintf(w, "\nPer asset\n\n")
	tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tAsset\tGains\tLosses\tNet\t")
	for _, a := range report.PerAsset {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			a.Year, a.Asset, a.GrossGain, a.GrossLoss, a.NetGain.SignedString())
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []cryptotax.DisposalEvent) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tAsset\tQuantity\tProceeds\tCost basis\tGain\t\t")
	for _, ev := range events {
		note := ""
		if ev.PartialData {
			note = "partial data"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			ev.DisposedAt.Format("2006-01-02"), ev.Asset, ev.Quantity,
			ev.Proceeds, ev.CostBasis, ev.Gain.SignedString(), note)
	}
	tw.Flush()
}

func printBalances(w io.Writer, balances []cryptotax.YearEndBalance) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tAsset\tQuantity\tValue\t\t")
	for _, b := range balances {
		note := ""
		if !b.Priced {
			note = "no price"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", b.Year, b.Asset, b.Quantity, b.Value, note)
	}
	tw.Flush()
}
