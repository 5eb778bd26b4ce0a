package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"mdrisk/internal/application/port"
	"mdrisk/internal/domain/model"
)

// Reporter 表格输出：风险报告、价格、标记价格、账单汇总
type Reporter struct {
	out io.Writer
}

func NewReporter() *Reporter { return &Reporter{out: os.Stdout} }

func NewReporterTo(w io.Writer) *Reporter { return &Reporter{out: w} }

func (r *Reporter) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight)
}

// WriteRiskReport 每个持仓一行，最后一行为各 Greek 合计
func (r *Reporter) WriteRiskReport(rep model.RiskReport) error {
	fmt.Fprintf(r.out, "risk as of %s (%s)\n", rep.AsOf.UTC().Format(time.RFC3339), rep.Currency)

	tw := r.table()
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tAMOUNT\tDELTA\tGAMMA\tVEGA\tTHETA\tDV01\tRHO\tIV\t")
	for _, p := range rep.Positions {
		if p.Warning != "" {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\t\t\t\t\t\t\n",
				p.Position.Instrument.Symbol(), p.Position.Side, p.Position.TokenAmount.String(), "! "+p.Warning)
			continue
		}
		g := p.Greeks
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Position.Instrument.Symbol(), p.Position.Side, p.Position.TokenAmount.String(),
			fixed(g.Delta), fixed(g.Gamma), fixed(g.Vega), fixed(g.Theta), fixed(g.DV01), fixed(g.Rho), iv(p.ImpliedVol))
	}
	t := rep.Total
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\t%s\t%s\t%s\t%s\t%s\t\t\n",
		fixed(t.Delta), fixed(t.Gamma), fixed(t.Vega), fixed(t.Theta), fixed(t.DV01), fixed(t.Rho))
	return tw.Flush()
}

func (r *Reporter) WritePrices(prices []model.Price) error {
	tw := r.table()
	fmt.Fprintln(tw, "REFERENCE\tBASE\tQUOTE\tVALUE\tCONFIRMED\t")
	for _, p := range prices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", p.Reference, p.BaseAssetReference, p.QuoteAssetReference,
			p.Value.String(), p.ConfirmedTime.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func (r *Reporter) WriteMarks(marks []model.MarkPrice) error {
	tw := r.table()
	fmt.Fprintln(tw, "BASE\tQUOTE\tQUERY\tVALUE\tCONFIRMED\t")
	for _, m := range marks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", m.Pair.Base, m.Pair.Quote, m.QueryTime.UTC().Format(time.RFC3339),
			m.Price.Value.String(), m.Price.ConfirmedTime.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

// WriteBalances 按币种输出期末余额
func (r *Reporter) WriteBalances(title string, b model.FeeBalances, ccys []string) error {
	fmt.Fprintln(r.out, title)
	tw := r.table()
	for _, c := range ccys {
		fmt.Fprintf(tw, "%s\t%s\t\n", c, b[c].String())
	}
	return tw.Flush()
}

func fixed(d decimal.Decimal) string { return d.StringFixed(4) }

func iv(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v*100, 'f', 2, 64) + "%"
}

var _ port.ReportWriter = (*Reporter)(nil)
