package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newBillsCommand(a *app) *cobra.Command {
	var since, until string
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "Roll OKX bills into daily cash-flow and closing-balance CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := a.sc.BillsAggregator()
			if err != nil {
				return err
			}
			to := time.Now().UTC().Truncate(24 * time.Hour)
			if until != "" {
				if to, err = parseTime(until); err != nil {
					return err
				}
			}
			from := to.AddDate(0, 0, -a.sc.Config.Bills.SinceDays)
			if since != "" {
				if from, err = parseTime(since); err != nil {
					return err
				}
			}

			sum, err := agg.Run(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "windows: %d processed, %d skipped, %d bills\n", sum.Processed, sum.Skipped, sum.Bills)
			ccys := make([]string, 0, len(sum.Closing))
			for c := range sum.Closing {
				ccys = append(ccys, c)
			}
			sort.Strings(ccys)
			return a.sc.Reporter.WriteBalances("closing balances until "+to.Format(time.RFC3339), sum.Closing, ccys)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "first window start (default until - bills.since_days)")
	cmd.Flags().StringVar(&until, "until", "", "last window end (default today 00:00 UTC)")
	return cmd
}
