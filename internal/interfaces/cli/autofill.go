package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newAutoFillCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "autofill OPERATOR_REFERENCE",
		Short: "Fill USD/<quote> prices at every balance-sheet date that has none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.sc.Container.AutoFillService().Run(cmd.Context(), a.user, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "operator %s: inserted %d prices\n", res.Operator, len(res.Inserted))

			quotes := make([]string, 0, len(res.Unmatched))
			for q := range res.Unmatched {
				quotes = append(quotes, q)
			}
			sort.Strings(quotes)
			for _, q := range quotes {
				fmt.Fprintf(out, "  %s: %d dates without a price on or before them\n", q, len(res.Unmatched[q]))
			}
			return nil
		},
	}
}
