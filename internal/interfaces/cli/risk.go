package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newRiskCommand(a *app) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Greeks of the current OKX positions in the reporting currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sc.RiskReady(); err != nil {
				return err
			}
			at := time.Now().UTC()
			if asOf != "" {
				t, err := parseTime(asOf)
				if err != nil {
					return err
				}
				at = t
			}
			rep, err := a.sc.Container.RiskService().Report(cmd.Context(), a.user, at)
			if err != nil {
				return err
			}
			return a.sc.Reporter.WriteRiskReport(rep)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "valuation time (default now)")
	return cmd
}
