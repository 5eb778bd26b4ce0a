package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mdrisk/internal/domain/model"
)

func newArbCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arb",
		Short: "Open or close a margin/perpetual basis position on OKX",
	}
	cmd.AddCommand(newArbRunCommand(a, model.ArbOpen), newArbRunCommand(a, model.ArbClose))
	return cmd
}

func newArbRunCommand(a *app, mode model.ArbMode) *cobra.Command {
	var side string
	short := "Wait for a converging spread and open both legs"
	if mode == model.ArbClose {
		short = "Wait for a diverging spread and close both legs"
	}
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.sc.ArbitrageService()
			if err != nil {
				return err
			}
			p, err := a.sc.ArbitrageParams(mode, side)
			if err != nil {
				return err
			}

			name := fmt.Sprintf("arb:%s:%s", p.Base, p.Quote)
			err = a.sc.Strategy.Start(cmd.Context(), name, func(ctx context.Context) (any, error) {
				return svc.Run(ctx, p)
			})
			if err != nil {
				return err
			}
			res, err := a.sc.Strategy.Wait(cmd.Context(), name)
			if err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}
			arb, _ := res.Value.(model.ArbResult)
			log.Info().Str("side", string(arb.Side)).Str("size", arb.Size.String()).
				Str("spread", arb.Spread.String()).Msg("arbitrage finished")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s filled: margin=%s perp=%s spread=%s\n",
				arb.Mode, arb.Side, arb.Margin.OrderID, arb.Perp.OrderID, arb.Spread.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "side", "", "long|short (default arbitrage.side)")
	return cmd
}
