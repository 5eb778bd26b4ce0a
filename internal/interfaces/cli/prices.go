package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"mdrisk/internal/domain/model"
)

func newPricesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "List, add and query stored prices",
	}
	cmd.AddCommand(newPricesListCommand(a), newPricesPutCommand(a), newPricesMarkCommand(a))
	return cmd
}

func newPricesListCommand(a *app) *cobra.Command {
	var (
		f       model.PriceFilter
		gte, lt string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prices, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if f.Gte, err = optionalTime(gte); err != nil {
				return err
			}
			if f.Lt, err = optionalTime(lt); err != nil {
				return err
			}
			prices, err := a.sc.Container.PriceService().ListPrices(cmd.Context(), a.user, f)
			if err != nil {
				return err
			}
			return a.sc.Reporter.WritePrices(prices)
		},
	}
	cmd.Flags().StringVar(&f.Base, "base", "", "base asset reference")
	cmd.Flags().StringVar(&f.Quote, "quote", "", "quote asset reference")
	cmd.Flags().StringVar(&gte, "gte", "", "confirmed_time >= (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&lt, "lt", "", "confirmed_time <")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&f.Limit, "limit", 100, "max rows, 0 for all")
	return cmd
}

func newPricesPutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put BASE QUOTE VALUE CONFIRMED_TIME",
		Short: "Insert one price; fails if the same pair and time already exist",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}
			at, err := parseTime(args[3])
			if err != nil {
				return err
			}
			p, err := a.sc.Container.PriceService().PutPrice(cmd.Context(), a.user, model.Pair{Base: args[0], Quote: args[1]}, value, at)
			if err != nil {
				return err
			}
			return a.sc.Reporter.WritePrices([]model.Price{p})
		},
	}
}

func newPricesMarkCommand(a *app) *cobra.Command {
	var (
		pairs    []string
		at       []string
		maxDelta time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Latest price at or before each query time, within --max-delta",
		RunE: func(cmd *cobra.Command, args []string) error {
			ps := make([]model.Pair, 0, len(pairs))
			for _, s := range pairs {
				p, err := parsePair(s)
				if err != nil {
					return err
				}
				ps = append(ps, p)
			}
			times, err := parseTimes(at)
			if err != nil {
				return err
			}
			marks, err := a.sc.Container.PriceService().QueryMarkPrices(cmd.Context(), a.user, ps, times, maxDelta)
			if err != nil {
				return err
			}
			return a.sc.Reporter.WriteMarks(marks)
		},
	}
	cmd.Flags().StringSliceVar(&pairs, "pair", nil, "BASE/QUOTE asset references (repeatable)")
	cmd.Flags().StringSliceVar(&at, "at", nil, "query times (repeatable)")
	cmd.Flags().DurationVar(&maxDelta, "max-delta", -1, "max staleness, negative for unbounded")
	_ = cmd.MarkFlagRequired("pair")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
