package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mdrisk/internal/domain/model"
)

// assets / operators / sheets 用于准备自动补价的输入

func newAssetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "assets", Short: "Manage assets"}

	var (
		name       string
		decimals   int
		settleable bool
	)
	add := &cobra.Command{
		Use:   "add REFERENCE SYMBOL",
		Short: "Create or update an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset := model.Asset{
				Reference:     args[0],
				UserReference: a.user,
				Symbol:        args[1],
				Name:          name,
				Decimals:      decimals,
				IsSettleable:  settleable,
			}
			if err := a.sc.Container.Store().SaveAsset(cmd.Context(), asset); err != nil {
				return err
			}
			log.Info().Str("user", a.user).Str("asset", asset.Reference).Str("symbol", asset.Symbol).Msg("asset saved")
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().IntVar(&decimals, "decimals", 2, "display decimals")
	add.Flags().BoolVar(&settleable, "settleable", false, "asset takes part in auto-fill")

	list := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := a.sc.Container.Store().ListAssets(cmd.Context(), a.user)
			if err != nil {
				return err
			}
			for _, as := range assets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tsettleable=%t\n", as.Reference, as.Symbol, as.IsSettleable)
			}
			return nil
		},
	}
	cmd.AddCommand(add, list)
	return cmd
}

func newOperatorsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "operators", Short: "Manage price feed operators"}

	var value string
	add := &cobra.Command{
		Use:   "add REFERENCE yahoo_finance|coingecko|oanda",
		Short: "Create or update an operator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := model.Operator{
				Reference:     args[0],
				UserReference: a.user,
				Discriminator: model.OperatorDiscriminator(args[1]),
				Value:         []byte(value),
			}
			// 构造一次，拒绝未知的 discriminator
			if _, err := a.sc.Container.FeedResolver().Resolve(op); err != nil {
				return err
			}
			if err := a.sc.Container.Store().SaveOperator(cmd.Context(), op); err != nil {
				return err
			}
			log.Info().Str("user", a.user).Str("operator", op.Reference).Str("feed", args[1]).Msg("operator saved")
			return nil
		},
	}
	add.Flags().StringVar(&value, "value", "{}", `operator JSON, e.g. {"ids":{"BTC":"bitcoin"}}`)
	cmd.AddCommand(add)
	return cmd
}

func newSheetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "sheets", Short: "Manage balance sheets"}
	add := &cobra.Command{
		Use:   "add BALANCED_TIME [ACCOUNT=AMOUNT ...]",
		Short: "Record a balance sheet; its time becomes an auto-fill anchor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseTime(args[0])
			if err != nil {
				return err
			}
			sheet := model.BalanceSheet{
				Reference:     a.sc.NewID(),
				UserReference: a.user,
				BalancedTime:  at,
			}
			for _, s := range args[1:] {
				e, err := parseEntry(s)
				if err != nil {
					return err
				}
				sheet.Entries = append(sheet.Entries, e)
			}
			if err := a.sc.Container.Store().SaveBalanceSheet(cmd.Context(), sheet); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sheet.Reference)
			return nil
		},
	}
	cmd.AddCommand(add)
	return cmd
}
