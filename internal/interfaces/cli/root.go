// Package cli mdrisk 命令行
package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mdrisk/internal/infrastructure/config"
	"mdrisk/internal/infrastructure/logger"
	"mdrisk/internal/infrastructure/svc"
	"mdrisk/internal/interfaces/console"
)

// app 子命令共享的状态，PersistentPreRunE 中初始化
type app struct {
	configPath string
	user       string
	logLevel   string

	sc *svc.ServiceContext
}

// NewRootCommand 构建完整命令树
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "mdrisk",
		Short: "Market data, risk and basis-arbitrage toolkit",
		Long: `mdrisk keeps a per-user store of historical prices, fills it from public
feeds at balance-sheet dates, computes Greeks for the positions held on OKX,
runs margin/perpetual basis trades and rolls the account bills into daily
cash-flow tables.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.sc != nil {
				return a.sc.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "configs/mdrisk.toml", "path to config.toml")
	root.PersistentFlags().StringVarP(&a.user, "user", "u", "", "user reference (default app.user)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(
		newPricesCommand(a),
		newAssetsCommand(a),
		newOperatorsCommand(a),
		newSheetsCommand(a),
		newAutoFillCommand(a),
		newRiskCommand(a),
		newArbCommand(a),
		newBillsCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", a.configPath, err)
	}
	level := cfg.App.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger.Setup(level)
	if a.user == "" {
		a.user = cfg.App.User
	}

	sc, err := svc.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	sc.Reporter = console.NewReporterTo(cmd.OutOrStdout())
	a.sc = sc

	log.Debug().Str("config", a.configPath).Str("user", a.user).Str("cmd", cmd.CommandPath()).Msg("mdrisk started")
	return nil
}
