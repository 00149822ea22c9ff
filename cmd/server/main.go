package main

import (
	"os"

	"ticket-fulfillment/config"
	"ticket-fulfillment/internal/handler"
	"ticket-fulfillment/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		logger.L.Error("command failed", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "ticket-fulfillment",
		Short:         "Ticket order fulfillment and seat inventory services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.LoadConfig()
			logger.SetLevel(cfg.App.LogLevel)
			handler.ExposeErrorDetail(!cfg.App.IsProduction())
		},
	}

	// 子命令在 PersistentPreRun 之後才讀 cfg
	loaded := func() *config.Config { return cfg }

	root.AddCommand(
		newOrdersCmd(loaded),
		newInventoryCmd(loaded),
		newMigrateCmd(loaded),
	)
	return root
}
