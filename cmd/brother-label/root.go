package main

import (
	"github.com/nantokaworks/brother-label/internal/env"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "brother-label",
		Short: "Send rendered labels to Brother QL and PT label printers",
		Long: `brother-label prints PDF or PNG labels on networked or USB-attached
Brother label printers through the brother_ql tool.

Printer settings (model, media, transport, rotation...) are stored in a local
database and shared by the CLI and the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env があれば読み込む
			env.LoadEnv()
			logger.Init(debug || env.Value.DebugMode)
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(),
		newPrintCmd(),
		newModelsCmd(),
		newMediaCmd(),
		newSettingsCmd(),
		newTestPrintCmd(),
	)
	return cmd
}
