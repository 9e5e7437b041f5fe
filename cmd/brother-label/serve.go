package main

import (
	"context"
	"time"

	"github.com/nantokaworks/brother-label/internal/env"
	"github.com/nantokaworks/brother-label/internal/labelstore"
	"github.com/nantokaworks/brother-label/internal/output"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/shared/paths"
	"github.com/nantokaworks/brother-label/internal/webserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the label printing HTTP server",
		Example: `  # Start server on the port from SERVER_PORT (default 8080)
  brother-label serve

  # Start server on a custom port
  brother-label serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp()
			if err != nil {
				return err
			}
			defer a.close()

			if !cmd.Flags().Changed("port") {
				port = env.Value.ServerPort
			}

			labels, err := labelstore.New(paths.GetOutputDir(), time.Duration(env.Value.LabelTTLMins)*time.Minute)
			if err != nil {
				return err
			}
			defer labels.Close()

			queue := output.NewQueue(env.Value.QueueSize)

			srv := webserver.New(webserver.Options{
				Catalog:    a.catalog,
				Settings:   a.settings,
				Printer:    a.printer,
				Rasterizer: a.rasterizer,
				Boxes:      a.boxes,
				Queue:      queue,
				Labels:     labels,
				RenderDPI:  env.Value.RenderDPI,
			})
			if err := srv.Start(port); err != nil {
				return err
			}

			if st, err := a.settings.CheckPrinterStatus(); err == nil && !st.Configured {
				logger.Warn("Printer is not fully configured", zap.Strings("missing", st.MissingSettings))
			}
			logger.Info("Server started", zap.Int("port", port))

			<-cmd.Context().Done()
			logger.Info("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
			if err := queue.Close(ctx); err != nil {
				logger.Warn("Print queue did not drain", zap.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	return cmd
}
