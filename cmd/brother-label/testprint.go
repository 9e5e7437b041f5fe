package main

import (
	"time"

	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/env"
	"github.com/nantokaworks/brother-label/internal/testlabel"
	"github.com/spf13/cobra"
)

func newTestPrintCmd() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "test-print",
		Short: "Print a QR code test label on the configured media",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setupApp()
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.settings.Snapshot()
			if err != nil {
				return err
			}
			label, err := testlabel.Resolve(a.catalog, snap.Model, snap.MediaType)
			if err != nil {
				return err
			}
			if text == "" {
				text = "brother-label " + time.Now().Format("2006-01-02 15:04")
			}
			img, err := testlabel.Generate(label, text, env.Value.RenderDPI)
			if err != nil {
				return err
			}
			return runDispatch(cmd, a, dispatch.Request{Image: img})
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Text to encode on the test label")
	return cmd
}
