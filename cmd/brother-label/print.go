package main

import (
	"os"

	"github.com/nantokaworks/brother-label/internal/dispatch"
	"github.com/nantokaworks/brother-label/internal/labelstore"
	"github.com/spf13/cobra"
)

func newPrintCmd() *cobra.Command {
	var copies int

	cmd := &cobra.Command{
		Use:   "print FILE",
		Short: "Print a PDF or PNG label with the stored settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			req, err := dispatch.RequestFromBytes(data)
			if err != nil {
				return err
			}
			req.Options = map[string]any{dispatch.OptionCopies: copies}

			a, err := setupApp()
			if err != nil {
				return err
			}
			defer a.close()
			return runDispatch(cmd, a, req)
		},
	}

	cmd.Flags().IntVarP(&copies, "copies", "n", 1, "Number of copies")
	return cmd
}

// runDispatch prints req synchronously with the stored settings.
func runDispatch(cmd *cobra.Command, a *app, req dispatch.Request) error {
	snap, err := a.settings.Snapshot()
	if err != nil {
		return err
	}
	if req.JobID, err = labelstore.GenerateID(); err != nil {
		return err
	}
	if err := a.dispatcher().Dispatch(cmd.Context(), req, snap); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Printed job %s on %s", req.JobID, snap.Model)
	return nil
}
