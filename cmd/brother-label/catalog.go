package main

import (
	"fmt"
	"strings"

	"github.com/nantokaworks/brother-label/internal/catalog"
	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List supported printer models",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, d := range c.Devices() {
				rows = append(rows, []string{d.ID, fmt.Sprint(len(d.Labels))})
			}
			printTable(cmd.OutOrStdout(), []string{"MODEL", "LABELS"}, rows)
			return nil
		},
	}
}

func newMediaCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "media",
		Short: "List label media, optionally for one model",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog()
			if err != nil {
				return err
			}

			if model == "" {
				var rows [][]string
				for _, choice := range c.MediaChoices() {
					rows = append(rows, []string{choice.Value, choice.Label})
				}
				printTable(cmd.OutOrStdout(), []string{"IDENTIFIER", "NAME"}, rows)
				return nil
			}

			device, ok := c.Device(model)
			if !ok {
				return fmt.Errorf("unknown model: %s", model)
			}
			var rows [][]string
			for _, l := range device.Labels {
				rows = append(rows, []string{strings.Join(l.Identifiers, ", "), l.Name, formatSize(l)})
			}
			printTable(cmd.OutOrStdout(), []string{"IDENTIFIERS", "NAME", "SIZE (mm)"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Printer model")
	return cmd
}

func formatSize(l catalog.Label) string {
	if l.Endless() {
		return fmt.Sprintf("%g endless", l.TapeSize.Width)
	}
	return fmt.Sprintf("%g x %g", l.TapeSize.Width, l.TapeSize.Height)
}
