package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vidaudit/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past audit runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format(time.DateTime),
					run.Mode,
					strconv.Itoa(run.Videos),
					strconv.Itoa(run.Files),
					strconv.Itoa(run.EmptyFiles + run.Duplicates + run.MissingFiles + run.StructureIssues),
					strconv.Itoa(run.OverlaysSaved),
					run.Status,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Mode", "Videos", "Files", "Issues", "Overlays", "Status"},
				rows, 3, 4, 5, 6))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
