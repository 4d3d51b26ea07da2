package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"vidaudit/internal/evaluate"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var (
		maxFrames   int
		randomSaves int
		threshold   float64
		previews    bool
		keepOutputs bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate [path]",
		Short: "Sample keyframes, verify timestamp alignment, and render annotated overlays",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.dataRoot(args); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("max-frames") {
				cfg.Evaluate.MaxFramesPerVideo = maxFrames
			}
			if cmd.Flags().Changed("random-saves") {
				cfg.Evaluate.NumRandomSaves = randomSaves
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Evaluate.ScoreThreshold = threshold
			}
			if cmd.Flags().Changed("previews") {
				cfg.Evaluate.SavePerVideoPreviews = previews
			}
			if keepOutputs {
				cfg.Evaluate.CleanupOutputs = false
			}

			summary, err := evaluate.New(cfg, logger).Run()
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, summary)
			}
			printEvaluation(cmd, cfg.EvaluationDir(), summary)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Frames sampled per video")
	cmd.Flags().IntVar(&randomSaves, "random-saves", 0, "Dataset-wide random overlays to save")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Detection confidence threshold")
	cmd.Flags().BoolVar(&previews, "previews", false, "Save per-video annotated previews")
	cmd.Flags().BoolVar(&keepOutputs, "keep-outputs", false, "Keep previous evaluation outputs")
	return cmd
}

func printEvaluation(cmd *cobra.Command, outputDir string, summary *evaluate.Summary) {
	out := cmd.OutOrStdout()

	ids := make([]string, 0, len(summary.Videos))
	for id := range summary.Videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		v := summary.Videos[id]
		rows = append(rows, []string{
			id,
			strconv.Itoa(v.ProcessedFrames),
			strconv.Itoa(v.Matches.ByN),
			strconv.Itoa(v.Matches.ByFrameIdx),
			strconv.Itoa(v.Matches.Unmatched),
			strconv.Itoa(len(v.Errors)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Video", "Frames", "By N", "By Frame Idx", "Unmatched", "Errors"},
		rows, 1, 2, 3, 4, 5))

	check := summary.MediaInfoCheck
	fmt.Fprintf(out, "Media info: %d checked, %d incomplete, %d unreadable\n",
		check.Checked, len(check.MissingFields), len(check.Errors))
	for id, fields := range check.MissingFields {
		fmt.Fprintf(out, "  %s missing: %v\n", id, fields)
	}

	fmt.Fprintf(out, "Overlays saved: %d\n", summary.OverlaysSaved)
	fmt.Fprintf(out, "Outputs written to %s\n", outputDir)
}
