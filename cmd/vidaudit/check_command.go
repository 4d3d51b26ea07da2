package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"vidaudit/internal/dataset"
	"vidaudit/internal/fsutil"
	"vidaudit/internal/reconcile"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate structure and naming within each artifact tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reconcileDataset(ctx, cmd, args,
				reconcile.Options{}, "validation_results.json")
			if err != nil {
				return err
			}
			return verdictError(report)
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [path]",
		Short: "Cross-check all six artifact trees for missing and duplicate artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reconcileDataset(ctx, cmd, args,
				reconcile.Options{CrossDirectory: true}, "reconcile_results.json")
			if err != nil {
				return err
			}
			return verdictError(report)
		},
	}
}

// reconcileDataset runs the requested reconciliation and renders the result,
// either as JSON or as tables.
func reconcileDataset(ctx *commandContext, cmd *cobra.Command, args []string, opts reconcile.Options, reportFile string) (*reconcile.Report, error) {
	report, outPath, err := runReconciliation(ctx, args, opts, reportFile)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, report); err != nil {
			return nil, err
		}
	} else {
		printReport(out, report)
		fmt.Fprintf(out, "Report written to %s\n", outPath)
	}
	return report, nil
}

// runReconciliation scans the dataset, runs the checks, and writes the JSON
// report file. Rendering is left to the caller so the audit command can fold
// the report into its combined output.
func runReconciliation(ctx *commandContext, args []string, opts reconcile.Options, reportFile string) (*reconcile.Report, string, error) {
	root, err := ctx.dataRoot(args)
	if err != nil {
		return nil, "", err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, "", err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}

	logger.Info("scanning dataset",
		"component", "reconcile",
		"root", root,
		"cross_directory", opts.CrossDirectory)
	report := reconcile.Run(dataset.Scan(root), opts)

	outPath := filepath.Join(cfg.Paths.ReportDir, reportFile)
	if err := fsutil.WriteJSONFile(outPath, report); err != nil {
		logger.Warn("failed to write report", "component", "reconcile", "error", err)
	}
	return report, outPath, nil
}

func verdictError(report *reconcile.Report) error {
	if report.Summary.OverallStatus != reconcile.StatusPass {
		return fmt.Errorf("dataset has issues: %d empty, %d duplicates, %d missing, %d structure",
			report.Summary.EmptyFiles,
			report.Summary.Duplicates,
			report.Summary.MissingFiles,
			report.Summary.StructureIssues)
	}
	return nil
}
