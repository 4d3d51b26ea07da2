package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vidaudit/internal/config"
	"vidaudit/internal/evaluate"
	"vidaudit/internal/history"
	"vidaudit/internal/reconcile"
)

// newAuditCommand runs the full pipeline: structural validation,
// cross-directory reconciliation, and the evaluation pass, then records the
// outcome in the run history. A file lock keeps concurrent audits of the
// same installation from interleaving their outputs.
func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [path]",
		Short: "Run the full audit: validate, reconcile, evaluate, and record the run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := ctx.dataRoot(args)
			if err != nil {
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

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "vidaudit.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire audit lock: %w", err)
			}
			if !ok {
				return errors.New("another vidaudit audit is already running")
			}
			defer func() { _ = lock.Unlock() }()

			started := time.Now().UTC()
			report, reportPath, err := runReconciliation(ctx, args,
				reconcile.Options{CrossDirectory: true}, "reconcile_results.json")
			if err != nil {
				return err
			}

			summary, err := evaluate.New(cfg, logger).Run()
			if err != nil {
				return err
			}

			var runID string
			if cfg.History.Enabled {
				runID, err = recordRun(cmd.Context(), cfg, root, started, report, summary)
				if err != nil {
					logger.Warn("failed to record audit run", "component", "audit", "error", err)
				}
			}

			if ctx.jsonOutput() {
				combined := auditOutput{
					Reconciliation: report,
					Evaluation:     summary,
					RunID:          runID,
				}
				if err := writeJSON(cmd, combined); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				printReport(out, report)
				fmt.Fprintf(out, "Report written to %s\n", reportPath)
				printEvaluation(cmd, cfg.EvaluationDir(), summary)
				if runID != "" {
					fmt.Fprintf(out, "Recorded audit run %s\n", runID)
				}
			}

			return verdictError(report)
		},
	}
}

// auditOutput is the combined JSON document emitted by `audit --json`.
type auditOutput struct {
	Reconciliation *reconcile.Report `json:"reconciliation"`
	Evaluation     *evaluate.Summary `json:"evaluation"`
	RunID          string            `json:"run_id,omitempty"`
}

func recordRun(ctx context.Context, cfg *config.Config, root string, started time.Time, report *reconcile.Report, summary *evaluate.Summary) (string, error) {
	store, err := history.Open(cfg)
	if err != nil {
		return "", err
	}
	defer store.Close()

	files := 0
	for _, count := range report.FileCounts {
		files += count
	}
	run := &history.Run{
		StartedAt:       started,
		FinishedAt:      time.Now().UTC(),
		Mode:            "audit",
		DataPath:        root,
		Videos:          report.Summary.Videos,
		Files:           files,
		EmptyFiles:      report.Summary.EmptyFiles,
		Duplicates:      report.Summary.Duplicates,
		MissingFiles:    report.Summary.MissingFiles,
		StructureIssues: report.Summary.StructureIssues,
		OverlaysSaved:   summary.OverlaysSaved,
		Status:          string(report.Summary.OverallStatus),
	}
	if err := store.Record(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}
