package main

import (
	"os"
	"path/filepath"
	"testing"

	"vidaudit/internal/testsupport"
)

func TestCheckCommandPassesOnCleanDataset(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeDataset(t, "L1_V001")

	out, _, err := runCLI(t, []string{"check", env.dataDir}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Status: PASS")

	if _, err := os.Stat(filepath.Join(env.reportDir, "validation_results.json")); err != nil {
		t.Fatalf("expected validation report: %v", err)
	}
}

func TestCheckCommandFailsOnEmptyFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeDataset(t, "L1_V001")
	testsupport.WriteFile(t, filepath.Join(env.dataDir, "video", "L1_V002.mp4"), 0)

	out, _, err := runCLI(t, []string{"check", env.dataDir}, env.configPath)
	if err == nil {
		t.Fatal("expected a non-nil error for a dataset with an empty file")
	}
	requireContains(t, out, "ISSUES_FOUND")
}

func TestReconcileCommandReportsMissingArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeDataset(t, "L1_V001")
	env.writeDataset(t, "L1_V002")
	if err := os.Remove(filepath.Join(env.dataDir, "media-info", "L1_V002.json")); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"reconcile", env.dataDir}, env.configPath)
	if err == nil {
		t.Fatal("expected a non-nil error for a dataset with missing artifacts")
	}
	requireContains(t, out, "missing [media_info]: L1_V002")

	if _, err := os.Stat(filepath.Join(env.reportDir, "reconcile_results.json")); err != nil {
		t.Fatalf("expected reconcile report: %v", err)
	}
}

func TestCheckCommandJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeDataset(t, "L1_V001")

	out, _, err := runCLI(t, []string{"check", env.dataDir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("check --json: %v", err)
	}
	requireContains(t, out, `"overall_status": "PASS"`)
}
