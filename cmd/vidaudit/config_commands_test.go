package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigNewWritesSample(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, _, err := runCLI(t, []string{"config", "new", "--path", target}, "")
	if err != nil {
		t.Fatalf("config new: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second write without --overwrite must refuse.
	if _, _, err := runCLI(t, []string{"config", "new", "--path", target}, ""); err == nil {
		t.Fatal("expected an error when the config file already exists")
	}
}

func TestConfigShowPrintsResolvedValues(t *testing.T) {
	out, _, err := runCLI(t, []string{"config", "show"}, "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Config path:")
	requireContains(t, out, "Score threshold:")
}
