package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("exists = true for missing file")
	}
	if cfg.Evaluate.MaxFramesPerVideo != defaultMaxFramesPerVideo {
		t.Errorf("max_frames_per_video = %d, want default %d",
			cfg.Evaluate.MaxFramesPerVideo, defaultMaxFramesPerVideo)
	}
	if cfg.Evaluate.ScoreThreshold != defaultScoreThreshold {
		t.Errorf("score_threshold = %v, want default %v",
			cfg.Evaluate.ScoreThreshold, defaultScoreThreshold)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("logging format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `"
report_dir = "` + filepath.Join(dir, "reports") + `"

[evaluate]
max_frames_per_video = 7
num_random_saves = 2
score_threshold = 0.5

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Paths.DataDir != dir {
		t.Errorf("data_dir = %q, want %q", cfg.Paths.DataDir, dir)
	}
	if cfg.Evaluate.MaxFramesPerVideo != 7 {
		t.Errorf("max_frames_per_video = %d, want 7", cfg.Evaluate.MaxFramesPerVideo)
	}
	if cfg.Evaluate.NumRandomSaves != 2 {
		t.Errorf("num_random_saves = %d, want 2", cfg.Evaluate.NumRandomSaves)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %q/%q, want json/debug", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "threshold above one",
			content: "[evaluate]\nscore_threshold = 1.5\n",
			wantErr: "score_threshold",
		},
		{
			name:    "negative random saves",
			content: "[evaluate]\nnum_random_saves = -1\n",
			wantErr: "num_random_saves",
		},
		{
			name:    "bad level",
			content: "[logging]\nlevel = \"verbose\"\n",
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestHistoryDBPathFallback(t *testing.T) {
	cfg := Default()
	cfg.Paths.ReportDir = "/tmp/reports"
	if got := cfg.HistoryDBPath(); got != filepath.Join("/tmp/reports", "history.db") {
		t.Errorf("HistoryDBPath = %q", got)
	}
	cfg.History.DBPath = "/elsewhere/h.db"
	if got := cfg.HistoryDBPath(); got != "/elsewhere/h.db" {
		t.Errorf("HistoryDBPath override = %q", got)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/data")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "data") {
		t.Errorf("ExpandPath = %q, want under %q", got, home)
	}
}
