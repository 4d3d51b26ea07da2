package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"vidaudit/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	reportDir  string
	configPath string
}

// setupCLITestEnv writes a config file pointing every path at per-test temp
// directories so commands never touch the user's real config or data.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "data"),
		reportDir:  filepath.Join(base, "reports"),
		configPath: filepath.Join(base, "config.toml"),
	}

	content := fmt.Sprintf(`[paths]
data_dir = %q
report_dir = %q
log_dir = %q

[logging]
level = "error"
`, env.dataDir, env.reportDir, filepath.Join(base, "logs"))
	testsupport.WriteText(t, env.configPath, content)
	return env
}

// writeDataset lays down a complete, consistent single-video dataset.
func (env *cliTestEnv) writeDataset(t *testing.T, id string) {
	t.Helper()
	root := env.dataDir
	testsupport.WriteFile(t, filepath.Join(root, "video", id+".mp4"), 4096)
	testsupport.WriteJPEG(t, filepath.Join(root, "keyframes", id, "001.jpg"), 100, 100)
	testsupport.WriteFile(t, filepath.Join(root, "clip-features-32", id+".npy"), 2048)
	testsupport.WriteMapCSV(t, filepath.Join(root, "map-keyframes", id+".csv"), []testsupport.MapRowSpec{
		{N: "1", FrameIdx: "0", FPS: "25", PTSTime: "0.0"},
	})
	testsupport.WriteText(t, filepath.Join(root, "media-info", id+".json"),
		`{"title":"a","publish_date":"b","watch_url":"c","leght":"d","description":"e","author":"f","thumbnail_url":"g"}`)
	testsupport.WriteDetectionObjects(t, filepath.Join(root, "objects", id, "001.json"),
		"objects", []map[string]any{
			{"bbox": []any{10.0, 10.0, 40.0, 40.0}, "label": "person"},
		})
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
