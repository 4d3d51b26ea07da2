package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	ReportDir string `toml:"report_dir"`
	LogDir    string `toml:"log_dir"`
}

// Evaluate contains knobs for the frame alignment and overlay pass.
type Evaluate struct {
	MaxFramesPerVideo    int     `toml:"max_frames_per_video"`
	MaxScanFrames        int     `toml:"max_scan_frames"`
	MinAnnotatedPerVideo int     `toml:"min_annotated_per_video"`
	NumRandomSaves       int     `toml:"num_random_saves"`
	ScoreThreshold       float64 `toml:"score_threshold"`
	PreferObjectFrames   bool    `toml:"prefer_object_frames"`
	SavePerVideoPreviews bool    `toml:"save_per_video_previews"`
	CleanupOutputs       bool    `toml:"cleanup_outputs"`
}

// History contains configuration for the audit run history store.
type History struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"` // Default: <report_dir>/history.db
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidaudit.
//
// Sections by subsystem:
//   - Paths: dataset root plus report and log output directories
//   - Evaluate: sampling bounds and detection threshold for overlays
//   - History: SQLite audit run history
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Evaluate Evaluate `toml:"evaluate"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vidaudit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/vidaudit/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidaudit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the report and log directories. The dataset root
// is never created here; a missing root is a user error surfaced at the CLI
// boundary.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ReportDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EvaluationDir returns the root of the evaluation output tree.
func (c *Config) EvaluationDir() string {
	return filepath.Join(c.Paths.ReportDir, "evaluation")
}

// OverlayDir returns the directory that holds rendered overlay samples.
func (c *Config) OverlayDir() string {
	return filepath.Join(c.EvaluationDir(), "overlays")
}

// AnnotatedDir returns the directory for optional per-video annotated frames.
func (c *Config) AnnotatedDir() string {
	return filepath.Join(c.EvaluationDir(), "annotated_keyframes")
}

// HistoryDBPath returns the resolved path of the run history database.
func (c *Config) HistoryDBPath() string {
	if strings.TrimSpace(c.History.DBPath) != "" {
		return c.History.DBPath
	}
	return filepath.Join(c.Paths.ReportDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
