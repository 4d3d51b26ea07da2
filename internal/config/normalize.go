package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEvaluate()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir == "" {
		if value, ok := os.LookupEnv("VIDAUDIT_DATA_DIR"); ok {
			c.Paths.DataDir = strings.TrimSpace(value)
		}
	}
	if c.Paths.DataDir != "" {
		if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
			return fmt.Errorf("paths.data_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.History.DBPath) != "" {
		if c.History.DBPath, err = expandPath(c.History.DBPath); err != nil {
			return fmt.Errorf("history.db_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeEvaluate() {
	if c.Evaluate.MaxFramesPerVideo <= 0 {
		c.Evaluate.MaxFramesPerVideo = defaultMaxFramesPerVideo
	}
	if c.Evaluate.MaxScanFrames <= 0 {
		c.Evaluate.MaxScanFrames = defaultMaxScanFrames
	}
	if c.Evaluate.MinAnnotatedPerVideo <= 0 {
		c.Evaluate.MinAnnotatedPerVideo = defaultMinAnnotatedPerVideo
	}
	if c.Evaluate.ScoreThreshold <= 0 {
		c.Evaluate.ScoreThreshold = defaultScoreThreshold
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
