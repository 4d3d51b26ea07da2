package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEvaluate(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEvaluate() error {
	if c.Evaluate.ScoreThreshold < 0 || c.Evaluate.ScoreThreshold > 1 {
		return errors.New("evaluate.score_threshold must be between 0 and 1")
	}
	if err := ensurePositiveMap(map[string]int{
		"evaluate.max_frames_per_video":    c.Evaluate.MaxFramesPerVideo,
		"evaluate.max_scan_frames":         c.Evaluate.MaxScanFrames,
		"evaluate.min_annotated_per_video": c.Evaluate.MinAnnotatedPerVideo,
	}); err != nil {
		return err
	}
	if c.Evaluate.NumRandomSaves < 0 {
		return errors.New("evaluate.num_random_saves must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
