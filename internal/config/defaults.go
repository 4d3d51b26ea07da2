package config

const (
	defaultReportDir = "~/.local/share/vidaudit/reports"
	defaultLogDir    = "~/.local/share/vidaudit/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultMaxFramesPerVideo    = 3
	defaultMaxScanFrames        = 50
	defaultMinAnnotatedPerVideo = 3
	defaultNumRandomSaves       = 5
	defaultScoreThreshold       = 0.3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ReportDir: defaultReportDir,
			LogDir:    defaultLogDir,
		},
		Evaluate: Evaluate{
			MaxFramesPerVideo:    defaultMaxFramesPerVideo,
			MaxScanFrames:        defaultMaxScanFrames,
			MinAnnotatedPerVideo: defaultMinAnnotatedPerVideo,
			NumRandomSaves:       defaultNumRandomSaves,
			ScoreThreshold:       defaultScoreThreshold,
			PreferObjectFrames:   true,
			SavePerVideoPreviews: false,
			CleanupOutputs:       true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
