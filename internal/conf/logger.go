package conf

import "github.com/tphakala/dualcapture/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it picks up the
// centralized logger configured after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

// LoggingConfig converts the log settings into the logger package configuration.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Log.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}
	return &logger.LoggingConfig{
		Level:   level,
		Console: &logger.ConsoleOutput{Enabled: true, Level: level},
		FileOutput: &logger.FileOutput{
			Enabled:    s.Log.File.Enabled,
			Path:       s.Log.File.Path,
			MaxSize:    s.Log.File.MaxSize,
			MaxAge:     s.Log.File.MaxAge,
			MaxBackups: s.Log.File.MaxBackups,
			Compress:   s.Log.File.Compress,
			Level:      level,
		},
	}
}
