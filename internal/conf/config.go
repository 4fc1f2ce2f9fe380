// Package conf provides configuration management for dualcapture.
//
// Settings are resolved from, in increasing priority: built-in defaults,
// a dualcapture.yaml file, DUALCAPTURE_* environment variables and command
// line flags bound by the cmd package.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

// ConfigName is the base name of the YAML configuration file.
const ConfigName = "dualcapture"

// Settings is the root of the application configuration.
type Settings struct {
	Debug     bool
	Capture   CaptureSettings
	Replay    ReplaySettings
	Log       LogSettings
	Metrics   MetricsSettings
	Telemetry TelemetrySettings
}

// CaptureSettings configures the dual-buffer engine and the capture device.
type CaptureSettings struct {
	WindowMs     int           // slot window length in milliseconds
	SampleRate   int           // requested device sample rate in Hz
	Device       string        // device name or ID substring, empty selects the default device
	Backend      string        // audio backend override, empty selects by OS
	BufferFrames int           // frames per device period
	RequestMs    int           // window requested per pull, 0 uses WindowMs
	PollInterval time.Duration // consumer poll interval
}

// ReplaySettings configures WAV file replay.
type ReplaySettings struct {
	Realtime bool // pace chunks at the file's sample rate
}

// LogSettings configures console and file logging.
type LogSettings struct {
	Level string
	File  LogFileSettings
}

// LogFileSettings configures the rotating JSON log file.
type LogFileSettings struct {
	Enabled    bool
	Path       string
	MaxSize    int // MB
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Listen  string
}

// TelemetrySettings configures Sentry error reporting.
type TelemetrySettings struct {
	Enabled bool
	DSN     string
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings using the global viper
// instance, so flags bound by cobra take precedence.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	settingsInstance = settings
	return settingsInstance, nil
}

// load initializes v with defaults, config file and environment, then unmarshals and validates.
func load(v *viper.Viper) (*Settings, error) {
	if err := initViper(v); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper sets defaults, binds environment variables and reads the configuration file.
// An explicit file set with v.SetConfigFile skips the search path lookup.
func initViper(v *viper.Viper) error {
	v.SetConfigType("yaml")
	if v.ConfigFileUsed() == "" {
		v.SetConfigName(ConfigName)
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			GetLogger().Debug("no config file found, using defaults and environment",
				logger.String("name", ConfigName))
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}

	GetLogger().Info("loaded config file", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// GetDefaultConfigPaths returns the directories searched for dualcapture.yaml, in order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	return []string{
		".",
		filepath.Join(homeDir, ".config", ConfigName),
		filepath.Join("/etc", ConfigName),
	}, nil
}

// GetSettings returns the most recently loaded settings, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// RequestWindowMs returns the window each pull asks for.
func (c *CaptureSettings) RequestWindowMs() int {
	if c.RequestMs > 0 {
		return c.RequestMs
	}
	return c.WindowMs
}
