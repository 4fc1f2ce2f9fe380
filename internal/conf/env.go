// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "DUALCAPTURE_DEBUG", validateEnvBool},

		// Capture engine and device
		{"capture.windowms", "DUALCAPTURE_WINDOW_MS", validateEnvPositiveInt},
		{"capture.samplerate", "DUALCAPTURE_SAMPLE_RATE", validateEnvSampleRate},
		{"capture.device", "DUALCAPTURE_DEVICE", nil},
		{"capture.backend", "DUALCAPTURE_BACKEND", validateEnvBackend},
		{"capture.bufferframes", "DUALCAPTURE_BUFFER_FRAMES", validateEnvPositiveInt},
		{"capture.requestms", "DUALCAPTURE_REQUEST_MS", validateEnvNonNegativeInt},
		{"capture.pollinterval", "DUALCAPTURE_POLL_INTERVAL", validateEnvDuration},

		{"replay.realtime", "DUALCAPTURE_REPLAY_REALTIME", validateEnvBool},

		// Logging
		{"log.level", "DUALCAPTURE_LOG_LEVEL", validateEnvLogLevel},
		{"log.file.enabled", "DUALCAPTURE_LOG_FILE_ENABLED", validateEnvBool},
		{"log.file.path", "DUALCAPTURE_LOG_FILE_PATH", nil},

		// Observability
		{"metrics.enabled", "DUALCAPTURE_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "DUALCAPTURE_METRICS_LISTEN", validateEnvListenAddr},
		{"telemetry.enabled", "DUALCAPTURE_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "DUALCAPTURE_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvSampleRate(value string) error {
	rate, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid sample rate: %w", err)
	}
	if rate < MinSampleRate || rate > MaxSampleRate {
		return fmt.Errorf("sample rate must be between %d and %d, got %d", MinSampleRate, MaxSampleRate, rate)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !isValidLogLevel(value) {
		return fmt.Errorf("log level must be one of %v", validLogLevels)
	}
	return nil
}

func validateEnvBackend(value string) error {
	if !isValidBackend(value) {
		return fmt.Errorf("backend must be one of %v", validBackends)
	}
	return nil
}

func validateEnvListenAddr(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	return nil
}
