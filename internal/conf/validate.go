// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// Sample rate bounds accepted for capture.
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

var (
	validLogLevels = []string{"trace", "debug", "info", "warn", "error"}
	validBackends  = []string{"", "alsa", "pulse", "jack", "wasapi", "coreaudio", "null"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateCaptureSettings(&settings.Capture); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLogSettings(&settings.Log); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry enabled but no Sentry DSN configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCaptureSettings(c *CaptureSettings) error {
	var errs []string

	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Sprintf("capture sample rate must be between %d and %d, got %d", MinSampleRate, MaxSampleRate, c.SampleRate))
	}
	if c.WindowMs <= 0 {
		errs = append(errs, fmt.Sprintf("capture window must be positive, got %d ms", c.WindowMs))
	} else if c.SampleRate*c.WindowMs/1000 == 0 {
		errs = append(errs, "capture window too short for sample rate, capacity would be zero")
	}
	if c.RequestMs < 0 || c.RequestMs > c.WindowMs {
		errs = append(errs, fmt.Sprintf("capture request window must be between 0 and %d ms, got %d", c.WindowMs, c.RequestMs))
	}
	if c.BufferFrames <= 0 {
		errs = append(errs, fmt.Sprintf("capture buffer frames must be positive, got %d", c.BufferFrames))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("capture poll interval must be positive, got %s", c.PollInterval))
	}
	if !isValidBackend(c.Backend) {
		errs = append(errs, fmt.Sprintf("capture backend must be one of %v, got %q", validBackends, c.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("capture settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogSettings(l *LogSettings) error {
	if !isValidLogLevel(l.Level) {
		return fmt.Errorf("log level must be one of %v, got %q", validLogLevels, l.Level)
	}
	if l.File.Enabled && l.File.Path == "" {
		return fmt.Errorf("log file enabled but no path configured")
	}
	return nil
}

func validateMetricsSettings(m *MetricsSettings) error {
	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		return fmt.Errorf("metrics listen address %q: %w", m.Listen, err)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	return slices.Contains(validLogLevels, strings.ToLower(level))
}

func isValidBackend(backend string) bool {
	return slices.Contains(validBackends, strings.ToLower(backend))
}
