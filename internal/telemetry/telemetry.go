// Package telemetry wires Sentry error reporting into the errors package.
//
// Telemetry is opt-in. When disabled, Init leaves the Sentry hub unbound and
// built errors are never reported.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/dualcapture/internal/errors"
	"github.com/tphakala/dualcapture/internal/logger"
)

const defaultFlushTimeout = 2 * time.Second

var initialized atomic.Bool

// Config holds Sentry client settings.
type Config struct {
	Enabled     bool
	DSN         string
	Environment string
	Release     string

	// Transport overrides the HTTP transport. Used by tests.
	Transport sentry.Transport
}

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init initializes Sentry and registers the error reporter. It is a no-op
// when telemetry is disabled.
func Init(cfg Config) error {
	log := GetLogger()
	if !cfg.Enabled {
		errors.SetTelemetryReporter(nil)
		log.Debug("telemetry disabled")
		return nil
	}
	if cfg.DSN == "" && cfg.Transport == nil {
		return errors.Newf("telemetry enabled without a DSN").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Transport:        cfg.Transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          cfg.Release,
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)
	log.Info("telemetry enabled", logger.String("environment", environment))
	return nil
}

// IsEnabled reports whether Init configured Sentry.
func IsEnabled() bool {
	return initialized.Load()
}

// applyPrivacyFilters strips host and user identifying data from outgoing events.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil
	event.Modules = nil
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// Flush waits for queued events until ctx is done.
func Flush(ctx context.Context) bool {
	if !initialized.Load() {
		return true
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	return sentry.FlushWithContext(ctx)
}

// Shutdown flushes pending events and detaches the error reporter.
func Shutdown(ctx context.Context) {
	if !initialized.Load() {
		return
	}
	if !Flush(ctx) {
		GetLogger().Warn("telemetry flush timed out")
	}
	errors.SetTelemetryReporter(nil)
	initialized.Store(false)
}
