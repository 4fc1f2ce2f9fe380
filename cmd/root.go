// Package cmd wires the dualcapture command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/dualcapture/cmd/capture"
	"github.com/tphakala/dualcapture/cmd/devices"
	"github.com/tphakala/dualcapture/cmd/replay"
	"github.com/tphakala/dualcapture/internal/buildinfo"
	"github.com/tphakala/dualcapture/internal/conf"
	"github.com/tphakala/dualcapture/internal/logger"
	"github.com/tphakala/dualcapture/internal/telemetry"
)

const shutdownTimeout = 3 * time.Second

// app holds state shared between the root command hooks.
type app struct {
	build      *buildinfo.Context
	configFile string
	settings   *conf.Settings
	central    *logger.CentralLogger
}

// Execute runs the root command and releases logging and telemetry afterwards.
func Execute(build *buildinfo.Context) error {
	a := &app{build: build, settings: &conf.Settings{}}
	defer a.shutdown()
	return a.rootCommand().Execute()
}

// rootCommand creates and returns the root command
func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dualcapture",
		Short:         "Dual-buffer microphone capture",
		Long:          "Capture microphone audio through a lock-guarded double buffer and pull complete windows without stalling the audio callback.",
		Version:       a.build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.initialize()
		},
	}

	if err := setupFlags(rootCmd, &a.configFile); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		capture.Command(a.settings),
		replay.Command(a.settings),
		devices.Command(a.settings),
	)
	return rootCmd
}

// initialize loads settings and sets up logging and telemetry before any sub-command runs.
func (a *app) initialize() error {
	if a.configFile != "" {
		viper.SetConfigFile(a.configFile)
	}
	loaded, err := conf.Load()
	if err != nil {
		return err
	}
	*a.settings = *loaded

	central, err := logger.NewCentralLogger(a.settings.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)
	a.central = central
	central.Module("main").Info("starting dualcapture",
		logger.String("version", a.build.Version),
		logger.String("build_date", a.build.BuildDate))

	return telemetry.Init(telemetry.Config{
		Enabled: a.settings.Telemetry.Enabled,
		DSN:     a.settings.Telemetry.DSN,
		Release: a.build.Release(),
	})
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	telemetry.Shutdown(ctx)
	if a.central != nil {
		_ = a.central.Close()
	}
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(configFile, "config", "", "Path to a YAML config file (default: search ./, ~/.config/dualcapture, /etc/dualcapture)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "info", "Console log level (trace, debug, info, warn, error)")
	flags.Int("window-ms", conf.DefaultWindowMs, "Slot window length in milliseconds")
	flags.Int("sample-rate", conf.DefaultSampleRate, "Capture sample rate in Hz")
	flags.Int("request-ms", 0, "Window requested per pull in milliseconds (0 uses --window-ms)")
	flags.Duration("poll-interval", conf.DefaultPollInterval, "Consumer poll interval")
	flags.Int("buffer-frames", conf.DefaultBufferFrames, "Frames per device period or replay chunk")
	flags.String("backend", "", "Audio backend (alsa, pulse, jack, wasapi, coreaudio, null)")
	flags.Bool("metrics", false, "Serve Prometheus metrics and health endpoint")
	flags.String("metrics-listen", conf.DefaultMetricsAddr, "Listen address of the metrics endpoint")
	flags.Bool("telemetry", false, "Enable Sentry error reporting")

	return bindFlags(flags.Lookup, map[string]string{
		"debug":                "debug",
		"log.level":            "log-level",
		"capture.windowms":     "window-ms",
		"capture.samplerate":   "sample-rate",
		"capture.requestms":    "request-ms",
		"capture.pollinterval": "poll-interval",
		"capture.bufferframes": "buffer-frames",
		"capture.backend":      "backend",
		"metrics.enabled":      "metrics",
		"metrics.listen":       "metrics-listen",
		"telemetry.enabled":    "telemetry",
	})
}
