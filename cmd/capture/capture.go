// Package capture implements the live microphone capture command.
package capture

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/dualcapture/internal/audiocore/sources"
	"github.com/tphakala/dualcapture/internal/conf"
	"github.com/tphakala/dualcapture/internal/session"
)

// Command creates the capture command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture from a microphone until interrupted",
		Long:  "Open a capture device, feed it through the dual-buffer engine and log every pulled window until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

// Run captures from the configured device until ctx is done.
func Run(ctx context.Context, settings *conf.Settings) error {
	src, err := sources.CreateSource(sources.Config{
		ID:           "soundcard",
		Type:         sources.TypeSoundcard,
		Device:       settings.Capture.Device,
		Backend:      settings.Capture.Backend,
		SampleRate:   settings.Capture.SampleRate,
		BufferFrames: settings.Capture.BufferFrames,
	})
	if err != nil {
		return err
	}
	_, err = session.Run(ctx, session.ConfigFromSettings(settings), src)
	return err
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("device", "", "Capture device name, ID or name substring (default: system default)")
	if err := viper.BindPFlag("capture.device", cmd.Flags().Lookup("device")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
