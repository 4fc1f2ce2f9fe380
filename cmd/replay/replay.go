// Package replay implements the WAV replay command.
package replay

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
	"github.com/tphakala/dualcapture/internal/logger"
	"github.com/tphakala/dualcapture/internal/session"
)

// Command creates the replay command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [input.wav]",
		Short: "Feed a mono WAV file through the capture engine",
		Long:  "Replay a mono PCM WAV file as if it were a microphone, logging every pulled window and the final engine counters.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, args[0])
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

// Run replays path until it is exhausted or ctx is done.
func Run(ctx context.Context, settings *conf.Settings, path string) error {
	src, err := sources.CreateSource(sources.Config{
		ID:           "replay",
		Type:         sources.TypeFile,
		Path:         path,
		Realtime:     settings.Replay.Realtime,
		BufferFrames: settings.Capture.BufferFrames,
	})
	if err != nil {
		return err
	}

	st, err := session.Run(ctx, session.ConfigFromSettings(settings), src)
	if err != nil {
		return err
	}

	logger.Global().Module("replay").Info("replay complete",
		logger.String("path", path),
		logger.Uint64("windows", st.Pulls),
		logger.Uint64("samples_pulled", st.SamplesPulled),
		logger.Uint64("samples_overflow", st.SamplesOverflow),
		logger.Uint64("samples_oversize", st.SamplesOversize))
	return nil
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().Bool("realtime", true, "Pace delivery at the file's sample rate")
	if err := viper.BindPFlag("replay.realtime", cmd.Flags().Lookup("realtime")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
