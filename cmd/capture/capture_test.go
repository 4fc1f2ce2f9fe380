package capture

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dualcapture/internal/conf"
	"github.com/tphakala/dualcapture/internal/errors"
)

// These tests use the global viper instance and must not run in parallel.

func TestDeviceFlagBindsViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := Command(&conf.Settings{})
	assert.Empty(t, viper.GetString("capture.device"))

	require.NoError(t, cmd.Flags().Set("device", "USB Mic"))
	assert.Equal(t, "USB Mic", viper.GetString("capture.device"))
}

func TestCommandRejectsArguments(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := Command(&conf.Settings{})
	require.Error(t, cmd.Args(cmd, []string{"extra"}))
	require.NoError(t, cmd.Args(cmd, nil))
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	settings := &conf.Settings{
		Capture: conf.CaptureSettings{
			WindowMs:     conf.DefaultWindowMs,
			SampleRate:   conf.DefaultSampleRate,
			Backend:      "bogus",
			BufferFrames: conf.DefaultBufferFrames,
			PollInterval: conf.DefaultPollInterval,
		},
	}

	err := Run(context.Background(), settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
