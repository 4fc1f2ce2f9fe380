package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dualcapture/internal/buildinfo"
	"github.com/tphakala/dualcapture/internal/conf"
)

// These tests use the global viper instance and must not run in parallel.

func newTestApp(t *testing.T) (*app, *cobra.Command) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	a := &app{build: buildinfo.New("test", "2026-10-18"), settings: &conf.Settings{}}
	root := a.rootCommand()
	root.AddCommand(&cobra.Command{
		Use:  "noop",
		RunE: func(*cobra.Command, []string) error { return nil },
	})
	t.Cleanup(a.shutdown)
	return a, root
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	a, root := newTestApp(t)

	cfgPath := filepath.Join(t.TempDir(), "dualcapture.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("capture:\n  windowms: 500\n  samplerate: 48000\n"), 0o600))

	root.SetArgs([]string{"--config", cfgPath, "--sample-rate", "8000", "--log-level", "error", "noop"})
	require.NoError(t, root.Execute())

	assert.Equal(t, 500, a.settings.Capture.WindowMs)
	assert.Equal(t, 8000, a.settings.Capture.SampleRate)
	assert.Equal(t, conf.DefaultPollInterval, a.settings.Capture.PollInterval)
	assert.Equal(t, "error", a.settings.Log.Level)
	assert.NotNil(t, a.central)
}

func TestMissingConfigFileFails(t *testing.T) {
	_, root := newTestApp(t)

	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "noop"})
	require.Error(t, root.Execute())
}

func TestVersionFlag(t *testing.T) {
	_, root := newTestApp(t)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "test (built 2026-10-18)")
}

func TestSubcommandsRegistered(t *testing.T) {
	_, root := newTestApp(t)

	for _, name := range []string{"capture", "replay", "devices"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}
