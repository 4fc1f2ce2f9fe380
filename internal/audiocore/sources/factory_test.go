package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dualcapture/internal/audiocore/sources/malgo"
	"github.com/tphakala/dualcapture/internal/audiocore/sources/wavfile"
	"github.com/tphakala/dualcapture/internal/errors"
)

func TestCreateSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		check   func(t *testing.T, src any)
		wantErr bool
	}{
		{
			name: "soundcard",
			cfg:  Config{ID: "mic", Type: TypeSoundcard, Device: "USB", SampleRate: 16000},
			check: func(t *testing.T, src any) {
				t.Helper()
				assert.IsType(t, &malgo.Source{}, src)
			},
		},
		{
			name: "malgo alias",
			cfg:  Config{ID: "mic", Type: "malgo", SampleRate: 16000},
			check: func(t *testing.T, src any) {
				t.Helper()
				assert.IsType(t, &malgo.Source{}, src)
			},
		},
		{
			name: "file",
			cfg:  Config{ID: "replay", Type: TypeFile, Path: "in.wav"},
			check: func(t *testing.T, src any) {
				t.Helper()
				s, ok := src.(*wavfile.Source)
				require.True(t, ok)
				assert.Equal(t, "in.wav", s.Name())
			},
		},
		{name: "file without path", cfg: Config{Type: TypeFile}, wantErr: true},
		{name: "unknown", cfg: Config{Type: "rtsp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src, err := CreateSource(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				assert.Nil(t, src)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.ID, src.ID())
			tt.check(t, src)
		})
	}
}
