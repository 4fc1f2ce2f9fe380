package malgo

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/dualcapture/internal/audiocore"
	"github.com/tphakala/dualcapture/internal/errors"
)

// backendsFor maps a configured backend name onto malgo backends. An empty
// name selects the platform default; nil lets miniaudio probe.
func backendsFor(name, goos string) ([]malgo.Backend, error) {
	switch strings.ToLower(name) {
	case "":
		switch goos {
		case "linux":
			return []malgo.Backend{malgo.BackendAlsa}, nil
		case "windows":
			return []malgo.Backend{malgo.BackendWasapi}, nil
		case "darwin":
			return []malgo.Backend{malgo.BackendCoreaudio}, nil
		default:
			return nil, nil
		}
	case "alsa":
		return []malgo.Backend{malgo.BackendAlsa}, nil
	case "pulse", "pulseaudio":
		return []malgo.Backend{malgo.BackendPulseaudio}, nil
	case "jack":
		return []malgo.Backend{malgo.BackendJack}, nil
	case "wasapi":
		return []malgo.Backend{malgo.BackendWasapi}, nil
	case "coreaudio":
		return []malgo.Backend{malgo.BackendCoreaudio}, nil
	case "null":
		return []malgo.Backend{malgo.BackendNull}, nil
	default:
		return nil, errors.Newf("unsupported audio backend %q", name).
			Component(ComponentMalgo).
			Category(errors.CategoryConfiguration).
			Context("backend", name).
			Context("os", goos).
			Build()
	}
}

// describeDevices converts malgo device infos, skipping the null device.
func describeDevices(infos []malgo.DeviceInfo) []audiocore.DeviceInfo {
	devices := make([]audiocore.DeviceInfo, 0, len(infos))
	for i := range infos {
		name := infos[i].Name()
		if strings.Contains(name, "Discard all samples") {
			continue
		}
		devices = append(devices, audiocore.DeviceInfo{
			Index:     i,
			Name:      name,
			ID:        decodeDeviceID(infos[i].ID.String()),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices
}

// selectDevice returns the position in devices of the requested device.
// Matching order: default, exact name, decoded ID, case-insensitive substring.
func selectDevice(devices []audiocore.DeviceInfo, want string) (int, error) {
	if len(devices) == 0 {
		return -1, errors.Newf("no audio capture devices found").
			Component(ComponentMalgo).
			Category(errors.CategoryNotFound).
			Build()
	}

	if want == "" || want == "default" || want == "sysdefault" {
		for i := range devices {
			if devices[i].IsDefault {
				return i, nil
			}
		}
		return 0, nil
	}

	for i := range devices {
		if devices[i].Name == want {
			return i, nil
		}
	}
	for i := range devices {
		if devices[i].ID == want {
			return i, nil
		}
	}
	lower := strings.ToLower(want)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return i, nil
		}
	}

	return -1, errors.Newf("no matching audio device found for %q", want).
		Component(ComponentMalgo).
		Category(errors.CategoryNotFound).
		Context("device_name", want).
		Context("available_devices", len(devices)).
		Build()
}

// decodeDeviceID turns the hex form of a malgo device ID into its readable
// backend identifier (e.g. ALSA ":1,0"), falling back to the hex string.
func decodeDeviceID(hexID string) string {
	raw, err := hex.DecodeString(hexID)
	if err != nil {
		return hexID
	}
	id := strings.TrimRight(string(raw), "\x00")
	if id == "" {
		return hexID
	}
	return id
}

// formatName returns a readable name for a malgo sample format.
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "u8"
	case malgo.FormatS16:
		return "s16"
	case malgo.FormatS24:
		return "s24"
	case malgo.FormatS32:
		return "s32"
	case malgo.FormatF32:
		return "f32"
	default:
		return fmt.Sprintf("unknown(%d)", format)
	}
}

// ListDevices enumerates capture devices on the given backend.
func ListDevices(backend string) ([]audiocore.DeviceInfo, error) {
	backends, err := backendsFor(backend, runtime.GOOS)
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentMalgo).
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Context("backend", backend).
			Build()
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentMalgo).
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Build()
	}
	return describeDevices(infos), nil
}
