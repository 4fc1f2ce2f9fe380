// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default capture parameters.
const (
	DefaultWindowMs     = 1000
	DefaultSampleRate   = 16000
	DefaultBufferFrames = 1024
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMetricsAddr  = "127.0.0.1:9464"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("capture.windowms", DefaultWindowMs)
	v.SetDefault("capture.samplerate", DefaultSampleRate)
	v.SetDefault("capture.device", "")
	v.SetDefault("capture.backend", "")
	v.SetDefault("capture.bufferframes", DefaultBufferFrames)
	v.SetDefault("capture.requestms", 0)
	v.SetDefault("capture.pollinterval", DefaultPollInterval)

	v.SetDefault("replay.realtime", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "logs/dualcapture.log")
	v.SetDefault("log.file.maxsize", 100)
	v.SetDefault("log.file.maxage", 30)
	v.SetDefault("log.file.maxbackups", 10)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsAddr)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}
