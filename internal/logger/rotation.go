package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logDirPermissions = 0o700

// newRotatingWriter opens a size-rotated log file described by out.
func newRotatingWriter(out *FileOutput) (io.WriteCloser, error) {
	if out.Path == "" {
		return nil, fmt.Errorf("file path is required for rotating logger")
	}

	if dir := filepath.Dir(out.Path); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &lumberjack.Logger{
		Filename:   out.Path,
		MaxSize:    out.MaxSize,
		MaxAge:     out.MaxAge,
		MaxBackups: out.MaxBackups,
		Compress:   out.Compress,
	}, nil
}
