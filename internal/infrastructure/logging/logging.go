package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console logger plus, when path is non-empty, an
// append-only file core at that path. File open failure degrades to
// console-only rather than aborting the run.
func New(path string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			zapcore.InfoLevel,
		),
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				cores = append(cores, zapcore.NewCore(
					zapcore.NewJSONEncoder(encCfg),
					zapcore.Lock(f),
					zapcore.InfoLevel,
				))
			}
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
