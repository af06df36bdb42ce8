// Package logger builds the zap logger shared by the server, the CLI
// commands and the OTP dispatch consumer.
package logger

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/account-service/internal/config"
)

// New returns a JSON logger writing to stdout and, when cfg.Filename is
// set, to a rolling file.  The returned close function flushes buffered
// file output and must be called before exit.
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	return build(cfg, os.Stdout)
}

func build(cfg config.LogConfig, console io.Writer) (*zap.Logger, func(), error) {
	level := new(zapcore.Level)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, err
		}
	}

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(console)}
	var buffered *zapcore.BufferedWriteSyncer
	if cfg.Filename != "" {
		buffered = &zapcore.BufferedWriteSyncer{
			WS: zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.Filename,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}),
			Size:          256 * 1024,
			FlushInterval: 5 * time.Second,
		}
		syncers = append(syncers, buffered)
	}

	core := zapcore.NewCore(encoder(), zapcore.NewMultiWriteSyncer(syncers...), level)
	log := zap.New(core, zap.AddCaller())

	closeFn := func() {
		_ = log.Sync()
		if buffered != nil {
			_ = buffered.Stop()
		}
	}
	return log, closeFn, nil
}

func encoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}
