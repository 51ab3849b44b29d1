// Package logsvc implements core.Logger on zap, optionally reporting to Rollbar.
package logsvc

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// NewZap builds the process logger: console output, plus a rotated JSON file when conf.Log.FilePath is set.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encConf := zap.NewProductionEncoderConfig()
	encConf.TimeKey = "timestamp"
	encConf.EncodeTime = zapcore.ISO8601TimeEncoder
	encConf.EncodeLevel = zapcore.CapitalLevelEncoder

	var consoleEnc zapcore.Encoder
	if conf.Debug {
		consoleEnc = zapcore.NewConsoleEncoder(encConf)
	} else {
		consoleEnc = zapcore.NewJSONEncoder(encConf)
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stdout), level)}

	if conf.Log.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(conf.Log.FilePath), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating log dir")
		}
		rotator := &lumberjack.Logger{
			Filename:   conf.Log.FilePath,
			MaxSize:    conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			MaxAge:     conf.Log.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encConf), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ZapLogger adapts a *zap.Logger to core.Logger.
type ZapLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{zl: zl}
}

// NewNopLogger discards everything; tests use it.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{zl: zap.NewNop()}
}

func (l *ZapLogger) Zap() *zap.Logger { return l.zl }

// fields turns the loose logger args into zap fields.
// expected fmt: error, map[string]interface{}, user.User
func fields(args []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			fs = append(fs, zap.Error(a))
		case user.User:
			fs = append(fs, zap.Int("user_id", a.ID), zap.String("user_role", a.Role))
		case map[string]interface{}:
			for k, v := range a {
				fs = append(fs, zap.Any(k, v))
			}
		default:
			fs = append(fs, zap.Any("data", a))
		}
	}
	return fs
}

func (l *ZapLogger) log(level zapcore.Level, msg string, args []interface{}) {
	if ce := l.zl.Check(level, msg); ce != nil {
		ce.Write(fields(args)...)
	}
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.log(zapcore.DebugLevel, msg, args) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.log(zapcore.InfoLevel, msg, args) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.log(zapcore.WarnLevel, msg, args) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.log(zapcore.ErrorLevel, msg, args) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.log(zapcore.FatalLevel, msg, args) }

func (l *ZapLogger) Sync() error {
	return l.zl.Sync()
}
