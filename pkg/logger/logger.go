package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Named loggers. They are no-ops until InitLoggers runs.
var (
	ErrorLogger    = zap.NewNop()
	AuditLogger    = zap.NewNop()
	RequestLogger  = zap.NewNop()
	SecurityLogger = zap.NewNop()
	SystemLogger   = zap.NewNop()
)

func newLogger(dir, name string, level zapcore.Level) (*zap.Logger, error) {
	ws := zapcore.AddSync(os.Stdout)
	if dir != "" {
		file, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		ws = zapcore.AddSync(file)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		ws,
		level,
	)
	return zap.New(core).Named(name), nil
}

// InitLoggers builds every named logger. Each writes to <dir>/<name>.log,
// or to stdout when dir is empty.
func InitLoggers(dir string) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	specs := []struct {
		target **zap.Logger
		name   string
		level  zapcore.Level
	}{
		{&ErrorLogger, "errors", zapcore.ErrorLevel},
		{&AuditLogger, "audit", zapcore.InfoLevel},
		{&RequestLogger, "request", zapcore.InfoLevel},
		{&SecurityLogger, "security", zapcore.WarnLevel},
		{&SystemLogger, "system", zapcore.InfoLevel},
	}
	for _, s := range specs {
		l, err := newLogger(dir, s.name, s.level)
		if err != nil {
			return err
		}
		*s.target = l
	}
	return nil
}

func SyncLoggers() {
	for _, l := range []*zap.Logger{ErrorLogger, AuditLogger, RequestLogger, SecurityLogger, SystemLogger} {
		_ = l.Sync()
	}
}
