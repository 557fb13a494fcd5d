package logx

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var (
	logger = zap.NewNop()
)

func init() {
	l, err := New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE"))
	if err != nil {
		panic(err)
	}
	logger = l
}

// New builds a JSON production logger. When file is set, output goes to a
// rotating file as well as stdout.
func New(level, file string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, err
		}
	}
	if file == "" {
		return zapCfg.Build(zap.AddCaller())
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapCfg.EncoderConfig),
		zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), sink),
		zapCfg.Level,
	)
	return zap.New(core, zap.AddCaller()), nil
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

// Replace swaps the package logger, e.g. once config has been loaded.
func Replace(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// ContextWith stores a request-scoped logger.
func ContextWith(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithFields returns the request-scoped logger carrying request/trace IDs, or
// the base logger.
func WithFields(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return logger
}
