package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	l     *zap.SugaredLogger
)

func init() {
	logger, err := build("")
	if nil != err {
		logger = zap.NewNop()
	}
	l = logger.Sugar()
}

func build(path string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if path != "" {
		cfg.OutputPaths = []string{path}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}
	return cfg.Build(zap.AddCallerSkip(1))
}

// Open redirects output to path ("" means stderr) and applies the level name.
func Open(levelName, path string) error {
	if err := SetLevel(levelName); nil != err {
		return err
	}
	logger, err := build(path)
	if nil != err {
		return fmt.Errorf("log: open %q: %w", path, err)
	}
	l = logger.Sugar()
	return nil
}

func SetLevel(name string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); nil != err {
		return fmt.Errorf("log: unknown level %q", name)
	}
	level.SetLevel(lvl)
	return nil
}

// Use replaces the backing logger, mostly for tests that observe output.
func Use(logger *zap.Logger) {
	l = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func Sync() {
	_ = l.Sync()
}

func Debug(msg any) {
	l.Debug(msg)
}

func DebugF(format string, a ...any) {
	l.Debugf(format, a...)
}

func Info(msg any) {
	l.Info(msg)
}

func InfoF(format string, a ...any) {
	l.Infof(format, a...)
}

func Warn(msg any) {
	l.Warn(msg)
}

func WarnF(format string, a ...any) {
	l.Warnf(format, a...)
}

func Error(msg any) {
	l.Error(msg)
}

func ErrorF(format string, a ...any) {
	l.Errorf(format, a...)
}

func Fatal(msg any) {
	l.Fatal(msg)
}

func FatalF(format string, a ...any) {
	l.Fatalf(format, a...)
}
