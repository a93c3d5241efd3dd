// Package log holds the process-wide zap logger.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vidset/internal/appdirs"
)

var Logger *zap.Logger

const logFileName = "vidset.log"

var appDirsResolver = appdirs.Resolve

type Options struct {
	// ConsoleLevel filters the console core; the file core always records Debug.
	ConsoleLevel zapcore.Level
	// Console defaults to stderr so stdout stays free for command output.
	Console io.Writer
}

// InitLogger writes JSON records to vidset.log under the log directory and human readable
// lines to the console.
func InitLogger(opts Options) error {
	logFilePath, err := ResolveLogFilePath()
	if err != nil {
		return fmt.Errorf("无法解析日志目录 resolve log dir: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return fmt.Errorf("无法创建日志目录 create log dir: %w", err)
	}
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("无法打开日志文件 open log file: %w", err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), opts.ConsoleLevel),
	)
	Logger = zap.New(core, zap.AddCaller())
	return nil
}

func ResolveLogDir() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	if logDir := strings.TrimSpace(dirs.LogDir); logDir != "" {
		return logDir, nil
	}
	return ".", nil
}

func ResolveLogFilePath() (string, error) {
	logDir, err := ResolveLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName), nil
}

// GetLogger returns a no-op logger until InitLogger has run, so library callers and tests
// never hit a nil logger.
func GetLogger() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}

// Sync flushes buffered records; safe before InitLogger.
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
