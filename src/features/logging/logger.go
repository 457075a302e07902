package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/contre95/navidrop/src/features/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

func SetupLogger(cfg *config.Manager) *slog.Logger {
	logCfg := cfg.Get().Logger

	var formatter log.Formatter
	switch logCfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "text":
		formatter = log.TextFormatter
	default:
		formatter = log.LogfmtFormatter
	}

	level := log.InfoLevel
	switch logCfg.Level {
	case "debug":
		level = log.DebugLevel
	case "info":
		level = log.InfoLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	if !logCfg.Enabled {
		level = log.FatalLevel
	}

	handler := log.NewWithOptions(output(logCfg.File), log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "Navidrop",
		Formatter:       formatter,
		Level:           level,
	})

	logger := slog.New(handler)
	logger.Info("Logger initialized", "time", time.Now().Format(time.RFC3339), "file", logCfg.File.Path)
	return logger
}

// output returns stderr, teed into a rotating file when a path is configured.
func output(file config.LogFile) io.Writer {
	if file.Path == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(file.Path), 0o750); err != nil {
		slog.Warn("cannot create log directory, logging to stderr only", "path", file.Path, "error", err)
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	})
}
