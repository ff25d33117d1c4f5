package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"encodegate/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Writer receives records. Nil means stderr.
	Writer io.Writer
}

// New constructs a slog logger. Debug level adds source locations.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	addSource := level <= slog.LevelDebug

	switch resolveFormat(opts.Format, os.Stderr) {
	case "json":
		return slog.New(newJSONHandler(writer, level, addSource)), nil
	case "console":
		return slog.New(newConsoleHandler(writer, level, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds the daemon logger from the [logging] section. Records
// go to stderr and, when logFile is set, are appended to <log_dir>/<logFile>.
func NewFromConfig(cfg *config.Config, logFile string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Format: "auto"})
	}
	var writer io.Writer = os.Stderr
	if logFile != "" && cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		path := filepath.Join(cfg.Paths.LogDir, logFile)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		writer = io.MultiWriter(os.Stderr, file)
	}
	return New(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Writer: writer})
}

func newJSONHandler(w io.Writer, level slog.Level, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch {
			case a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime:
				return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
			case a.Key == slog.LevelKey:
				return slog.String(a.Key, strings.ToLower(a.Value.String()))
			case a.Key == slog.SourceKey:
				if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String(a.Key, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			case a.Value.Kind() == slog.KindDuration:
				return slog.Float64(a.Key+"_ms", float64(a.Value.Duration())/float64(time.Millisecond))
			case a.Value.Kind() == slog.KindAny:
				if err, ok := a.Value.Any().(error); ok {
					return slog.String(a.Key, err.Error())
				}
			}
			return a
		},
	})
}

// resolveFormat maps "auto" to console on a terminal and json elsewhere.
func resolveFormat(format string, tty *os.File) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != "auto" {
		return format
	}
	if tty != nil && (isatty.IsTerminal(tty.Fd()) || isatty.IsCygwinTerminal(tty.Fd())) {
		return "console"
	}
	return "json"
}

func parseLevel(level string) slog.Level {
	var parsed slog.Level
	switch value := strings.ToLower(strings.TrimSpace(level)); value {
	case "":
		return slog.LevelInfo
	case "warning":
		return slog.LevelWarn
	default:
		if err := parsed.UnmarshalText([]byte(value)); err != nil {
			return slog.LevelInfo
		}
		return parsed
	}
}
