package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kendallb/PhalangerMySql/internal/config"
)

// Setup installs the default logger: a text handler on stderr plus, when a
// file output is configured, a second handler appending to that file. The
// returned closer releases the file.
func Setup(cfg config.Logging) (io.Closer, error) {
	logger, closer, err := New(os.Stderr, cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

// New builds the logger Setup installs, writing console output to w.
func New(w io.Writer, cfg config.Logging) (*slog.Logger, io.Closer, error) {
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.ConsoleLevel)}),
	}

	var closer io.Closer = nopCloser{}
	if cfg.FileOutput != "" {
		logFile, err := os.OpenFile(cfg.FileOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(logFile, &slog.HandlerOptions{
			Level: parseLevel(cfg.FileLevel), AddSource: true,
		}))
		closer = logFile
	}

	return slog.New(NewMultiHandler(handlers...)), closer, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
