package yoga

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface
type ZerologLogger struct {
	log zerolog.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger builds a leveled zerolog logger writing to stderr.
// When debug is true output is rendered for humans.
func NewZerologLogger(level string, debug bool) *ZerologLogger {
	var out io.Writer = os.Stderr
	if debug {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewZerologLoggerWithWriter(out, level)
}

// NewZerologLoggerWithWriter builds a leveled zerolog logger writing to w
func NewZerologLoggerWithWriter(w io.Writer, level string) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return &ZerologLogger{
		log: zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "yoga").Logger(),
	}
}

// Zerolog exposes the underlying logger
func (z *ZerologLogger) Zerolog() zerolog.Logger {
	return z.log
}

func (z *ZerologLogger) Debug(format string, args ...any) {
	z.log.Debug().Msgf(format, args...)
}

func (z *ZerologLogger) Info(format string, args ...any) {
	z.log.Info().Msgf(format, args...)
}

func (z *ZerologLogger) Warn(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

func (z *ZerologLogger) Error(format string, args ...any) {
	z.log.Error().Msgf(format, args...)
}
