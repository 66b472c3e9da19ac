package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "dealbot"

var Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()

// New builds a logger writing to stdout. Local environments get a console
// writer, everything else JSON lines.
func New(environment, level string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, environment, level)
}

func NewWithWriter(out io.Writer, environment, level string) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}
	if parsedLevel == zerolog.NoLevel {
		parsedLevel = zerolog.InfoLevel
	}

	writer := out
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(parsedLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger(), nil
}

// Init replaces the package logger.
func Init(environment, level string) error {
	l, err := New(environment, level)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

func Info(msg string, args ...any) {
	Logger.Info().Fields(args).Msg(msg)
}

func Error(msg string, args ...any) {
	Logger.Error().Fields(args).Msg(msg)
}

func Debug(msg string, args ...any) {
	Logger.Debug().Fields(args).Msg(msg)
}

func Warn(msg string, args ...any) {
	Logger.Warn().Fields(args).Msg(msg)
}
