package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"nightlife-storefront/internal/config"
)

const (
	KeyTag           = "tag"
	KeyProcess       = "process"
	KeyRequestID     = "requestId"
	KeySessionID     = "sessionId"
	KeyClientID      = "clientId"
	KeyRequestMethod = "requestMethod"
	KeyRequestURI    = "requestURI"
	KeyRequestIP     = "requesterIP"
	KeyStatus        = "status"
	KeyDuration      = "duration"
	KeyClubID        = "clubId"
	KeyTransaction   = "transactionId"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Get builds the process logger once. Output goes to stdout and, when a file
// is configured, to a rotated log file.
func Get(cfg config.LogConfig, env string) zerolog.Logger {
	once.Do(func() {
		zerolog.DurationFieldUnit = time.Millisecond
		zerolog.ErrorFieldName = "error"
		zerolog.LevelFieldName = "level"
		zerolog.MessageFieldName = "message"
		zerolog.TimestampFieldName = "timestamp"

		level, err := zerolog.ParseLevel(cfg.Level)
		if err != nil || level == zerolog.NoLevel {
			level = zerolog.InfoLevel
		}
		if env == "development" && level > zerolog.DebugLevel {
			level = zerolog.DebugLevel
		}

		var output io.Writer = os.Stdout
		if env == "development" {
			output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		}
		if cfg.File != "" {
			output = zerolog.MultiLevelWriter(output, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    50,
				MaxBackups: 5,
				Compress:   true,
			})
		}

		logger = zerolog.New(output).
			Level(level).
			With().
			Timestamp().
			Caller().
			Int("pid", os.Getpid()).
			Logger()

		logger.Info().
			Str(KeyTag, "logger.Get").
			Str(KeyProcess, "init logger").
			Msg("finish initiating logging")
	})
	return logger
}

// FromContext returns the request logger, or a disabled logger when none is attached.
func FromContext(c context.Context) *zerolog.Logger {
	return zerolog.Ctx(c)
}

type requestID struct{}

func AttachRequestID(c context.Context, id string) context.Context {
	return context.WithValue(c, requestID{}, id)
}

func RequestIDFromContext(c context.Context) string {
	id, _ := c.Value(requestID{}).(string)
	return id
}
