package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init configures the global logger. Debug level switches to the
// human-friendly console writer; every other level writes JSON lines.
func Init(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stdout
	if lvl == zerolog.DebugLevel {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	log = zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "aijarvis").
		Logger()
}

func init() {
	Init("info")
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
func Fatal() *zerolog.Event { return log.Fatal() }

// Fatalf logs at fatal level and exits.
func Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(format, v...)
}

// Module returns a child logger tagged with the component name.
func Module(name string) zerolog.Logger {
	return log.With().Str("module", name).Logger()
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer) {
	log = log.Output(w)
}

// GinLogger logs one line per request. The route pattern is logged instead
// of the raw path so webhook ids do not explode cardinality downstream.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Int("size", c.Writer.Size()).
			Msg("request")
	}
}

// GinRecovery converts panics into a 500 with the uniform error body.
func GinRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Msg("panic recovered")
		c.AbortWithStatusJSON(500, gin.H{"success": false, "error": "Internal Server Error"})
	})
}
